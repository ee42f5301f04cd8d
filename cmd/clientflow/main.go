// Package main is the ClientFlow operator CLI.
package main

import (
	"context"
	"os"
	_ "time/tzdata"

	"github.com/dmayes77/clientflow-sub001/pkg/log"
)

func main() {
	err := NewCommand().Run(context.Background(), os.Args)
	if err != nil {
		log.WithModule("clientflow").Error("Command failed", "error", err)
		os.Exit(1)
	}
}
