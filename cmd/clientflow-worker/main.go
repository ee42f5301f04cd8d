// Package main runs the ClientFlow worker: it consumes raised triggers from the
// event bus and sweeps delayed workflow runs on a schedule.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/dmayes77/clientflow-sub001/pkg/cmd"
	"github.com/dmayes77/clientflow-sub001/pkg/log"
	"github.com/dmayes77/clientflow-sub001/pkg/scheduler"
	"github.com/dmayes77/clientflow-sub001/pkg/worker"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func main() {
	flags := append(cmd.CommonFlags(),
		&cli.StringFlag{
			Name:    "worker-id",
			Aliases: []string{"id"},
			Usage:   "Custom worker ID (auto-generated if not provided)",
			Sources: cli.EnvVars("WORKER_ID"),
		},
		&cli.StringFlag{
			Name:    "sweep-schedule",
			Usage:   "Cron schedule of the delayed run sweep",
			Value:   scheduler.DefaultSchedule,
			Sources: cli.EnvVars("SWEEP_SCHEDULE"),
		},
	)

	command := &cli.Command{
		Name:                  "clientflow-worker",
		EnableShellCompletion: true,
		Usage:                 "Execute triggered and delayed workflows",
		Flags:                 flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("clientflow-worker").With("worker_id", workerID)

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.InfoContext(ctx, "Initializing ClientFlow Worker")

			opts := cmd.OptionsFromCommand(command, "clientflow-worker")

			runtime, err := cmd.NewRuntime(ctx, logger, opts)
			if err != nil {
				return err
			}

			defer func() {
				err := runtime.Close(context.WithoutCancel(ctx))
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(opts.EventBus, logger)
			if err != nil {
				return err
			}

			eventBus.WithTracer(runtime.Tracer)

			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			w := worker.New(workerID, runtime.Engine, eventBus, command.String("sweep-schedule"), logger)

			err = w.Start(ctx)
			if err != nil {
				return err
			}

			<-ctx.Done()
			logger.InfoContext(ctx, "Shutting down worker...")

			w.Stop(context.WithoutCancel(ctx))

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		log.WithModule("clientflow-worker").Error("Worker stopped", "error", err)
		os.Exit(1)
	}
}
