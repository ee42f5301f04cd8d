package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/dmayes77/clientflow-sub001/pkg/cmd"
	"github.com/dmayes77/clientflow-sub001/pkg/eventbus"
	"github.com/dmayes77/clientflow-sub001/pkg/log"
	"github.com/dmayes77/clientflow-sub001/pkg/scheduler"
	"github.com/dmayes77/clientflow-sub001/pkg/worker"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	flags := append(cmd.CommonFlags(),
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
		},
		&cli.BoolFlag{
			Name:    "embedded-worker",
			Usage:   "Consume triggers and sweep delayed runs in this process (always on for gochannel)",
			Sources: cli.EnvVars("EMBEDDED_WORKER"),
		},
		&cli.StringFlag{
			Name:    "sweep-schedule",
			Usage:   "Cron schedule of the delayed run sweep for the embedded worker",
			Value:   scheduler.DefaultSchedule,
			Sources: cli.EnvVars("SWEEP_SCHEDULE"),
		},
	)

	command := &cli.Command{
		Name:                  "clientflow-api",
		Usage:                 "Serve the workflow, lifecycle and provisioning API",
		EnableShellCompletion: true,
		Flags:                 flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.InfoContext(ctx, "Initializing ClientFlow API")

			opts := cmd.OptionsFromCommand(command, "clientflow-api")

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
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			if command.Bool("embedded-worker") || opts.EventBus.Provider != cmd.EventBusKafka {
				w := worker.New("api-"+uuid.New().String()[:8], runtime.Engine, eventBus, command.String("sweep-schedule"), logger)

				err = w.Start(ctx)
				if err != nil {
					return fmt.Errorf("failed to start embedded worker: %w", err)
				}

				defer w.Stop(context.WithoutCancel(ctx))
			}

			api := NewAPI(logger, runtime, eventbus.NewTriggerPublisher(eventBus))

			return api.Start(ctx, command.Int("port"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		logger.Error("ClientFlow API stopped", "error", err)
		os.Exit(1)
	}
}
