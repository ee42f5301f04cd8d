package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmayes77/clientflow-sub001/pkg/cmd"
	"github.com/dmayes77/clientflow-sub001/pkg/log"
	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

var errUnknownTenant = errors.New("tenant not found")

func NewCommand() *cli.Command {
	return &cli.Command{
		Name:                  "clientflow",
		Usage:                 "Operate tenants, workflows and delayed runs",
		EnableShellCompletion: true,
		Flags:                 cmd.CommonFlags(),
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			migrateCommand(),
			provisionCommand(),
			processPendingCommand(),
			triggerCommand(),
			statusCommand(),
		},
	}
}

func tenantFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "tenant",
		Aliases:  []string{"t"},
		Usage:    "Tenant ID",
		Required: true,
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations",
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("migrate")

			p, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer closeQuietly(ctx, logger, p.Close)

			err = p.HealthCheck(ctx)
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "Store is migrated")

			return nil
		},
	}
}

func provisionCommand() *cli.Command {
	return &cli.Command{
		Name:  "provision",
		Usage: "Create the system tags, templates and default workflows of a tenant",
		Flags: []cli.Flag{tenantFlag()},
		Action: func(ctx context.Context, command *cli.Command) error {
			return withRuntime(ctx, command, "provision", func(rt *cmd.Runtime) error {
				report, err := rt.Provisioner().ProvisionTenant(ctx, command.String("tenant"))
				if err != nil {
					return err
				}

				return printJSON(command, report)
			})
		},
	}
}

func processPendingCommand() *cli.Command {
	return &cli.Command{
		Name:  "process-pending",
		Usage: "Execute delayed workflow runs that are due",
		Action: func(ctx context.Context, command *cli.Command) error {
			return withRuntime(ctx, command, "process-pending", func(rt *cmd.Runtime) error {
				summary, err := rt.Engine.ProcessPendingWorkflows(ctx)
				if err != nil {
					return err
				}

				return printJSON(command, summary)
			})
		},
	}
}

func triggerCommand() *cli.Command {
	return &cli.Command{
		Name:  "trigger",
		Usage: "Raise a trigger and run the matching workflows in this process",
		Flags: []cli.Flag{
			tenantFlag(),
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Trigger name, e.g. booking_completed", Required: true},
			&cli.StringFlag{Name: "contact", Usage: "Contact ID"},
			&cli.StringFlag{Name: "booking", Usage: "Booking ID"},
			&cli.StringFlag{Name: "invoice", Usage: "Invoice ID"},
			&cli.StringFlag{Name: "payment", Usage: "Payment ID"},
			&cli.StringFlag{Name: "tag", Usage: "Tag ID"},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return withRuntime(ctx, command, "trigger", func(rt *cmd.Runtime) error {
				tc, err := rt.Engine.Loader().Load(ctx, models.ContextRefs{
					TenantID:  command.String("tenant"),
					ContactID: command.String("contact"),
					BookingID: command.String("booking"),
					InvoiceID: command.String("invoice"),
					PaymentID: command.String("payment"),
					TagID:     command.String("tag"),
				})
				if err != nil {
					return err
				}

				if tc.Tenant == nil {
					return fmt.Errorf("%w: %s", errUnknownTenant, command.String("tenant"))
				}

				summary, err := rt.Engine.TriggerWorkflows(ctx, command.String("name"), tc)
				if err != nil {
					return err
				}

				return printJSON(command, summary)
			})
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Move an invoice, booking, payment or contact to a new status",
		Flags: []cli.Flag{
			tenantFlag(),
			&cli.StringFlag{Name: "kind", Usage: "invoice, booking, payment or contact", Required: true},
			&cli.StringFlag{Name: "id", Usage: "Entity ID", Required: true},
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "New status", Required: true},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return withRuntime(ctx, command, "status", func(rt *cmd.Runtime) error {
				lifecycle := rt.Lifecycle(workflow.SyncEmitter{Engine: rt.Engine})

				result, err := lifecycle.Transition(ctx,
					models.EntityKind(command.String("kind")),
					command.String("tenant"),
					command.String("id"),
					command.String("status"))
				if err != nil {
					return err
				}

				return printJSON(command, result)
			})
		},
	}
}

func withRuntime(ctx context.Context, command *cli.Command, module string, fn func(rt *cmd.Runtime) error) error {
	logger := log.WithModule(module)

	rt, err := cmd.NewRuntime(ctx, logger, cmd.OptionsFromCommand(command, "clientflow"))
	if err != nil {
		return err
	}

	defer closeQuietly(ctx, logger, rt.Close)

	return fn(rt)
}

func closeQuietly(ctx context.Context, logger *slog.Logger, closeFn func(context.Context) error) {
	err := closeFn(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to close", "error", err)
	}
}

func printJSON(command *cli.Command, v any) error {
	encoder := json.NewEncoder(command.Root().Writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}
