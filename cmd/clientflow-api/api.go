// Package main provides the ClientFlow API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dmayes77/clientflow-sub001/pkg/cmd"
	"github.com/dmayes77/clientflow-sub001/pkg/protocol"
	"github.com/dmayes77/clientflow-sub001/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger   *slog.Logger
	runtime  *cmd.Runtime
	emitter  protocol.TriggerEmitter
	validate *validator.Validate
}

func NewAPI(logger *slog.Logger, runtime *cmd.Runtime, emitter protocol.TriggerEmitter) *API {
	return &API{
		logger:   logger,
		runtime:  runtime,
		emitter:  emitter,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(web.Dependencies{
		Workflows:   a.runtime.Workflows(),
		Lifecycle:   a.runtime.Lifecycle(a.emitter),
		Provisioner: a.runtime.Provisioner(),
		Loader:      a.runtime.Engine.Loader(),
		Pending:     a.runtime.Engine,
		Emitter:     a.emitter,
		Validator:   a.validate,
		Registry:    a.runtime.Registry,
	})

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("ClientFlow API")
	})

	handlers.Routes(app)

	return app
}

// Start serves until ctx is done, then shuts the server down.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	go func() {
		<-ctx.Done()

		a.logger.Info("Shutting down API server")

		err := app.Shutdown()
		if err != nil {
			a.logger.Error("Failed to shut down API server", "error", err)
		}
	}()

	return app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
}
