package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmayes77/clientflow-sub001/pkg/actions"
	"github.com/dmayes77/clientflow-sub001/pkg/config"
	"github.com/dmayes77/clientflow-sub001/pkg/locker"
	"github.com/dmayes77/clientflow-sub001/pkg/mailer"
	"github.com/dmayes77/clientflow-sub001/pkg/otelhelper"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
	"github.com/dmayes77/clientflow-sub001/pkg/protocol"
	"github.com/dmayes77/clientflow-sub001/pkg/provision"
	"github.com/dmayes77/clientflow-sub001/pkg/registry"
	"github.com/dmayes77/clientflow-sub001/pkg/services"
	"github.com/dmayes77/clientflow-sub001/pkg/tagstatus"
	"github.com/dmayes77/clientflow-sub001/pkg/workflow"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultLockWait   = 5 * time.Second
	defaultServiceTag = "clientflow"
)

// Options carries the settings shared by every binary.
type Options struct {
	ServiceName  string
	DatabaseURL  string
	PluginsPath  string
	RedisURL     string
	AppURL       string
	ResendAPIKey string
	FromEmail    string
	SeedFile     string
	OTELEnabled  bool
	EventBus     EventBusOptions
}

// Runtime holds the collaborators built from Options.
type Runtime struct {
	Persistence persistence.Persistence
	Registry    *registry.Registry
	Engine      *workflow.Engine
	Seed        *config.Seed
	Locker      locker.Locker
	Tracer      trace.Tracer
	Logger      *slog.Logger

	closers []func(ctx context.Context) error
}

// NewRuntime opens the store and wires the engine. Callers must Close the runtime.
func NewRuntime(ctx context.Context, logger *slog.Logger, opts Options) (*Runtime, error) {
	rt := &Runtime{Logger: logger}

	err := rt.build(ctx, opts)
	if err != nil {
		closeErr := rt.Close(ctx)

		return nil, errors.Join(err, closeErr)
	}

	return rt, nil
}

func (rt *Runtime) build(ctx context.Context, opts Options) error {
	var err error

	rt.Tracer, err = NewTracer(ctx, opts)
	if err != nil {
		return err
	}

	rt.Seed, err = NewSeed(opts.SeedFile)
	if err != nil {
		return err
	}

	rt.Persistence, err = NewPersistence(ctx, rt.Logger, opts.DatabaseURL)
	if err != nil {
		return err
	}

	rt.closers = append(rt.closers, rt.Persistence.Close)

	rt.Locker, err = rt.newLocker(ctx, opts.RedisURL)
	if err != nil {
		return err
	}

	rt.Registry, err = NewRegistry(ctx, rt.Logger, opts.PluginsPath, actions.Dependencies{
		Persistence: rt.Persistence,
		Mailer:      NewMailer(opts, rt.Logger),
		AppURL:      opts.AppURL,
		Logger: rt.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to load action plugins: %w", err)
	}

	executor := actions.NewExecutor(rt.Registry, rt.Tracer, rt.Logger)
	rt.Engine = workflow.NewEngine(rt.Persistence, executor, rt.Logger, workflow.WithTracer(rt.Tracer))

	return nil
}

func (rt *Runtime) newLocker(ctx context.Context, redisURL string) (locker.Locker, error) {
	if redisURL == "" {
		return locker.NewMemory(defaultLockWait), nil
	}

	client, err := locker.Connect(ctx, redisURL)
	if err != nil {
		return nil, err
	}

	rt.closers = append(rt.closers, func(context.Context) error { return client.Close() })

	return locker.NewRedis(client, rt.Logger, locker.WithWait(defaultLockWait)), nil
}

// Lifecycle builds the status transition service around emitter.
func (rt *Runtime) Lifecycle(emitter protocol.TriggerEmitter) *services.Lifecycle {
	tags := tagstatus.NewManager(rt.Persistence, emitter, rt.Logger, tagstatus.WithLocker(rt.Locker))

	return services.NewLifecycle(rt.Persistence, tags, emitter, rt.Logger)
}

func (rt *Runtime) Provisioner() *provision.Provisioner {
	return provision.NewProvisioner(rt.Persistence, rt.Seed, rt.Logger)
}

func (rt *Runtime) Workflows() *services.Workflow {
	return services.NewWorkflow(rt.Persistence, rt.Registry)
}

// Close releases everything opened by NewRuntime, newest first.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error

	for i := len(rt.closers) - 1; i >= 0; i-- {
		err := rt.closers[i](ctx)
		if err != nil {
			errs = append(errs, err)
		}
	}

	rt.closers = nil

	return errors.Join(errs...)
}

// NewTracer returns an OTLP tracer when enabled and a no-op tracer otherwise.
//
// nolint:ireturn
func NewTracer(ctx context.Context, opts Options) (trace.Tracer, error) {
	if !opts.OTELEnabled {
		return otelhelper.NoopTracer(), nil
	}

	name := opts.ServiceName
	if name == "" {
		name = defaultServiceTag
	}

	tracer, err := otelhelper.NewTracer(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	return tracer, nil
}

// NewSeed loads the provisioning seed from path, or the embedded default.
func NewSeed(path string) (*config.Seed, error) {
	if path == "" {
		return config.DefaultSeed()
	}

	return config.LoadSeed(path)
}

// NewMailer sends through Resend when an API key is set and logs messages otherwise.
//
// nolint:ireturn
func NewMailer(opts Options, logger *slog.Logger) mailer.Mailer {
	if opts.ResendAPIKey == "" {
		return mailer.NewLogMailer(logger)
	}

	return mailer.NewResendMailer(opts.ResendAPIKey, opts.FromEmail, logger)
}
