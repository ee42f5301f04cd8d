// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"log/slog"

	"github.com/dmayes77/clientflow-sub001/pkg/actions"
	"github.com/dmayes77/clientflow-sub001/pkg/registry"
)

func registerActionPlugins(ctx context.Context, reg *registry.Registry, pluginsPath string) error {
	actionPlugins, err := reg.LoadActionPlugins(ctx, pluginsPath)
	if err != nil {
		return err
	}

	for _, plugin := range actionPlugins {
		reg.Register(plugin)
	}

	return nil
}

// NewRegistry registers the built-in action handlers, then any plugin handlers
// found under pluginsPath. Plugins replace built-ins of the same type.
func NewRegistry(ctx context.Context, log *slog.Logger, pluginsPath string, deps actions.Dependencies) (*registry.Registry, error) {
	reg := registry.NewRegistry(log)

	actions.RegisterDefaults(reg, deps)

	if pluginsPath == "" {
		return reg, nil
	}

	err := registerActionPlugins(ctx, reg, pluginsPath)
	if err != nil {
		return nil, err
	}

	return reg, nil
}
