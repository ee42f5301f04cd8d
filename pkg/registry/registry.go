// Package registry holds the action handlers known to the executor, keyed by action type.
package registry

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"sort"
	"sync"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/protocol"
)

type Registry struct {
	logger   *slog.Logger
	mu       sync.RWMutex
	handlers map[models.ActionType]protocol.ActionHandler
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:   log.With("module", "registry"),
		handlers: make(map[models.ActionType]protocol.ActionHandler),
	}
}

// Register adds a handler, replacing any handler of the same type.
func (r *Registry) Register(handler protocol.ActionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[handler.Type()]; exists {
		r.logger.Warn("Replacing action handler", "type", handler.Type())
	}

	r.handlers[handler.Type()] = handler
}

// Handler returns the handler for an action type.
func (r *Registry) Handler(actionType models.ActionType) (protocol.ActionHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[actionType]

	return handler, ok
}

// Types returns the registered action types in lexical order.
func (r *Registry) Types() []models.ActionType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]models.ActionType, 0, len(r.handlers))
	for actionType := range r.handlers {
		types = append(types, actionType)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// Schema returns the config schema of an action type.
func (r *Registry) Schema(actionType models.ActionType) (map[string]any, error) {
	handler, ok := r.Handler(actionType)
	if !ok {
		return nil, fmt.Errorf("action type '%s' not registered", actionType)
	}

	return handler.Schema(), nil
}

// LoadActionPlugins opens every *.so under pluginsPath/actions and returns the
// handlers exported as the "Action" symbol.
func (r *Registry) LoadActionPlugins(ctx context.Context, pluginsPath string) ([]protocol.ActionHandler, error) {
	return loadPlugin[protocol.ActionHandler](ctx, r.logger, pluginsPath, "Action")
}

func loadPlugin[T any](ctx context.Context, logger *slog.Logger, pluginsPath string, symbolName string) ([]T, error) {
	rootPath := pluginsPath + "/actions"

	if _, err := os.Stat(rootPath); os.IsNotExist(err) {
		return nil, nil
	}

	pluginPathList, err := fs.Glob(os.DirFS(rootPath), "*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", rootPath), slog.String("type", symbolName))
	l.InfoContext(ctx, "Loading plugins")

	pluginList := make([]T, 0, len(pluginPathList))
	for _, p := range pluginPathList {
		plg, err := plugin.Open(rootPath + "/" + p)
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("plugin %s has no %s symbol: %w", p, symbolName, err)
		}

		castV, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("plugin %s: %s symbol has type %T", p, symbolName, v)
		}

		pluginList = append(pluginList, castV)

		l.InfoContext(ctx, "Loaded action plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}
