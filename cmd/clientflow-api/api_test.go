package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/dmayes77/clientflow-sub001/pkg/cmd"
	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) (*fiber.App, *cmd.Runtime, *workflow.AsyncEmitter) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	runtime, err := cmd.NewRuntime(t.Context(), logger, cmd.Options{DatabaseURL: t.TempDir()})
	require.NoError(t, err)

	emitter := workflow.NewAsyncEmitter(runtime.Engine, logger)

	t.Cleanup(func() {
		emitter.Wait()

		_ = runtime.Close(t.Context())
	})

	return NewAPI(logger, runtime, emitter).App(), runtime, emitter
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestAPI_RootEndpoint(t *testing.T) {
	t.Parallel()

	app, _, _ := setupTestApp(t)

	status, body := get(t, app, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ClientFlow API", body)
}

func TestAPI_HealthEndpoints(t *testing.T) {
	t.Parallel()

	app, _, _ := setupTestApp(t)

	for _, path := range []string{"/livez", "/readyz", "/health"} {
		status, _ := get(t, app, path)
		assert.Equal(t, http.StatusOK, status, path)
	}
}

func TestAPI_ProvisionedWorkflowsAreListed(t *testing.T) {
	t.Parallel()

	app, runtime, _ := setupTestApp(t)
	ctx := t.Context()

	require.NoError(t, runtime.Persistence.EntityRepository().SaveTenant(ctx, &models.Tenant{ID: "tenant-1", Name: "Acme"}))

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/tenants/tenant-1/provision", nil))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	status, body := get(t, app, "/tenants/tenant-1/workflows")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"system_key":"invoice_sent_workflow"`)
}
