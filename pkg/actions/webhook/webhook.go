// Package webhook provides the webhook action: an outbound HTTP call carrying
// a small snapshot of the trigger context.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/google/uuid"
)

const (
	HeaderEvent     = "X-Webhook-Event"
	HeaderID        = "X-Webhook-ID"
	HeaderTimestamp = "X-Webhook-Timestamp"
	HeaderSignature = "X-Webhook-Signature"
)

// ErrServerError is returned when the endpoint keeps answering with a 5xx status.
var ErrServerError = errors.New("webhook server error")

// Action calls config.url with config.method, POST by default.
type Action struct {
	client   *http.Client
	attempts int
	delay    time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Action)

// WithHTTPClient replaces the client. The default is http.DefaultClient.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Action) { a.client = client }
}

// WithRetry sets how many attempts are made on 5xx answers and the pause between them.
// The default is a single attempt.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(a *Action) {
		if attempts > 0 {
			a.attempts = attempts
		}

		a.delay = delay
	}
}

// WithClock replaces the time source used for payload and signature timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Action) { a.now = now }
}

func NewAction(logger *slog.Logger, opts ...Option) *Action {
	a := &Action{
		client:   http.DefaultClient,
		attempts: 1,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With("module", "webhook_action"),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *Action) Type() models.ActionType {
	return models.ActionWebhook
}

func (a *Action) Execute(ctx context.Context, action models.Action, tc *models.TriggerContext) (models.ActionResult, error) {
	config := models.ConfigAs[models.WebhookConfig](action)

	if strings.TrimSpace(config.URL) == "" {
		return models.Failed(a.Type(), "Missing webhook URL"), nil
	}

	method := strings.ToUpper(config.Method)
	if method == "" {
		method = http.MethodPost
	}

	sentAt := a.now()

	var body []byte

	if method != http.MethodGet && (config.IncludePayload == nil || *config.IncludePayload) {
		var err error

		body, err = json.Marshal(BuildPayload(tc, sentAt))
		if err != nil {
			return models.ActionResult{}, fmt.Errorf("failed to marshal webhook payload: %w", err)
		}
	}

	headers := a.headers(tc, config.Secret, sentAt, body)

	logger := a.logger.With("url", config.URL, "method", method)
	logger.InfoContext(ctx, "Executing webhook")

	var (
		lastErr error
		resp    *http.Response
	)

	for attempt := 1; attempt <= a.attempts; attempt++ {
		if attempt > 1 {
			logger.InfoContext(ctx, fmt.Sprintf("Webhook retry attempt %d/%d", attempt, a.attempts))

			err := pause(ctx, a.delay)
			if err != nil {
				lastErr = fmt.Errorf("webhook retry abandoned: %w", err)

				break
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, config.URL, bytes.NewReader(body))
		if err != nil {
			return models.Failed(a.Type(), "Invalid webhook request: "+err.Error()), nil
		}

		req.Header = headers.Clone()

		resp, err = a.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("webhook request failed: %w", err)
			resp = nil

			continue
		}

		if resp.StatusCode >= 500 && attempt < a.attempts {
			err = resp.Body.Close()
			if err != nil {
				logger.ErrorContext(ctx, "failed to close response body", "error", err)
			}

			lastErr = fmt.Errorf("status %d: %w", resp.StatusCode, ErrServerError)
			resp = nil

			continue
		}

		break
	}

	if resp == nil {
		logger.WarnContext(ctx, "Webhook failed", "error", lastErr)

		return models.Failed(a.Type(), lastErr.Error()), nil
	}

	return a.processResponse(ctx, resp, logger), nil
}

func pause(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (a *Action) headers(tc *models.TriggerContext, secret string, sentAt time.Time, body []byte) http.Header {
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("User-Agent", "ClientFlow-Webhook/1.0")
	headers.Set(HeaderID, uuid.NewString())

	if tc != nil && tc.Trigger != "" {
		headers.Set(HeaderEvent, tc.Trigger)
	}

	if secret != "" {
		timestamp := strconv.FormatInt(sentAt.Unix(), 10)
		headers.Set(HeaderTimestamp, timestamp)
		headers.Set(HeaderSignature, Sign(secret, timestamp, body))
	}

	return headers
}

func (a *Action) processResponse(ctx context.Context, resp *http.Response, logger *slog.Logger) models.ActionResult {
	defer func() {
		_ = resp.Body.Close()
	}()

	_, err := io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		logger.WarnContext(ctx, "Failed to drain webhook response", "error", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.WarnContext(ctx, "Webhook rejected", "status_code", resp.StatusCode)

		return models.Failed(a.Type(), fmt.Sprintf("Webhook returned status %d", resp.StatusCode))
	}

	logger.InfoContext(ctx, "Webhook delivered", "status_code", resp.StatusCode)

	result := models.Succeeded(a.Type(), "Webhook delivered")
	result.Data = map[string]any{"statusCode": resp.StatusCode}

	return result
}

// Sign returns the hex HMAC-SHA256 of "timestamp.body" keyed by secret.
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)

	return hex.EncodeToString(mac.Sum(nil))
}

func (a *Action) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"format":      "uri",
				"minLength":   1,
				"description": "Endpoint to call.",
				"examples":    []string{"https://hooks.example.com/clientflow"},
			},
			"method": map[string]any{
				"type":    "string",
				"enum":    []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
				"default": http.MethodPost,
			},
			"includePayload": map[string]any{
				"type":        "boolean",
				"default":     true,
				"description": "Send the context snapshot as JSON body. Ignored for GET.",
			},
			"secret": map[string]any{
				"type":        "string",
				"description": "When set, requests carry " + HeaderTimestamp + " and " + HeaderSignature + " headers.",
			},
		},
		"required": []string{"url"},
	}
}
