// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aymerick/raymond"
	"github.com/google/uuid"
)

// WebhookSender delivers a batch of changes to an external endpoint.
//
// A slice argument is a batch only syntactically: semantically each
// change is delivered as an independent request, in order, and delivery
// fails fast — if any change's delivery errors, subsequent changes in
// the slice are not attempted.
type WebhookSender interface {
	Send(ctx context.Context, changes []IpChange) error
}

// WebhookError is returned by [WebhookSender.Send].
type WebhookError struct {
	// Err wraps an error classification that was not retryable; it is
	// nil when the retries were exhausted, in which case Attempts and
	// LastError are set instead — see the two constructors.
	Err       error
	Attempts  int
	LastError *RetryableError
}

// Error implements the error interface.
func (e *WebhookError) Error() string {
	if e.LastError != nil {
		return fmt.Sprintf("webhook: max retries exceeded (%d attempts): %v", e.Attempts, e.LastError)
	}
	return fmt.Sprintf("webhook: %v", e.Err)
}

// Unwrap returns the non-retryable error, if any.
func (e *WebhookError) Unwrap() error { return e.Err }

// newNonRetryableWebhookError wraps an error the retry loop decided not
// to retry.
func newNonRetryableWebhookError(err *RetryableError) *WebhookError {
	return &WebhookError{Err: err}
}

// newMaxRetriesExceededWebhookError wraps the last retryable error once
// the retry loop stops: either every attempt was used, or the backoff
// sleep before the next attempt returned an error (e.g. ctx was done).
func newMaxRetriesExceededWebhookError(attempts int, last *RetryableError) *WebhookError {
	return &WebhookError{Attempts: attempts, LastError: last}
}

// HttpWebhook is the production [WebhookSender]: one HTTP request per
// [IpChange], with exponential-backoff retry per the configured
// [RetryPolicy].
type HttpWebhook struct {
	Client  HttpClient
	Sleeper Sleeper
	URL     string
	Method  string
	Headers http.Header

	// BodyTemplate is an optional compiled Handlebars template rendered with
	// {adapter, address, kind, timestamp} for each change. When nil,
	// requests carry no body.
	BodyTemplate *raymond.Template

	Retry  RetryPolicy
	Logger SLogger
}

// NewHttpWebhook returns an [*HttpWebhook] with the spec defaults
// (method POST, default retry policy, discarding logger).
func NewHttpWebhook(client HttpClient, url string) *HttpWebhook {
	return &HttpWebhook{
		Client:  client,
		Sleeper: SystemSleeper{},
		URL:     url,
		Method:  http.MethodPost,
		Headers: make(http.Header),
		Retry:   DefaultRetryPolicy(),
		Logger:  DefaultSLogger(),
	}
}

var _ WebhookSender = &HttpWebhook{}

// Send implements [WebhookSender]. An empty slice returns success
// immediately without any request.
func (w *HttpWebhook) Send(ctx context.Context, changes []IpChange) error {
	for _, change := range changes {
		if err := w.deliver(ctx, change); err != nil {
			return err
		}
	}
	return nil
}

// deliver sends one change, retrying per w.Retry, and logs every
// attempt and its outcome.
func (w *HttpWebhook) deliver(ctx context.Context, change IpChange) error {
	deliveryID := newDeliveryID()

	body, err := w.renderBody(change)
	if err != nil {
		return newNonRetryableWebhookError(&RetryableError{Kind: RetryableErrorTemplate, Message: err.Error()})
	}

	req := &HttpRequest{Method: w.Method, URL: w.URL, Headers: w.Headers.Clone(), Body: body}

	var lastErr *RetryableError
	for attempt := 0; attempt < w.Retry.MaxAttempts; attempt++ {
		classified := w.attempt(ctx, req)
		w.logAttempt(deliveryID, change, attempt, classified)

		if classified == nil {
			return nil
		}
		if !classified.IsRetryable() {
			return newNonRetryableWebhookError(classified)
		}
		lastErr = classified
		if !w.Retry.ShouldRetry(attempt) {
			return newMaxRetriesExceededWebhookError(attempt+1, lastErr)
		}
		if err := w.Sleeper.Sleep(ctx, w.Retry.DelayForRetry(attempt)); err != nil {
			return newMaxRetriesExceededWebhookError(attempt+1, lastErr)
		}
	}
	return newMaxRetriesExceededWebhookError(w.Retry.MaxAttempts, lastErr)
}

// attempt performs a single HTTP round trip and classifies the outcome.
// Returns nil on success.
func (w *HttpWebhook) attempt(ctx context.Context, req *HttpRequest) *RetryableError {
	resp, err := w.Client.Request(ctx, req)
	if err != nil {
		httpErr, ok := err.(*HttpError)
		if !ok {
			httpErr = &HttpError{Kind: HttpErrorConnection, URL: req.URL, Err: err}
		}
		return &RetryableError{Kind: RetryableErrorHttp, Http: httpErr}
	}
	if resp.IsSuccess() {
		return nil
	}
	return &RetryableError{Kind: RetryableErrorNonSuccessStatus, Status: resp.Status, BodyText: string(resp.Body)}
}

// renderBody renders w.BodyTemplate with the change's variables. Returns
// nil, nil when no template is configured.
func (w *HttpWebhook) renderBody(change IpChange) ([]byte, error) {
	if w.BodyTemplate == nil {
		return nil, nil
	}
	rendered, err := w.BodyTemplate.Exec(templateVars(change))
	if err != nil {
		return nil, err
	}
	return []byte(rendered), nil
}

// templateVars builds the Handlebars variable map for one change:
// adapter, address, kind ("added"/"removed"), and timestamp (unix
// seconds).
func templateVars(change IpChange) map[string]any {
	return map[string]any{
		"adapter":   change.Adapter,
		"address":   change.Address.String(),
		"kind":      change.Kind.String(),
		"timestamp": change.Timestamp.Unix(),
	}
}

func newDeliveryID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return ""
	}
	return id.String()
}

func (w *HttpWebhook) logAttempt(deliveryID string, change IpChange, attempt int, outcome *RetryableError) {
	attrs := []any{
		slog.String("deliveryId", deliveryID),
		slog.String("adapter", change.Adapter),
		slog.String("address", change.Address.String()),
		slog.String("kind", change.Kind.String()),
		slog.Int("attempt", attempt),
	}
	if outcome != nil {
		attrs = append(attrs, slog.Any("err", outcome))
	}
	w.Logger.Info("webhookAttempt", attrs...)
}
