package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/ahmedandnoor/HappyClothify/internal/metrics"
	"github.com/ahmedandnoor/HappyClothify/internal/models"
)

// ErrDispatch means the sink answered with a non-2xx status.
var ErrDispatch = errors.New("notification rejected")

// StatusError carries the status of a non-2xx webhook response. It matches
// ErrDispatch with errors.Is.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d", ErrDispatch, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrDispatch }

// rejected reports whether the sink refused this particular message. Such a
// failure says nothing about the sink's health, so it must not trip the
// breaker and hold back the orders queued behind it.
func rejected(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	switch se.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return se.StatusCode >= 400 && se.StatusCode < 500
}

// Notifier delivers one order notification. A nil error means delivered.
type Notifier interface {
	Notify(ctx context.Context, order models.Order) error
}

// WebhookPayload is the body posted to the chat webhook.
type WebhookPayload struct {
	Content string `json:"content"`
}

// WebhookNotifier posts orders to a chat webhook. Calls go through a circuit
// breaker; a rejected call is reported as an error like any other failure.
type WebhookNotifier struct {
	url    string
	client *http.Client
	cb     *gobreaker.CircuitBreaker[struct{}]
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	const name = "order-webhook"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Only transport errors, 5xx, 408 and 429 count against the sink.
		IsSuccessful: func(err error) bool {
			return err == nil || rejected(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		cb:     cb,
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, order models.Order) error {
	_, err := n.cb.Execute(func() (struct{}, error) {
		return struct{}{}, n.post(ctx, WebhookPayload{Content: FormatMessage(order)})
	})
	return err
}

func (n *WebhookNotifier) post(ctx context.Context, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// LogNotifier only logs the message. It stands in when no webhook is
// configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(_ context.Context, order models.Order) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Order notification (no webhook configured)", "message", FormatMessage(order))
	return nil
}
