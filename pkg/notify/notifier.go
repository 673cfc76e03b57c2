// Package notify surfaces operational events (primarily terminal API
// failures) to operators. Notifiers never propagate their own failures back
// into the calling request path; delivery problems are logged and dropped.
package notify

import (
	"context"
	"time"

	"github.com/mlstock/kiwoom-connector/pkg/common"
	"github.com/mlstock/kiwoom-connector/pkg/logging"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

// Notifier delivers a message with an optional structured payload.
// Implementations must not panic and must not let delivery failures escape
// to the caller.
type Notifier interface {
	Notify(message string, level Level, payload map[string]interface{})
}

// ConsoleNotifier writes notifications through the module logger.
type ConsoleNotifier struct {
	Logger logging.Logger
}

// NewConsoleNotifier creates a notifier that logs notifications.
func NewConsoleNotifier(logger logging.Logger) *ConsoleNotifier {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &ConsoleNotifier{Logger: logger}
}

// Notify implements Notifier.
func (n *ConsoleNotifier) Notify(message string, level Level, payload map[string]interface{}) {
	fields := make([]logging.Field, 0, len(payload))
	for k, v := range payload {
		fields = append(fields, logging.Any(k, v))
	}

	switch level {
	case LevelWarning:
		n.Logger.Warn(message, fields...)
	case LevelError:
		n.Logger.Error(message, fields...)
	default:
		n.Logger.Info(message, fields...)
	}
}

// WebhookNotifier POSTs notifications as JSON to a webhook endpoint.
type WebhookNotifier struct {
	URL     string
	Client  common.HTTPClient
	Logger  logging.Logger
	Timeout time.Duration
}

// NewWebhookNotifier creates a webhook notifier. A nil client gets the
// default rate-limited transport.
func NewWebhookNotifier(url string, client common.HTTPClient, logger logging.Logger) *WebhookNotifier {
	if client == nil {
		client = common.NewHTTPClient(nil)
	}
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &WebhookNotifier{
		URL:     url,
		Client:  client,
		Logger:  logger,
		Timeout: 5 * time.Second,
	}
}

// Notify implements Notifier. Delivery failures are logged at warn level and
// never returned.
func (n *WebhookNotifier) Notify(message string, level Level, payload map[string]interface{}) {
	body := map[string]interface{}{
		"message": message,
		"level":   string(level),
		"payload": payload,
	}
	if body["payload"] == nil {
		body["payload"] = map[string]interface{}{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.Timeout)
	defer cancel()

	resp, err := n.Client.Post(ctx, n.URL, body)
	if err != nil {
		n.Logger.Warn("webhook notification failed", logging.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.Logger.Warn("webhook notification rejected",
			logging.Int("status", resp.StatusCode),
			logging.String("url", n.URL),
		)
	}
}
