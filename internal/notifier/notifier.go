package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Notice is one absence notification handed to the delivery collaborator.
type Notice struct {
	Address    string    `json:"address"`
	CourseCode string    `json:"course_code"`
	ClassLabel string    `json:"class_label"`
	Date       time.Time `json:"date"`
}

// Notifier delivers absence notices. Delivery failures are the
// collaborator's problem; the core fires and forgets.
type Notifier interface {
	Send(ctx context.Context, notice Notice) error
}

// WebhookNotifier posts notices to an external delivery endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier constructs a webhook-backed notifier.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts one notice as JSON.
func (n *WebhookNotifier) Send(ctx context.Context, notice Notice) error {
	payload, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("encode notice: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build notice request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notice: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notice delivery returned status %d", resp.StatusCode)
	}
	return nil
}

// LogNotifier writes notices to the log. Used when no delivery endpoint is
// configured, typically in development.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a log-backed notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Send logs the notice instead of delivering it.
func (n *LogNotifier) Send(_ context.Context, notice Notice) error {
	n.logger.Info("absence notice",
		zap.String("address", notice.Address),
		zap.String("course_code", notice.CourseCode),
		zap.String("class_label", notice.ClassLabel),
		zap.Time("date", notice.Date))
	return nil
}
