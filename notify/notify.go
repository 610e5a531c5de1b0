// Package notify delivers human-facing failure notifications. The engine
// emits one when required-field validation fails or a fetch backend reports
// errors; everything below that boundary stays in the logs.
package notify

import "log/slog"

// Notifier is the notification collaborator consumed by the scrape and
// search layers.
type Notifier interface {
	// Error emits a failure notification with a short title and body.
	Error(title, body string)
}

// LogNotifier writes notifications to the structured log. It is the default
// when no webhook endpoint is configured.
type LogNotifier struct{}

func (LogNotifier) Error(title, body string) {
	slog.Error("notification", "title", title, "body", body)
}
