// Package notify tells applicants their simulation was saved.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Message is a notification for one addressee. Template names the e-mail
// template the delivery worker renders with Params.
type Message struct {
	To       string            `json:"to"`
	Template string            `json:"template"`
	Params   map[string]string `json:"params"`
	SentAt   time.Time         `json:"sentAt"`
}

// Notifier delivers messages.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// LogNotifier writes messages to the log instead of delivering them.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that logs at info level.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs msg.
func (l *LogNotifier) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.logger.Info("notification",
		zap.String("op", "notify.LogNotifier.Notify"),
		zap.String("to", msg.To),
		zap.String("template", msg.Template),
		zap.Any("params", msg.Params),
	)
	return nil
}
