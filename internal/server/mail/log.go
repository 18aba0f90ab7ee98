package mail

import (
	"context"

	"github.com/dmitrijs2005/watchlist-auth/internal/logging"
)

// LogMailer writes messages to the log instead of sending them. Development
// only: the log line contains the message body.
type LogMailer struct {
	logger logging.Logger
}

func NewLogMailer(logger logging.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.Info(ctx, "mail", "to", msg.To, "subject", msg.Subject, "text", msg.Text)
	return nil
}
