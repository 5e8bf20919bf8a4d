package mail

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/congregation/pkg/slogx"
)

// LogSender writes messages to the log instead of delivering them. Used in
// development; the body is logged at debug so reset links are reachable.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	log := slogx.FromContext(ctx)
	log.Info("mail: not delivered (log driver)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	log.Debug("mail: body", slog.String("subject", msg.Subject), slog.String("html", msg.HTML))
	return nil
}
