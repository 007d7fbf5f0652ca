package service

import (
	"context"
	"log/slog"
	"time"
)

// Mailer is the outbound email collaborator. Implementations deliver one
// message and return a transport message id.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) (string, error)
}

const defaultMailTimeout = 60 * time.Second

// sendInBackground schedules a delivery detached from the request lifecycle.
// The outcome is logged and never joined with the response path: registration
// and reset-request latency must not include SMTP latency, and a transport
// failure must not fail the request that is already committed.
func sendInBackground(logger *slog.Logger, mailer Mailer, timeout time.Duration, to, subject, body string) {
	if mailer == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultMailTimeout
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		messageID, err := mailer.Send(ctx, to, subject, body)
		if err != nil {
			logger.Error("background email failed",
				"to", to,
				"subject", subject,
				"duration_ms", time.Since(start).Milliseconds(),
				"err", err,
			)
			return
		}
		logger.Info("background email sent",
			"to", to,
			"subject", subject,
			"message_id", messageID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()
}
