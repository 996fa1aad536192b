package syncer

import (
	"context"
	"log/slog"
)

// LogNotifier is the default Notifier; it writes sync outcomes to the log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) NotifySyncComplete(_ context.Context, email string, count int) error {
	n.Logger.Info("cache refreshed", "email", email, "total_found", count)
	return nil
}

func (n LogNotifier) NotifySyncFailed(_ context.Context, email, reason string) error {
	n.Logger.Warn("cache refresh failed", "email", email, "reason", reason)
	return nil
}
