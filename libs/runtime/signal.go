package runtime

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"
)

func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Closer is one named step of a graceful shutdown.
type Closer struct {
	Name  string
	Close func(context.Context) error
}

// Shutdown runs closers in reverse registration order under a single deadline.
// Failures are logged and do not stop the remaining steps.
func Shutdown(logger *slog.Logger, timeout time.Duration, closers ...Closer) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for i := len(closers) - 1; i >= 0; i-- {
		c := closers[i]
		if c.Close == nil {
			continue
		}
		if err := c.Close(ctx); err != nil {
			logger.Error("shutdown step failed", "step", c.Name, "err", err)
			continue
		}
		logger.Debug("shutdown step done", "step", c.Name)
	}
}
