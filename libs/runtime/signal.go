package runtime

import (
	"context"
	"os/signal"
	"syscall"
)

// SignalContext is the root context for a service process; it is cancelled
// on SIGINT or SIGTERM so consumers and servers drain before exit.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

