package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// withTimeout: общий таймаут процесса плюс отмена по Ctrl+C / SIGTERM.
func withTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if d <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, d)
	return tctx, func() { cancel(); stop() }
}
