package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// NotifyContext returns a context cancelled by the first SIGINT or SIGTERM.
// A second signal calls exit with ExitInterrupted. stop releases the handler.
func NotifyContext(parent context.Context, logger *zap.Logger, exit func(int)) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancel(parent)
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		count := 0
		for {
			select {
			case sig := <-signals:
				count++
				if count == 1 {
					logger.Warn("interrupt received, finishing running tests and cleaning up (repeat to force exit)", zap.String("signal", sig.String()))
					cancel()
					continue
				}
				logger.Error("forced exit", zap.String("signal", sig.String()))
				exit(ExitInterrupted)
				return
			case <-done:
				return
			}
		}
	}()

	return ctx, func() {
		signal.Stop(signals)
		close(done)
		cancel()
	}
}
