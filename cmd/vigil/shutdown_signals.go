package main

import (
	"context"
	"os"
	"sync/atomic"

	"vigil/internal/logging"
)

// watchShutdownSignals cancels the run context on the first signal and
// logs repeats instead of acting on them; running commands are never
// interrupted by a second Ctrl-C.
func watchShutdownSignals(logger *logging.Logger, shutdownCancel context.CancelFunc, signalCh <-chan os.Signal) func() {
	if signalCh == nil {
		return func() {}
	}

	done := make(chan struct{})
	var started atomic.Bool

	logSignal := func(message string, sig os.Signal) {
		if logger == nil {
			return
		}
		fields := map[string]string{}
		if sig != nil {
			fields["signal"] = sig.String()
		}
		logger.Info(message, fields)
	}

	go func() {
		for {
			select {
			case <-done:
				return
			case sig, ok := <-signalCh:
				if !ok {
					return
				}
				if started.CompareAndSwap(false, true) {
					logSignal("shutdown signal received", sig)
					if shutdownCancel != nil {
						shutdownCancel()
					}
					continue
				}
				logSignal("shutdown already in progress; ignoring signal", sig)
			}
		}
	}()

	return func() {
		close(done)
	}
}
