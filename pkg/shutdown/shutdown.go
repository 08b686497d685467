// Package shutdown provides a signal-driven graceful shutdown hook
// registry shared by every long-running command in this module.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Shutdown coordinates a root cancellation context with a set of named
// callbacks run concurrently when a shutdown is triggered.
type Shutdown struct {
	logger    *zerolog.Logger
	rootCtx   context.Context
	cancel    func()
	mutex     sync.Mutex
	callbacks []callback
	sigCh     chan os.Signal
}

type callback struct {
	name    string
	f       func()
	timeout time.Duration // zero means no timeout
}

func NewShutdown(logger *zerolog.Logger) *Shutdown {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	return &Shutdown{
		logger:    logger,
		rootCtx:   ctx,
		cancel:    cancel,
		callbacks: make([]callback, 0),
		sigCh:     sigCh,
	}
}

// HookShutdownCallback registers a callback to run during shutdown. A
// zero timeout means the callback runs without a deadline.
func (s *Shutdown) HookShutdownCallback(name string, f func(), timeout time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.callbacks = append(s.callbacks, callback{name: name, f: f, timeout: timeout})
}

func (s *Shutdown) Context() context.Context {
	return s.rootCtx
}

func (s *Shutdown) SysDown() <-chan struct{} {
	return s.rootCtx.Done()
}

func (s *Shutdown) WaitForShutdown(sigs ...os.Signal) {
	if len(sigs) > 0 {
		signal.Notify(s.sigCh, sigs...)
	}
	<-s.sigCh
	s.cancel()
	s.logger.Info().Msg("shutdown signal received, begin shutdown")
	s.shutdown()
	s.logger.Info().Msg("shutdown completed")
}

// ShutdownNow manually triggers the shutdown process, for programmatic
// use without waiting for a system signal.
func (s *Shutdown) ShutdownNow() {
	s.cancel()
	s.logger.Info().Msg("manual shutdown triggered")
	s.shutdown()
	s.logger.Info().Msg("shutdown completed")
}

func (s *Shutdown) shutdown() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	wg := sync.WaitGroup{}
	for _, cb := range s.callbacks {
		wg.Add(1)
		go func(cb callback) {
			defer wg.Done()
			s.logger.Info().Str("name", cb.name).Msg("running shutdown callback")

			var ctx context.Context
			var cancel context.CancelFunc
			if cb.timeout > 0 {
				ctx, cancel = context.WithTimeout(context.Background(), cb.timeout)
				defer cancel()
			} else {
				ctx = context.Background()
			}

			done := make(chan struct{})
			go func() {
				defer close(done)
				cb.f()
			}()

			select {
			case <-done:
				s.logger.Info().Str("name", cb.name).Msg("shutdown callback done")
			case <-ctx.Done():
				if cb.timeout > 0 {
					s.logger.Error().Str("name", cb.name).Dur("timeout", cb.timeout).Msg("shutdown callback timed out")
				}
			}
		}(cb)
	}
	wg.Wait()
}
