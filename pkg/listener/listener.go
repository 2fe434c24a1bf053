package listener

import (
	"context"
	"fmt"
	"sync"
)

// Listener hands every value received on a channel to a handler running on
// its own goroutine. It stops when the channel is closed, the context is
// cancelled or the handler fails.
type Listener[T any] struct {
	handler     func(input T) error
	stopHandler func()

	in     <-chan T
	wg     sync.WaitGroup
	cancel context.CancelFunc
	err    error
}

func New[T any](
	in <-chan T,
	handler func(T) error,
	stopHandler ...func(),
) *Listener[T] {
	if len(stopHandler) == 0 {
		stopHandler = []func(){func() {}}
	}

	return &Listener[T]{
		in:          in,
		handler:     handler,
		cancel:      func() {},
		stopHandler: stopHandler[0],
	}
}

func (l *Listener[T]) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	l.wg.Add(1)

	go func() {
		defer l.wg.Done()
		l.err = l.run(ctx)
	}()
}

// run keeps receiving after a handler failure so senders never block; the
// remaining input is discarded.
func (l *Listener[T]) run(ctx context.Context) error {
	var failed error
	for {
		select {
		case inp, ok := <-l.in:
			if !ok {
				return failed
			}
			if failed != nil {
				continue
			}
			if err := l.handler(inp); err != nil {
				failed = fmt.Errorf("failed to handle input: %w", err)
			}
		case <-ctx.Done():
			return failed
		}
	}
}

// Wait blocks until the input channel is drained and closed, then runs the
// stop handler and returns the handler error, if any.
func (l *Listener[T]) Wait() error {
	l.wg.Wait()
	l.stopHandler()
	return l.err
}

// Stop cancels the listener without waiting for the channel to close.
func (l *Listener[T]) Stop() error {
	l.cancel()
	return l.Wait()
}
