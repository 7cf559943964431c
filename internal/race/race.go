// Package race runs competing operations and keeps the first to finish.
package race

import (
	"context"
	"errors"
	"time"
)

// ErrNoContenders is returned by First when called without functions.
var ErrNoContenders = errors.New("race: no contenders")

// Func is one contender. It must return promptly once ctx is done.
type Func[T any] func(ctx context.Context) (T, error)

type outcome[T any] struct {
	value T
	err   error
}

// First runs every contender concurrently and returns the result of the
// first one to finish, successful or not. The context handed to the losers
// is cancelled before First returns; their results are discarded when they
// eventually arrive. If ctx is done before any contender finishes, First
// returns ctx.Err().
func First[T any](ctx context.Context, fns ...Func[T]) (T, error) {
	var zero T
	if len(fns) == 0 {
		return zero, ErrNoContenders
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// buffered so losers never block after we stop listening
	results := make(chan outcome[T], len(fns))
	for _, fn := range fns {
		go func(fn Func[T]) {
			v, err := fn(ctx)
			results <- outcome[T]{value: v, err: err}
		}(fn)
	}

	select {
	case r := <-results:
		return r.value, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// After is a contender that fails with err once d elapses.
func After[T any](d time.Duration, err error) Func[T] {
	return func(ctx context.Context) (T, error) {
		var zero T
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return zero, err
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}
