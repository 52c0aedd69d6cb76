package resource

import (
	"context"
	"errors"
)

// Stream is a live sequence of Resources. Producers emit at most one Loading
// first, then a Success per change; an Error is the last value before the
// channel is closed. Cancelling the producer's context closes the channel.
type Stream[T any] <-chan Resource[T]

// ErrStreamClosed is returned when a stream ends before a settled value arrives.
var ErrStreamClosed = errors.New("resource: stream closed")

// Send delivers r on ch unless ctx is done first.
func Send[T any](ctx context.Context, ch chan<- Resource[T], r Resource[T]) bool {
	select {
	case ch <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

// Once returns a closed stream holding a single Resource.
func Once[T any](r Resource[T]) Stream[T] {
	ch := make(chan Resource[T], 1)
	ch <- r
	close(ch)
	return ch
}

// Settled waits for the first non-Loading emission.
func Settled[T any](ctx context.Context, s Stream[T]) (Resource[T], error) {
	for {
		select {
		case r, ok := <-s:
			if !ok {
				return Resource[T]{}, ErrStreamClosed
			}
			if !r.IsLoading() {
				return r, nil
			}
		case <-ctx.Done():
			return Resource[T]{}, ctx.Err()
		}
	}
}

// Until reads emissions until pred accepts one or the stream ends.
func Until[T any](ctx context.Context, s Stream[T], pred func(Resource[T]) bool) (Resource[T], error) {
	for {
		select {
		case r, ok := <-s:
			if !ok {
				return Resource[T]{}, ErrStreamClosed
			}
			if pred(r) {
				return r, nil
			}
		case <-ctx.Done():
			return Resource[T]{}, ctx.Err()
		}
	}
}

// Each calls fn for every emission until the stream closes, ctx is done or
// fn returns false.
func Each[T any](ctx context.Context, s Stream[T], fn func(Resource[T]) bool) error {
	for {
		select {
		case r, ok := <-s:
			if !ok {
				return nil
			}
			if !fn(r) {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// MapStream transforms every emission of s with Map. The returned stream
// closes when s closes or ctx is done.
func MapStream[T, R any](ctx context.Context, s Stream[T], fn func(T) R) Stream[R] {
	out := make(chan Resource[R])
	go func() {
		defer close(out)
		_ = Each(ctx, s, func(r Resource[T]) bool {
			return Send(ctx, out, Map(r, fn))
		})
	}()
	return out
}
