// Package resource provides the tagged Loading/Success/Error container returned
// by every repository operation and carried by every live stream.
package resource

import (
	"fmt"

	"github.com/ericfisherdev/projectsync/internal/domain"
)

// State discriminates the three Resource variants.
type State uint8

const (
	StateLoading State = iota + 1
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Resource is an immutable value in exactly one of three states. The zero
// value is not a valid Resource; build one with Loading, Success or Error.
type Resource[T any] struct {
	state   State
	data    T
	message string
	cause   error
}

// Loading returns a Resource carrying no data.
func Loading[T any]() Resource[T] {
	return Resource[T]{state: StateLoading}
}

// Success returns a Resource carrying the resolved value.
func Success[T any](data T) Resource[T] {
	return Resource[T]{state: StateSuccess, data: data}
}

// Error returns a Resource carrying a human-readable message and an optional cause.
func Error[T any](message string, cause error) Resource[T] {
	return Resource[T]{state: StateError, message: message, cause: cause}
}

// FromError builds an Error resource whose message is the domain message of err.
func FromError[T any](err error) Resource[T] {
	return Error[T](domain.MessageOf(err), err)
}

func (r Resource[T]) State() State { return r.state }

func (r Resource[T]) IsLoading() bool { return r.state == StateLoading }

func (r Resource[T]) IsSuccess() bool { return r.state == StateSuccess }

func (r Resource[T]) IsError() bool { return r.state == StateError }

// Data returns the value and whether the Resource is a Success.
func (r Resource[T]) Data() (T, bool) {
	return r.data, r.state == StateSuccess
}

// Message returns the error message; empty unless the Resource is an Error.
func (r Resource[T]) Message() string { return r.message }

// Err returns the error carried by an Error resource, or nil. When no cause
// was recorded, the message itself becomes the error.
func (r Resource[T]) Err() error {
	if r.state != StateError {
		return nil
	}
	if r.cause != nil {
		return r.cause
	}
	return fmt.Errorf("%s", r.message)
}

func (r Resource[T]) String() string {
	switch r.state {
	case StateSuccess:
		return fmt.Sprintf("Success(%v)", r.data)
	case StateError:
		return fmt.Sprintf("Error(%s)", r.message)
	default:
		return r.state.String()
	}
}

// Match dispatches to exactly one handler. All three handlers are required;
// a nil handler panics so that a silently ignored Error cannot slip through.
func Match[T any](r Resource[T], onLoading func(), onSuccess func(T), onError func(message string, cause error)) {
	if onLoading == nil || onSuccess == nil || onError == nil {
		panic("resource: Match requires all three handlers")
	}
	switch r.state {
	case StateLoading:
		onLoading()
	case StateSuccess:
		onSuccess(r.data)
	case StateError:
		onError(r.message, r.cause)
	default:
		panic(fmt.Sprintf("resource: invalid state %d", r.state))
	}
}

// Fold is Match that produces a value.
func Fold[T, R any](r Resource[T], onLoading func() R, onSuccess func(T) R, onError func(message string, cause error) R) R {
	var out R
	Match(r,
		func() { out = onLoading() },
		func(v T) { out = onSuccess(v) },
		func(msg string, cause error) { out = onError(msg, cause) },
	)
	return out
}

// Map converts the data of a Success and carries Loading and Error through unchanged.
func Map[T, R any](r Resource[T], fn func(T) R) Resource[R] {
	return Fold(r,
		Loading[R],
		func(v T) Resource[R] { return Success(fn(v)) },
		func(msg string, cause error) Resource[R] { return Error[R](msg, cause) },
	)
}

// Payload is the wire shape used by the API gateway and the CLI.
type Payload[T any] struct {
	State string `json:"state" yaml:"state"`
	Data  *T     `json:"data,omitempty" yaml:"data,omitempty"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ToPayload converts a Resource to its wire shape.
func ToPayload[T any](r Resource[T]) Payload[T] {
	return Fold(r,
		func() Payload[T] { return Payload[T]{State: StateLoading.String()} },
		func(v T) Payload[T] { return Payload[T]{State: StateSuccess.String(), Data: &v} },
		func(msg string, _ error) Payload[T] { return Payload[T]{State: StateError.String(), Error: msg} },
	)
}
