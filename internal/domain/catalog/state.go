package catalog

import (
	"github.com/xenking/catalog-browser/internal/domain/product"
)

// Status enumerates the variants of State.
type Status uint8

const (
	// StatusLoading means a command is in flight. It carries no payload.
	StatusLoading Status = iota
	// StatusSuccess carries the loaded value.
	StatusSuccess
	// StatusError carries a human-readable message and an optional code.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// State is the observable outcome of a catalog command. Exactly one variant
// is active; a State is replaced wholesale, never mutated.
type State[T any] struct {
	Status Status
	// Value is set only when Status is StatusSuccess.
	Value T
	// Message is set only when Status is StatusError.
	Message string
	// Code is an optional numeric code for StatusError, 0 when absent.
	Code int
}

// ListState is the state of the product list slot.
type ListState = State[[]product.Product]

// DetailState is the state of the product detail slot.
type DetailState = State[product.Product]

// Loading returns the Loading variant.
func Loading[T any]() State[T] {
	return State[T]{Status: StatusLoading}
}

// Success returns the Success variant carrying v.
func Success[T any](v T) State[T] {
	return State[T]{Status: StatusSuccess, Value: v}
}

// Failed returns the Error variant.
func Failed[T any](message string, code int) State[T] {
	return State[T]{Status: StatusError, Message: message, Code: code}
}

func (s State[T]) IsLoading() bool { return s.Status == StatusLoading }
func (s State[T]) IsSuccess() bool { return s.Status == StatusSuccess }
func (s State[T]) IsError() bool   { return s.Status == StatusError }

// Terminal reports whether the state is Success or Error.
func (s State[T]) Terminal() bool { return s.Status != StatusLoading }

// Get returns the payload and whether the state is Success.
func (s State[T]) Get() (T, bool) {
	if s.Status != StatusSuccess {
		var zero T
		return zero, false
	}
	return s.Value, true
}

// ErrorMessage returns the message and whether the state is Error.
func (s State[T]) ErrorMessage() (string, bool) {
	if s.Status != StatusError {
		return "", false
	}
	return s.Message, true
}
