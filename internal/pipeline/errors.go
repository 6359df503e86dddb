// Package pipeline implements the background job handlers and the
// contract they share with the worker pool.
package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a handler failure for the retry policy.
type Kind int

const (
	// KindValidation: bad or missing job input. Never retried.
	KindValidation Kind = iota
	// KindNotFound: a referenced entity or file is gone. Never retried.
	KindNotFound
	// KindTransientIO: network or disk hiccup. Retried.
	KindTransientIO
	// KindToolFailure: an external tool exited non-zero. Retried.
	KindToolFailure
	// KindTimeout: the operation hit its deadline. Retried.
	KindTimeout
	// KindFatal: unrecoverable, retrying cannot help. Never retried.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindTransientIO:
		return "transient_io"
	case KindToolFailure:
		return "tool_failure"
	case KindTimeout:
		return "timeout"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is the failure type handlers return. The worker maps Kind onto
// the retry policy; everything else is carried for the job record.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with a kind and the operation that failed.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Retryable reports whether the failure may succeed on a later attempt.
// Unclassified errors are treated as retryable so infrastructure
// surprises get the benefit of the retry budget.
func Retryable(err error) bool {
	var pe *Error
	if !errors.As(err, &pe) {
		return true
	}
	switch pe.Kind {
	case KindValidation, KindNotFound, KindFatal:
		return false
	default:
		return true
	}
}
