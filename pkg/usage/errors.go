package usage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrInvalidAmount is returned when a tracked amount is negative or not a
	// finite number.
	ErrInvalidAmount = errors.New("invalid usage amount")

	// ErrInvalidResource is returned when the resource key is empty.
	ErrInvalidResource = errors.New("invalid resource key")
)

// KindError tags an error with the kind reported in the errors_total metric.
//
// Example:
//
//	return &usage.KindError{Kind: "quota_exceeded", Err: err}
type KindError struct {
	// Kind is the error_type label value.
	Kind string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *KindError) Error() string {
	if e.Err == nil {
		return e.Kind
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error for error wrapping.
func (e *KindError) Unwrap() error {
	return e.Err
}

// ErrorKind returns Kind. It is consulted by the package-level ErrorKind.
func (e *KindError) ErrorKind() string {
	return e.Kind
}

type kinder interface {
	ErrorKind() string
}

// ErrorKind derives the error_type label for err. The first error in the
// chain that reports its own kind wins; context and network timeouts map to
// "timeout" and "canceled"; anything else is named after the innermost
// error's Go type. A nil error is "unknown".
func ErrorKind(err error) string {
	if err == nil {
		return "unknown"
	}

	var k kinder
	if errors.As(err, &k) && k.ErrorKind() != "" {
		return k.ErrorKind()
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInvalidResource):
		return "invalid_resource"
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return "timeout"
	}

	root := err
	for {
		next := errors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}

	name := strings.TrimLeft(fmt.Sprintf("%T", root), "*")
	if name == "errors.errorString" {
		return "error"
	}
	return name
}
