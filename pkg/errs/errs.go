// Package errs defines the error taxonomy shared by every carve package.
//
// Every failure is fatal to the current build, so errors carry enough
// context (component, operation) to diagnose the run after it aborts.
// Callers match on the Kind with errors.Is:
//
//	if errors.Is(err, errs.ErrGeometry) { ... }
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error.
type Kind int

const (
	KindConfiguration Kind = iota + 1 // missing/invalid parameter, zero-size allocation
	KindIndex                         // attachment point or allocator index out of range
	KindNotFound                      // name absent from a registry
	KindGeometry                      // degenerate surface, zero axis, empty ray cast
	KindSize                          // dimensional inconsistency
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindIndex:
		return "index"
	case KindNotFound:
		return "not found"
	case KindGeometry:
		return "geometry"
	case KindSize:
		return "size"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Sentinels for errors.Is. They compare equal to any *Error of the same Kind.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrIndex         = &Error{Kind: KindIndex}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrGeometry      = &Error{Kind: KindGeometry}
	ErrSize          = &Error{Kind: KindSize}
)

// Error is a classified build failure.
type Error struct {
	Kind      Kind
	Component string // originating component, empty below the driver
	Op        string // operation or protocol step
	Msg       string
	Err       error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(" error")
	if e.Component != "" {
		fmt.Fprintf(&b, " in %s", e.Component)
	}
	if e.Op != "" {
		fmt.Fprintf(&b, " [%s]", e.Op)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a sentinel (or any *Error) of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newf(k Kind, op, format string, args ...any) *Error {
	return &Error{Kind: k, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Configf returns a ConfigurationError for operation op.
func Configf(op, format string, args ...any) error {
	return newf(KindConfiguration, op, format, args...)
}

// Indexf returns an IndexError for operation op.
func Indexf(op, format string, args ...any) error {
	return newf(KindIndex, op, format, args...)
}

// NotFoundf returns a NotFoundError for operation op.
func NotFoundf(op, format string, args ...any) error {
	return newf(KindNotFound, op, format, args...)
}

// Geometryf returns a GeometryError for operation op.
func Geometryf(op, format string, args ...any) error {
	return newf(KindGeometry, op, format, args...)
}

// Sizef returns a SizeError for operation op.
func Sizef(op, format string, args ...any) error {
	return newf(KindSize, op, format, args...)
}

// Wrap classifies an arbitrary error. A nil err yields nil.
func Wrap(k Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: k, Op: op, Err: err}
}

// WithComponent stamps the originating component and step onto err.
// An *Error already carrying a component is returned unchanged so the
// innermost component wins; anything else is classified as a
// configuration error, because unclassified failures come from parameter
// sources.
func WithComponent(err error, component, step string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Component != "" {
			return err
		}
		stamped := *e
		stamped.Component = component
		if stamped.Op == "" {
			stamped.Op = step
		} else {
			stamped.Op = step + "/" + stamped.Op
		}
		return &stamped
	}
	return &Error{Kind: KindConfiguration, Component: component, Op: step, Err: err}
}

// KindOf returns the Kind of err, or 0 when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
