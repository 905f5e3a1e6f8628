package errs

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

// Wrap prefixes err with msg. errors.Is/As still see the wrapped chain.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf is Wrap with a formatted prefix.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// WithStack records the caller frames once; later wraps keep the first capture.
// Use it where an error enters the process (RPC, database, filesystem).
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	var traced *TracedError
	if errors.As(err, &traced) {
		return err
	}

	pcs := make([]uintptr, 32)
	n := runtime.Callers(2, pcs)
	return &TracedError{err: err, pcs: pcs[:n]}
}

type TracedError struct {
	err error
	pcs []uintptr
}

func (e *TracedError) Error() string { return e.err.Error() }
func (e *TracedError) Unwrap() error { return e.err }

// Frames renders the captured call sites as "function file:line", innermost first.
func (e *TracedError) Frames() []string {
	if len(e.pcs) == 0 {
		return nil
	}
	frames := runtime.CallersFrames(e.pcs)
	out := make([]string, 0, len(e.pcs))
	for {
		frame, more := frames.Next()
		out = append(out, fmt.Sprintf("%s %s:%d", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}
	return out
}

// Loggable encodes err as a structured slog group:
//
//	slog.Any("err", errs.Loggable(err))
func Loggable(err error) slog.LogValuer { return loggable{err: err} }

type loggable struct{ err error }

func (l loggable) LogValue() slog.Value {
	if l.err == nil {
		return slog.GroupValue()
	}

	attrs := []slog.Attr{slog.String("message", l.err.Error())}
	if chain := ErrorChainStrings(l.err); len(chain) > 1 {
		attrs = append(attrs, slog.Any("chain", chain))
	}

	var traced *TracedError
	if errors.As(l.err, &traced) {
		attrs = append(attrs, slog.String("stack", strings.Join(traced.Frames(), "\n")))
	}
	return slog.GroupValue(attrs...)
}

// ErrorChainStrings lists err and every error it unwraps to, outermost first.
// Joined errors contribute each branch in order.
func ErrorChainStrings(err error) []string {
	if err == nil {
		return nil
	}

	out := make([]string, 0, 4)
	var walk func(error)
	walk = func(e error) {
		for e != nil {
			out = append(out, e.Error())
			if joined, ok := e.(interface{ Unwrap() []error }); ok {
				for _, branch := range joined.Unwrap() {
					walk(branch)
				}
				return
			}
			e = errors.Unwrap(e)
		}
	}
	walk(err)
	return out
}
