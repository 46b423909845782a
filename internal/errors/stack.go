package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// Frame is a single call frame of a captured stack.
type Frame struct {
	Function string
	File     string
	Line     int
}

// String returns the frame as "function (file:line)".
func (f Frame) String() string {
	return fmt.Sprintf("%s (%s:%d)", f.Function, f.File, f.Line)
}

// maxFrames bounds how deep Capture walks.
const maxFrames = 64

// Capture returns the current call stack, skipping skip frames above the
// caller. Frames inside the Go runtime are dropped, so calling Capture from a
// deferred recover yields the frames that led to the panic.
func Capture(skip int) []Frame {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return nil
	}

	iter := runtime.CallersFrames(pcs[:n])
	var frames []Frame
	for {
		f, more := iter.Next()
		if f.Function != "" && !strings.HasPrefix(f.Function, "runtime.") {
			frames = append(frames, Frame{
				Function: f.Function,
				File:     f.File,
				Line:     f.Line,
			})
		}
		if !more {
			break
		}
	}
	return frames
}

// FromPanic converts a recovered panic value into an E202 error carrying the
// stack of the panicking goroutine. It must be called from the deferred
// function that called recover.
func FromPanic(v any) *Error {
	var cause error
	switch x := v.(type) {
	case error:
		cause = x
	default:
		cause = fmt.Errorf("%v", x)
	}
	return New("E202").Wrap(cause).WithStack(Capture(2))
}
