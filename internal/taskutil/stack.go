package taskutil

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
)

// StackFrame is a single entry in a StackTrace.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// StackTrace is a captured call stack, optionally chained to a Parent —
// used when recovering a panic from inside a goroutine spawned by another
// goroutine, so the trace can show both "where the panic happened" and
// "where the goroutine doing the panicking was started from".
type StackTrace struct {
	Frames []StackFrame
	Parent *StackTrace
}

var pcBufPool = sync.Pool{
	New: func() any {
		buf := make([]uintptr, 64)
		return &buf
	},
}

// GetStackTrace captures the call stack of the calling goroutine, skipping
// the innermost skip frames (not counting the call to GetStackTrace itself),
// and chains it to parent.
//
// The pipeline and the server call it with a nil parent inside their
// recover, so their log lines carry only the stack of the goroutine that
// recovered the panic; no trace of the call that enqueued the item is kept.
func GetStackTrace(parent *StackTrace, skip int) *StackTrace {
	return &StackTrace{
		Frames: getFrames(skip + 1),
		Parent: parent,
	}
}

func getFrames(skip int) []StackFrame {
	bufPtr := pcBufPool.Get().(*[]uintptr)
	buf := *bufPtr
	defer func() {
		*bufPtr = buf
		pcBufPool.Put(bufPtr)
	}()

	var pcs []uintptr
	for {
		n := runtime.Callers(skip+2, buf)
		if n < len(buf) {
			pcs = buf[:n]
			break
		}

		buf = make([]uintptr, len(buf)*2)
	}

	frames := runtime.CallersFrames(pcs)
	var out []StackFrame
	for {
		frame, more := frames.Next()
		out = append(out, StackFrame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})
		if !more {
			break
		}
	}

	return out
}

// String formats the StackTrace (and any parents) as a multi-line string,
// innermost frame first, with parent traces separated by a header line.
func (s *StackTrace) String() string {
	if s == nil {
		return ""
	}

	var b strings.Builder
	s.writeTo(&b)
	return b.String()
}

func (s *StackTrace) writeTo(b *strings.Builder) {
	for _, f := range s.Frames {
		name := f.Function
		if name == "" {
			name = "<unknown function>"
		}

		fmt.Fprintf(b, "%s(...)\n\t%s:%d\n", name, f.File, f.Line)
	}

	if s.Parent != nil {
		b.WriteString("--- enqueued by ---\n")
		s.Parent.writeTo(b)
	}
}
