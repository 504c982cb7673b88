package taskutil

import (
	"strings"
	"testing"
)

func TestGetStackTraceContainsCaller(t *testing.T) {
	trace := GetStackTrace(nil, 0)

	found := false
	for _, f := range trace.Frames {
		if strings.Contains(f.Function, "TestGetStackTraceContainsCaller") {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected stack trace to contain the calling test function, got %+v", trace.Frames)
	}
}

func TestStackTraceStringChainsParent(t *testing.T) {
	parent := GetStackTrace(nil, 0)
	child := GetStackTrace(parent, 0)

	s := child.String()
	if !strings.Contains(s, "enqueued by") {
		t.Fatalf("expected chained trace to mention its parent, got %q", s)
	}
}

func TestNilStackTraceStringIsEmpty(t *testing.T) {
	var trace *StackTrace
	if trace.String() != "" {
		t.Fatalf("expected nil StackTrace to format as empty string")
	}
}
