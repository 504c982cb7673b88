package netserver

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"testing"
	"time"
)

type echoHandler struct {
	last atomic.Value
}

func (h *echoHandler) Execute(message string) {
	h.last.Store(message)
}

func (h *echoHandler) Summary() string {
	v, _ := h.last.Load().(string)
	return fmt.Sprintf("handled: %s", v)
}

type panicHandler struct{}

func (panicHandler) Execute(string) { panic("boom") }
func (panicHandler) Summary() string { return "unreachable" }

func startTestServer(t *testing.T, h Handler) (*Server, string) {
	t.Helper()

	s, err := Start(context.Background(), "127.0.0.1::0", h, 4, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(s.Stop)

	addr := s.Addr().String()
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("splitting listener addr %q: %v", addr, err)
	}
	return s, host + "::" + port
}

func TestServerRoundTrip(t *testing.T) {
	h := &echoHandler{}
	_, addr := startTestServer(t, h)

	c, err := Dial(addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	reply, err := c.Send("do work")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply != "handled: do work" {
		t.Fatalf("got %q", reply)
	}
}

func TestServerRecoversHandlerPanic(t *testing.T) {
	_, addr := startTestServer(t, panicHandler{})

	c, err := Dial(addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	reply, err := c.Send("anything")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply != "internal error" {
		t.Fatalf("got %q, want generic failure summary", reply)
	}
}

func TestServerShutdownSentinel(t *testing.T) {
	h := &echoHandler{}
	s, addr := startTestServer(t, h)

	c, err := Dial(addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	reply, err := c.Send("shutdown")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply != "Shutting down" {
		t.Fatalf("got %q", reply)
	}

	select {
	case <-s.stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not stop after shutdown sentinel")
	}
}

func TestClientIsOneShot(t *testing.T) {
	h := &echoHandler{}
	_, addr := startTestServer(t, h)

	c, err := Dial(addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	if _, err := c.Send("first"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	reply, err := c.Send("second")
	if err != nil {
		t.Fatalf("second Send returned error: %v", err)
	}
	if reply != "" {
		t.Fatalf("expected empty reply on second Send, got %q", reply)
	}
}

func TestDialRejectsMalformedAddress(t *testing.T) {
	if _, err := Dial("not-valid"); err == nil {
		t.Fatalf("expected Dial to reject a malformed address")
	}
}

func TestDialFailsFastAgainstUnreachablePeer(t *testing.T) {
	start := time.Now()
	_, err := Dial("127.0.0.1::1")
	if err == nil {
		t.Fatalf("expected Dial against a closed port to fail")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("Dial took %v, want it bounded by the reachability timeout", elapsed)
	}
}

func TestStartRejectsSecondInstance(t *testing.T) {
	h := &echoHandler{}
	_, _ = startTestServer(t, h)

	if _, err := Start(context.Background(), "127.0.0.1::0", h, 4, nil); err == nil {
		t.Fatalf("expected second Start to fail while the first is running")
	}
}
