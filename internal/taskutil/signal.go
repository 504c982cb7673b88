package taskutil

import (
	"context"
	"os"
	ossignal "os/signal" // renamed so we can have function args named 'signal'
	"sync"

	"golang.org/x/exp/slices"
)

// SignalRegister is the subset of *SignalManager's API needed to register a
// callback; [SignalManager.WithErrorHandler] returns one of these instead of
// a *SignalManager so that chained error handlers compose without exposing
// Trigger/Context to a handler that shouldn't be triggering signals itself.
type SignalRegister interface {
	On(signal any, immediateCtx context.Context, callbacks ...func(context.Context) error) error
	WithErrorHandler(handler func(context.Context, error) error) SignalRegister
}

// SignalManager coordinates cooperative shutdown across the process: the CLI
// server command owns exactly one root SignalManager and registers a single
// callback for its shutdown signal that stops the server, ends and joins the
// pipeline, and closes the progress tracker and the cache; the server and
// the watcher receive the signal's Context. An OS SIGINT/SIGTERM, or the
// server receiving the shutdown sentinel message, triggers that signal.
//
// Signals are caller-defined (any comparable value may be used as a signal
// key), trigger at most once, and are hierarchical: triggering a signal in a
// child SignalManager does not affect the parent, but triggering it on the
// parent propagates to every child.
//
// Callbacks are registered with [SignalManager.On] and run at most once, in
// the reverse order they were registered (last registered, first run) — the
// same order a defer stack would run them in, so components can register
// "stop consuming work" before "stop producing it" and have producers stop
// first.
type SignalManager struct {
	mu sync.Mutex

	parent     *SignalManager
	idInParent int
	children   []*SignalManager

	signals        map[any]signalState
	nextID         int
	stopRequested  bool
	cleanupStarted bool
}

type signalRegisterWithErrorHandler struct {
	r          SignalRegister
	errHandler func(context.Context, error) error
}

type signalState struct {
	ctx    context.Context
	cancel context.CancelFunc

	callbacks        []callback
	cleanup          func()
	triggered        bool
	inheritedTrigger bool
	ignored          bool
}

type callback struct {
	id    int
	f     func(context.Context) error
	onErr func(context.Context, error) error
}

// NewSignalManager creates a new root SignalManager.
func NewSignalManager() *SignalManager {
	return &SignalManager{
		signals: make(map[any]signalState),
	}
}

// NewChild creates a SignalManager whose signals are independent of m's,
// except that a signal already triggered on m is considered pre-triggered
// on the child. Stopping m does not stop its children; m's own cleanup waits
// until every child has stopped itself.
func (m *SignalManager) NewChild() *SignalManager {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopRequested || m.cleanupStarted {
		return m
	}

	id := m.nextID
	m.nextID++

	child := &SignalManager{
		parent:     m,
		idInParent: id,
		signals:    make(map[any]signalState),
	}

	for sig, state := range m.signals {
		if state.triggered {
			child.signals[sig] = signalState{triggered: true, inheritedTrigger: true}
		}
	}

	m.children = append(m.children, child)
	return child
}

// setupOSSignal arranges for an os.Signal key to forward into m.Trigger the
// first time it's registered for, so that registering On(syscall.SIGTERM, ...)
// is enough to react to the OS signal without any separate plumbing.
func (m *SignalManager) setupOSSignal(s *signalState, signal any) {
	if s.triggered || s.cleanup != nil {
		return
	}

	if sig, ok := signal.(os.Signal); ok {
		ch := make(chan os.Signal, 1)
		ossignal.Notify(ch, sig)
		s.cleanup = func() {
			ossignal.Stop(ch)
			close(ch)
		}
		go func() {
			for {
				_, ok := <-ch
				if !ok {
					return
				}
				_ = m.Trigger(signal, context.Background())
			}
		}()
	}
}

// On registers callbacks to run when the given signal is triggered. If the
// signal was already triggered, the callbacks run immediately (in the
// current goroutine) instead of being queued.
func (m *SignalManager) On(signal any, immediateCtx context.Context, callbacks ...func(context.Context) error) error {
	return m.on(signal, immediateCtx, nil, callbacks...)
}

// WithErrorHandler returns a SignalRegister that routes any error returned
// by a registered callback through handler before it propagates to whatever
// triggered the signal.
func (m *SignalManager) WithErrorHandler(handler func(context.Context, error) error) SignalRegister {
	return &signalRegisterWithErrorHandler{
		r:          m,
		errHandler: handler,
	}
}

func (r *signalRegisterWithErrorHandler) base() *SignalManager {
	for {
		switch inner := r.r.(type) {
		case *signalRegisterWithErrorHandler:
			r = inner
		case *SignalManager:
			return inner
		default:
			panic("taskutil: unexpected SignalRegister implementation")
		}
	}
}

func (r *signalRegisterWithErrorHandler) On(signal any, ctx context.Context, callbacks ...func(context.Context) error) error {
	return r.base().on(signal, ctx, r.errHandler, callbacks...)
}

func (r *signalRegisterWithErrorHandler) WithErrorHandler(handler func(context.Context, error) error) SignalRegister {
	if r.errHandler == nil {
		return &signalRegisterWithErrorHandler{r: r.r, errHandler: handler}
	}

	return &signalRegisterWithErrorHandler{
		r: r,
		errHandler: func(ctx context.Context, err error) error {
			err = handler(ctx, err)
			if err != nil {
				err = r.errHandler(ctx, err)
			}
			return err
		},
	}
}

func (m *SignalManager) on(signal any, ctx context.Context, errHandler func(context.Context, error) error, callbacks ...func(context.Context) error) error {
	m.mu.Lock()
	locked := true
	defer func() {
		if locked {
			m.mu.Unlock()
		}
	}()

	if m.stopRequested || m.cleanupStarted {
		return nil
	}

	s := m.signals[signal]
	m.setupOSSignal(&s, signal)

	if s.triggered {
		locked = false
		m.mu.Unlock()

		for i := len(callbacks) - 1; i >= 0; i-- {
			err := callbacks[i](ctx)
			if err != nil && errHandler != nil {
				err = errHandler(ctx, err)
			}
			if err != nil {
				return err
			}
		}
		return nil
	}

	for _, f := range callbacks {
		s.callbacks = append(s.callbacks, callback{id: m.nextID, f: f, onErr: errHandler})
		m.nextID++
	}

	m.signals[signal] = s
	return nil
}

var canceledContext = func() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}()

// Context returns a context.Context that is canceled exactly when signal is
// triggered. Components that hold a long-lived context (the server's
// connection handlers, the watcher's event loop) use this to react to shutdown
// without a separate callback.
func (m *SignalManager) Context(signal any) context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopRequested || m.cleanupStarted {
		return canceledContext
	}

	s := m.signals[signal]
	if s.triggered {
		return canceledContext
	} else if s.ctx != nil {
		return s.ctx
	}

	m.setupOSSignal(&s, signal)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	m.signals[signal] = s
	return s.ctx
}

// Trigger fires signal, running its registered callbacks (most recently
// registered first) and propagating to every child SignalManager. Trigger
// is a no-op if the signal was already triggered.
func (m *SignalManager) Trigger(signal any, ctx context.Context) error {
	return m.triggerInner(signal, ctx, true)
}

func (m *SignalManager) triggerInner(signal any, ctx context.Context, explicit bool) error {
	m.mu.Lock()
	locked := true
	defer func() {
		if locked {
			m.mu.Unlock()
		}
	}()

	acquire := func() {
		m.mu.Lock()
		locked = true
	}
	release := func() {
		locked = false
		m.mu.Unlock()
	}

	if m.stopRequested || m.cleanupStarted {
		return nil
	}

	s := m.signals[signal]
	if s.triggered {
		if s.inheritedTrigger && explicit {
			s.inheritedTrigger = false
			m.signals[signal] = s
		}
		return nil
	} else if s.ignored && !explicit {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	s.triggered = true // prevents all further writes to the field

	cbIdx := -1
	if len(s.callbacks) != 0 {
		cbIdx = len(s.callbacks) - 1
	}
	childIdx := -1
	if len(m.children) != 0 {
		childIdx = len(m.children) - 1
	}

	var err error
	for err == nil && (cbIdx >= 0 || childIdx >= 0) {
		cbID := -1
		if cbIdx != -1 {
			cbID = s.callbacks[cbIdx].id
		}
		childID := -1
		if childIdx != -1 {
			childID = m.children[childIdx].idInParent
		}

		// Release the lock for the duration of the callback or child
		// trigger; these may be reentrant (e.g. a callback that triggers a
		// different signal), and we don't want to deadlock against that.
		// Reading s here is still safe because s.triggered = true prevents
		// other goroutines from writing to it.
		release()

		if cbID > childID {
			err = s.callbacks[cbIdx].f(ctx)
			if err != nil && s.callbacks[cbIdx].onErr != nil {
				err = s.callbacks[cbIdx].onErr(ctx, err)
			}
			cbIdx--
		} else {
			err = m.children[childIdx].triggerInner(signal, ctx, false)
			childIdx--
		}
		acquire()
	}

	s.callbacks = nil
	m.signals[signal] = s
	return err
}

// Ignore makes m disregard triggers of signal that propagate from its parent
// (an explicit Trigger on m still fires it), and reverses a trigger that m
// inherited from its parent when it was created.
func (m *SignalManager) Ignore(signal any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.signals[signal]
	s.ignored = true
	if s.inheritedTrigger {
		s.triggered = false
	}
	m.signals[signal] = s
}

// Stop releases the OS signal forwarding goroutines set up by On, and
// removes m from its parent. Stop does not block: if m still has children,
// that cleanup runs when the last of them stops.
func (m *SignalManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopRequested || m.cleanupStarted {
		return
	}

	m.stopRequested = true
	m.rectifyStop()
}

func (m *SignalManager) rectifyStop() {
	if !m.stopRequested || len(m.children) != 0 {
		return
	}

	m.cleanupStarted = true
	for _, sigState := range m.signals {
		if sigState.cleanup != nil {
			sigState.cleanup()
		}
	}

	if m.parent != nil {
		m.parent.mu.Lock()
		defer m.parent.mu.Unlock()

		idx, ok := slices.BinarySearchFunc(m.parent.children, m.idInParent, func(c *SignalManager, id int) int {
			switch {
			case c.idInParent < id:
				return -1
			case c.idInParent > id:
				return 1
			default:
				return 0
			}
		})
		if !ok {
			panic("taskutil: internal error: child SignalManager not found in parent")
		}
		m.parent.children = slices.Delete(m.parent.children, idx, idx+1)

		m.parent.rectifyStop()
	}
}
