package lspcore

import (
	"context"
	"sync"
	"sync/atomic"
)

// State is the server lifecycle state. Transitions are monotonic: a
// server never moves backward through this sequence.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateInitialized
	StateShutDown
	StateExited
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateInitialized:
		return "initialized"
	case StateShutDown:
		return "shut-down"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// methodCategory classifies a method for the state gate, mirroring the
// teacher's checkMessageAllowed special-casing of "initialize" and "exit"
// ahead of the generic dispatch table.
type methodCategory int

const (
	categoryInitialize methodCategory = iota
	categoryExit
	categoryShutdown
	categoryCancel
	categoryNormal
)

func categorize(method string) methodCategory {
	switch method {
	case "initialize":
		return categoryInitialize
	case "exit":
		return categoryExit
	case "shutdown":
		return categoryShutdown
	case "$/cancelRequest":
		return categoryCancel
	default:
		return categoryNormal
	}
}

// Lifecycle holds the server's monotonic state and gates inbound messages
// against it before they ever reach the router or the inflight table.
type Lifecycle struct {
	state atomic.Int32
	mu    sync.Mutex // serializes the initialize/shutdown transitions themselves
}

// NewLifecycle returns a Lifecycle starting in StateUninitialized.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{}
}

// State reports the current lifecycle state.
func (l *Lifecycle) State() State { return State(l.state.Load()) }

// beginInitializing moves Uninitialized -> Initializing, refusing a
// second concurrent "initialize" call.
func (l *Lifecycle) beginInitializing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.State() != StateUninitialized {
		return false
	}
	l.state.Store(int32(StateInitializing))
	return true
}

// finishInitializing moves Initializing -> Initialized.
func (l *Lifecycle) finishInitializing() {
	l.state.Store(int32(StateInitialized))
}

// beginShutdown moves Initialized -> ShutDown; called in any other state
// it leaves the state unchanged. (At the service level gate already
// rejects a second "shutdown" with CodeInvalidRequest.)
func (l *Lifecycle) beginShutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.State() == StateInitialized {
		l.state.Store(int32(StateShutDown))
	}
}

// exit moves to StateExited from wherever the server currently is.
func (l *Lifecycle) exit() {
	l.state.Store(int32(StateExited))
}

// gate decides whether a message in the given category may proceed,
// returning the error code/message to use if not. A nil return means
// proceed to dispatch. This is the "state gate" middleware layer, and per
// original_source/src/service/layers.rs it sits outermost: a request the
// gate rejects is never registered in the inflight table at all.
func (l *Lifecycle) gate(cat methodCategory) *ErrorObject {
	state := l.State()

	switch cat {
	case categoryExit:
		return nil // exit is always allowed, at any state
	case categoryCancel:
		return nil // cancellation is always allowed; a miss is harmless
	case categoryInitialize:
		if state != StateUninitialized {
			return NewErrorf(CodeInvalidRequest, "server already initialized")
		}
		return nil
	}

	if state == StateShutDown || state == StateExited {
		// This is how every request after "shutdown" is rejected. For
		// StateExited it is normally unreachable, since Transport.Run
		// stops reading once the service gets there; it is kept so gate
		// itself is correct independent of the transport loop.
		return NewErrorf(CodeInvalidRequest, "server is shut down, only exit is allowed")
	}

	if cat == categoryShutdown {
		if state != StateInitialized {
			return NewErrorf(CodeServerNotInitialized, "server not initialized")
		}
		return nil
	}

	// categoryNormal
	if state == StateUninitialized || state == StateInitializing {
		return NewErrorf(CodeServerNotInitialized, "server not initialized")
	}
	return nil
}

// cancellableHandler wraps a Router request dispatch with a
// context.CancelFunc registered in the inflight table for the lifetime of
// the call. This is the innermost middleware layer: by the time the state
// gate has let a request through, cancellableHandler is the only thing
// standing between the router and the running handler future.
func cancellableHandler(ctx context.Context, inflight *inflightTable, req *Request, dispatch func(context.Context) *Response) *Response {
	if req.IsNotification() {
		return dispatch(ctx)
	}

	cctx, cancel := context.WithCancel(ctx)
	if !inflight.insert(req.ID, cancel) {
		cancel()
		return NewErrorResponse(req.ID, NewErrorf(CodeInvalidRequest, "duplicate in-flight request id"))
	}
	defer inflight.remove(req.ID)

	resp := dispatch(cctx)

	if cctx.Err() != nil && resp != nil {
		// The handler returned (a result, or an error such as ctx.Err())
		// after its cancellation fired; the cancellation still wins and
		// the reply is CodeRequestCancelled.
		return NewErrorResponse(req.ID, NewError(CodeRequestCancelled, "request cancelled"))
	}
	return resp
}
