package bridge

import (
	"fmt"

	"github.com/artclarke/humble-video-sub001/protocol"
)

// State is the lifecycle state of a Handle.
type State int32

const (
	// StateUnbound means no handler is open on the handle.
	StateUnbound State = iota
	// StateOpen means a handler is bound and open.
	StateOpen
	// StateClosed means the handle was closed; it may be opened again.
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Handle is the per-use context the foreign caller passes to every bridge
// call. It owns no resources; the bound handler owns the stream.
//
// A Handle is not safe for concurrent use. Independent handles may be used
// from different goroutines in parallel.
type Handle struct {
	handler  protocol.Handler
	resolved bool // handler was set by NewHandleFor, not by the registry
	mode     protocol.Mode
	url      string
	state    State
}

// NewHandle returns an unbound handle whose handler is resolved through the
// registry on Open.
func NewHandle() *Handle {
	return &Handle{}
}

// NewHandleFor returns an unbound handle pre-resolved to h. Open will use h
// instead of consulting the registry, and a failed open keeps h resolved.
func NewHandleFor(h protocol.Handler) *Handle {
	return &Handle{handler: h, resolved: h != nil}
}

// State returns the current state.
func (h *Handle) State() State { return h.state }

// Mode returns the mode of the current or last open.
func (h *Handle) Mode() protocol.Mode { return h.mode }

// URL returns the url of the current or last open.
func (h *Handle) URL() string { return h.url }

// Handler returns the bound or pre-resolved handler, or nil.
func (h *Handle) Handler() protocol.Handler { return h.handler }

// Reset moves a closed handle back to StateUnbound. It is a no-op in any
// other state.
func (h *Handle) Reset() {
	if h.state == StateClosed {
		h.state = StateUnbound
	}
}

// unbind forgets the handler unless it was supplied at construction.
func (h *Handle) unbind(next State) {
	if !h.resolved {
		h.handler = nil
	}
	h.state = next
}
