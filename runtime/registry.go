package runtime

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/errors"
)

// Registry tracks every live channel and the identity bound to it.
//
// Channels exist as soon as the transport attaches them; identities only
// after a RegisterUser. A handle may therefore be connected but anonymous
// (connected before registering, or left anonymous after a last-register-wins
// eviction).
//
// Registry is NOT safe for concurrent use. The Router goroutine owns it
// exclusively and is the only writer and reader at runtime; transports never
// touch it directly. This replaces lock-based sharing with single ownership.
type Registry struct {
	sinks    map[domain.HandleID]contract.EventSink // every live channel
	bindings map[string]domain.HandleID             // identity -> handle
}

func NewRegistry() *Registry {
	return &Registry{
		sinks:    make(map[domain.HandleID]contract.EventSink),
		bindings: make(map[string]domain.HandleID),
	}
}

// Attach records a freshly accepted channel. The handle carries no identity
// until Register is called for it.
func (r *Registry) Attach(handle domain.HandleID, sink contract.EventSink) {
	r.sinks[handle] = sink
}

// Register binds an identity to a handle. Registering an identity that is
// already bound rebinds it to the new handle: last register wins, the
// previous channel stays attached but anonymous. A handle carries at most
// one identity, so any identity the handle held before is released.
func (r *Registry) Register(identity string, handle domain.HandleID) error {
	if identity == "" {
		return errors.ErrEmptyIdentity
	}
	for bound, h := range r.bindings {
		if h == handle && bound != identity {
			delete(r.bindings, bound)
		}
	}
	r.bindings[identity] = handle
	return nil
}

// UnregisterIdentity removes the binding if present. Removing an unknown
// identity is a no-op, not an error.
func (r *Registry) UnregisterIdentity(identity string) {
	delete(r.bindings, identity)
}

// Detach removes a channel and whatever identity was bound to it, returning
// the freed identity. A handle that disconnected before ever registering
// yields ("", false); low cardinality makes the linear scan acceptable.
func (r *Registry) Detach(handle domain.HandleID) (string, bool) {
	delete(r.sinks, handle)
	for identity, h := range r.bindings {
		if h == handle {
			delete(r.bindings, identity)
			return identity, true
		}
	}
	return "", false
}

// Lookup resolves a direct-message recipient.
func (r *Registry) Lookup(identity string) (domain.HandleID, bool) {
	handle, ok := r.bindings[identity]
	return handle, ok
}

// Sink resolves a handle to its live channel, if still connected.
func (r *Registry) Sink(handle domain.HandleID) (contract.EventSink, bool) {
	sink, ok := r.sinks[handle]
	return sink, ok
}

// Snapshot returns the current presence list. Iteration order follows map
// order and is not stable across calls; callers use it for display only.
func (r *Registry) Snapshot() []domain.PresenceEntry {
	entries := make([]domain.PresenceEntry, 0, len(r.bindings))
	for identity, handle := range r.bindings {
		entries = append(entries, domain.PresenceEntry{Identity: identity, Handle: handle})
	}
	return entries
}

// Sinks returns every live channel, registered or not.
func (r *Registry) Sinks() []contract.EventSink {
	sinks := make([]contract.EventSink, 0, len(r.sinks))
	for _, sink := range r.sinks {
		sinks = append(sinks, sink)
	}
	return sinks
}

// SinksExcept returns every live channel except the originator's.
func (r *Registry) SinksExcept(handle domain.HandleID) []contract.EventSink {
	sinks := make([]contract.EventSink, 0, len(r.sinks))
	for h, sink := range r.sinks {
		if h == handle {
			continue
		}
		sinks = append(sinks, sink)
	}
	return sinks
}
