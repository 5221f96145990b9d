// Package runtime hosts the hub's single-owner event loop: the Router
// goroutine that owns the Registry and decides every fan-out.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
)

// envelope pairs a command with the sink of a connecting channel.
// The sink is only set for domain.Connect.
type envelope struct {
	cmd  domain.Command
	sink contract.EventSink
}

// Router is the hub's event loop. All inbound traffic, from every transport,
// funnels through one channel and is handled to completion by one goroutine,
// so a presence snapshot can never observe a half-updated registry.
//
// Externally the protocol is fire-and-forget: no failure is reported back to
// the originating channel. Internally every swallowed failure is published on
// Errors so tests and operators can observe them.
type Router struct {
	log      *slog.Logger
	registry contract.IRegistry
	store    contract.IMessageStore
	censor   contract.ICensor
	presence *PresenceBroadcaster
	inbound  chan envelope
	errs     chan error
}

func NewRouter(log *slog.Logger, registry contract.IRegistry, store contract.IMessageStore,
	censor contract.ICensor, presence *PresenceBroadcaster, bufferSize int) *Router {
	return &Router{
		log:      log,
		registry: registry,
		store:    store,
		censor:   censor,
		presence: presence,
		inbound:  make(chan envelope, bufferSize),
		errs:     make(chan error, bufferSize),
	}
}

// Connect hands a freshly accepted channel to the router. The handle stays
// anonymous until a RegisterUser command arrives from it.
func (r *Router) Connect(handle domain.HandleID, sink contract.EventSink) {
	r.enqueue(envelope{cmd: domain.Connect{From: handle}, sink: sink})
}

// Dispatch queues one inbound command. If the hub is saturated the command
// is dropped, consistent with the best-effort delivery contract.
func (r *Router) Dispatch(cmd domain.Command) {
	r.enqueue(envelope{cmd: cmd})
}

func (r *Router) enqueue(env envelope) {
	// Lifecycle commands must never be shed: a dropped Disconnect would leave
	// a dead sink and a ghost presence entry behind forever. Blocking here
	// only stalls the originating connection's goroutine until the loop drains.
	switch env.cmd.(type) {
	case domain.Connect, domain.Disconnect, domain.Logout:
		r.inbound <- env
		return
	}
	select {
	case r.inbound <- env:
	default:
		r.log.Warn(fmt.Sprintf("Inbound channel full, dropping %T from %s", env.cmd, env.cmd.Origin()))
	}
}

// Errors exposes the failures the wire protocol swallows. The channel is
// buffered and never blocks handling; when nobody listens, entries are shed.
func (r *Router) Errors() <-chan error {
	return r.errs
}

func (r *Router) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.log.Debug("Stopping router")
			return ctx.Err()
		case env, ok := <-r.inbound:
			if !ok {
				return nil
			}
			r.handle(ctx, env)
		}
	}
}

// handle executes one router step. The registry mutation and its resulting
// broadcast complete before the next command is read.
func (r *Router) handle(ctx context.Context, env envelope) {
	switch cmd := env.cmd.(type) {
	case domain.Connect:
		r.registry.Attach(cmd.From, env.sink)

	case domain.RegisterUser:
		if err := r.registry.Register(cmd.Identity, cmd.From); err != nil {
			r.fail(err)
			return
		}
		r.log.Info(fmt.Sprintf("User %s registered on handle %s", cmd.Identity, cmd.From))
		r.fanout(ctx, r.registry.SinksExcept(cmd.From), event.UserJoined{Identity: cmd.Identity})
		r.presence.Push(ctx, r.registry)

	case domain.SendMessage:
		if cmd.Text == "" && cmd.Attachment == "" {
			r.fail(errors.ErrEmptyMessage)
			return
		}
		stored, err := r.store.Append(cmd.Author, r.censor.Censor(cmd.Text), cmd.Attachment)
		if err != nil {
			// Suppress the broadcast entirely: peers must never display a
			// message a page reload would not find in the store.
			r.log.Error("Message persistence failed, broadcast suppressed",
				"author", cmd.Author, "error", err)
			r.fail(fmt.Errorf("append message: %w", err))
			return
		}
		r.fanout(ctx, r.registry.Sinks(), event.MessageReceived{Message: stored})

	case domain.SendPrivate:
		sink, ok := r.registry.Sink(cmd.Recipient)
		if !ok {
			// A recipient that vanished mid-flight is a normal race.
			r.fail(errors.ErrUnknownRecipient)
			return
		}
		r.deliver(ctx, sink, event.PrivateMessageReceived{
			User: cmd.Sender,
			Text: cmd.Text,
			At:   time.Now().UTC(),
		})

	case domain.Typing:
		r.fanout(ctx, r.registry.SinksExcept(cmd.From), event.UserTyping{Identity: cmd.Identity})

	case domain.StopTyping:
		r.fanout(ctx, r.registry.SinksExcept(cmd.From), event.UserStoppedTyping{Identity: cmd.Identity})

	case domain.DeleteMessage:
		if err := r.store.Delete(cmd.ID); err != nil {
			r.log.Error("Message deletion failed", "id", cmd.ID, "error", err)
			r.fail(fmt.Errorf("delete message %s: %w", cmd.ID, err))
			return
		}
		// Deleting an unknown id still broadcasts: receivers filter by id,
		// so duplicate deletion signals are harmless.
		r.fanout(ctx, r.registry.Sinks(), event.MessageDeleted{ID: cmd.ID})

	case domain.ClearMessages:
		if err := r.store.Clear(); err != nil {
			r.log.Error("Message log truncation failed", "error", err)
			r.fail(fmt.Errorf("clear messages: %w", err))
			return
		}
		r.fanout(ctx, r.registry.Sinks(), event.MessagesCleared{})

	case domain.Logout:
		r.registry.UnregisterIdentity(cmd.Identity)
		r.fanout(ctx, r.registry.Sinks(), event.UserLeft{Identity: cmd.Identity})
		r.presence.Push(ctx, r.registry)

	case domain.Disconnect:
		identity, found := r.registry.Detach(cmd.From)
		if !found {
			// Closed before ever registering: nothing to announce.
			return
		}
		r.log.Info(fmt.Sprintf("User %s disconnected", identity))
		r.fanout(ctx, r.registry.Sinks(), event.UserLeft{Identity: identity})
		r.presence.Push(ctx, r.registry)
	}
}

// fanout delivers one event to many channels. Each send is independent and
// best-effort: a slow or closed channel never stalls the others.
func (r *Router) fanout(ctx context.Context, sinks []contract.EventSink, e event.Event) {
	for _, sink := range sinks {
		r.deliver(ctx, sink, e)
	}
}

func (r *Router) deliver(ctx context.Context, sink contract.EventSink, e event.Event) {
	if err := sink.Consume(ctx, e); err != nil {
		r.log.Debug(fmt.Sprintf("Dropped %s event: %v", e.Name(), err))
	}
}

func (r *Router) fail(err error) {
	select {
	case r.errs <- err:
	default:
		r.log.Debug(fmt.Sprintf("Error channel full, shedding: %v", err))
	}
}
