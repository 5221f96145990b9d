//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-hub/domain"
	"chat-hub/domain/event"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one side of a live channel: whatever the router pushes
// through Consume ends up on the client's socket. Consume must not block
// the caller; a slow connection drops events rather than stalling the hub.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// IRegistry is the single source of truth for connected channels and the
// identities bound to them. It is owned by the router goroutine; see
// runtime.Registry for the concurrency contract.
type IRegistry interface {
	Attach(handle domain.HandleID, sink EventSink)
	Register(identity string, handle domain.HandleID) error
	UnregisterIdentity(identity string)
	Detach(handle domain.HandleID) (string, bool)
	Lookup(identity string) (domain.HandleID, bool)
	Sink(handle domain.HandleID) (EventSink, bool)
	Snapshot() []domain.PresenceEntry
	Sinks() []EventSink
	SinksExcept(handle domain.HandleID) []EventSink
}

// IMessageStore is the durable append-only log of public messages.
// Ids and timestamps are assigned here, never by callers.
type IMessageStore interface {
	Append(author, text, attachment string) (domain.ChatMessage, error)
	ListAll() ([]domain.ChatMessage, error)
	Delete(id uuid.UUID) error
	Clear() error
}

// ICensor rewrites a public message body before it is persisted
// and broadcast. Private messages bypass it.
type ICensor interface {
	Censor(text string) string
}

// IRouter accepts inbound hub traffic from any transport.
type IRouter interface {
	Connect(handle domain.HandleID, sink EventSink)
	Dispatch(cmd domain.Command)
}
