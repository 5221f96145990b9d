package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"chat-hub/mocks"
	"chat-hub/moderation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// recorder collects everything the router pushes to one channel.
type recorder struct {
	events []event.Event
}

func (r *recorder) Consume(_ context.Context, e event.Event) error {
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) named(name string) []event.Event {
	var out []event.Event
	for _, e := range r.events {
		if e.Name() == name {
			out = append(out, e)
		}
	}
	return out
}

func newTestRouter(t *testing.T) (*Router, *mocks.MockIMessageStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	store := mocks.NewMockIMessageStore(ctrl)
	log := slog.Default()
	router := NewRouter(log, NewRegistry(), store, moderation.Passthrough{},
		NewPresenceBroadcaster(log), 32)
	return router, store
}

func identities(users []domain.PresenceEntry) map[string]struct{} {
	set := make(map[string]struct{})
	for _, u := range users {
		set[u.Identity] = struct{}{}
	}
	return set
}

// Mirrors the reference scenario: two users join, chat publicly, whisper,
// then one disconnects.
func TestRouter_Full_Session_Scenario(t *testing.T) {
	req := require.New(t)
	router, store := newTestRouter(t)
	ctx := context.Background()
	sinkA, sinkB := &recorder{}, &recorder{}

	// Given channel A registers as alice
	router.handle(ctx, envelope{cmd: domain.Connect{From: "hA"}, sink: sinkA})
	router.handle(ctx, envelope{cmd: domain.RegisterUser{From: "hA", Identity: "alice"}})

	// Then A receives a presence snapshot but no user_joined for itself
	req.Empty(sinkA.named("user_joined"))
	req.Len(sinkA.named("online_users"), 1)

	// When channel B registers as bob
	router.handle(ctx, envelope{cmd: domain.Connect{From: "hB"}, sink: sinkB})
	router.handle(ctx, envelope{cmd: domain.RegisterUser{From: "hB", Identity: "bob"}})

	// Then A learns about bob and both hold the full presence list
	joined := sinkA.named("user_joined")
	req.Len(joined, 1)
	req.Equal("bob", joined[0].(event.UserJoined).Identity)
	req.Empty(sinkB.named("user_joined"))

	lastA := sinkA.named("online_users")[len(sinkA.named("online_users"))-1].(event.OnlineUsers)
	lastB := sinkB.named("online_users")[len(sinkB.named("online_users"))-1].(event.OnlineUsers)
	want := map[string]struct{}{"alice": {}, "bob": {}}
	req.Equal(want, identities(lastA.Users))
	req.Equal(want, identities(lastB.Users))

	// When alice sends a public message
	stored := domain.ChatMessage{ID: uuid.New(), Author: "alice", Text: "hi", CreatedAt: time.Now().UTC()}
	store.EXPECT().Append("alice", "hi", "").Return(stored, nil)
	router.handle(ctx, envelope{cmd: domain.SendMessage{From: "hA", Author: "alice", Text: "hi"}})

	// Then both channels, sender included, receive the stored echo
	for _, sink := range []*recorder{sinkA, sinkB} {
		received := sink.named("receive_message")
		req.Len(received, 1)
		req.Equal(stored, received[0].(event.MessageReceived).Message)
	}

	// When alice whispers to bob's handle
	router.handle(ctx, envelope{cmd: domain.SendPrivate{From: "hA", Sender: "alice", Recipient: "hB", Text: "psst"}})

	// Then only bob receives it
	req.Empty(sinkA.named("receive_private_message"))
	private := sinkB.named("receive_private_message")
	req.Len(private, 1)
	req.Equal("alice", private[0].(event.PrivateMessageReceived).User)
	req.Equal("psst", private[0].(event.PrivateMessageReceived).Text)

	// When bob's channel closes
	router.handle(ctx, envelope{cmd: domain.Disconnect{From: "hB"}})

	// Then alice sees the departure and a shrunken presence list
	left := sinkA.named("user_left")
	req.Len(left, 1)
	req.Equal("bob", left[0].(event.UserLeft).Identity)

	final := sinkA.named("online_users")
	req.Equal(map[string]struct{}{"alice": {}},
		identities(final[len(final)-1].(event.OnlineUsers).Users))
}

func TestRouter_Persistence_Failure_Suppresses_Broadcast(t *testing.T) {
	req := require.New(t)
	router, store := newTestRouter(t)
	ctx := context.Background()
	sink := &recorder{}

	router.handle(ctx, envelope{cmd: domain.Connect{From: "h1"}, sink: sink})
	router.handle(ctx, envelope{cmd: domain.RegisterUser{From: "h1", Identity: "alice"}})

	// Given a store that cannot persist
	store.EXPECT().Append("alice", "hi", "").
		Return(domain.ChatMessage{}, fmt.Errorf("disk full"))

	// When the message is sent
	router.handle(ctx, envelope{cmd: domain.SendMessage{From: "h1", Author: "alice", Text: "hi"}})

	// Then nobody sees it, not even the sender
	req.Empty(sink.named("receive_message"))

	// And the swallowed failure is observable internally
	select {
	case err := <-router.Errors():
		req.ErrorContains(err, "disk full")
	default:
		req.Fail("expected an internal error")
	}
}

func TestRouter_Empty_Message_Without_Attachment_Ignored(t *testing.T) {
	req := require.New(t)
	router, _ := newTestRouter(t)
	ctx := context.Background()
	sink := &recorder{}

	router.handle(ctx, envelope{cmd: domain.Connect{From: "h1"}, sink: sink})
	router.handle(ctx, envelope{cmd: domain.SendMessage{From: "h1", Author: "alice"}})

	req.Empty(sink.named("receive_message"))
	select {
	case err := <-router.Errors():
		req.ErrorIs(err, errors.ErrEmptyMessage)
	default:
		req.Fail("expected an internal error")
	}
}

func TestRouter_Attachment_Only_Message_Is_Valid(t *testing.T) {
	req := require.New(t)
	router, store := newTestRouter(t)
	ctx := context.Background()
	sink := &recorder{}

	stored := domain.ChatMessage{ID: uuid.New(), Author: "alice", Attachment: "/uploads/cat.png"}
	store.EXPECT().Append("alice", "", "/uploads/cat.png").Return(stored, nil)

	router.handle(ctx, envelope{cmd: domain.Connect{From: "h1"}, sink: sink})
	router.handle(ctx, envelope{cmd: domain.SendMessage{From: "h1", Author: "alice", Attachment: "/uploads/cat.png"}})

	req.Len(sink.named("receive_message"), 1)
}

func TestRouter_Private_To_Stale_Handle_Dropped_Silently(t *testing.T) {
	req := require.New(t)
	router, _ := newTestRouter(t)
	ctx := context.Background()
	sink := &recorder{}

	router.handle(ctx, envelope{cmd: domain.Connect{From: "h1"}, sink: sink})

	// When whispering to a handle that is long gone
	router.handle(ctx, envelope{cmd: domain.SendPrivate{From: "h1", Sender: "alice", Recipient: "gone", Text: "psst"}})

	// Then nothing reaches anyone and the race is recorded internally
	req.Empty(sink.events)
	select {
	case err := <-router.Errors():
		req.ErrorIs(err, errors.ErrUnknownRecipient)
	default:
		req.Fail("expected an internal error")
	}
}

func TestRouter_Typing_Excludes_Originator(t *testing.T) {
	req := require.New(t)
	router, _ := newTestRouter(t)
	ctx := context.Background()
	sinkA, sinkB := &recorder{}, &recorder{}

	router.handle(ctx, envelope{cmd: domain.Connect{From: "hA"}, sink: sinkA})
	router.handle(ctx, envelope{cmd: domain.Connect{From: "hB"}, sink: sinkB})

	router.handle(ctx, envelope{cmd: domain.Typing{From: "hA", Identity: "alice"}})
	router.handle(ctx, envelope{cmd: domain.StopTyping{From: "hA", Identity: "alice"}})

	req.Empty(sinkA.events)
	req.Len(sinkB.named("user_typing"), 1)
	req.Len(sinkB.named("user_stopped_typing"), 1)
}

func TestRouter_Delete_Unknown_Id_Still_Broadcasts(t *testing.T) {
	req := require.New(t)
	router, store := newTestRouter(t)
	ctx := context.Background()
	sink := &recorder{}
	id := uuid.New()

	// Given the store treats unknown ids as a no-op
	store.EXPECT().Delete(id).Return(nil)

	router.handle(ctx, envelope{cmd: domain.Connect{From: "h1"}, sink: sink})
	router.handle(ctx, envelope{cmd: domain.DeleteMessage{From: "h1", ID: id}})

	// Then the idempotent deletion signal still goes out
	deleted := sink.named("message_deleted")
	req.Len(deleted, 1)
	req.Equal(id, deleted[0].(event.MessageDeleted).ID)
}

func TestRouter_Clear_Broadcasts_To_All(t *testing.T) {
	req := require.New(t)
	router, store := newTestRouter(t)
	ctx := context.Background()
	sinkA, sinkB := &recorder{}, &recorder{}

	store.EXPECT().Clear().Return(nil)

	router.handle(ctx, envelope{cmd: domain.Connect{From: "hA"}, sink: sinkA})
	router.handle(ctx, envelope{cmd: domain.Connect{From: "hB"}, sink: sinkB})
	router.handle(ctx, envelope{cmd: domain.ClearMessages{From: "hA"}})

	req.Len(sinkA.named("messages_cleared"), 1)
	req.Len(sinkB.named("messages_cleared"), 1)
}

func TestRouter_Disconnect_Before_Register_Is_Silent(t *testing.T) {
	req := require.New(t)
	router, _ := newTestRouter(t)
	ctx := context.Background()
	sinkA, sinkB := &recorder{}, &recorder{}

	router.handle(ctx, envelope{cmd: domain.Connect{From: "hA"}, sink: sinkA})
	router.handle(ctx, envelope{cmd: domain.RegisterUser{From: "hA", Identity: "alice"}})
	router.handle(ctx, envelope{cmd: domain.Connect{From: "hB"}, sink: sinkB})

	// When the anonymous channel drops
	router.handle(ctx, envelope{cmd: domain.Disconnect{From: "hB"}})

	// Then no user_left goes out and presence is unchanged
	req.Empty(sinkA.named("user_left"))
	snapshots := sinkA.named("online_users")
	req.Len(snapshots, 1) // only the one from alice's own registration
}

func TestRouter_Logout_Mirrors_Register(t *testing.T) {
	req := require.New(t)
	router, _ := newTestRouter(t)
	ctx := context.Background()
	sinkA, sinkB := &recorder{}, &recorder{}

	router.handle(ctx, envelope{cmd: domain.Connect{From: "hA"}, sink: sinkA})
	router.handle(ctx, envelope{cmd: domain.RegisterUser{From: "hA", Identity: "alice"}})
	router.handle(ctx, envelope{cmd: domain.Connect{From: "hB"}, sink: sinkB})
	router.handle(ctx, envelope{cmd: domain.RegisterUser{From: "hB", Identity: "bob"}})

	router.handle(ctx, envelope{cmd: domain.Logout{From: "hB", Identity: "bob"}})

	// user_left reaches everyone, the leaver included
	req.Len(sinkA.named("user_left"), 1)
	req.Len(sinkB.named("user_left"), 1)

	snapshots := sinkA.named("online_users")
	req.Equal(map[string]struct{}{"alice": {}},
		identities(snapshots[len(snapshots)-1].(event.OnlineUsers).Users))
}

// The Run loop must apply commands in arrival order, one at a time.
func TestRouter_Run_Processes_Dispatched_Commands(t *testing.T) {
	req := require.New(t)
	router, store := newTestRouter(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = router.Run(ctx)
	}()

	stored := domain.ChatMessage{ID: uuid.New(), Author: "alice", Text: "hello"}
	store.EXPECT().Append("alice", "hello", "").Return(stored, nil)

	sink := &syncRecorder{received: make(chan event.Event, 16)}
	router.Connect("h1", sink)
	router.Dispatch(domain.RegisterUser{From: "h1", Identity: "alice"})
	router.Dispatch(domain.SendMessage{From: "h1", Author: "alice", Text: "hello"})

	var names []string
	for len(names) < 2 {
		select {
		case e := <-sink.received:
			names = append(names, e.Name())
		case <-time.After(time.Second):
			req.Fail("timed out waiting for events")
		}
	}
	req.Equal([]string{"online_users", "receive_message"}, names)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("router did not stop on context cancellation")
	}
}

// A Disconnect must survive inbound saturation: the closing connection's
// goroutine blocks until the loop drains instead of the command being shed,
// otherwise the dead channel would haunt the presence list forever.
func TestRouter_Disconnect_Not_Shed_When_Inbound_Full(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	log := slog.Default()
	router := NewRouter(log, NewRegistry(), mocks.NewMockIMessageStore(ctrl),
		moderation.Passthrough{}, NewPresenceBroadcaster(log), 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	observer := &syncRecorder{received: make(chan event.Event, 16)}
	router.handle(ctx, envelope{cmd: domain.Connect{From: "hA"}, sink: observer})
	router.handle(ctx, envelope{cmd: domain.Connect{From: "hB"}, sink: &recorder{}})
	router.handle(ctx, envelope{cmd: domain.RegisterUser{From: "hB", Identity: "bob"}})

	// Given a saturated inbound channel: the loop is not running yet and
	// the single buffer slot is taken
	router.Dispatch(domain.Typing{From: "hB", Identity: "bob"})

	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		router.Dispatch(domain.Disconnect{From: "hB"})
	}()

	// Then the lifecycle command waits instead of being dropped
	select {
	case <-dispatched:
		req.Fail("disconnect should have been backpressured, not accepted")
	case <-time.After(50 * time.Millisecond):
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = router.Run(ctx)
	}()

	// And once the loop drains, bob's departure still goes out
	deadline := time.After(time.Second)
	var left event.Event
wait:
	for {
		select {
		case e := <-observer.received:
			if e.Name() == "user_left" {
				left = e
				break wait
			}
		case <-deadline:
			req.Fail("timed out waiting for user_left")
		}
	}
	req.Equal("bob", left.(event.UserLeft).Identity)

	select {
	case <-dispatched:
	case <-time.After(time.Second):
		req.Fail("disconnect dispatch never unblocked")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("router did not stop on context cancellation")
	}
}

type syncRecorder struct {
	received chan event.Event
}

func (s *syncRecorder) Consume(_ context.Context, e event.Event) error {
	s.received <- e
	return nil
}
