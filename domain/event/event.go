// Package event defines the outbound events the hub pushes to channels.
package event

import (
	"time"

	"chat-hub/domain"

	"github.com/google/uuid"
)

// Event is anything the hub can push to a connected channel.
// Name is the wire-level event name.
type Event interface {
	Name() string
}

type OnlineUsers struct {
	Users []domain.PresenceEntry
}

func (OnlineUsers) Name() string { return "online_users" }

type UserJoined struct {
	Identity string
}

func (UserJoined) Name() string { return "user_joined" }

type UserLeft struct {
	Identity string
}

func (UserLeft) Name() string { return "user_left" }

type MessageReceived struct {
	Message domain.ChatMessage
}

func (MessageReceived) Name() string { return "receive_message" }

type PrivateMessageReceived struct {
	User string
	Text string
	At   time.Time
}

func (PrivateMessageReceived) Name() string { return "receive_private_message" }

type UserTyping struct {
	Identity string
}

func (UserTyping) Name() string { return "user_typing" }

type UserStoppedTyping struct {
	Identity string
}

func (UserStoppedTyping) Name() string { return "user_stopped_typing" }

type MessageDeleted struct {
	ID uuid.UUID
}

func (MessageDeleted) Name() string { return "message_deleted" }

type MessagesCleared struct{}

func (MessagesCleared) Name() string { return "messages_cleared" }
