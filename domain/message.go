// Package domain contains core concepts of the presence hub.
// This file defines Message records and related rules.
// Public messages are immutable once stored; private messages are transient.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is a persisted public message. The ID and CreatedAt are
// assigned by the message store, never by the sender.
type ChatMessage struct {
	ID         uuid.UUID
	Author     string
	Text       string
	Attachment string // opaque reference resolved by the static-asset service
	CreatedAt  time.Time
}

// PrivateMessage is delivered to a single handle and forgotten.
// It never reaches the message store.
type PrivateMessage struct {
	Sender    string
	Recipient HandleID
	Text      string
	At        time.Time
}
