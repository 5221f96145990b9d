package domain

import "github.com/google/uuid"

// Command is an inbound hub event. Origin is the handle of the channel
// that produced it, so the router can exclude the originator from a
// broadcast and clean up on disconnect.
type Command interface {
	Origin() HandleID
}

// Connect announces a freshly accepted channel. It precedes any
// RegisterUser from the same handle.
type Connect struct {
	From HandleID
}

func (c Connect) Origin() HandleID { return c.From }

type RegisterUser struct {
	From     HandleID
	Identity string
}

func (c RegisterUser) Origin() HandleID { return c.From }

type SendMessage struct {
	From       HandleID
	Author     string
	Text       string
	Attachment string
}

func (c SendMessage) Origin() HandleID { return c.From }

type SendPrivate struct {
	From      HandleID
	Sender    string
	Recipient HandleID
	Text      string
}

func (c SendPrivate) Origin() HandleID { return c.From }

type Typing struct {
	From     HandleID
	Identity string
}

func (c Typing) Origin() HandleID { return c.From }

type StopTyping struct {
	From     HandleID
	Identity string
}

func (c StopTyping) Origin() HandleID { return c.From }

type DeleteMessage struct {
	From HandleID
	ID   uuid.UUID
}

func (c DeleteMessage) Origin() HandleID { return c.From }

type ClearMessages struct {
	From HandleID
}

func (c ClearMessages) Origin() HandleID { return c.From }

type Logout struct {
	From     HandleID
	Identity string
}

func (c Logout) Origin() HandleID { return c.From }

// Disconnect is emitted by the transport when a channel closes without
// an explicit Logout.
type Disconnect struct {
	From HandleID
}

func (c Disconnect) Origin() HandleID { return c.From }
