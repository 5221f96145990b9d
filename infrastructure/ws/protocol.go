// Package ws is the websocket transport: it upgrades connections, decodes
// inbound frames into router commands and encodes router events into
// outbound frames. The envelope both ways is {"event": name, "data": payload}.
package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var validate = validator.New()

type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type sendMessagePayload struct {
	Author     string `json:"author" validate:"required"`
	Text       string `json:"text"`
	Attachment string `json:"attachment"`
}

type privateMessagePayload struct {
	Sender    string `json:"sender" validate:"required"`
	Recipient string `json:"recipient" validate:"required"`
	Text      string `json:"text" validate:"required"`
}

type deleteMessagePayload struct {
	ID string `json:"id" validate:"required,uuid"`
}

// decodeCommand turns one inbound frame into a router command. Any shape
// problem yields ErrMalformedFrame; the caller ignores the frame without
// closing the channel.
func decodeCommand(handle domain.HandleID, raw []byte) (domain.Command, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err)
	}

	switch frame.Event {
	case "register_user":
		identity, err := decodeString(frame.Data)
		if err != nil {
			return nil, err
		}
		return domain.RegisterUser{From: handle, Identity: identity}, nil

	case "send_message":
		var p sendMessagePayload
		if err := decodeStruct(frame.Data, &p); err != nil {
			return nil, err
		}
		return domain.SendMessage{From: handle, Author: p.Author, Text: p.Text, Attachment: p.Attachment}, nil

	case "private_message":
		var p privateMessagePayload
		if err := decodeStruct(frame.Data, &p); err != nil {
			return nil, err
		}
		return domain.SendPrivate{From: handle, Sender: p.Sender,
			Recipient: domain.HandleID(p.Recipient), Text: p.Text}, nil

	case "typing":
		identity, err := decodeString(frame.Data)
		if err != nil {
			return nil, err
		}
		return domain.Typing{From: handle, Identity: identity}, nil

	case "stop_typing":
		identity, err := decodeString(frame.Data)
		if err != nil {
			return nil, err
		}
		return domain.StopTyping{From: handle, Identity: identity}, nil

	case "delete_message":
		var p deleteMessagePayload
		if err := decodeStruct(frame.Data, &p); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(p.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err)
		}
		return domain.DeleteMessage{From: handle, ID: id}, nil

	case "clear_all_messages":
		return domain.ClearMessages{From: handle}, nil

	case "logout":
		identity, err := decodeString(frame.Data)
		if err != nil {
			return nil, err
		}
		return domain.Logout{From: handle, Identity: identity}, nil

	default:
		return nil, fmt.Errorf("%w: unknown event %q", errors.ErrMalformedFrame, frame.Event)
	}
}

func decodeString(data json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err)
	}
	if s == "" {
		return "", fmt.Errorf("%w: empty identity", errors.ErrMalformedFrame)
	}
	return s, nil
}

func decodeStruct(data json.RawMessage, target any) error {
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err)
	}
	if err := validate.Struct(target); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err)
	}
	return nil
}

// Outbound views. Field names follow the original web client's message model
// (user / message / imageUrl / createdAt).
type presenceView struct {
	Identity string `json:"identity"`
	Handle   string `json:"handle"`
}

type messageView struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Message   string    `json:"message"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type privateMessageView struct {
	User      string    `json:"user"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Private   bool      `json:"private"`
}

func encodeEvent(e event.Event) ([]byte, error) {
	payload, err := encodePayload(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: e.Name(), Data: payload})
}

func encodePayload(e event.Event) (json.RawMessage, error) {
	switch evt := e.(type) {
	case event.OnlineUsers:
		return json.Marshal(lo.Map(evt.Users, func(u domain.PresenceEntry, _ int) presenceView {
			return presenceView{Identity: u.Identity, Handle: string(u.Handle)}
		}))
	case event.UserJoined:
		return json.Marshal(evt.Identity)
	case event.UserLeft:
		return json.Marshal(evt.Identity)
	case event.MessageReceived:
		return json.Marshal(messageView{
			ID:        evt.Message.ID.String(),
			User:      evt.Message.Author,
			Message:   evt.Message.Text,
			ImageURL:  evt.Message.Attachment,
			CreatedAt: evt.Message.CreatedAt,
		})
	case event.PrivateMessageReceived:
		return json.Marshal(privateMessageView{
			User:      evt.User,
			Message:   evt.Text,
			Timestamp: evt.At,
			Private:   true,
		})
	case event.UserTyping:
		return json.Marshal(evt.Identity)
	case event.UserStoppedTyping:
		return json.Marshal(evt.Identity)
	case event.MessageDeleted:
		return json.Marshal(evt.ID.String())
	case event.MessagesCleared:
		return nil, nil
	default:
		return nil, fmt.Errorf("unencodable event %T", e)
	}
}
