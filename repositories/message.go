package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chat-hub/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	messagePrefix = "msg:"
	idPrefix      = "mid:"
)

// MessageStore is the durable append-only log of public messages, backed by
// BadgerDB. It assigns ids and timestamps at append time; callers never
// provide either.
type MessageStore struct {
	db  *badger.DB
	log *slog.Logger

	mu       sync.Mutex
	lastNano int64
}

func NewMessageStore(db *badger.DB, log *slog.Logger) *MessageStore {
	return &MessageStore{db: db, log: log}
}

// diskMessage is the stored representation. Timestamps are unix nanos so the
// value round-trips without timezone surprises.
type diskMessage struct {
	ID         string `json:"id"`
	Author     string `json:"author"`
	Content    string `json:"content"`
	Attachment string `json:"attachment,omitempty"`
	At         int64  `json:"at"`
}

// messageKey formats "msg:{timestamp_padded}:{uuid}" so that:
//  1. Lexicographic key order is creation order (19-digit zero padding).
//  2. Two messages in the same nanosecond cannot collide (uuid suffix).
func messageKey(nano int64, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", messagePrefix, nano, id))
}

func indexKey(id uuid.UUID) []byte {
	return []byte(idPrefix + id.String())
}

// Append stores a new message and returns it with its assigned id and
// timestamp. Timestamps are forced strictly increasing across appends, so
// creation order, key order and timestamp order always agree.
func (s *MessageStore) Append(author, text, attachment string) (domain.ChatMessage, error) {
	s.mu.Lock()
	nano := time.Now().UTC().UnixNano()
	if nano <= s.lastNano {
		nano = s.lastNano + 1
	}
	s.lastNano = nano
	s.mu.Unlock()

	message := domain.ChatMessage{
		ID:         uuid.New(),
		Author:     author,
		Text:       text,
		Attachment: attachment,
		CreatedAt:  time.Unix(0, nano).UTC(),
	}
	value, err := json.Marshal(fromDomain(message))
	if err != nil {
		return domain.ChatMessage{}, err
	}

	key := messageKey(nano, message.ID)
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, value); err != nil {
			return err
		}
		// Secondary index for O(1) delete-by-id.
		return txn.Set(indexKey(message.ID), key)
	})
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return message, nil
}

// ListAll returns every stored message in ascending creation order. The
// padded timestamp in the key makes a forward prefix scan sufficient.
func (s *MessageStore) ListAll() ([]domain.ChatMessage, error) {
	var messages []domain.ChatMessage
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var dm diskMessage
				if err := json.Unmarshal(value, &dm); err != nil {
					return err
				}
				message, err := toDomain(dm)
				if err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return messages, err
}

// Delete removes one message by id. Deleting an unknown id is a no-op: the
// router broadcasts the deletion signal regardless.
func (s *MessageStore) Delete(id uuid.UUID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(indexKey(id))
		if err == badger.ErrKeyNotFound {
			s.log.Debug(fmt.Sprintf("Delete of unknown message %s ignored", id))
			return nil
		}
		if err != nil {
			return err
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete(indexKey(id))
	})
}

// Clear truncates the whole log, index included.
func (s *MessageStore) Clear() error {
	return s.db.DropPrefix([]byte(messagePrefix), []byte(idPrefix))
}

func fromDomain(m domain.ChatMessage) diskMessage {
	return diskMessage{
		ID:         m.ID.String(),
		Author:     m.Author,
		Content:    m.Text,
		Attachment: m.Attachment,
		At:         m.CreatedAt.UnixNano(),
	}
}

func toDomain(dm diskMessage) (domain.ChatMessage, error) {
	id, err := uuid.Parse(dm.ID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return domain.ChatMessage{
		ID:         id,
		Author:     dm.Author,
		Text:       dm.Content,
		Attachment: dm.Attachment,
		CreatedAt:  time.Unix(0, dm.At).UTC(),
	}, nil
}
