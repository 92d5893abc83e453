//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"chatline/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	StoreMessage(message DiskMessage) error
	GetMessages(cursor *string, limit int) ([]DiskMessage, *string, error)
	GetMessage(id uuid.UUID) (DiskMessage, error)
	UpdateMessage(message DiskMessage) error
	DeleteMessage(id uuid.UUID) error
	CountMessages() (int, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// DiskMessage is the on-disk record. The populated author lives only in
// the wire model.
type DiskMessage struct {
	ID        uuid.UUID `json:"id"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	Language  string    `json:"language,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Key layout:
//
//	msg:{timestamp_padded}:{uuid} -> JSON DiskMessage
//	mid:{uuid}                    -> primary key bytes
//
// The 19-digit zero padding makes lexicographical order chronological,
// and the UUID suffix disambiguates two messages stored in the same
// nanosecond. The mid: index allows O(1) lookups by id for patch and
// remove.
func messageKey(m DiskMessage) []byte {
	return []byte(fmt.Sprintf("msg:%019d:%s", m.CreatedAt.UnixNano(), m.ID))
}

func messageIDKey(id uuid.UUID) []byte { return []byte("mid:" + id.String()) }

func (m MessageRepository) StoreMessage(message DiskMessage) error {
	key := messageKey(message)
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(messageIDKey(message.ID), key)
	})
}

// GetMessages returns the newest messages first using a reverse prefix
// scan, resuming after the cursor when one is provided. Thanks to the
// padded timestamp in the key, messages are naturally sorted by time.
// The scan stops at the requested limit, further capped by the
// configured limitMessages; the returned cursor resumes it on the next
// call, and is nil when nothing was scanned.
func (m MessageRepository) GetMessages(cursor *string, limit int) ([]DiskMessage, *string, error) {
	max := limit
	if m.limitMessages != nil && (max <= 0 || *m.limitMessages < max) {
		max = *m.limitMessages
	}

	var raw [][]byte
	var lastKey string

	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := "msg:"
		prefix := []byte(prefixStr)

		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible key, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if max > 0 && len(raw) == max {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", max))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			err := item.Value(func(value []byte) error {
				raw = append(raw, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	messages := make([]DiskMessage, 0, len(raw))
	for _, b := range raw {
		var message DiskMessage
		if err = json.Unmarshal(b, &message); err != nil {
			return nil, nil, err
		}
		messages = append(messages, message)
	}
	if lastKey == "" {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}

func (m MessageRepository) GetMessage(id uuid.UUID) (DiskMessage, error) {
	var message DiskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		key, err := m.resolveKey(txn, id)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &message)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return DiskMessage{}, errors.ErrNotFound
		}
		return DiskMessage{}, err
	}
	return message, nil
}

// UpdateMessage rewrites the record in place. The key is stable because
// CreatedAt and ID never change on patch.
func (m MessageRepository) UpdateMessage(message DiskMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		key, err := m.resolveKey(txn, message.ID)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrNotFound
	}
	return err
}

func (m MessageRepository) DeleteMessage(id uuid.UUID) error {
	err := m.db.Update(func(txn *badger.Txn) error {
		key, err := m.resolveKey(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete(messageIDKey(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrNotFound
	}
	return err
}

func (m MessageRepository) CountMessages() (int, error) {
	count := 0
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte("msg:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func (m MessageRepository) resolveKey(txn *badger.Txn, id uuid.UUID) ([]byte, error) {
	item, err := txn.Get(messageIDKey(id))
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}
