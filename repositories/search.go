//go:generate go run go.uber.org/mock/mockgen -source=search.go -destination=../mocks/mock_message_index.go -package=mocks
package repositories

import (
	"context"
	"log/slog"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

type IMessageIndex interface {
	Index(message DiskMessage) error
	Search(ctx context.Context, terms string, limit int) ([]uuid.UUID, error)
	Delete(id uuid.UUID) error
}

// MessageIndex maintains a full-text index of message bodies. Badger
// stays the source of truth; the index only resolves search terms to
// message ids.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

func (i *MessageIndex) Index(message DiskMessage) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("body", message.Body)).
		AddField(bluge.NewKeywordField("author", message.AuthorID))
	return i.writer.Update(doc.ID(), doc)
}

func (i *MessageIndex) Search(ctx context.Context, terms string, limit int) ([]uuid.UUID, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = reader.Close()
	}()

	query := bluge.NewMatchQuery(terms).SetField("body")
	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				if id, parseErr := uuid.Parse(string(value)); parseErr == nil {
					ids = append(ids, id)
				} else {
					i.log.Warn("Index entry with unparseable id", "value", string(value))
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func (i *MessageIndex) Delete(id uuid.UUID) error {
	return i.writer.Delete(bluge.Identifier(id.String()))
}
