package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chatline/domain"
	"chatline/domain/event"
	"chatline/errors"
	"chatline/moderation"
	"chatline/repositories"
	"chatline/runtime"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// DefaultFindLimit matches the page size chat frontends render by
// default.
const DefaultFindLimit = 25

type MessageQuery struct {
	// Search switches Find to the full-text index; empty means a plain
	// chronological page.
	Search string
	Cursor *string
	Limit  int
}

type IMessageService interface {
	Post(ctx context.Context, authorID, body string) (domain.Message, error)
	Find(ctx context.Context, query MessageQuery) (domain.Page[domain.Message], *string, error)
	Patch(ctx context.Context, id uuid.UUID, authorID, body string) (domain.Message, error)
	Remove(ctx context.Context, id uuid.UUID, authorID string) (domain.Message, error)
}

type MessageService struct {
	users     repositories.IUserRepository
	messages  repositories.IMessageRepository
	index     repositories.IMessageIndex
	moderator *moderation.Moderator
	events    chan<- event.Event
	log       *slog.Logger
	pageLimit int
}

func NewMessageService(
	users repositories.IUserRepository,
	messages repositories.IMessageRepository,
	index repositories.IMessageIndex,
	moderator *moderation.Moderator,
	events chan<- event.Event,
	log *slog.Logger,
	pageLimit int,
) *MessageService {
	if pageLimit <= 0 {
		pageLimit = DefaultFindLimit
	}
	return &MessageService{
		users:     users,
		messages:  messages,
		index:     index,
		moderator: moderator,
		events:    events,
		log:       log,
		pageLimit: pageLimit,
	}
}

// Post stores a new message. The author reference must resolve to an
// existing user at creation time; the body is censored, truncated and
// tagged with a detected language before it is persisted.
func (s *MessageService) Post(ctx context.Context, authorID, body string) (domain.Message, error) {
	author, err := s.users.GetUserByID(authorID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return domain.Message{}, fmt.Errorf("%w: unknown author", errors.ErrValidation)
		}
		return domain.Message{}, err
	}

	sanitized, err := s.sanitize(body)
	if err != nil {
		return domain.Message{}, err
	}

	disk := repositories.DiskMessage{
		ID:        uuid.New(),
		AuthorID:  authorID,
		Body:      sanitized,
		Language:  detectLanguage(sanitized),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.StoreMessage(disk); err != nil {
		return domain.Message{}, err
	}
	if err := s.index.Index(disk); err != nil {
		// Badger already holds the record; the index is best-effort.
		s.log.Warn("Message indexing failed", "id", disk.ID, "error", err)
	}

	message := toMessage(disk, &author)
	runtime.Emit(s.log, s.events, event.Event{
		Collection: event.Messages,
		Type:       event.Created,
		At:         time.Now().UTC(),
		Record:     message,
	})
	return message, nil
}

// Find returns either a chronological page (newest first, resumable via
// the returned cursor) or, when query.Search is set, the index matches.
// Total always reports the stored message count at call time.
func (s *MessageService) Find(ctx context.Context, query MessageQuery) (domain.Page[domain.Message], *string, error) {
	var page domain.Page[domain.Message]

	total, err := s.messages.CountMessages()
	if err != nil {
		return page, nil, err
	}

	limit := query.Limit
	if limit <= 0 {
		limit = s.pageLimit
	}

	if query.Search != "" {
		data, err := s.findByTerms(ctx, query.Search, limit)
		if err != nil {
			return page, nil, err
		}
		return domain.Page[domain.Message]{Total: total, Limit: limit, Data: data}, nil, nil
	}

	disks, cursor, err := s.messages.GetMessages(query.Cursor, limit)
	if err != nil {
		return page, nil, err
	}
	data, err := s.populate(disks)
	if err != nil {
		return page, nil, err
	}
	return domain.Page[domain.Message]{Total: total, Limit: limit, Data: data}, cursor, nil
}

func (s *MessageService) Patch(ctx context.Context, id uuid.UUID, authorID, body string) (domain.Message, error) {
	disk, err := s.messages.GetMessage(id)
	if err != nil {
		return domain.Message{}, err
	}
	if disk.AuthorID != authorID {
		return domain.Message{}, errors.ErrForbidden
	}

	sanitized, err := s.sanitize(body)
	if err != nil {
		return domain.Message{}, err
	}
	disk.Body = sanitized
	disk.Language = detectLanguage(sanitized)

	if err := s.messages.UpdateMessage(disk); err != nil {
		return domain.Message{}, err
	}
	if err := s.index.Index(disk); err != nil {
		s.log.Warn("Message re-indexing failed", "id", disk.ID, "error", err)
	}

	author, err := s.users.GetUserByID(disk.AuthorID)
	if err != nil {
		return domain.Message{}, err
	}
	message := toMessage(disk, &author)
	runtime.Emit(s.log, s.events, event.Event{
		Collection: event.Messages,
		Type:       event.Patched,
		At:         time.Now().UTC(),
		Record:     message,
	})
	return message, nil
}

func (s *MessageService) Remove(ctx context.Context, id uuid.UUID, authorID string) (domain.Message, error) {
	disk, err := s.messages.GetMessage(id)
	if err != nil {
		return domain.Message{}, err
	}
	if disk.AuthorID != authorID {
		return domain.Message{}, errors.ErrForbidden
	}

	if err := s.messages.DeleteMessage(id); err != nil {
		return domain.Message{}, err
	}
	if err := s.index.Delete(id); err != nil {
		s.log.Warn("Message index deletion failed", "id", id, "error", err)
	}

	message := toMessage(disk, nil)
	runtime.Emit(s.log, s.events, event.Event{
		Collection: event.Messages,
		Type:       event.Removed,
		At:         time.Now().UTC(),
		Record:     message,
	})
	return message, nil
}

func (s *MessageService) sanitize(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("%w: empty message body", errors.ErrValidation)
	}

	if runes := []rune(body); len(runes) > domain.MaxMessageRunes {
		body = string(runes[:domain.MaxMessageRunes])
	}

	censored, hits := s.moderator.Censor(body)
	if len(hits) > 0 {
		s.log.Info("Censored message content", "hits", len(hits))
	}
	return censored, nil
}

func (s *MessageService) findByTerms(ctx context.Context, terms string, limit int) ([]domain.Message, error) {
	ids, err := s.index.Search(ctx, terms, limit)
	if err != nil {
		return nil, err
	}

	var disks []repositories.DiskMessage
	for _, id := range ids {
		disk, err := s.messages.GetMessage(id)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				continue // index entry outlived the record
			}
			return nil, err
		}
		disks = append(disks, disk)
	}
	return s.populate(disks)
}

// populate resolves author references, caching each user once per call.
func (s *MessageService) populate(disks []repositories.DiskMessage) ([]domain.Message, error) {
	authors := make(map[string]*domain.User)
	for _, disk := range disks {
		if _, ok := authors[disk.AuthorID]; ok {
			continue
		}
		author, err := s.users.GetUserByID(disk.AuthorID)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				authors[disk.AuthorID] = nil // author deleted since
				continue
			}
			return nil, err
		}
		authors[disk.AuthorID] = &author
	}

	return lo.Map(disks, func(disk repositories.DiskMessage, _ int) domain.Message {
		return toMessage(disk, authors[disk.AuthorID])
	}), nil
}

func toMessage(disk repositories.DiskMessage, author *domain.User) domain.Message {
	return domain.Message{
		ID:        disk.ID,
		AuthorID:  disk.AuthorID,
		Author:    author,
		Body:      disk.Body,
		Language:  disk.Language,
		CreatedAt: disk.CreatedAt,
	}
}

func detectLanguage(body string) string {
	info := whatlanggo.Detect(body)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
