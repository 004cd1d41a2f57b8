package messaging

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
	"github.com/fathima-sithara/chat-hub/internal/domain"
	"github.com/fathima-sithara/chat-hub/internal/events"
	"github.com/fathima-sithara/chat-hub/internal/kafka"
	"github.com/fathima-sithara/chat-hub/internal/repository"
)

type Router interface {
	Deliver(ctx context.Context, room string, p events.Payload)
}

type Store interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	repository.MessageRepository
	repository.ReactionRepository
}

// Service persists direct messages and their reactions and notifies both
// parties of every change.
type Service struct {
	store  Store
	router Router
	pub    kafka.Publisher
	log    *zap.Logger
	now    func() time.Time
}

func NewService(store Store, router Router, pub kafka.Publisher, log *zap.Logger) *Service {
	if pub == nil {
		pub = kafka.Nop{}
	}
	return &Service{store: store, router: router, pub: pub, log: log, now: time.Now}
}

func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) Send(ctx context.Context, senderID, receiverID, content string) (*domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Invalid("message content is required")
	}
	for _, id := range []string{senderID, receiverID} {
		if _, err := s.store.GetUser(ctx, id); err != nil {
			return nil, repository.AppError(err, "user")
		}
	}

	now := s.now().UTC()
	msg := &domain.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, repository.AppError(err, "message")
	}

	s.both(ctx, msg, events.ReceiveMessageEvent{MessageEvent: events.MessageEvent{Message: *msg}})
	kafka.PublishAsync(s.pub, s.log, kafka.Event{
		Type:    kafka.TypeMessageSent,
		Key:     domain.PairKey(senderID, receiverID),
		At:      now,
		Payload: msg,
	})
	return msg, nil
}

// Thread returns the conversation between actorID and friendID, oldest
// first, and marks the returned unread messages from friendID as read.
func (s *Service) Thread(ctx context.Context, actorID, friendID string) ([]domain.Message, error) {
	msgs, err := s.store.ListThread(ctx, actorID, friendID)
	if err != nil {
		return nil, repository.AppError(err, "messages")
	}

	var unread []string
	for _, m := range msgs {
		if m.SenderID == friendID && m.ReceiverID == actorID && !m.IsRead {
			unread = append(unread, m.ID)
		}
	}
	if len(unread) > 0 {
		readAt := s.now().UTC()
		readIDs, err := s.store.MarkMessagesRead(ctx, unread, actorID, readAt)
		if err != nil {
			return nil, repository.AppError(err, "messages")
		}
		if len(readIDs) > 0 {
			read := make(map[string]struct{}, len(readIDs))
			for _, id := range readIDs {
				read[id] = struct{}{}
			}
			for i := range msgs {
				if _, ok := read[msgs[i].ID]; ok {
					at := readAt
					msgs[i].IsRead = true
					msgs[i].ReadAt = &at
				}
			}
			s.router.Deliver(ctx, friendID, events.MessagesReadEvent{ReaderID: actorID, MessageIDs: readIDs, ReadAt: readAt})
		}
	}

	if err := s.attachReactions(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkRead marks every unread message from senderID to actorID as read.
func (s *Service) MarkRead(ctx context.Context, actorID, senderID string) ([]string, error) {
	readAt := s.now().UTC()
	ids, err := s.store.MarkThreadRead(ctx, senderID, actorID, readAt)
	if err != nil {
		return nil, repository.AppError(err, "messages")
	}
	if len(ids) > 0 {
		s.router.Deliver(ctx, senderID, events.MessagesReadEvent{ReaderID: actorID, MessageIDs: ids, ReadAt: readAt})
	}
	return ids, nil
}

func (s *Service) Edit(ctx context.Context, actorID, messageID, content string) (*domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Invalid("message content is required")
	}
	if _, err := s.ownMessage(ctx, actorID, messageID, "edit"); err != nil {
		return nil, err
	}
	msg, err := s.store.UpdateMessageContent(ctx, messageID, content, s.now().UTC())
	if err != nil {
		return nil, repository.AppError(err, "message")
	}
	s.both(ctx, msg, events.MessageUpdatedEvent{MessageEvent: events.MessageEvent{Message: *msg}})
	return msg, nil
}

func (s *Service) Delete(ctx context.Context, actorID, messageID string) error {
	msg, err := s.ownMessage(ctx, actorID, messageID, "delete")
	if err != nil {
		return err
	}
	if err := s.store.DeleteMessage(ctx, messageID); err != nil {
		return repository.AppError(err, "message")
	}
	s.both(ctx, msg, events.MessageDeletedEvent{MessageID: msg.ID, SenderID: msg.SenderID, ReceiverID: msg.ReceiverID})
	return nil
}

// React sets actorID's reaction on the message, replacing any earlier one.
func (s *Service) React(ctx context.Context, actorID, messageID, emoji string) (*domain.MessageReaction, error) {
	if strings.TrimSpace(emoji) == "" {
		return nil, apperr.Invalid("emoji is required")
	}
	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, repository.AppError(err, "message")
	}
	if !msg.Involves(actorID) {
		return nil, apperr.Forbidden("not a participant of this message")
	}
	now := s.now().UTC()
	reaction, err := s.store.UpsertReaction(ctx, &domain.MessageReaction{
		MessageID: messageID,
		UserID:    actorID,
		Emoji:     emoji,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, repository.AppError(err, "reaction")
	}
	s.both(ctx, msg, events.MessageReactionEvent{MessageID: messageID, Reaction: *reaction})
	return reaction, nil
}

// Unreact removes actorID's reaction. It reports false, and notifies
// nobody, when there was none.
func (s *Service) Unreact(ctx context.Context, actorID, messageID string) (bool, error) {
	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return false, repository.AppError(err, "message")
	}
	removed, err := s.store.DeleteReaction(ctx, messageID, actorID)
	if err != nil {
		return false, repository.AppError(err, "reaction")
	}
	if !removed {
		return false, nil
	}
	s.both(ctx, msg, events.MessageReactionRemovedEvent{MessageID: messageID, UserID: actorID})
	return true, nil
}

// Typing relays a typing indicator to receiverID only. Nothing is stored.
func (s *Service) Typing(ctx context.Context, actorID, receiverID string, typing bool) {
	ev := events.TypingEvent{UserID: actorID}
	if typing {
		s.router.Deliver(ctx, receiverID, events.UserTypingEvent{TypingEvent: ev})
		return
	}
	s.router.Deliver(ctx, receiverID, events.UserStoppedTypingEvent{TypingEvent: ev})
}

func (s *Service) ownMessage(ctx context.Context, actorID, messageID, verb string) (*domain.Message, error) {
	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, repository.AppError(err, "message")
	}
	if msg.SenderID != actorID {
		return nil, apperr.Forbidden("only the sender can " + verb + " this message")
	}
	return msg, nil
}

func (s *Service) attachReactions(ctx context.Context, msgs []domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	ids := make([]string, len(msgs))
	for i := range msgs {
		ids[i] = msgs[i].ID
	}
	reactions, err := s.store.ListReactions(ctx, ids)
	if err != nil {
		return repository.AppError(err, "reactions")
	}
	byMessage := make(map[string][]domain.MessageReaction)
	for _, r := range reactions {
		byMessage[r.MessageID] = append(byMessage[r.MessageID], r)
	}
	for i := range msgs {
		msgs[i].Reactions = byMessage[msgs[i].ID]
	}
	return nil
}

func (s *Service) both(ctx context.Context, msg *domain.Message, p events.Payload) {
	s.router.Deliver(ctx, msg.SenderID, p)
	if msg.ReceiverID != msg.SenderID {
		s.router.Deliver(ctx, msg.ReceiverID, p)
	}
}
