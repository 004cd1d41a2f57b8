package events

import (
	"encoding/json"
	"time"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
	"github.com/fathima-sithara/chat-hub/internal/domain"
)

// Payload is implemented by every outbound event body. The event name is a
// property of the type, so a name can never travel with the wrong shape.
type Payload interface {
	EventName() string
}

// friend graph

type FriendRequestEvent struct {
	Request  domain.FriendRequest `json:"request"`
	Sender   *domain.UserSummary  `json:"sender,omitempty"`
	Receiver *domain.UserSummary  `json:"receiver,omitempty"`
}

type FriendRequestReceivedEvent struct{ FriendRequestEvent }
type FriendRequestSentEvent struct{ FriendRequestEvent }
type FriendRequestRejectedEvent struct{ FriendRequestEvent }
type FriendRequestCancelledEvent struct{ FriendRequestEvent }

type FriendRequestAcceptedEvent struct {
	FriendRequestEvent
	Friendship domain.Friendship `json:"friendship"`
}

type UnfriendedEvent struct {
	UserID   string `json:"userId"`
	FriendID string `json:"friendId"`
}

func (FriendRequestReceivedEvent) EventName() string  { return FriendRequestReceived }
func (FriendRequestSentEvent) EventName() string      { return FriendRequestSent }
func (FriendRequestAcceptedEvent) EventName() string  { return FriendRequestAccepted }
func (FriendRequestRejectedEvent) EventName() string  { return FriendRequestRejected }
func (FriendRequestCancelledEvent) EventName() string { return FriendRequestCancelled }
func (UnfriendedEvent) EventName() string             { return Unfriended }

// messaging

type MessageEvent struct {
	Message domain.Message `json:"message"`
}

type ReceiveMessageEvent struct{ MessageEvent }
type MessageUpdatedEvent struct{ MessageEvent }

type MessagesReadEvent struct {
	ReaderID   string    `json:"readerId"`
	MessageIDs []string  `json:"messageIds"`
	ReadAt     time.Time `json:"readAt"`
}

type MessageDeletedEvent struct {
	MessageID  string `json:"messageId"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

type MessageReactionEvent struct {
	MessageID string                 `json:"messageId"`
	Reaction  domain.MessageReaction `json:"reaction"`
}

type MessageReactionRemovedEvent struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}

type TypingEvent struct {
	UserID string `json:"userId"`
}

type UserTypingEvent struct{ TypingEvent }
type UserStoppedTypingEvent struct{ TypingEvent }

type MessageThreadEvent struct {
	FriendID string           `json:"friendId"`
	Messages []domain.Message `json:"messages"`
}

func (ReceiveMessageEvent) EventName() string         { return ReceiveMessage }
func (MessageUpdatedEvent) EventName() string         { return MessageUpdated }
func (MessagesReadEvent) EventName() string           { return MessagesRead }
func (MessageDeletedEvent) EventName() string         { return MessageDeleted }
func (MessageReactionEvent) EventName() string        { return MessageReaction }
func (MessageReactionRemovedEvent) EventName() string { return MessageReactionRemoved }
func (UserTypingEvent) EventName() string             { return UserTyping }
func (UserStoppedTypingEvent) EventName() string      { return UserStoppedTyping }
func (MessageThreadEvent) EventName() string          { return MessageThread }

// calls

type IncomingCallEvent struct {
	CallID    string              `json:"callId"`
	From      string              `json:"from"`
	Signal    json.RawMessage     `json:"signal,omitempty"`
	CallType  domain.CallType     `json:"callType"`
	Timestamp time.Time           `json:"timestamp"`
	Caller    *domain.UserSummary `json:"caller,omitempty"`
}

type CallInitiatedEvent struct {
	CallID    string          `json:"callId"`
	To        string          `json:"to"`
	CallType  domain.CallType `json:"callType"`
	Timestamp time.Time       `json:"timestamp"`
}

type AcceptCallEvent struct {
	CallID string          `json:"callId"`
	From   string          `json:"from"`
	Signal json.RawMessage `json:"signal,omitempty"`
}

type RejectCallEvent struct {
	CallID string `json:"callId"`
	From   string `json:"from"`
}

// EndCallEvent carries a null callId when the call could not be resolved.
type EndCallEvent struct {
	CallID   *string `json:"callId"`
	From     string  `json:"from"`
	Duration *int64  `json:"duration"`
}

type CallUpdatedEvent struct {
	Call domain.Call `json:"call"`
}

func (IncomingCallEvent) EventName() string  { return IncomingCall }
func (CallInitiatedEvent) EventName() string { return CallInitiated }
func (AcceptCallEvent) EventName() string    { return AcceptCall }
func (RejectCallEvent) EventName() string    { return RejectCall }
func (EndCallEvent) EventName() string       { return EndCall }
func (CallUpdatedEvent) EventName() string   { return CallUpdated }

// presence

type UserStatusEvent struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

func (UserStatusEvent) EventName() string { return UserStatus }

// ErrorEvent is delivered only to the connection whose event failed.
type ErrorEvent struct {
	Scope     string `json:"-"`
	Operation string `json:"operation"`
	Message   string `json:"message"`
	Code      string `json:"code"`
}

func (e ErrorEvent) EventName() string {
	if e.Scope == "" {
		return ScopeGeneral
	}
	return e.Scope
}

func NewError(scope, operation string, err error) ErrorEvent {
	return ErrorEvent{
		Scope:     scope,
		Operation: operation,
		Message:   apperr.PublicMessage(err),
		Code:      apperr.KindOf(err).String(),
	}
}
