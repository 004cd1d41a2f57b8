package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
)

// Inbound payloads. Field tags double as HTTP body bindings.

type JoinRequest struct {
	Room string `json:"room" validate:"required"`
}

type SendFriendRequestRequest struct {
	ReceiverID string `json:"receiverId" validate:"required"`
}

type FriendRequestActionRequest struct {
	RequestID string `json:"requestId" validate:"required"`
}

type UnfriendRequest struct {
	FriendID string `json:"friendId" validate:"required"`
}

type SendMessageRequest struct {
	ReceiverID string `json:"receiverId" validate:"required"`
	Content    string `json:"content" validate:"required,max=4000"`
}

type FetchMessagesRequest struct {
	FriendID string `json:"friendId" validate:"required"`
}

type MarkReadRequest struct {
	SenderID string `json:"senderId" validate:"required"`
}

type EditMessageRequest struct {
	MessageID string `json:"messageId" validate:"required"`
	Content   string `json:"content" validate:"required,max=4000"`
}

type MessageRefRequest struct {
	MessageID string `json:"messageId" validate:"required"`
}

type AddReactionRequest struct {
	MessageID string `json:"messageId" validate:"required"`
	Emoji     string `json:"emoji" validate:"required,max=32"`
}

type TypingRequest struct {
	ReceiverID string `json:"receiverId" validate:"required"`
}

type CallUserRequest struct {
	From     string          `json:"from" validate:"required"`
	To       string          `json:"to" validate:"required"`
	Signal   json.RawMessage `json:"signal"`
	CallType string          `json:"callType" validate:"required,oneof=audio video"`
}

type AcceptCallRequest struct {
	From   string          `json:"from" validate:"required"`
	To     string          `json:"to" validate:"required"`
	Signal json.RawMessage `json:"signal"`
	CallID string          `json:"callId"`
}

type CallRefRequest struct {
	From   string `json:"from" validate:"required"`
	To     string `json:"to" validate:"required"`
	CallID string `json:"callId"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks struct tags and reports the first failing field.
func Validate(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperr.Invalid(fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
	}
	return apperr.Invalid("invalid payload")
}
