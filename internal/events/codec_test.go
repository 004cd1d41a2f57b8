package events

import (
	"errors"
	"strings"
	"testing"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
	"github.com/fathima-sithara/chat-hub/internal/domain"
)

func TestEncodeUsesPayloadName(t *testing.T) {
	frame, err := Encode(UserStatusEvent{UserID: "u1", Online: true})
	if err != nil {
		t.Fatal(err)
	}
	env, err := Decode(frame)
	if err != nil {
		t.Fatal(err)
	}
	if env.Event != UserStatus {
		t.Fatalf("event = %q", env.Event)
	}
	if !strings.Contains(string(env.Data), `"online":true`) {
		t.Fatalf("data = %s", env.Data)
	}
}

func TestEncodeFlattensEmbeddedRequest(t *testing.T) {
	p := FriendRequestSentEvent{FriendRequestEvent{Request: domain.FriendRequest{ID: "r1", Status: domain.FriendRequestPending}}}
	frame, err := Encode(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(frame), `"event":"friendRequestSent","data":{"request":{"id":"r1"`) {
		t.Fatalf("frame = %s", frame)
	}
}

func TestEndCallEncodesNullID(t *testing.T) {
	frame, _ := Encode(EndCallEvent{From: "a"})
	if !strings.Contains(string(frame), `"callId":null`) {
		t.Fatalf("frame = %s", frame)
	}
}

func TestErrorEventScope(t *testing.T) {
	e := NewError(ScopeCall, InCallUser, apperr.Forbidden("caller mismatch"))
	if e.EventName() != "call-error" || e.Code != "authorization" || e.Message != "caller mismatch" {
		t.Fatalf("error event = %+v", e)
	}
	hidden := NewError("", InSendMessage, errors.New("socket closed"))
	if hidden.EventName() != "error" || hidden.Message != "internal server error" {
		t.Fatalf("error event = %+v", hidden)
	}
}

func TestBind(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		wantErr bool
	}{
		{"valid", `{"event":"call-user","data":{"from":"a","to":"b","callType":"video","signal":{"sdp":"x"}}}`, false},
		{"bad call type", `{"event":"call-user","data":{"from":"a","to":"b","callType":"fax"}}`, true},
		{"missing field", `{"event":"call-user","data":{"to":"b","callType":"audio"}}`, true},
		{"no data", `{"event":"call-user"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Decode([]byte(tt.frame))
			if err != nil {
				t.Fatal(err)
			}
			var req CallUserRequest
			err = Bind(env, &req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Bind() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperr.Is(err, apperr.KindInvalid) {
				t.Fatalf("Bind() error kind = %v", apperr.KindOf(err))
			}
			if err == nil && string(req.Signal) != `{"sdp":"x"}` {
				t.Fatalf("signal = %s", req.Signal)
			}
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("not json")); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("Decode() error = %v", err)
	}
	if _, err := Decode([]byte(`{"data":{}}`)); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("Decode() error = %v", err)
	}
}
