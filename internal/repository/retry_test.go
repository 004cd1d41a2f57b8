package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestRetry(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), fastPolicy(), func(context.Context) error {
			calls++
			if calls < 3 {
				return apperr.Transient(errors.New("write conflict"))
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Retry() error = %v", err)
		}
		if calls != 3 {
			t.Fatalf("calls = %d, want 3", calls)
		}
	})

	t.Run("gives up after the attempt cap", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), fastPolicy(), func(context.Context) error {
			calls++
			return apperr.Transient(errors.New("write conflict"))
		})
		if !apperr.Is(err, apperr.KindTransientStore) {
			t.Fatalf("Retry() error = %v, want transient", err)
		}
		if calls != 4 {
			t.Fatalf("calls = %d, want 4 (1 + 3 retries)", calls)
		}
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), fastPolicy(), func(context.Context) error {
			calls++
			return ErrNotFound
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("Retry() error = %v, want ErrNotFound", err)
		}
		if calls != 1 {
			t.Fatalf("calls = %d, want 1", calls)
		}
	})
}

func TestAppError(t *testing.T) {
	tests := []struct {
		in   error
		want apperr.Kind
	}{
		{ErrNotFound, apperr.KindNotFound},
		{ErrDuplicate, apperr.KindConflict},
		{ErrStateChanged, apperr.KindConflict},
		{apperr.Transient(errors.New("x")), apperr.KindTransientStore},
		{errors.New("disk on fire"), apperr.KindUnexpected},
	}
	for _, tt := range tests {
		if got := apperr.KindOf(AppError(tt.in, "call")); got != tt.want {
			t.Fatalf("AppError(%v) kind = %v, want %v", tt.in, got, tt.want)
		}
	}
	if AppError(nil, "call") != nil {
		t.Fatal("nil error translated to non-nil")
	}
}
