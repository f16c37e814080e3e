package indexer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	err := newRetryPolicy(3, time.Millisecond).do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("%w: timeout", ErrQueryUnavailable)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	err := newRetryPolicy(2, time.Millisecond).do(context.Background(), func(context.Context) error {
		calls++
		return ErrQueryUnavailable
	})
	if !errors.Is(err, ErrQueryUnavailable) {
		t.Fatalf("err = %v, want ErrQueryUnavailable", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetrySkipsPermanentErrors(t *testing.T) {
	calls := 0
	err := newRetryPolicy(5, time.Millisecond).do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("bad row")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := newRetryPolicy(5, time.Hour).do(ctx, func(context.Context) error {
		return ErrQueryUnavailable
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
