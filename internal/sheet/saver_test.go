package sheet

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSaverCoalescesOverlappingRequests(t *testing.T) {
	started := make(chan struct{}, 8)
	release := make(chan struct{})
	var calls atomic.Int32
	saver := NewSaver(func(ctx context.Context) error {
		calls.Add(1)
		started <- struct{}{}
		<-release
		return nil
	}, time.Second)

	saver.Request()
	<-started
	saver.Request()
	saver.Request()
	saver.Request()

	status := saver.Status()
	if status.State != InFlight || !status.Pending {
		t.Fatalf("expected in-flight save with a pending follow-up, got %+v", status)
	}

	close(release)
	saver.Wait()

	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 saves, got %d", got)
	}
	status = saver.Status()
	if status.State != Idle || status.Pending || status.LastSavedAt == nil {
		t.Fatalf("unexpected final status %+v", status)
	}
}

func TestSaverReportsFailureUntilNextSuccess(t *testing.T) {
	fail := atomic.Bool{}
	fail.Store(true)
	saver := NewSaver(func(ctx context.Context) error {
		if fail.Load() {
			return errors.New("connection refused")
		}
		return nil
	}, time.Second)

	saver.Request()
	saver.Wait()
	status := saver.Status()
	if status.LastError != "connection refused" || status.LastSavedAt != nil {
		t.Fatalf("expected failure recorded, got %+v", status)
	}

	fail.Store(false)
	saver.Request()
	saver.Wait()
	status = saver.Status()
	if status.LastError != "" || status.LastSavedAt == nil {
		t.Fatalf("expected recovery, got %+v", status)
	}
}

func TestSaverAppliesTimeout(t *testing.T) {
	saver := NewSaver(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, 20*time.Millisecond)
	saver.Request()
	saver.Wait()
	if got := saver.Status().LastError; got != context.DeadlineExceeded.Error() {
		t.Fatalf("expected deadline error, got %q", got)
	}
}
