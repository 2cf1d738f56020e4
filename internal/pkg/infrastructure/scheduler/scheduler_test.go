package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/logging"
)

func TestThatScheduledTasksRunAfterStart(t *testing.T) {
	s := New(time.Hour, time.Second, logging.NewLogger())
	ran := make(chan struct{}, 1)

	err := s.Schedule("probe", func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatal(err.Error())
	}

	s.Start()
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Error("Expected the task to run when the scheduler started")
	}
}

func TestThatTasksGetADeadline(t *testing.T) {
	s := New(time.Hour, 50*time.Millisecond, logging.NewLogger())
	result := make(chan error, 1)

	s.Schedule("slow", func(ctx context.Context) error {
		<-ctx.Done()
		result <- ctx.Err()
		return ctx.Err()
	})

	s.Start()
	defer s.Stop()

	select {
	case err := <-result:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Expected the deadline to expire, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Expected the task context to be cancelled")
	}
}
