package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/notifly/backend/domain"
)

type fakeScheduler struct {
	granted       bool
	permissionErr error
	scheduleErr   error
	cancelErr     error

	permissionCalls int
	seq             int
	scheduled       map[string]Trigger
	cancelled       []string
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{
		granted:   true,
		scheduled: make(map[string]Trigger),
	}
}

func (s *fakeScheduler) RequestPermission(ctx context.Context) (bool, error) {
	s.permissionCalls++
	return s.granted, s.permissionErr
}

func (s *fakeScheduler) Schedule(ctx context.Context, trigger Trigger) (string, error) {
	if s.scheduleErr != nil {
		return "", s.scheduleErr
	}
	s.seq++
	id := fmt.Sprintf("trig-%d", s.seq)
	trigger.ID = id
	s.scheduled[id] = trigger
	return id, nil
}

func (s *fakeScheduler) Cancel(ctx context.Context, id string) error {
	s.cancelled = append(s.cancelled, id)
	if s.cancelErr != nil {
		return s.cancelErr
	}
	delete(s.scheduled, id)
	return nil
}

func (s *fakeScheduler) ScheduledIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.scheduled))
	for id := range s.scheduled {
		ids = append(ids, id)
	}
	return ids, nil
}

func sampleTask(id string, enabled bool) domain.Task {
	return domain.Task{
		ID:            id,
		Title:         "Stretch",
		Description:   "Five minutes of stretching",
		ScheduledTime: time.Now().Add(time.Hour),
		RepeatType:    domain.RepeatDaily,
		IsEnabled:     enabled,
	}
}

func TestScheduleRegistersTrigger(t *testing.T) {
	scheduler := newFakeScheduler()
	bridge := NewBridge(scheduler, nil)
	task := sampleTask("t1", true)

	id := bridge.TaskCreated(context.Background(), &task)
	if id == "" {
		t.Fatal("expected a notification id")
	}
	trigger, ok := scheduler.scheduled[id]
	if !ok {
		t.Fatalf("trigger %s not registered", id)
	}
	if trigger.Title != task.Title || trigger.Body != task.Description {
		t.Fatalf("trigger content = %+v", trigger)
	}
	if !trigger.FireAt.Equal(task.ScheduledTime) {
		t.Fatalf("fire time = %v, want %v", trigger.FireAt, task.ScheduledTime)
	}
	if trigger.Repeat != domain.RepeatDaily {
		t.Fatalf("repeat = %v", trigger.Repeat)
	}
}

func TestScheduleFailsClosedOnDeniedPermission(t *testing.T) {
	scheduler := newFakeScheduler()
	scheduler.granted = false
	bridge := NewBridge(scheduler, nil)
	task := sampleTask("t1", true)

	if id := bridge.TaskCreated(context.Background(), &task); id != "" {
		t.Fatalf("expected empty id when denied, got %q", id)
	}
	if len(scheduler.scheduled) != 0 {
		t.Fatal("trigger registered despite denied permission")
	}
}

func TestScheduleFailsClosedOnPlatformError(t *testing.T) {
	scheduler := newFakeScheduler()
	scheduler.scheduleErr = errors.New("platform down")
	bridge := NewBridge(scheduler, nil)
	task := sampleTask("t1", true)

	if id := bridge.TaskCreated(context.Background(), &task); id != "" {
		t.Fatalf("expected empty id on platform error, got %q", id)
	}
}

func TestPermissionCachedAfterGrant(t *testing.T) {
	scheduler := newFakeScheduler()
	bridge := NewBridge(scheduler, nil)
	task := sampleTask("t1", true)

	bridge.TaskCreated(context.Background(), &task)
	bridge.TaskCreated(context.Background(), &task)
	if scheduler.permissionCalls != 1 {
		t.Fatalf("permission requested %d times, want 1", scheduler.permissionCalls)
	}
}

func TestTaskUpdatedCancelsThenReschedules(t *testing.T) {
	scheduler := newFakeScheduler()
	bridge := NewBridge(scheduler, nil)
	task := sampleTask("t1", true)

	first := bridge.TaskCreated(context.Background(), &task)
	second := bridge.TaskUpdated(context.Background(), first, &task)

	if second == "" || second == first {
		t.Fatalf("expected a fresh id, got %q (previous %q)", second, first)
	}
	if len(scheduler.cancelled) != 1 || scheduler.cancelled[0] != first {
		t.Fatalf("previous trigger not cancelled: %v", scheduler.cancelled)
	}
	if _, ok := scheduler.scheduled[first]; ok {
		t.Fatal("stale trigger still registered")
	}
}

func TestCancelBestEffort(t *testing.T) {
	scheduler := newFakeScheduler()
	scheduler.cancelErr = errors.New("already gone")
	bridge := NewBridge(scheduler, nil)

	// Must not panic or propagate.
	bridge.TaskDeleted(context.Background(), "trig-1")
	if len(scheduler.cancelled) != 1 {
		t.Fatalf("cancel not attempted")
	}

	// An empty id is skipped entirely.
	bridge.TaskDeleted(context.Background(), "")
	if len(scheduler.cancelled) != 1 {
		t.Fatalf("empty id reached the platform")
	}
}

func TestReconcileRebuildsPlatformState(t *testing.T) {
	scheduler := newFakeScheduler()
	bridge := NewBridge(scheduler, nil)

	// Stale platform trigger no task references anymore.
	stale, err := scheduler.Schedule(context.Background(), Trigger{
		Title:  "orphan",
		FireAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("seed trigger: %v", err)
	}

	tasks := []domain.Task{
		sampleTask("t1", true),
		sampleTask("t2", false),
		sampleTask("t3", true),
	}
	rescheduled := bridge.Reconcile(context.Background(), tasks)

	if len(rescheduled) != 2 {
		t.Fatalf("rescheduled %d tasks, want 2 (enabled only)", len(rescheduled))
	}
	if _, ok := rescheduled["t2"]; ok {
		t.Fatal("disabled task was rescheduled")
	}
	if _, ok := scheduler.scheduled[stale]; ok {
		t.Fatal("stale trigger survived reconcile")
	}
	for taskID, id := range rescheduled {
		if _, ok := scheduler.scheduled[id]; !ok {
			t.Fatalf("task %s maps to unknown trigger %s", taskID, id)
		}
	}
}
