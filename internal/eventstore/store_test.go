package eventstore

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

const (
	testRunID   = "run-123"
	testProject = "acme"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEventStoreAppendAndRetrieve(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	ev, err := NewStageStarted(testRunID, testProject, "sections")
	if err != nil {
		t.Fatalf("failed to create event: %v", err)
	}
	ev.EventMetadata = map[string]string{"key": "value"}

	if err := store.Append(ctx, ev); err != nil {
		t.Fatalf("failed to append event: %v", err)
	}

	events, err := store.GetByRunID(ctx, testRunID)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	got := events[0]
	if got.ID() == 0 {
		t.Error("expected store-assigned id")
	}
	if got.RunID() != testRunID || got.Project() != testProject {
		t.Errorf("unexpected identity %s/%s", got.RunID(), got.Project())
	}
	if got.Type() != TypeStageStarted {
		t.Errorf("expected type %s, got %s", TypeStageStarted, got.Type())
	}
	if !bytes.Equal(got.Payload(), ev.Payload()) {
		t.Errorf("expected payload %s, got %s", ev.Payload(), got.Payload())
	}
	if got.Metadata()["key"] != "value" {
		t.Errorf("expected metadata key=value, got %v", got.Metadata())
	}
}

func TestEventStoreKeepsAppendOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	for _, stage := range []string{"scaffold", "sections", "assemble"} {
		ev, err := NewStageStarted(testRunID, testProject, stage)
		if err != nil {
			t.Fatalf("create event: %v", err)
		}
		if err := store.Append(ctx, ev); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	other, _ := NewStageStarted("run-other", testProject, "review")
	if err := store.Append(ctx, other); err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := store.GetByRunID(ctx, testRunID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].ID() <= events[i-1].ID() {
			t.Errorf("events out of order: %d after %d", events[i].ID(), events[i-1].ID())
		}
	}
}

func TestEventStoreGetRange(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	old, _ := NewStageStarted("run-old", testProject, "scaffold")
	old.EventTimestamp = time.Now().Add(-48 * time.Hour)
	recent, _ := NewStageStarted("run-new", testProject, "scaffold")
	for _, ev := range []Event{old, recent} {
		if err := store.Append(ctx, ev); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	events, err := store.GetRange(ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("get range: %v", err)
	}
	if len(events) != 1 || events[0].RunID() != "run-new" {
		t.Fatalf("expected only the recent run, got %d events", len(events))
	}
}

func TestEventStoreLatestRunID(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	id, err := store.LatestRunID(ctx, testProject)
	if err != nil {
		t.Fatalf("latest on empty store: %v", err)
	}
	if id != "" {
		t.Fatalf("expected no run, got %q", id)
	}

	for _, runID := range []string{"run-1", "run-2"} {
		ev, _ := NewRunStarted(runID, testProject, RunStartedMeta{StartStage: "scaffold"})
		if err := store.Append(ctx, ev); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	unrelated, _ := NewRunStarted("run-3", "other", RunStartedMeta{})
	_ = store.Append(ctx, unrelated)

	id, err = store.LatestRunID(ctx, testProject)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if id != "run-2" {
		t.Errorf("expected run-2, got %q", id)
	}
}

func TestEventStorePersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ev, _ := NewStageStarted(testRunID, testProject, "deploy")
	if err := store.Append(t.Context(), ev); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = store.Close()

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	events, err := reopened.GetByRunID(t.Context(), testRunID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected persisted event, got %d", len(events))
	}
}

func TestEventStoreClosedAppendIsClassified(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = store.Close()

	ev, _ := NewStageStarted(testRunID, testProject, "deploy")
	err = store.Append(t.Context(), ev)
	if !errors.Is(err, ErrEventAppendFailed) {
		t.Fatalf("expected ErrEventAppendFailed, got %v", err)
	}
}
