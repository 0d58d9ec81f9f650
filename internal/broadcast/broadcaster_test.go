package broadcast_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"quill/internal/broadcast"
	"quill/internal/cache"
	"quill/internal/pipeline"
	"quill/internal/statestore"
	"quill/internal/testsupport"
)

func newBroadcaster(t *testing.T) (*broadcast.Broadcaster, *broadcast.Hub, *statestore.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := statestore.New(cfg, cache.NewMemory(), nil, nil)
	hub := broadcast.NewHub()
	t.Cleanup(func() { _ = hub.Close() })
	return broadcast.New(cfg, hub, store, nil), hub, store
}

func TestPublishStateUpdateDeliversAndRecords(t *testing.T) {
	b, hub, store := newBroadcaster(t)
	ctx := context.Background()

	messages, cancel := hub.Subscribe(broadcast.Channel("w1"))
	defer cancel()

	state := pipeline.NewState(40, pipeline.StageStructuring, pipeline.StatusCompleted, "")
	if err := b.PublishStateUpdate(ctx, "w1", state, ""); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case payload := <-messages:
		var event pipeline.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if event.Event != pipeline.EventStateUpdate {
			t.Fatalf("unexpected event type %s", event.Event)
		}
		if event.Data.Stage != pipeline.StageStructuring {
			t.Fatalf("unexpected stage %s", event.Data.Stage)
		}
		if event.Data.Message != pipeline.StageStructuring.Description() {
			t.Fatalf("expected stage description fallback, got %q", event.Data.Message)
		}
		if event.ID == "" || event.Retry <= 0 {
			t.Fatalf("incomplete envelope: %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("no live delivery")
	}

	history, err := store.Events(ctx, "w1")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if history.Len() != 1 {
		t.Fatalf("expected replay history entry, got %d", history.Len())
	}
}

func TestPublishWithoutSubscribersStillRecords(t *testing.T) {
	b, _, store := newBroadcaster(t)
	ctx := context.Background()

	if err := b.PublishError(ctx, "w1", pipeline.StagePlanning, "model timeout"); err != nil {
		t.Fatalf("publish error event: %v", err)
	}

	history, err := store.Events(ctx, "w1")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if history.Len() != 1 {
		t.Fatalf("expected recorded event, got %d", history.Len())
	}
	event := history.Content[0]
	if event.Event != pipeline.EventError {
		t.Fatalf("unexpected event type %s", event.Event)
	}
	if event.Data.ShowProgress {
		t.Fatal("error events should not show progress")
	}
}

func TestReplayPreservesOrder(t *testing.T) {
	b, _, store := newBroadcaster(t)
	ctx := context.Background()

	stages := []pipeline.Stage{pipeline.StageUploading, pipeline.StageStructuring, pipeline.StagePlanning}
	for i, stage := range stages {
		state := pipeline.NewState(i*10, stage, pipeline.StatusInProgress, "")
		if err := b.PublishStateUpdate(ctx, "w1", state, ""); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	history, err := store.Events(ctx, "w1")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if history.Len() != len(stages) {
		t.Fatalf("expected %d events, got %d", len(stages), history.Len())
	}
	for i, event := range history.Content {
		if event.Data.Stage != stages[i] {
			t.Fatalf("event %d out of order: %s", i, event.Data.Stage)
		}
	}
}

func TestPublisherFailureDoesNotFailOperation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := statestore.New(cfg, cache.NewMemory(), nil, nil)
	b := broadcast.New(cfg, failingPublisher{}, store, nil)

	state := pipeline.NewState(0, pipeline.StageUploading, pipeline.StatusNotStarted, "")
	if err := b.PublishStateUpdate(context.Background(), "w1", state, "starting"); err != nil {
		t.Fatalf("publish should tolerate transport failure, got %v", err)
	}

	history, err := store.Events(context.Background(), "w1")
	if err != nil || history.Len() != 1 {
		t.Fatalf("history should still record event: %v %v", history, err)
	}
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, []byte) error {
	return errors.New("transport down")
}

func (failingPublisher) Close() error { return nil }

func TestHubSubscribeCancelIsIdempotent(t *testing.T) {
	hub := broadcast.NewHub()
	defer hub.Close()

	_, cancel := hub.Subscribe("c")
	cancel()
	cancel()

	if err := hub.Publish(context.Background(), "c", []byte("x")); err != nil {
		t.Fatalf("publish after cancel: %v", err)
	}
}
