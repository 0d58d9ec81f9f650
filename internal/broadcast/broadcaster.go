package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"quill/internal/config"
	"quill/internal/logging"
	"quill/internal/pipeline"
	"quill/internal/statestore"
)

// Broadcaster builds event envelopes, appends them to the replay history, and
// publishes them to live subscribers.
type Broadcaster struct {
	publisher Publisher
	store     *statestore.Store
	retry     int
	logger    *slog.Logger
}

// New constructs a Broadcaster.
func New(cfg *config.Config, publisher Publisher, store *statestore.Store, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		publisher: publisher,
		store:     store,
		retry:     cfg.Broadcast.RetryMillis,
		logger:    logging.NewComponentLogger(logger, "broadcast"),
	}
}

// PublishStateUpdate announces the current state on the work item's channel.
// When message is empty, the active stage's description is used. The history
// append is the authoritative part of the operation; a live publish failure
// only warns.
func (b *Broadcaster) PublishStateUpdate(ctx context.Context, workID string, state pipeline.State, message string) error {
	if message == "" {
		message = state.ActiveStage.Description()
	}
	event := pipeline.Event{
		ID:    uuid.NewString(),
		Event: pipeline.EventStateUpdate,
		Data: pipeline.EventData{
			Stage:        state.ActiveStage,
			Message:      message,
			Progress:     state.OverallProgress,
			ShowProgress: true,
			CreatedAt:    time.Now().UTC(),
		},
		Retry: b.retry,
	}
	return b.emit(ctx, workID, event)
}

// PublishError announces a failure on the work item's channel. Error events
// carry the failed stage for context but no progress display.
func (b *Broadcaster) PublishError(ctx context.Context, workID string, stage pipeline.Stage, message string) error {
	event := pipeline.Event{
		ID:    uuid.NewString(),
		Event: pipeline.EventError,
		Data: pipeline.EventData{
			Stage:     stage,
			Message:   message,
			CreatedAt: time.Now().UTC(),
		},
		Retry: b.retry,
	}
	return b.emit(ctx, workID, event)
}

func (b *Broadcaster) emit(ctx context.Context, workID string, event pipeline.Event) error {
	if err := b.store.AppendEvent(ctx, workID, event); err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.publisher.Publish(ctx, Channel(workID), payload); err != nil {
		b.logger.Warn("live event delivery failed",
			logging.String(logging.FieldWorkID, workID),
			logging.String(logging.FieldEventType, string(event.Event)),
			logging.Error(err),
		)
	}
	return nil
}
