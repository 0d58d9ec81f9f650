package statestore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/durable"
	"quill/internal/logging"
	"quill/internal/pipeline"
)

// Slot names shared between cache keys and durable store fields.
const (
	SlotStateHistory = "state_history"
	SlotEvents       = "events"
	slotDocIndex     = "doc_index"
	docSlotPrefix    = "doc:"
)

// DocumentSlot returns the slot name for a named document.
func DocumentSlot(name string) string {
	return docSlotPrefix + name
}

// Store is the cache-fronted persistence layer for one deployment.
type Store struct {
	cache   cache.Cache
	durable *durable.Client
	prefix  string
	ttl     time.Duration
	logger  *slog.Logger
}

// New builds a Store. The durable client may be nil (cache-only development
// mode); rehydration and durable writes are skipped in that case.
func New(cfg *config.Config, kv cache.Cache, client *durable.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		cache:   kv,
		durable: client,
		prefix:  cfg.Cache.KeyPrefix,
		ttl:     time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		logger:  logging.NewComponentLogger(logger, "statestore"),
	}
}

func (s *Store) key(workID, slot string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, workID, slot)
}

// GetState returns the current state and full history for a work item. On a
// cache miss the durable store is consulted and the cache rehydrated. A work
// item with no recorded state returns (nil, nil, nil).
func (s *Store) GetState(ctx context.Context, workID string) (*pipeline.State, *pipeline.History, error) {
	raw, err := s.loadSlot(ctx, workID, SlotStateHistory)
	if err != nil {
		return nil, nil, err
	}
	if raw == nil {
		return nil, nil, nil
	}

	var history pipeline.History
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, nil, fmt.Errorf("decode state history: %w", err)
	}
	current, ok := history.Current()
	if !ok {
		return nil, nil, nil
	}
	return &current, &history, nil
}

// SaveState appends a snapshot to the work item's history and persists the
// updated history to cache and durable store. The cache write happens first
// and a failure there aborts the save before the durable write.
func (s *Store) SaveState(ctx context.Context, workID string, state pipeline.State) error {
	_, history, err := s.GetState(ctx, workID)
	if err != nil {
		return err
	}
	if history == nil {
		history = &pipeline.History{}
	}
	history.Append(state)

	payload, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode state history: %w", err)
	}
	return s.storeSlot(ctx, workID, SlotStateHistory, payload)
}

// GetDocument returns the named document for a work item, or (nil, nil) when
// it does not exist.
func (s *Store) GetDocument(ctx context.Context, workID, name string) (json.RawMessage, error) {
	return s.loadSlot(ctx, workID, DocumentSlot(name))
}

// SaveDocument stores the named document in cache and durable store. The
// document name is recorded in the work item's document index so a default
// Clear covers it. The index is written first; an index entry for a document
// that failed to save only makes a later Clear delete a missing key.
func (s *Store) SaveDocument(ctx context.Context, workID, name string, content json.RawMessage) error {
	if err := s.registerDocument(ctx, workID, name); err != nil {
		return err
	}
	return s.storeSlot(ctx, workID, DocumentSlot(name), content)
}

func (s *Store) registerDocument(ctx context.Context, workID, name string) error {
	names, err := s.documentNames(ctx, workID)
	if err != nil {
		return fmt.Errorf("load document index: %w", err)
	}
	for _, existing := range names {
		if existing == name {
			return nil
		}
	}
	names = append(names, name)

	payload, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("encode document index: %w", err)
	}
	return s.storeSlot(ctx, workID, slotDocIndex, payload)
}

func (s *Store) documentNames(ctx context.Context, workID string) ([]string, error) {
	raw, err := s.loadSlot(ctx, workID, slotDocIndex)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("decode document index: %w", err)
	}
	return names, nil
}

// AppendEvent adds a broadcast event to the work item's replay log.
func (s *Store) AppendEvent(ctx context.Context, workID string, event pipeline.Event) error {
	history, err := s.Events(ctx, workID)
	if err != nil {
		return err
	}
	if history == nil {
		history = &pipeline.EventHistory{}
	}
	history.Append(event)

	payload, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode event history: %w", err)
	}
	return s.storeSlot(ctx, workID, SlotEvents, payload)
}

// Events returns the broadcast replay log, or nil when none exists.
func (s *Store) Events(ctx context.Context, workID string) (*pipeline.EventHistory, error) {
	raw, err := s.loadSlot(ctx, workID, SlotEvents)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var history pipeline.EventHistory
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("decode event history: %w", err)
	}
	return &history, nil
}

// Clear deletes the given slots (default: all known slots for the work item,
// documents included) from the cache and instructs the durable store to clear
// the same fields. Missing keys are not errors; per-slot outcomes are
// reported in the returned map so callers can surface partial failure
// precisely.
func (s *Store) Clear(ctx context.Context, workID string, slots ...string) (map[string]bool, error) {
	var firstErr error

	clearAll := len(slots) == 0
	if clearAll {
		slots = []string{SlotStateHistory, SlotEvents}
		names, err := s.documentNames(ctx, workID)
		if err != nil {
			firstErr = fmt.Errorf("load document index: %w", err)
		}
		for _, name := range names {
			slots = append(slots, DocumentSlot(name))
		}
		if len(names) > 0 {
			slots = append(slots, slotDocIndex)
		}
	}

	results := make(map[string]bool, len(slots))
	for _, slot := range slots {
		if _, err := s.cache.Delete(ctx, s.key(workID, slot)); err != nil {
			results[slot] = false
			if firstErr == nil {
				firstErr = fmt.Errorf("clear cache slot %q: %w", slot, err)
			}
			continue
		}
		results[slot] = true
	}

	if s.durable != nil {
		var err error
		if clearAll {
			err = s.durable.Clear(ctx, workID)
		} else {
			err = s.durable.Clear(ctx, workID, slots...)
		}
		if err != nil {
			for _, slot := range slots {
				results[slot] = false
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return results, firstErr
}

// loadSlot reads one slot with cache-first, durable-fallback, rehydrate-on-hit
// semantics. Returns nil when the slot exists nowhere.
func (s *Store) loadSlot(ctx context.Context, workID, slot string) (json.RawMessage, error) {
	key := s.key(workID, slot)
	value, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		// A broken cache degrades to the durable path; the read is still
		// served and the rehydration below repairs the cache when possible.
		s.logger.Warn("cache read failed, falling back to durable store",
			logging.String(logging.FieldWorkID, workID),
			logging.String("slot", slot),
			logging.Error(err),
		)
	}
	if hit {
		return json.RawMessage(value), nil
	}

	if s.durable == nil {
		return nil, nil
	}
	fields, err := s.durable.GetState(ctx, workID, slot)
	if err != nil {
		return nil, err
	}
	raw, ok := fields[slot]
	if !ok {
		return nil, nil
	}

	if err := s.cache.Set(ctx, key, string(raw), s.ttl); err != nil {
		s.logger.Warn("cache rehydration failed",
			logging.String(logging.FieldWorkID, workID),
			logging.String("slot", slot),
			logging.Error(err),
		)
	}
	return raw, nil
}

// storeSlot writes one slot to cache (fail fast) and then to the durable
// store.
func (s *Store) storeSlot(ctx context.Context, workID, slot string, payload json.RawMessage) error {
	key := s.key(workID, slot)
	if err := s.cache.Set(ctx, key, string(payload), s.ttl); err != nil {
		return fmt.Errorf("cache write %q: %w", slot, err)
	}
	if s.durable == nil {
		return nil
	}
	if err := s.durable.PutState(ctx, workID, map[string]json.RawMessage{slot: payload}); err != nil {
		return err
	}
	return nil
}
