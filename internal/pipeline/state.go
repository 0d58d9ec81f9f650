package pipeline

import "time"

// State is the orchestration snapshot for one work item. Snapshots are
// immutable once appended to a History; updates append a new value.
type State struct {
	OverallProgress int    `json:"overall_progress"`
	ActiveStage     Stage  `json:"active_stage"`
	StageStatus     Status `json:"stage_status"`
	// StageTaskID holds the opaque handle of the dispatched queue task, when
	// one is in flight.
	StageTaskID string    `json:"stage_task_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewState constructs a snapshot stamped with the current time.
func NewState(progress int, stage Stage, status Status, taskID string) State {
	now := time.Now().UTC()
	return State{
		OverallProgress: progress,
		ActiveStage:     stage,
		StageStatus:     status,
		StageTaskID:     taskID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Finished reports whether the snapshot represents a fully completed pipeline.
func (s State) Finished() bool {
	return s.ActiveStage.Terminal() && s.StageStatus == StatusCompleted
}

// History is the append-only sequence of state snapshots for one work item.
// The last element is the authoritative current state.
type History struct {
	Content []State `json:"content"`
}

// Append adds a snapshot to the history.
func (h *History) Append(state State) {
	h.Content = append(h.Content, state)
}

// Current returns the last snapshot, when one exists.
func (h *History) Current() (State, bool) {
	if h == nil || len(h.Content) == 0 {
		return State{}, false
	}
	return h.Content[len(h.Content)-1], true
}

// Len returns the number of snapshots recorded.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.Content)
}
