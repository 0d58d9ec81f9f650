package pipeline

import "strings"

// Stage identifies one ordered phase of the drafting pipeline.
type Stage string

const (
	StageUploading   Stage = "uploading"
	StageStructuring Stage = "structuring"
	StagePlanning    Stage = "planning"
	StageWriting     Stage = "writing"
)

// Status represents the lifecycle of the active stage.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Kind partitions stages into normal and terminal.
type Kind string

const (
	KindNormal   Kind = "normal"
	KindTerminal Kind = "terminal"
)

// StageConfig is the static configuration for one stage.
type StageConfig struct {
	Stage       Stage
	Description string
	// Checkpoint is the overall progress value reached when the stage completes.
	Checkpoint int
	Kind       Kind
	// Next is the successor stage; empty for the terminal stage.
	Next Stage
	// TaskName is the queue task dispatched for this stage; empty when the
	// stage runs in the request path rather than on a worker.
	TaskName string
}

var stageOrder = []Stage{StageUploading, StageStructuring, StagePlanning, StageWriting}

var stageTable = map[Stage]StageConfig{
	StageUploading: {
		Stage:       StageUploading,
		Description: "Receiving source material",
		Checkpoint:  10,
		Kind:        KindNormal,
		Next:        StageStructuring,
	},
	StageStructuring: {
		Stage:       StageStructuring,
		Description: "Structuring source material",
		Checkpoint:  40,
		Kind:        KindNormal,
		Next:        StagePlanning,
		TaskName:    "agent.structuring",
	},
	StagePlanning: {
		Stage:       StagePlanning,
		Description: "Planning the draft",
		Checkpoint:  70,
		Kind:        KindNormal,
		Next:        StageWriting,
		TaskName:    "agent.planning",
	},
	StageWriting: {
		Stage:       StageWriting,
		Description: "Writing the final draft",
		Checkpoint:  100,
		Kind:        KindTerminal,
		TaskName:    "agent.writing",
	},
}

// FirstStage returns the entry stage of the pipeline.
func FirstStage() Stage {
	return stageOrder[0]
}

// Stages returns the ordered list of configured stages.
func Stages() []Stage {
	cp := make([]Stage, len(stageOrder))
	copy(cp, stageOrder)
	return cp
}

// TaskNames returns the queue task names for all worker-dispatched stages, in
// pipeline order.
func TaskNames() []string {
	names := make([]string, 0, len(stageOrder))
	for _, stage := range stageOrder {
		if name := stageTable[stage].TaskName; name != "" {
			names = append(names, name)
		}
	}
	return names
}

// StageForTask resolves a queue task name back to its stage.
func StageForTask(name string) (Stage, bool) {
	for _, stage := range stageOrder {
		if stageTable[stage].TaskName == name {
			return stage, true
		}
	}
	return "", false
}

// Config returns the static configuration for a stage.
func Config(stage Stage) (StageConfig, bool) {
	cfg, ok := stageTable[stage]
	return cfg, ok
}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	_, ok := stageTable[normalized]
	return normalized, ok
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusFailed:
		return normalized, true
	}
	return "", false
}

// Valid reports whether the stage is configured.
func (s Stage) Valid() bool {
	_, ok := stageTable[s]
	return ok
}

// Terminal reports whether the stage ends the pipeline.
func (s Stage) Terminal() bool {
	return stageTable[s].Kind == KindTerminal
}

// Successor returns the configured next stage, if any.
func (s Stage) Successor() (Stage, bool) {
	next := stageTable[s].Next
	return next, next != ""
}

// TaskName returns the queue task name for the stage; empty when the stage is
// not worker-dispatched.
func (s Stage) TaskName() string {
	return stageTable[s].TaskName
}

// Description returns the human-readable stage description.
func (s Stage) Description() string {
	return stageTable[s].Description
}

// Checkpoint returns the overall progress reached when the stage completes.
func (s Stage) Checkpoint() int {
	return stageTable[s].Checkpoint
}

// ValidTransition reports whether moving from one stage to another respects
// the stage table. An empty destination is a no-op and always valid; anything
// other than the configured successor is a skip or rewind and is rejected.
func ValidTransition(from, to Stage) bool {
	if to == "" {
		return true
	}
	if !from.Valid() || !to.Valid() {
		return false
	}
	next, ok := from.Successor()
	return ok && next == to
}
