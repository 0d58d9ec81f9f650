package pipeline_test

import (
	"testing"

	"quill/internal/pipeline"
)

func TestStageTableIsCoherent(t *testing.T) {
	stages := pipeline.Stages()
	if len(stages) == 0 {
		t.Fatal("no stages configured")
	}
	if pipeline.FirstStage() != stages[0] {
		t.Fatalf("first stage mismatch: %s vs %s", pipeline.FirstStage(), stages[0])
	}

	terminalSeen := false
	for i, stage := range stages {
		cfg, ok := pipeline.Config(stage)
		if !ok {
			t.Fatalf("stage %s missing config", stage)
		}
		if cfg.Description == "" {
			t.Fatalf("stage %s missing description", stage)
		}
		if stage.Terminal() {
			terminalSeen = true
			if _, ok := stage.Successor(); ok {
				t.Fatalf("terminal stage %s has a successor", stage)
			}
			if i != len(stages)-1 {
				t.Fatalf("terminal stage %s is not last", stage)
			}
			continue
		}
		next, ok := stage.Successor()
		if !ok {
			t.Fatalf("non-terminal stage %s has no successor", stage)
		}
		if i+1 >= len(stages) || stages[i+1] != next {
			t.Fatalf("stage %s successor %s does not match order", stage, next)
		}
		if next.Checkpoint() <= stage.Checkpoint() {
			t.Fatalf("checkpoints not increasing: %s=%d %s=%d", stage, stage.Checkpoint(), next, next.Checkpoint())
		}
	}
	if !terminalSeen {
		t.Fatal("no terminal stage configured")
	}
}

func TestValidTransitionRejectsSkipsAndRewinds(t *testing.T) {
	stages := pipeline.Stages()
	for _, from := range stages {
		successor, hasNext := from.Successor()
		for _, to := range stages {
			valid := pipeline.ValidTransition(from, to)
			expect := hasNext && to == successor
			if valid != expect {
				t.Fatalf("ValidTransition(%s, %s) = %v, want %v", from, to, valid, expect)
			}
		}
		if !pipeline.ValidTransition(from, "") {
			t.Fatalf("empty destination should be a valid no-op from %s", from)
		}
	}
	if pipeline.ValidTransition("bogus", pipeline.StagePlanning) {
		t.Fatal("unknown source stage accepted")
	}
}

func TestTaskNameRoundTrip(t *testing.T) {
	names := pipeline.TaskNames()
	if len(names) == 0 {
		t.Fatal("no task names configured")
	}
	for _, name := range names {
		stage, ok := pipeline.StageForTask(name)
		if !ok {
			t.Fatalf("task %s has no stage", name)
		}
		if stage.TaskName() != name {
			t.Fatalf("task name mismatch for %s: %s", stage, stage.TaskName())
		}
	}
	if pipeline.StageUploading.TaskName() != "" {
		t.Fatal("uploading should not be worker-dispatched")
	}
	if _, ok := pipeline.StageForTask("agent.unknown"); ok {
		t.Fatal("unknown task name resolved")
	}
}

func TestParseHelpers(t *testing.T) {
	if stage, ok := pipeline.ParseStage("  Writing "); !ok || stage != pipeline.StageWriting {
		t.Fatalf("parse stage: %v %v", stage, ok)
	}
	if _, ok := pipeline.ParseStage("ripping"); ok {
		t.Fatal("unknown stage parsed")
	}
	if status, ok := pipeline.ParseStatus("IN_PROGRESS"); !ok || status != pipeline.StatusInProgress {
		t.Fatalf("parse status: %v %v", status, ok)
	}
	if _, ok := pipeline.ParseStatus("paused"); ok {
		t.Fatal("unknown status parsed")
	}
}

func TestHistoryCurrent(t *testing.T) {
	var history pipeline.History
	if _, ok := history.Current(); ok {
		t.Fatal("empty history should have no current state")
	}
	first := pipeline.NewState(0, pipeline.StageUploading, pipeline.StatusNotStarted, "")
	second := pipeline.NewState(10, pipeline.StageUploading, pipeline.StatusCompleted, "")
	history.Append(first)
	history.Append(second)
	current, ok := history.Current()
	if !ok {
		t.Fatal("expected current state")
	}
	if current.StageStatus != pipeline.StatusCompleted {
		t.Fatalf("unexpected current: %+v", current)
	}
	if history.Len() != 2 {
		t.Fatalf("unexpected history length %d", history.Len())
	}
}
