package main

import (
	"strings"
	"testing"

	"quill/internal/pipeline"
)

func TestFormatLabel(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"not_started", "Not Started"},
		{"in_progress", "In Progress"},
		{"uploading", "Uploading"},
		{"", ""},
		{"  state_update ", "State Update"},
	}
	for _, tc := range cases {
		if got := formatLabel(tc.in); got != tc.want {
			t.Errorf("formatLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseStageArg(t *testing.T) {
	stage, err := parseStageArg("Planning")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if stage != pipeline.StagePlanning {
		t.Fatalf("unexpected stage %s", stage)
	}

	if _, err := parseStageArg("editing"); err == nil {
		t.Fatal("expected error for unknown stage")
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]string{"A", "B"},
		[][]string{{"1"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	if !strings.Contains(out, "1") {
		t.Fatalf("row value missing from output:\n%s", out)
	}
}
