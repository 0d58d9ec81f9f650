package drafting_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"quill/internal/cache"
	"quill/internal/services"
	"quill/internal/stage/drafting"
	"quill/internal/statestore"
	"quill/internal/testsupport"
)

func newStore(t *testing.T) *statestore.Store {
	t.Helper()
	return statestore.New(testsupport.NewConfig(t), cache.NewMemory(), nil, nil)
}

func seedRaw(t *testing.T, store *statestore.Store, workID string, doc drafting.RawDocument) {
	t.Helper()
	payload, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal raw: %v", err)
	}
	if err := store.SaveDocument(context.Background(), workID, drafting.DocRaw, payload); err != nil {
		t.Fatalf("save raw: %v", err)
	}
}

const sampleBody = `Opening remarks about the topic.

# background
Where the idea came from.
More historical context.

# approach
How the work proceeds step by step.`

func TestStructurerSplitsSections(t *testing.T) {
	store := newStore(t)
	handler := drafting.NewStructurer(store, nil)
	ctx := context.Background()

	seedRaw(t, store, "w1", drafting.RawDocument{Title: "Field Notes", Body: sampleBody})
	if err := handler.Execute(ctx, "w1"); err != nil {
		t.Fatalf("execute: %v", err)
	}

	raw, err := store.GetDocument(ctx, "w1", drafting.DocStructured)
	if err != nil || raw == nil {
		t.Fatalf("structured document missing: %v", err)
	}
	var structured drafting.StructuredDocument
	if err := json.Unmarshal(raw, &structured); err != nil {
		t.Fatalf("decode structured: %v", err)
	}
	if structured.Title != "Field Notes" {
		t.Fatalf("unexpected title %q", structured.Title)
	}
	if len(structured.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(structured.Sections))
	}
	if structured.Sections[0].Heading != "Introduction" {
		t.Fatalf("leading prose should land in Introduction, got %q", structured.Sections[0].Heading)
	}
	// Markdown headings are title-cased.
	if structured.Sections[1].Heading != "Background" {
		t.Fatalf("unexpected heading %q", structured.Sections[1].Heading)
	}
	if !strings.Contains(structured.Sections[1].Content, "historical context") {
		t.Fatalf("section content lost: %q", structured.Sections[1].Content)
	}
}

func TestStructurerRejectsMissingOrEmptyUpload(t *testing.T) {
	store := newStore(t)
	handler := drafting.NewStructurer(store, nil)
	ctx := context.Background()

	if err := handler.Execute(ctx, "w1"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing upload should fail validation, got %v", err)
	}

	seedRaw(t, store, "w2", drafting.RawDocument{Title: "Empty", Body: "   \n"})
	if err := handler.Execute(ctx, "w2"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty upload should fail validation, got %v", err)
	}
}

func TestPlannerBuildsOrderedOutline(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	seedRaw(t, store, "w1", drafting.RawDocument{Title: "Field Notes", Body: sampleBody})
	if err := drafting.NewStructurer(store, nil).Execute(ctx, "w1"); err != nil {
		t.Fatalf("structure: %v", err)
	}
	if err := drafting.NewPlanner(store, nil).Execute(ctx, "w1"); err != nil {
		t.Fatalf("plan: %v", err)
	}

	raw, err := store.GetDocument(ctx, "w1", drafting.DocPlan)
	if err != nil || raw == nil {
		t.Fatalf("plan missing: %v", err)
	}
	var plan drafting.Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if len(plan.Outline) != 3 {
		t.Fatalf("expected 3 outline items, got %d", len(plan.Outline))
	}
	for i, item := range plan.Outline {
		if item.Order != i+1 {
			t.Fatalf("outline out of order: %+v", plan.Outline)
		}
		if item.Goal == "" {
			t.Fatalf("outline item %d has no goal", i)
		}
	}
}

func TestPlannerRequiresStructuredDocument(t *testing.T) {
	store := newStore(t)

	err := drafting.NewPlanner(store, nil).Execute(context.Background(), "w1")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestWriterAssemblesDraft(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	seedRaw(t, store, "w1", drafting.RawDocument{Title: "Field Notes", Body: sampleBody})
	if err := drafting.NewStructurer(store, nil).Execute(ctx, "w1"); err != nil {
		t.Fatalf("structure: %v", err)
	}
	if err := drafting.NewPlanner(store, nil).Execute(ctx, "w1"); err != nil {
		t.Fatalf("plan: %v", err)
	}
	if err := drafting.NewWriter(store, nil).Execute(ctx, "w1"); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw, err := store.GetDocument(ctx, "w1", drafting.DocFinal)
	if err != nil || raw == nil {
		t.Fatalf("final draft missing: %v", err)
	}
	var draft drafting.Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		t.Fatalf("decode draft: %v", err)
	}
	if draft.Title != "Field Notes" {
		t.Fatalf("unexpected title %q", draft.Title)
	}
	if draft.WordCount == 0 {
		t.Fatal("word count not computed")
	}
	for _, heading := range []string{"Introduction", "Background", "Approach"} {
		if !strings.Contains(draft.Body, heading) {
			t.Fatalf("draft missing section %q", heading)
		}
	}
	if draft.CompletedAt.IsZero() {
		t.Fatal("completion time not stamped")
	}
}

func TestWriterRequiresPlan(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	seedRaw(t, store, "w1", drafting.RawDocument{Title: "Field Notes", Body: sampleBody})
	if err := drafting.NewStructurer(store, nil).Execute(ctx, "w1"); err != nil {
		t.Fatalf("structure: %v", err)
	}

	err := drafting.NewWriter(store, nil).Execute(ctx, "w1")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHandlersReportHealthy(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	if health := drafting.NewStructurer(store, nil).HealthCheck(ctx); !health.Ready {
		t.Fatalf("structurer unhealthy: %+v", health)
	}
	if health := drafting.NewPlanner(store, nil).HealthCheck(ctx); !health.Ready {
		t.Fatalf("planner unhealthy: %+v", health)
	}
	if health := drafting.NewWriter(store, nil).HealthCheck(ctx); !health.Ready {
		t.Fatalf("writer unhealthy: %+v", health)
	}
}
