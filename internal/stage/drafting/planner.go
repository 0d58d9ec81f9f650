package drafting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"quill/internal/logging"
	"quill/internal/pipeline"
	"quill/internal/services"
	"quill/internal/stage"
	"quill/internal/statestore"
)

// Planner derives an ordered outline from the structured document.
type Planner struct {
	store  *statestore.Store
	logger *slog.Logger
}

// NewPlanner builds the planning stage handler.
func NewPlanner(store *statestore.Store, logger *slog.Logger) *Planner {
	return &Planner{
		store:  store,
		logger: logging.NewComponentLogger(logger, "planner"),
	}
}

func (p *Planner) Stage() pipeline.Stage {
	return pipeline.StagePlanning
}

func (p *Planner) Execute(ctx context.Context, workID string) error {
	structured, err := loadDocument[StructuredDocument](ctx, p.store, workID, DocStructured)
	if err != nil {
		return err
	}
	if len(structured.Sections) == 0 {
		return services.Wrap(services.ErrValidation, "planner", "execute",
			"structured document has no sections", nil)
	}

	plan := Plan{Title: structured.Title}
	for i, section := range structured.Sections {
		plan.Outline = append(plan.Outline, PlanItem{
			Order:   i + 1,
			Heading: section.Heading,
			Goal:    sectionGoal(section),
		})
	}

	if err := saveDocument(ctx, p.store, workID, DocPlan, plan); err != nil {
		return err
	}
	p.logger.Info("planned draft",
		logging.String(logging.FieldWorkID, workID),
		logging.Int("outline_items", len(plan.Outline)),
	)
	return nil
}

func (p *Planner) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("planner")
}

// sectionGoal summarizes what the writing stage should do with a section,
// based on its opening sentence.
func sectionGoal(section Section) string {
	lead := section.Content
	if idx := strings.IndexAny(lead, ".!?\n"); idx >= 0 {
		lead = lead[:idx]
	}
	lead = strings.TrimSpace(lead)
	if lead == "" {
		return fmt.Sprintf("Cover %s", section.Heading)
	}
	return fmt.Sprintf("Develop %s: %s", section.Heading, lead)
}
