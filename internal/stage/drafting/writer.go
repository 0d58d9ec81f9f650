package drafting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"quill/internal/logging"
	"quill/internal/pipeline"
	"quill/internal/services"
	"quill/internal/stage"
	"quill/internal/statestore"
)

// Writer assembles the final draft from the structured document and the plan.
type Writer struct {
	store  *statestore.Store
	logger *slog.Logger
}

// NewWriter builds the writing stage handler.
func NewWriter(store *statestore.Store, logger *slog.Logger) *Writer {
	return &Writer{
		store:  store,
		logger: logging.NewComponentLogger(logger, "writer"),
	}
}

func (w *Writer) Stage() pipeline.Stage {
	return pipeline.StageWriting
}

func (w *Writer) Execute(ctx context.Context, workID string) error {
	structured, err := loadDocument[StructuredDocument](ctx, w.store, workID, DocStructured)
	if err != nil {
		return err
	}
	plan, err := loadDocument[Plan](ctx, w.store, workID, DocPlan)
	if err != nil {
		return err
	}
	if len(plan.Outline) == 0 {
		return services.Wrap(services.ErrValidation, "writer", "execute",
			"plan has an empty outline", nil)
	}

	sections := make(map[string]Section, len(structured.Sections))
	for _, section := range structured.Sections {
		sections[section.Heading] = section
	}

	var body strings.Builder
	fmt.Fprintf(&body, "%s\n\n", plan.Title)
	for _, item := range plan.Outline {
		section, ok := sections[item.Heading]
		if !ok {
			return services.Wrap(services.ErrValidation, "writer", "execute",
				fmt.Sprintf("plan references unknown section %q", item.Heading), nil)
		}
		fmt.Fprintf(&body, "%s\n\n%s\n\n", item.Heading, strings.TrimSpace(section.Content))
	}

	text := strings.TrimSpace(body.String())
	draft := Draft{
		Title:       plan.Title,
		Body:        text,
		WordCount:   len(strings.Fields(text)),
		CompletedAt: time.Now().UTC(),
	}

	if err := saveDocument(ctx, w.store, workID, DocFinal, draft); err != nil {
		return err
	}
	w.logger.Info("wrote final draft",
		logging.String(logging.FieldWorkID, workID),
		logging.Int("word_count", draft.WordCount),
	)
	return nil
}

func (w *Writer) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("writer")
}
