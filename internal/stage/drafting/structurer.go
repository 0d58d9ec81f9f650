package drafting

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"quill/internal/logging"
	"quill/internal/pipeline"
	"quill/internal/services"
	"quill/internal/stage"
	"quill/internal/statestore"
)

var headingCaser = cases.Title(language.English)

// Structurer turns raw source material into a structured document. Lines
// starting with "#" open a new section; everything else accumulates into the
// current section's content.
type Structurer struct {
	store  *statestore.Store
	logger *slog.Logger
}

// NewStructurer builds the structuring stage handler.
func NewStructurer(store *statestore.Store, logger *slog.Logger) *Structurer {
	return &Structurer{
		store:  store,
		logger: logging.NewComponentLogger(logger, "structurer"),
	}
}

func (s *Structurer) Stage() pipeline.Stage {
	return pipeline.StageStructuring
}

func (s *Structurer) Execute(ctx context.Context, workID string) error {
	raw, err := loadDocument[RawDocument](ctx, s.store, workID, DocRaw)
	if err != nil {
		return err
	}
	if strings.TrimSpace(raw.Body) == "" {
		return services.Wrap(services.ErrValidation, "structurer", "execute",
			"uploaded document has no content", nil)
	}

	structured := StructuredDocument{Title: raw.Title}
	if structured.Title == "" {
		structured.Title = "Untitled"
	}

	current := Section{Heading: "Introduction"}
	flush := func() {
		current.Content = strings.TrimSpace(current.Content)
		if current.Content != "" {
			structured.Sections = append(structured.Sections, current)
		}
	}
	for _, line := range strings.Split(raw.Body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			flush()
			heading := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			current = Section{Heading: headingCaser.String(heading)}
			continue
		}
		if trimmed == "" {
			current.Content += "\n"
			continue
		}
		if current.Content != "" && !strings.HasSuffix(current.Content, "\n") {
			current.Content += " "
		}
		current.Content += trimmed
	}
	flush()

	if len(structured.Sections) == 0 {
		return services.Wrap(services.ErrValidation, "structurer", "execute",
			"no usable sections in uploaded document", nil)
	}

	if err := saveDocument(ctx, s.store, workID, DocStructured, structured); err != nil {
		return err
	}
	s.logger.Info("structured source material",
		logging.String(logging.FieldWorkID, workID),
		logging.Int("sections", len(structured.Sections)),
	)
	return nil
}

func (s *Structurer) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("structurer")
}

// loadDocument reads and decodes a named document; a missing document is a
// validation error since the predecessor stage should have produced it.
func loadDocument[T any](ctx context.Context, store *statestore.Store, workID, slot string) (T, error) {
	var doc T
	raw, err := store.GetDocument(ctx, workID, slot)
	if err != nil {
		return doc, err
	}
	if raw == nil {
		return doc, services.Wrap(services.ErrValidation, "drafting", "load document",
			"document "+slot+" is missing for work item "+workID, nil)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, services.Wrap(services.ErrValidation, "drafting", "load document",
			"document "+slot+" is malformed", err)
	}
	return doc, nil
}

func saveDocument(ctx context.Context, store *statestore.Store, workID, slot string, doc any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return services.Wrap(nil, "drafting", "save document", "encode "+slot, err)
	}
	return store.SaveDocument(ctx, workID, slot, payload)
}
