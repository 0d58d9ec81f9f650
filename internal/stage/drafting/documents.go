package drafting

import "time"

// Document slot names used with the state store.
const (
	DocRaw        = "raw"
	DocStructured = "structured"
	DocPlan       = "plan"
	DocFinal      = "final"
)

// RawDocument is the source material uploaded for a work item.
type RawDocument struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Section is one titled block of structured source material.
type Section struct {
	Heading string `json:"heading"`
	Content string `json:"content"`
}

// StructuredDocument is the output of the structuring stage.
type StructuredDocument struct {
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

// PlanItem is one ordered step of the drafting plan.
type PlanItem struct {
	Order   int    `json:"order"`
	Heading string `json:"heading"`
	Goal    string `json:"goal"`
}

// Plan is the output of the planning stage.
type Plan struct {
	Title   string     `json:"title"`
	Outline []PlanItem `json:"outline"`
}

// Draft is the final output of the writing stage.
type Draft struct {
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	WordCount   int       `json:"word_count"`
	CompletedAt time.Time `json:"completed_at"`
}
