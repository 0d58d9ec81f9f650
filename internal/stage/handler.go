package stage

import (
	"context"

	"quill/internal/pipeline"
)

// Handler describes the contract the worker runner needs from each stage.
type Handler interface {
	// Stage names the pipeline stage this handler executes.
	Stage() pipeline.Stage
	// Execute performs the stage's work for one work item. Errors classified
	// as validation are permanent; everything else may be retried on the
	// next trigger.
	Execute(ctx context.Context, workID string) error
	HealthCheck(context.Context) Health
}
