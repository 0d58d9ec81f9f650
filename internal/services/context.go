package services

import "context"

type contextKey string

const (
	workIDContextKey    contextKey = "quill-work-id"
	stageContextKey     contextKey = "quill-stage"
	requestIDContextKey contextKey = "quill-request-id"
)

// WithWorkID attaches a work-item identifier to the context.
func WithWorkID(ctx context.Context, workID string) context.Context {
	if workID == "" {
		return ctx
	}
	return context.WithValue(ctx, workIDContextKey, workID)
}

// WorkIDFromContext extracts the work-item identifier when present.
func WorkIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(workIDContextKey).(string)
	return id, ok && id != ""
}

// WithStage attaches a pipeline stage name to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageContextKey, stage)
}

// StageFromContext extracts the stage name when present.
func StageFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	stage, ok := ctx.Value(stageContextKey).(string)
	return stage, ok && stage != ""
}

// WithRequestID attaches a correlation identifier to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext extracts the correlation identifier when present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDContextKey).(string)
	return id, ok && id != ""
}
