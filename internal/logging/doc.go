// Package logging centralizes slog construction and the structured field
// vocabulary used across quill.
//
// Components never build loggers directly; they receive one from the daemon or
// CLI entry point and enrich it with WithContext so that work-item id, stage,
// and correlation id follow every record. Attr helpers keep call sites terse
// and make it harder to drift from the standardized field keys.
package logging
