// Package services provides cross-cutting helpers shared by quill components:
// sentinel error markers with contextual wrapping, and context carriers for
// work-item identifiers, stage names, and request correlation ids.
//
// Error classification drives user-visible behavior: absence of state is never
// an error (callers receive nil results), while validation and configuration
// failures indicate problems that retrying cannot fix.
package services
