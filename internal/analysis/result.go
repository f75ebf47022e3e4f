// Package analysis implements the Fit Analyzer and the Finalizer: the two
// generation-backed steps of a SmartBot session, each with a deterministic fallback.
package analysis

// Source tells whether a result came from the generation backend or the local fallback.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

const (
	notSpecified   = "Not specified"
	logPreviewSize = 500
)
