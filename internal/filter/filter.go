// Package filter defines the Filter collaborator interface the tracking
// engine uses to turn a raw fetched snapshot into cleaned markdown text,
// plus a default implementation. Grounded on the shape of the teacher's
// internal/extractor + internal/normalizer pair (selector-driven extraction
// followed by a normalization step) and on hazyhaar-chrc's extract/docpipe
// packages (CSS-selector content extraction feeding a text pipeline),
// re-expressed here around goquery + bluemonday + html-to-markdown instead
// of a hand-rolled selector matcher.
package filter

import (
	"context"

	"github.com/doctrack/doctrack/internal/model"
)

// Filter turns raw content into cleaned markdown text. overrideFilters, when
// non-nil, replaces declaration.Filters for this one call — used by
// refiltering to try a drifted filter set without touching the declaration.
// isRefiltering hints that content is being reprocessed from an existing
// snapshot rather than a freshly fetched one; the default implementation
// ignores it, but a custom Filter may use it (e.g. to skip a
// network-dependent post-filter).
type Filter interface {
	Filter(ctx context.Context, content []byte, mimeType string, declaration model.DocumentDeclaration, overrideFilters []string, isRefiltering bool) (string, error)
}
