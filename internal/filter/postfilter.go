package filter

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// PostFilterFunc is a named, per-service transform applied to the rendered
// markdown after extraction, the equivalent of the teacher's per-site
// normalization passes in internal/normalizer but keyed by name instead of
// wired directly into the pipeline.
type PostFilterFunc func(ctx context.Context, text string) (string, error)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Registry resolves declaration-provided filter names to functions. Build
// one with NewRegistry, which seeds the built-in named filters every
// declaration may reference; the zero value has no filters registered, so
// Apply rejects every name.
type Registry struct {
	funcs map[string]PostFilterFunc
}

// NewRegistry builds a Registry seeded with the built-in filters, with any
// extra filters merged in (and able to override a built-in of the same
// name).
func NewRegistry(extra map[string]PostFilterFunc) *Registry {
	r := &Registry{funcs: map[string]PostFilterFunc{
		"trimWhitespace":     trimWhitespace,
		"collapseBlankLines": collapseBlankLines,
		"stripFootnoteMarks": stripFootnoteMarks,
	}}
	for name, fn := range extra {
		r.funcs[name] = fn
	}
	return r
}

// Apply runs each named filter in names over text in order.
func (r *Registry) Apply(ctx context.Context, text string, names []string) (string, error) {
	out := text
	for _, name := range names {
		fn, ok := r.funcs[name]
		if !ok {
			return "", fmt.Errorf("filter: unknown named filter %q", name)
		}
		var err error
		out, err = fn(ctx, out)
		if err != nil {
			return "", fmt.Errorf("filter: %q: %w", name, err)
		}
	}
	return out, nil
}

func trimWhitespace(_ context.Context, text string) (string, error) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

func collapseBlankLines(_ context.Context, text string) (string, error) {
	return blankRuns.ReplaceAllString(text, "\n\n"), nil
}

var footnoteMark = regexp.MustCompile(`\[\^\d+\]`)

func stripFootnoteMarks(_ context.Context, text string) (string, error) {
	return footnoteMark.ReplaceAllString(text, ""), nil
}
