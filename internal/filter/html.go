package filter

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/doctrack/doctrack/internal/model"
)

// HTMLFilter is the default Filter: strip noise selectors, keep only
// content selectors (or the whole body if none are declared), sanitize what
// remains with bluemonday, render to markdown, then run any named
// post-filters.
type HTMLFilter struct {
	policy   *bluemonday.Policy
	registry *Registry
	logger   zerolog.Logger
}

// NewHTMLFilter builds an HTMLFilter. A nil registry uses NewRegistry(nil).
func NewHTMLFilter(registry *Registry, logger zerolog.Logger) *HTMLFilter {
	if registry == nil {
		registry = NewRegistry(nil)
	}
	policy := bluemonday.UGCPolicy()
	policy.AllowStandardURLs()
	return &HTMLFilter{
		policy:   policy,
		registry: registry,
		logger:   logger.With().Str("component", "HTMLFilter").Logger(),
	}
}

func (f *HTMLFilter) Filter(ctx context.Context, content []byte, mimeType string, declaration model.DocumentDeclaration, overrideFilters []string, isRefiltering bool) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	filterNames := declaration.Filters
	if overrideFilters != nil {
		filterNames = overrideFilters
	}

	if !isHTMLMime(mimeType) {
		text, err := f.registry.Apply(ctx, string(content), filterNames)
		if err != nil {
			return "", err
		}
		return text, nil
	}

	extractedHTML, err := f.extract(content, declaration.ContentSelectors, declaration.NoiseSelectors)
	if err != nil {
		return "", fmt.Errorf("filter: extract: %w", err)
	}

	sanitized := f.policy.Sanitize(extractedHTML)

	markdown, err := htmltomarkdown.ConvertString(sanitized)
	if err != nil {
		return "", fmt.Errorf("filter: markdown conversion: %w", err)
	}

	text, err := f.registry.Apply(ctx, markdown, filterNames)
	if err != nil {
		return "", err
	}
	return text, nil
}

// extract removes noiseSelectors from the parsed document, then returns the
// concatenated outer HTML of every node matching contentSelectors, or the
// entire body when no content selector is declared.
func (f *HTMLFilter) extract(content []byte, contentSelectors, noiseSelectors []string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", err
	}

	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	if len(contentSelectors) == 0 {
		html, err := doc.Find("body").First().Html()
		if err != nil {
			return "", err
		}
		return html, nil
	}

	var parts []string
	for _, sel := range contentSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			html, err := goquery.OuterHtml(s)
			if err == nil && strings.TrimSpace(html) != "" {
				parts = append(parts, html)
			}
		})
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no content matched selectors %v", contentSelectors)
	}
	return strings.Join(parts, "\n"), nil
}

func isHTMLMime(mimeType string) bool {
	switch mimeType {
	case "text/html", "application/xhtml+xml":
		return true
	default:
		return false
	}
}

var _ Filter = (*HTMLFilter)(nil)
