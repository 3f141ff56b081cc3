package filter

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doctrack/doctrack/internal/model"
)

const sampleHTML = `
<html>
<body>
<nav class="site-nav">Home | About</nav>
<main class="content">
<h1>Terms of Service</h1>
<p>You agree to these terms.</p>
</main>
<footer class="ads">Buy now!</footer>
</body>
</html>`

func TestHTMLFilter_ContentAndNoiseSelectors(t *testing.T) {
	f := NewHTMLFilter(nil, zerolog.Nop())
	declaration := model.DocumentDeclaration{
		ContentSelectors: []string{".content"},
		NoiseSelectors:   []string{".site-nav", ".ads"},
	}

	text, err := f.Filter(context.Background(), []byte(sampleHTML), "text/html", declaration, nil, false)
	require.NoError(t, err)
	assert.Contains(t, text, "Terms of Service")
	assert.Contains(t, text, "You agree to these terms")
	assert.NotContains(t, text, "Buy now")
	assert.NotContains(t, text, "Home | About")
}

func TestHTMLFilter_NoContentSelectorsUsesBody(t *testing.T) {
	f := NewHTMLFilter(nil, zerolog.Nop())
	declaration := model.DocumentDeclaration{NoiseSelectors: []string{".ads"}}

	text, err := f.Filter(context.Background(), []byte(sampleHTML), "text/html", declaration, nil, false)
	require.NoError(t, err)
	assert.Contains(t, text, "Terms of Service")
	assert.NotContains(t, text, "Buy now")
}

func TestHTMLFilter_NamedPostFilters(t *testing.T) {
	f := NewHTMLFilter(nil, zerolog.Nop())
	declaration := model.DocumentDeclaration{
		ContentSelectors: []string{".content"},
		Filters:          []string{"trimWhitespace", "collapseBlankLines"},
	}

	text, err := f.Filter(context.Background(), []byte(sampleHTML), "text/html", declaration, nil, false)
	require.NoError(t, err)
	assert.False(t, strings.Contains(text, "\n\n\n"))
}

func TestHTMLFilter_OverrideFilters(t *testing.T) {
	f := NewHTMLFilter(nil, zerolog.Nop())
	declaration := model.DocumentDeclaration{
		ContentSelectors: []string{".content"},
		Filters:          []string{"unknownFilter"},
	}

	_, err := f.Filter(context.Background(), []byte(sampleHTML), "text/html", declaration, []string{"trimWhitespace"}, true)
	require.NoError(t, err)
}

func TestHTMLFilter_UnknownSelectorErrors(t *testing.T) {
	f := NewHTMLFilter(nil, zerolog.Nop())
	declaration := model.DocumentDeclaration{ContentSelectors: []string{".does-not-exist"}}

	_, err := f.Filter(context.Background(), []byte(sampleHTML), "text/html", declaration, nil, false)
	require.Error(t, err)
}

func TestHTMLFilter_PlainTextBypassesHTMLPipeline(t *testing.T) {
	f := NewHTMLFilter(nil, zerolog.Nop())
	declaration := model.DocumentDeclaration{Filters: []string{"trimWhitespace"}}

	text, err := f.Filter(context.Background(), []byte("  hello world  \n"), "text/plain", declaration, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}
