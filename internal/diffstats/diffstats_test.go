package diffstats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize_Identical(t *testing.T) {
	s := New(DefaultConfig())
	summary := s.Summarize("line one\nline two\n", "line one\nline two\n")
	assert.True(t, summary.Identical)
	assert.Zero(t, summary.LinesAdded)
	assert.Zero(t, summary.LinesDeleted)
}

func TestSummarize_Addition(t *testing.T) {
	s := New(DefaultConfig())
	summary := s.Summarize("line one\n", "line one\nline two\nline three\n")
	assert.False(t, summary.Identical)
	assert.Positive(t, summary.LinesAdded)
	assert.Zero(t, summary.LinesDeleted)
}

func TestSummarize_EmptyBeforeIsAllAdditions(t *testing.T) {
	s := New(DefaultConfig())
	summary := s.Summarize("", "brand new content\nsecond line\n")
	assert.False(t, summary.Identical)
	assert.Positive(t, summary.LinesAdded)
}
