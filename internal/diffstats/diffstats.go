// Package diffstats summarizes the size of a content change for logging,
// never for gating any recording decision (that is byte-equality on the
// commit store, not this package). Grounded on the teacher's
// internal/differ.DiffProcessor / DiffStatsCalculator pair, narrowed to the
// one summary the tracking engine logs after a non-NO_CHANGE record.
package diffstats

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Config tunes the underlying diff algorithm.
type Config struct {
	EnableSemanticCleanup bool
	LineBased             bool
}

// DefaultConfig mirrors the teacher's DefaultDiffConfig.
func DefaultConfig() Config {
	return Config{EnableSemanticCleanup: true, LineBased: true}
}

// Summary reports the size of a change between two text revisions.
type Summary struct {
	LinesAdded   int
	LinesDeleted int
	Identical    bool
}

// Summarizer computes Summary values between two text revisions.
type Summarizer struct {
	dmp *diffmatchpatch.DiffMatchPatch
	cfg Config
}

// New builds a Summarizer.
func New(cfg Config) *Summarizer {
	return &Summarizer{dmp: diffmatchpatch.New(), cfg: cfg}
}

// Summarize computes a Summary between before and after. A nil or empty
// before treats every line of after as an addition, matching how a
// first-ever record has no prior revision to diff against.
func (s *Summarizer) Summarize(before, after string) Summary {
	diffs := s.dmp.DiffMain(before, after, s.cfg.LineBased)
	if s.cfg.EnableSemanticCleanup {
		diffs = s.dmp.DiffCleanupSemantic(diffs)
	}

	summary := Summary{Identical: true}
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			summary.LinesAdded += lineCount(d.Text)
			summary.Identical = false
		case diffmatchpatch.DiffDelete:
			summary.LinesDeleted += lineCount(d.Text)
			summary.Identical = false
		}
	}
	return summary
}

func lineCount(text string) int {
	if text == "" {
		return 0
	}
	count := 0
	for _, r := range text {
		if r == '\n' {
			count++
		}
	}
	if text[len(text)-1] != '\n' {
		count++
	}
	return count
}
