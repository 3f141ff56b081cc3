package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doctrack/doctrack/internal/recorder"
	"github.com/doctrack/doctrack/internal/vcs"
)

func newTestFacade(t *testing.T) *Facade {
	t.Helper()
	ctx := context.Background()
	snapStore, err := vcs.Open(ctx, t.TempDir(), "")
	require.NoError(t, err)
	versionStore, err := vcs.Open(ctx, t.TempDir(), "")
	require.NoError(t, err)

	snapshots := recorder.New(snapStore, "snapshot", ".html", nil)
	versions := recorder.New(versionStore, "version", ".md", nil)
	return New(snapshots, versions, Options{})
}

func TestFacade_RecordSnapshotFirstAndUpdate(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	outcome, err := f.RecordSnapshot(ctx, "acme", "Terms of Service", []byte("<html>v1</html>"), "text/html")
	require.NoError(t, err)
	assert.True(t, outcome.IsFirstRecord())

	outcome, err = f.RecordSnapshot(ctx, "acme", "Terms of Service", []byte("<html>v2</html>"), "text/html")
	require.NoError(t, err)
	assert.False(t, outcome.IsUnchanged())
	assert.False(t, outcome.IsFirstRecord())

	outcome, err = f.RecordSnapshot(ctx, "acme", "Terms of Service", []byte("<html>v2</html>"), "text/html")
	require.NoError(t, err)
	assert.True(t, outcome.IsUnchanged())
}

func TestFacade_RecordVersionRequiresSnapshotID(t *testing.T) {
	f := newTestFacade(t)
	_, err := f.RecordVersion(context.Background(), "acme", "Terms of Service", "cleaned text", "", time.Now())
	require.Error(t, err)
}

func TestFacade_RecordVersionAndRefilter(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	snapOutcome, err := f.RecordSnapshot(ctx, "acme", "Terms of Service", []byte("<html>v1</html>"), "text/html")
	require.NoError(t, err)

	versionOutcome, err := f.RecordVersion(ctx, "acme", "Terms of Service", "cleaned v1", snapOutcome.ID(), time.Now())
	require.NoError(t, err)
	assert.True(t, versionOutcome.IsFirstRecord())

	refilterOutcome, err := f.RecordRefilter(ctx, "acme", "Terms of Service", "cleaned v1", snapOutcome.ID(), time.Now())
	require.NoError(t, err)
	assert.True(t, refilterOutcome.IsUnchanged())

	refilterOutcome, err = f.RecordRefilter(ctx, "acme", "Terms of Service", "cleaned v1 differently", snapOutcome.ID(), time.Now())
	require.NoError(t, err)
	assert.False(t, refilterOutcome.IsUnchanged())
	assert.False(t, refilterOutcome.IsFirstRecord())
}

func TestFacade_GetLatestSnapshotAndVersion(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	_, found, err := f.GetLatestSnapshot(ctx, "acme", "Terms of Service")
	require.NoError(t, err)
	assert.False(t, found)

	snapOutcome, err := f.RecordSnapshot(ctx, "acme", "Terms of Service", []byte("<html>v1</html>"), "text/html")
	require.NoError(t, err)
	_, err = f.RecordVersion(ctx, "acme", "Terms of Service", "cleaned v1", snapOutcome.ID(), time.Now())
	require.NoError(t, err)

	snap, found, err := f.GetLatestSnapshot(ctx, "acme", "Terms of Service")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "<html>v1</html>", string(snap.Content))

	version, found, err := f.GetLatestVersion(ctx, "acme", "Terms of Service")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "cleaned v1", version.Content)
}

func TestFacade_PublishDisabledIsNoop(t *testing.T) {
	f := newTestFacade(t)
	require.NoError(t, f.Publish(context.Background()))
}
