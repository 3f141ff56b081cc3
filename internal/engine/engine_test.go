package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doctrack/doctrack/internal/errs"
	"github.com/doctrack/doctrack/internal/events"
	"github.com/doctrack/doctrack/internal/fetch"
	"github.com/doctrack/doctrack/internal/history"
	"github.com/doctrack/doctrack/internal/model"
	"github.com/doctrack/doctrack/internal/recorder"
	"github.com/doctrack/doctrack/internal/vcs"
)

// fakeFetcher serves a fixed (mimeType, content) per location, or the
// configured error, and tracks the maximum number of concurrently in-flight
// calls when sleepFor is set.
type fakeFetcher struct {
	mu       sync.Mutex
	byLoc    map[string]fetch.Result
	errByLoc map[string]error
	sleepFor time.Duration

	inflight int32
	maxSeen  int32
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{byLoc: make(map[string]fetch.Result), errByLoc: make(map[string]error)}
}

func (f *fakeFetcher) set(loc, mimeType, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byLoc[loc] = fetch.Result{Content: []byte(content), MimeType: mimeType}
}

func (f *fakeFetcher) fail(loc string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errByLoc[loc] = err
}

func (f *fakeFetcher) Fetch(ctx context.Context, location string) (fetch.Result, error) {
	cur := atomic.AddInt32(&f.inflight, 1)
	for {
		max := atomic.LoadInt32(&f.maxSeen)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxSeen, max, cur) {
			break
		}
	}
	if f.sleepFor > 0 {
		time.Sleep(f.sleepFor)
	}
	atomic.AddInt32(&f.inflight, -1)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errByLoc[location]; ok {
		return fetch.Result{}, err
	}
	return f.byLoc[location], nil
}

// upperCaseFilter returns the content unchanged (no case change), stripping nothing;
// used wherever a scenario just needs a deterministic, inspectable "cleaned"
// text without exercising the real HTML pipeline.
type upperCaseFilter struct{}

func (upperCaseFilter) Filter(ctx context.Context, content []byte, mimeType string, decl model.DocumentDeclaration, overrideFilters []string, isRefiltering bool) (string, error) {
	return string(content), nil
}

// recordingListener captures every event the bus dispatches, in order, for
// assertion.
type recordingListener struct {
	mu     sync.Mutex
	events []string
}

func (l *recordingListener) record(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, name)
}

func (l *recordingListener) has(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e == name {
			return true
		}
	}
	return false
}

func (l *recordingListener) count(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e == name {
			n++
		}
	}
	return n
}

func (l *recordingListener) OnFirstSnapshotRecorded(string, string, string) { l.record("firstSnapshotRecorded") }
func (l *recordingListener) OnSnapshotRecorded(string, string, string)      { l.record("snapshotRecorded") }
func (l *recordingListener) OnSnapshotNotChanged(string, string)            { l.record("snapshotNotChanged") }
func (l *recordingListener) OnFirstVersionRecorded(string, string, string)  { l.record("firstVersionRecorded") }
func (l *recordingListener) OnVersionRecorded(string, string, string)       { l.record("versionRecorded") }
func (l *recordingListener) OnVersionNotChanged(string, string)             { l.record("versionNotChanged") }
func (l *recordingListener) OnRecordsPublished()                           { l.record("recordsPublished") }
func (l *recordingListener) OnInaccessibleContent(error, string, string)   { l.record("inaccessibleContent") }
func (l *recordingListener) OnError(error, string, string)                 { l.record("error") }

var _ events.Listener = (*recordingListener)(nil)

func newTestEngine(t *testing.T, fetcher fetch.Fetcher, decls map[string]model.ServiceDeclaration, opts Options) (*Engine, *recordingListener) {
	t.Helper()
	ctx := context.Background()
	snapStore, err := vcs.Open(ctx, t.TempDir(), "")
	require.NoError(t, err)
	versionStore, err := vcs.Open(ctx, t.TempDir(), "")
	require.NoError(t, err)

	snapshots := recorder.New(snapStore, "snapshot", ".html", nil)
	versions := recorder.New(versionStore, "version", ".md", nil)
	facade := history.New(snapshots, versions, history.Options{Publish: true})

	e := New(facade, fetcher, upperCaseFilter{}, opts, zerolog.Nop())
	e.declarations = decls

	listener := &recordingListener{}
	e.Attach(listener)
	return e, listener
}

func acmeTOSDecl(location string) map[string]model.ServiceDeclaration {
	return map[string]model.ServiceDeclaration{
		"acme": {
			ServiceID: "acme",
			Documents: map[string]model.DocumentDeclaration{
				"Terms of Service": {Location: location},
			},
		},
	}
}

// S1: first-time tracking produces one snapshot commit, one version commit,
// and the first-record events plus a final publish.
func TestEngine_S1_FirstTimeTracking(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set("http://x/tos", "text/html", "<html><main>Hello</main></html>")

	e, listener := newTestEngine(t, fetcher, acmeTOSDecl("http://x/tos"), Options{})
	ctx := context.Background()

	result, err := e.TrackChanges(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DocumentsProcessed)
	assert.Equal(t, 0, result.DocumentsInaccessible)

	assert.True(t, listener.has("firstSnapshotRecorded"))
	assert.True(t, listener.has("firstVersionRecorded"))
	assert.True(t, listener.has("recordsPublished"))
	assert.False(t, listener.has("snapshotRecorded"))
	assert.False(t, listener.has("versionRecorded"))

	snap, found, err := e.history.GetLatestSnapshot(ctx, "acme", "Terms of Service")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "<html><main>Hello</main></html>", string(snap.Content))

	version, found, err := e.history.GetLatestVersion(ctx, "acme", "Terms of Service")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "<html><main>Hello</main></html>", version.Content)
}

// S2: repeating the same fetch produces no new commits and "not changed"
// events, but still publishes.
func TestEngine_S2_UnchangedContent(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set("http://x/tos", "text/html", "<html><main>Hello</main></html>")

	e, listener := newTestEngine(t, fetcher, acmeTOSDecl("http://x/tos"), Options{})
	ctx := context.Background()

	_, err := e.TrackChanges(ctx, nil)
	require.NoError(t, err)

	snapBefore, _, err := e.history.GetLatestSnapshot(ctx, "acme", "Terms of Service")
	require.NoError(t, err)

	result, err := e.TrackChanges(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DocumentsProcessed)
	assert.True(t, listener.has("snapshotNotChanged"))
	assert.True(t, listener.has("versionNotChanged"))
	assert.True(t, listener.has("recordsPublished"))

	snapAfter, _, err := e.history.GetLatestSnapshot(ctx, "acme", "Terms of Service")
	require.NoError(t, err)
	assert.Equal(t, snapBefore.ID, snapAfter.ID)
}

// S3: the raw snapshot changes (noise differs) but the filtered text is
// identical — expect a new snapshot commit but no new version commit. Since
// this engine's test filter is a passthrough, we simulate "filter output
// stable despite snapshot drift" with a filter that strips a marked noise
// span.
type noiseStrippingFilter struct{}

func (noiseStrippingFilter) Filter(ctx context.Context, content []byte, mimeType string, decl model.DocumentDeclaration, overrideFilters []string, isRefiltering bool) (string, error) {
	const openTag, closeTag = "<ad>", "</ad>"
	text := string(content)
	for {
		start := indexOf(text, openTag)
		if start < 0 {
			break
		}
		end := indexOf(text[start:], closeTag)
		if end < 0 {
			break
		}
		end += start + len(closeTag)
		text = text[:start] + text[end:]
	}
	return text, nil
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func TestEngine_S3_SnapshotChangesButFilterStable(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set("http://x/tos", "text/html", "<html>Hello<ad>banner</ad></html>")

	ctx := context.Background()
	snapStore, err := vcs.Open(ctx, t.TempDir(), "")
	require.NoError(t, err)
	versionStore, err := vcs.Open(ctx, t.TempDir(), "")
	require.NoError(t, err)
	snapshots := recorder.New(snapStore, "snapshot", ".html", nil)
	versions := recorder.New(versionStore, "version", ".md", nil)
	facade := history.New(snapshots, versions, history.Options{Publish: true})

	e := New(facade, fetcher, noiseStrippingFilter{}, Options{}, zerolog.Nop())
	e.declarations = acmeTOSDecl("http://x/tos")
	listener := &recordingListener{}
	e.Attach(listener)

	_, err = e.TrackChanges(ctx, nil)
	require.NoError(t, err)
	require.True(t, listener.has("firstSnapshotRecorded"))
	require.True(t, listener.has("firstVersionRecorded"))

	// Second fetch: different raw bytes (ad banner text changed) but the
	// filtered output is identical once the noise span is stripped.
	fetcher.set("http://x/tos", "text/html", "<html>Hello<ad>different-banner</ad></html>")

	_, err = e.TrackChanges(ctx, nil)
	require.NoError(t, err)
	assert.True(t, listener.has("snapshotRecorded"))
	assert.True(t, listener.has("versionNotChanged"))
	assert.Equal(t, 0, listener.count("versionRecorded"))
}

// S4: an inaccessible fetch is reported via the InaccessibleContent event,
// produces no commits, and still lets the batch complete and publish.
func TestEngine_S4_Inaccessible(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.fail("http://x/tos", errs.NewInaccessibleContentError("http://x/tos", "http 503", nil))

	e, listener := newTestEngine(t, fetcher, acmeTOSDecl("http://x/tos"), Options{})
	ctx := context.Background()

	result, err := e.TrackChanges(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DocumentsProcessed)
	assert.Equal(t, 1, result.DocumentsInaccessible)
	assert.True(t, listener.has("inaccessibleContent"))
	assert.True(t, listener.has("recordsPublished"))
	assert.False(t, listener.has("firstSnapshotRecorded"))

	_, found, err := e.history.GetLatestSnapshot(ctx, "acme", "Terms of Service")
	require.NoError(t, err)
	assert.False(t, found)
}

// S5: refiltering a drifted filter against an existing snapshot produces no
// new snapshot commit, one new version commit prefixed "Refilter", bound to
// the existing snapshot's id.
func TestEngine_S5_RefilterDriftedFilter(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set("http://x/tos", "text/html", "<html>Hello<ad>banner</ad></html>")

	ctx := context.Background()
	snapStore, err := vcs.Open(ctx, t.TempDir(), "")
	require.NoError(t, err)
	versionStore, err := vcs.Open(ctx, t.TempDir(), "")
	require.NoError(t, err)
	snapshots := recorder.New(snapStore, "snapshot", ".html", nil)
	versions := recorder.New(versionStore, "version", ".md", nil)
	facade := history.New(snapshots, versions, history.Options{Publish: true})

	e := New(facade, fetcher, upperCaseFilter{}, Options{}, zerolog.Nop())
	e.declarations = acmeTOSDecl("http://x/tos")
	listener := &recordingListener{}
	e.Attach(listener)

	_, err = e.TrackChanges(ctx, nil)
	require.NoError(t, err)

	snapBefore, _, err := e.history.GetLatestSnapshot(ctx, "acme", "Terms of Service")
	require.NoError(t, err)

	// Only the refilter's own events are checked below.
	listener = &recordingListener{}
	e.Attach(listener)

	// Swap to the drifted filter and refilter without any new fetch.
	e.filter = noiseStrippingFilter{}
	result, err := e.RefilterAndRecord(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DocumentsProcessed)
	assert.True(t, listener.has("versionRecorded"))
	assert.False(t, listener.has("firstSnapshotRecorded"))
	assert.False(t, listener.has("snapshotRecorded"))

	snapAfter, _, err := e.history.GetLatestSnapshot(ctx, "acme", "Terms of Service")
	require.NoError(t, err)
	assert.Equal(t, snapBefore.ID, snapAfter.ID)

	commits, err := versionStore.Log(ctx, "acme/Terms of Service.md")
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Contains(t, commits[0].Message, "Refilter acme Terms of Service")
	assert.Contains(t, commits[0].Message, snapBefore.ID)
}

// S6: with MaxParallelDocumentTracks capped at 20 and 100 documents queued
// behind a fetcher that sleeps 20ms, the observed peak concurrency never
// exceeds the cap.
func TestEngine_S6_ParallelismCap(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.sleepFor = 20 * time.Millisecond
	fetcher.set("http://x/doc", "text/html", "<html>content</html>")

	// Build 100 distinct (serviceId, documentType) pairs all sharing one
	// location, so each counts as an independent queued item.
	svc := model.ServiceDeclaration{ServiceID: "acme", Documents: map[string]model.DocumentDeclaration{}}
	for i := 0; i < 100; i++ {
		svc.Documents[documentTypeName(i)] = model.DocumentDeclaration{Location: "http://x/doc"}
	}
	decls := map[string]model.ServiceDeclaration{"acme": svc}

	e, _ := newTestEngine(t, fetcher, decls, Options{MaxParallelDocumentTracks: 20, MaxParallelRefilters: 20})
	ctx := context.Background()

	start := time.Now()
	result, err := e.TrackChanges(ctx, nil)
	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.Equal(t, 100, result.DocumentsProcessed)

	maxSeen := atomic.LoadInt32(&fetcher.maxSeen)
	assert.LessOrEqual(t, int(maxSeen), 20)
	// 100 items / 20 concurrency = 5 waves of ~20ms each.
	assert.GreaterOrEqual(t, elapsed, 90*time.Millisecond)
}

func documentTypeName(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	return "doc-" + string(letters[i%26]) + string(rune('0'+i/26))
}
