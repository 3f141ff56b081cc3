// Package history composes the snapshot and version Recorders and encodes
// the domain policy binding them: commit-message prefixes, first-record
// detection, and the hard invariant that every Version references the
// Snapshot it was filtered from. Grounded on the decision logic in the
// teacher's MonitoringService.checkURL (is-new vs content-changed → store vs
// skip), recomposed here around two Recorders instead of one store plus a
// notifier — event emission is the Engine's job, not the Facade's.
package history

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/doctrack/doctrack/internal/errs"
	"github.com/doctrack/doctrack/internal/model"
	"github.com/doctrack/doctrack/internal/recorder"
)

// Options configures publication behaviour.
type Options struct {
	Publish          bool
	SnapshotsBaseURL string // used to build the snapshot URL embedded in version commit messages
}

// Facade composes the snapshots and versions Recorders.
type Facade struct {
	snapshots *recorder.Recorder
	versions  *recorder.Recorder
	opts      Options
}

// New builds a Facade over the given Recorders.
func New(snapshots, versions *recorder.Recorder, opts Options) *Facade {
	return &Facade{snapshots: snapshots, versions: versions, opts: opts}
}

func changelogPrefix(verb, serviceID, documentType string) string {
	return fmt.Sprintf("%s %s %s", verb, serviceID, documentType)
}

// RecordSnapshot records the raw fetched content of one document.
func (f *Facade) RecordSnapshot(ctx context.Context, serviceID, documentType string, content []byte, mimeType string) (model.RecordOutcome, error) {
	tracked, err := f.snapshots.IsTracked(ctx, serviceID, documentType)
	if err != nil {
		return model.RecordOutcome{}, err
	}
	verb := "Update"
	if !tracked {
		verb = "Start tracking"
	}
	return f.snapshots.Record(ctx, recorder.Request{
		ServiceID:    serviceID,
		DocumentType: documentType,
		Content:      content,
		Changelog:    changelogPrefix(verb, serviceID, documentType),
		MimeType:     mimeType,
	})
}

// RecordVersion records the filter-extracted text derived from exactly one
// snapshot. Fails with MissingSnapshotBinding if snapshotID is empty — this
// is a hard precondition, never relaxed.
func (f *Facade) RecordVersion(ctx context.Context, serviceID, documentType, content, snapshotID string, snapshotDate time.Time) (model.RecordOutcome, error) {
	return f.recordVersionLike(ctx, serviceID, documentType, content, snapshotID, snapshotDate, false)
}

// RecordRefilter re-records a version produced by refiltering an existing
// snapshot (no new fetch occurred). Identical in every respect to
// RecordVersion except for the "Refilter" commit-message prefix used once
// the version file already exists.
func (f *Facade) RecordRefilter(ctx context.Context, serviceID, documentType, content, snapshotID string, snapshotDate time.Time) (model.RecordOutcome, error) {
	return f.recordVersionLike(ctx, serviceID, documentType, content, snapshotID, snapshotDate, true)
}

func (f *Facade) recordVersionLike(ctx context.Context, serviceID, documentType, content, snapshotID string, snapshotDate time.Time, isRefilter bool) (model.RecordOutcome, error) {
	if snapshotID == "" {
		return model.RecordOutcome{}, &errs.MissingSnapshotBinding{ServiceID: serviceID, DocumentType: documentType}
	}

	tracked, err := f.versions.IsTracked(ctx, serviceID, documentType)
	if err != nil {
		return model.RecordOutcome{}, err
	}

	var verb string
	switch {
	case !tracked:
		verb = "Start tracking"
	case isRefilter:
		verb = "Refilter"
	default:
		verb = "Update"
	}

	changelog := changelogPrefix(verb, serviceID, documentType) + "\n\n" + f.snapshotReference(snapshotID)

	return f.versions.Record(ctx, recorder.Request{
		ServiceID:    serviceID,
		DocumentType: documentType,
		Content:      []byte(content),
		Changelog:    changelog,
		MimeType:     "text/markdown",
		DocumentDate: snapshotDate,
	})
}

func (f *Facade) snapshotReference(snapshotID string) string {
	if f.opts.Publish && f.opts.SnapshotsBaseURL != "" {
		return fmt.Sprintf("This version was recorded after filtering snapshot %s\n\n%s/commit/%s", snapshotID, f.opts.SnapshotsBaseURL, snapshotID)
	}
	return fmt.Sprintf("This version was recorded after filtering snapshot %s", snapshotID)
}

// GetLatestSnapshot returns the most recently committed snapshot for a
// document, if any.
func (f *Facade) GetLatestSnapshot(ctx context.Context, serviceID, documentType string) (model.SnapshotRecord, bool, error) {
	rec, found, err := f.snapshots.GetLatestRecord(ctx, serviceID, documentType)
	if err != nil || !found {
		return model.SnapshotRecord{}, found, err
	}
	return model.SnapshotRecord{
		ID:           rec.ID,
		ServiceID:    serviceID,
		DocumentType: documentType,
		MimeType:     rec.MimeType,
		Content:      rec.Content,
		Date:         rec.Date,
	}, true, nil
}

// GetLatestVersion returns the most recently committed version for a
// document, if any. Used by the engine only for diff-size logging before an
// update — never to make a recording decision.
func (f *Facade) GetLatestVersion(ctx context.Context, serviceID, documentType string) (model.VersionRecord, bool, error) {
	rec, found, err := f.versions.GetLatestRecord(ctx, serviceID, documentType)
	if err != nil || !found {
		return model.VersionRecord{}, found, err
	}
	return model.VersionRecord{
		ID:           rec.ID,
		ServiceID:    serviceID,
		DocumentType: documentType,
		Content:      string(rec.Content),
		Date:         rec.Date,
	}, true, nil
}

// Publish pushes both recorders' underlying repositories in parallel. A
// no-op when publication is disabled.
func (f *Facade) Publish(ctx context.Context) error {
	if !f.opts.Publish {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return f.snapshots.Publish(gctx) })
	g.Go(func() error { return f.versions.Publish(gctx) })
	return g.Wait()
}
