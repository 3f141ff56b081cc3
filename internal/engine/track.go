package engine

import (
	"context"
	"fmt"
)

// TrackChanges fetches and records the current content of every declared
// document in serviceIDs (all declared services when serviceIDs is empty),
// filters each into a version, and finally pushes both repositories once
// the whole batch has drained cleanly. Returns the first non-recoverable
// error encountered, if any; recoverable fetch failures are reported via
// events and counted in BatchResult, never returned.
func (e *Engine) TrackChanges(ctx context.Context, serviceIDs []string) (BatchResult, error) {
	refs := e.documentRefs(serviceIDs)

	result, err := e.runBounded(ctx, refs, e.opts.MaxParallelDocumentTracks, e.trackDocument)
	if err != nil {
		return result, err
	}

	if err := e.history.Publish(ctx); err != nil {
		return result, fmt.Errorf("engine: publishing after track: %w", err)
	}
	e.bus.EmitRecordsPublished()
	return result, nil
}

func (e *Engine) trackDocument(ctx context.Context, ref documentRef) error {
	fetched, err := e.fetcher.Fetch(ctx, ref.declaration.Location)
	if err != nil {
		return err
	}
	if len(fetched.Content) == 0 {
		return nil
	}

	snapshotOutcome, err := e.history.RecordSnapshot(ctx, ref.serviceID, ref.documentType, fetched.Content, fetched.MimeType)
	if err != nil {
		return fmt.Errorf("engine: recording snapshot for %s/%s: %w", ref.serviceID, ref.documentType, err)
	}

	if snapshotOutcome.IsUnchanged() {
		e.bus.EmitSnapshotNotChanged(ref.serviceID, ref.documentType)
		return nil
	}
	if snapshotOutcome.IsFirstRecord() {
		e.bus.EmitFirstSnapshotRecorded(ref.serviceID, ref.documentType, snapshotOutcome.ID())
	} else {
		e.bus.EmitSnapshotRecorded(ref.serviceID, ref.documentType, snapshotOutcome.ID())
	}

	previousVersion, hadPreviousVersion, err := e.history.GetLatestVersion(ctx, ref.serviceID, ref.documentType)
	if err != nil {
		e.logger.Warn().Str("service", ref.serviceID).Str("document", ref.documentType).Err(err).Msg("failed reading previous version for diff logging")
	}

	cleaned, err := e.filter.Filter(ctx, fetched.Content, fetched.MimeType, ref.declaration, nil, false)
	if err != nil {
		return fmt.Errorf("engine: filtering %s/%s: %w", ref.serviceID, ref.documentType, err)
	}

	snapshotRecord, _, err := e.history.GetLatestSnapshot(ctx, ref.serviceID, ref.documentType)
	if err != nil {
		return fmt.Errorf("engine: reading back snapshot for %s/%s: %w", ref.serviceID, ref.documentType, err)
	}

	versionOutcome, err := e.history.RecordVersion(ctx, ref.serviceID, ref.documentType, cleaned, snapshotOutcome.ID(), snapshotRecord.Date)
	if err != nil {
		return fmt.Errorf("engine: recording version for %s/%s: %w", ref.serviceID, ref.documentType, err)
	}

	if versionOutcome.IsUnchanged() {
		e.bus.EmitVersionNotChanged(ref.serviceID, ref.documentType)
		return nil
	}
	if versionOutcome.IsFirstRecord() {
		e.bus.EmitFirstVersionRecorded(ref.serviceID, ref.documentType, versionOutcome.ID())
	} else {
		e.bus.EmitVersionRecorded(ref.serviceID, ref.documentType, versionOutcome.ID())
		if hadPreviousVersion {
			e.logChangeSize(ref, previousVersion.Content, cleaned)
		}
	}
	return nil
}

func (e *Engine) logChangeSize(ref documentRef, before, after string) {
	summary := e.diffs.Summarize(before, after)
	e.logger.Info().
		Str("service", ref.serviceID).
		Str("document", ref.documentType).
		Int("lines_added", summary.LinesAdded).
		Int("lines_deleted", summary.LinesDeleted).
		Msg("version content changed")
}
