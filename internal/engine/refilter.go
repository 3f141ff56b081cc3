package engine

import (
	"context"
	"fmt"
)

// RefilterAndRecord re-derives the version of every declared document in
// serviceIDs from its already-recorded latest snapshot, without performing
// any new fetch. Documents with no recorded snapshot yet are skipped
// silently — refiltering has nothing to refilter. overrideFilters, when
// non-nil, replaces every declaration's own Filters list for this run
// (used to try out a drifted filter set before committing it to the
// declaration file).
func (e *Engine) RefilterAndRecord(ctx context.Context, serviceIDs []string, overrideFilters []string) (BatchResult, error) {
	refs := e.documentRefs(serviceIDs)

	result, err := e.runBounded(ctx, refs, e.opts.MaxParallelRefilters, func(ctx context.Context, ref documentRef) error {
		return e.refilterDocument(ctx, ref, overrideFilters)
	})
	if err != nil {
		return result, err
	}

	if err := e.history.Publish(ctx); err != nil {
		return result, fmt.Errorf("engine: publishing after refilter: %w", err)
	}
	e.bus.EmitRecordsPublished()
	return result, nil
}

func (e *Engine) refilterDocument(ctx context.Context, ref documentRef, overrideFilters []string) error {
	snapshot, found, err := e.history.GetLatestSnapshot(ctx, ref.serviceID, ref.documentType)
	if err != nil {
		return fmt.Errorf("engine: reading snapshot for %s/%s: %w", ref.serviceID, ref.documentType, err)
	}
	if !found {
		return nil
	}

	previousVersion, hadPreviousVersion, err := e.history.GetLatestVersion(ctx, ref.serviceID, ref.documentType)
	if err != nil {
		e.logger.Warn().Str("service", ref.serviceID).Str("document", ref.documentType).Err(err).Msg("failed reading previous version for diff logging")
	}

	cleaned, err := e.filter.Filter(ctx, snapshot.Content, snapshot.MimeType, ref.declaration, overrideFilters, true)
	if err != nil {
		return fmt.Errorf("engine: refiltering %s/%s: %w", ref.serviceID, ref.documentType, err)
	}

	versionOutcome, err := e.history.RecordRefilter(ctx, ref.serviceID, ref.documentType, cleaned, snapshot.ID, snapshot.Date)
	if err != nil {
		return fmt.Errorf("engine: recording refiltered version for %s/%s: %w", ref.serviceID, ref.documentType, err)
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
