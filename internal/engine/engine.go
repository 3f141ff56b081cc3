// Package engine is the tracking engine: the orchestrator holding the
// loaded service declarations, the two bounded work queues (tracking,
// refiltering), the per-document pipelines, and the event emission and
// final-publish rules that tie them together. Grounded on the shape of the
// teacher's internal/monitor.Scheduler (fixed worker pool draining a
// buffered job channel, WaitGroup-gated completion) and
// internal/monitor.MonitoringService.checkURL (is-new vs content-changed
// decision feeding a store-then-notify sequence), recomposed here around
// golang.org/x/sync/errgroup + semaphore.Weighted instead of a hand-rolled
// channel-and-WaitGroup pair, and around history.Facade/events.Bus instead
// of a single store plus a Discord notifier wired in directly.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/doctrack/doctrack/internal/diffstats"
	"github.com/doctrack/doctrack/internal/errs"
	"github.com/doctrack/doctrack/internal/events"
	"github.com/doctrack/doctrack/internal/fetch"
	"github.com/doctrack/doctrack/internal/filter"
	"github.com/doctrack/doctrack/internal/history"
	"github.com/doctrack/doctrack/internal/model"
)

// Options configures an Engine's concurrency caps.
type Options struct {
	MaxParallelDocumentTracks int
	MaxParallelRefilters      int
}

func (o Options) withDefaults() Options {
	if o.MaxParallelDocumentTracks <= 0 {
		o.MaxParallelDocumentTracks = 20
	}
	if o.MaxParallelRefilters <= 0 {
		o.MaxParallelRefilters = 20
	}
	return o
}

// documentRef identifies one (serviceId, documentType) within a loaded
// service declaration.
type documentRef struct {
	serviceID    string
	documentType string
	declaration  model.DocumentDeclaration
}

// Engine is the tracking engine. Construct with New, populate declarations
// with Init, attach listeners with Attach, then call TrackChanges and/or
// RefilterAndRecord any number of times.
type Engine struct {
	opts       Options
	history    *history.Facade
	fetcher    fetch.Fetcher
	filter     filter.Filter
	bus        events.Bus
	logger     zerolog.Logger
	diffs      *diffstats.Summarizer

	declarations map[string]model.ServiceDeclaration
}

// New builds an Engine over its collaborators. Declarations are empty until
// Init is called.
func New(historyFacade *history.Facade, fetcher fetch.Fetcher, filterEngine filter.Filter, opts Options, logger zerolog.Logger) *Engine {
	return &Engine{
		opts:         opts.withDefaults(),
		history:      historyFacade,
		fetcher:      fetcher,
		filter:       filterEngine,
		logger:       logger.With().Str("component", "Engine").Logger(),
		diffs:        diffstats.New(diffstats.DefaultConfig()),
		declarations: make(map[string]model.ServiceDeclaration),
	}
}

// Init loads service declarations via loader and stores them in memory for
// the lifetime of the Engine. Called once, before any
// TrackChanges/RefilterAndRecord call; a second call reloads and replaces
// the declarations.
func (e *Engine) Init(ctx context.Context, loader interface {
	Load(ctx context.Context, path string) (map[string]model.ServiceDeclaration, error)
}, declarationsPath string) error {
	declarations, err := loader.Load(ctx, declarationsPath)
	if err != nil {
		return fmt.Errorf("engine: loading declarations: %w", err)
	}
	e.declarations = declarations
	return nil
}

// Attach wires listener against whichever events.Bus handler interfaces it
// implements.
func (e *Engine) Attach(listener any) {
	e.bus.Attach(listener)
}

func (e *Engine) documentRefs(serviceIDs []string) []documentRef {
	var refs []documentRef
	services := e.declarations
	if len(serviceIDs) > 0 {
		services = make(map[string]model.ServiceDeclaration, len(serviceIDs))
		for _, id := range serviceIDs {
			if svc, ok := e.declarations[id]; ok {
				services[id] = svc
			}
		}
	}
	for serviceID, svc := range services {
		for documentType, decl := range svc.Documents {
			refs = append(refs, documentRef{serviceID: serviceID, documentType: documentType, declaration: decl})
		}
	}
	return refs
}

// BatchResult summarizes the outcome of one TrackChanges/RefilterAndRecord
// call, purely for the caller's/CLI's reporting — the engine does not use
// it internally.
type BatchResult struct {
	DocumentsProcessed    int
	DocumentsInaccessible int
}

// runBounded drains items through worker goroutines bounded by maxParallel,
// using a semaphore.Weighted to gate submission and an errgroup to abort on
// the first non-recoverable error, per §5's concurrency model. Recoverable
// (*errs.InaccessibleContentError) failures are counted, logged, and never
// abort the batch.
func (e *Engine) runBounded(ctx context.Context, refs []documentRef, maxParallel int, work func(ctx context.Context, ref documentRef) error) (BatchResult, error) {
	sem := semaphore.NewWeighted(int64(maxParallel))
	g, gctx := errgroup.WithContext(ctx)

	var result BatchResult
	var resultMu sync.Mutex

	for _, ref := range refs {
		ref := ref
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)

			err := work(gctx, ref)

			var inaccessible *errs.InaccessibleContentError
			switch {
			case err == nil:
				resultMu.Lock()
				result.DocumentsProcessed++
				resultMu.Unlock()
				return nil
			case asInaccessible(err, &inaccessible):
				resultMu.Lock()
				result.DocumentsProcessed++
				result.DocumentsInaccessible++
				resultMu.Unlock()
				e.bus.EmitInaccessibleContent(inaccessible, ref.serviceID, ref.documentType)
				e.logger.Warn().Str("service", ref.serviceID).Str("document", ref.documentType).Err(err).Msg("document inaccessible")
				return nil
			default:
				e.bus.EmitError(err, ref.serviceID, ref.documentType)
				e.logger.Error().Str("service", ref.serviceID).Str("document", ref.documentType).Err(err).Msg("document tracking failed")
				return err
			}
		})
	}

	waitErr := g.Wait()
	return result, waitErr
}

func asInaccessible(err error, target **errs.InaccessibleContentError) bool {
	for err != nil {
		if ic, ok := err.(*errs.InaccessibleContentError); ok {
			*target = ic
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
