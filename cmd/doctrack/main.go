// Command doctrack is the tracking engine's CLI entrypoint: load
// configuration, wire up the Commit Stores, Recorders, History Facade, and
// collaborators, then run one batch (track or refilter) and exit. Grounded
// on the wiring style of the teacher's cmd/monsterinc/main.go (flag parsing,
// config load, logger build, signal-driven graceful shutdown), narrowed from
// its crawl/monitor/report pipeline to doctrack's two subcommands.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/doctrack/doctrack/internal/commitindex"
	"github.com/doctrack/doctrack/internal/config"
	"github.com/doctrack/doctrack/internal/declaration"
	"github.com/doctrack/doctrack/internal/engine"
	"github.com/doctrack/doctrack/internal/events"
	"github.com/doctrack/doctrack/internal/fetch"
	"github.com/doctrack/doctrack/internal/filter"
	"github.com/doctrack/doctrack/internal/history"
	"github.com/doctrack/doctrack/internal/logging"
	"github.com/doctrack/doctrack/internal/recorder"
	"github.com/doctrack/doctrack/internal/resourcemon"
	"github.com/doctrack/doctrack/internal/runstore"
	"github.com/doctrack/doctrack/internal/vcs"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	subcommand := os.Args[1]

	fs := flag.NewFlagSet(subcommand, flag.ExitOnError)
	configFlag := fs.String("config", "", "Path to config.yaml. Overrides DOCTRACK_CONFIG_PATH and default search locations.")
	var serviceIDs stringListFlag
	fs.Var(&serviceIDs, "service", "Service id to process (repeatable). Empty means every declared service.")
	var overrideFilters stringListFlag
	fs.Var(&overrideFilters, "filter", "Refilter only: filter name to use instead of the declaration's own Filters (repeatable).")

	switch subcommand {
	case "track", "refilter":
		if err := fs.Parse(os.Args[2:]); err != nil {
			os.Exit(2)
		}
	default:
		usage()
		os.Exit(2)
	}

	if err := run(subcommand, *configFlag, []string(serviceIDs), []string(overrideFilters)); err != nil {
		fmt.Fprintln(os.Stderr, "doctrack:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: doctrack <track|refilter> [-config path] [-service id]... [-filter name]...")
}

type stringListFlag []string

func (s *stringListFlag) String() string { return fmt.Sprint([]string(*s)) }
func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func run(subcommand, configFlag string, serviceIDs, overrideFilters []string) error {
	path := config.GetConfigPath(configFlag)
	if path == "" {
		return fmt.Errorf("no config file found (checked -config, DOCTRACK_CONFIG_PATH, ./config.yaml, and the executable directory)")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	runID := uuid.New().String()

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logBuilder := logging.NewBuilder().WithLevel(level).WithRunID(runID)
	if cfg.Log.Format == "json" {
		logBuilder = logBuilder.WithFormat(logging.FormatJSON)
	}
	if cfg.Log.FilePath != "" {
		logBuilder = logBuilder.WithFile(cfg.Log.FilePath, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)
	}
	logger, err := logBuilder.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	logger.Info().Str("run_id", runID).Str("subcommand", subcommand).Msg("starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Warn().Str("signal", sig.String()).Msg("received interrupt, cancelling")
		cancel()
	}()

	var index *commitindex.Index
	if cfg.CommitIndex.Enabled {
		index, err = commitindex.New(cfg.CommitIndex.BaseDir, logger)
		if err != nil {
			return fmt.Errorf("opening commit index: %w", err)
		}
	}

	snapshotStore, err := vcs.Open(ctx, cfg.Storage.SnapshotsRepoPath, "")
	if err != nil {
		return fmt.Errorf("opening snapshots repo: %w", err)
	}
	versionStore, err := vcs.Open(ctx, cfg.Storage.VersionsRepoPath, "")
	if err != nil {
		return fmt.Errorf("opening versions repo: %w", err)
	}

	var indexForRecorder recorder.Index
	if index != nil {
		indexForRecorder = index
	}
	snapshots := recorder.New(snapshotStore, "snapshot", ".html", indexForRecorder)
	versions := recorder.New(versionStore, "version", ".md", indexForRecorder)

	historyFacade := history.New(snapshots, versions, history.Options{
		Publish:          cfg.Storage.Publish,
		SnapshotsBaseURL: cfg.Storage.SnapshotsBaseURL,
	})

	fetcher := fetch.NewHTTPFetcher(fetchConfigFrom(cfg.Fetch), logger)
	filterEngine := filter.NewHTMLFilter(filter.NewRegistry(nil), logger)

	var runStore *runstore.Store
	if cfg.RunStore.Enabled {
		runStore, err = runstore.Open(cfg.RunStore.DBPath, logger)
		if err != nil {
			return fmt.Errorf("opening run store: %w", err)
		}
		defer runStore.Close()
	}

	sampler := resourcemon.New(logger, 100*time.Millisecond)

	eng := engine.New(historyFacade, fetcher, filterEngine, engine.Options{
		MaxParallelDocumentTracks: cfg.Engine.MaxParallelDocumentTracks,
		MaxParallelRefilters:      cfg.Engine.MaxParallelRefilters,
	}, logger)

	if cfg.Notification.DiscordWebhookURL != "" {
		eng.Attach(events.NewDiscordListener(cfg.Notification.DiscordWebhookURL, &http.Client{Timeout: 10 * time.Second}, logger))
	}

	if err := eng.Init(ctx, declaration.YAMLDirectoryLoader{}, cfg.DeclarationsDir); err != nil {
		return fmt.Errorf("loading declarations: %w", err)
	}

	kind := runstore.KindTrack
	if subcommand == "refilter" {
		kind = runstore.KindRefilter
	}
	if runStore != nil {
		if err := runStore.RecordStart(runID, kind, len(serviceIDs), time.Now()); err != nil {
			logger.Warn().Err(err).Msg("failed to record batch start")
		}
	}

	var result engine.BatchResult
	var batchErr error
	switch subcommand {
	case "track":
		result, batchErr = eng.TrackChanges(ctx, serviceIDs)
	case "refilter":
		result, batchErr = eng.RefilterAndRecord(ctx, serviceIDs, overrideFilters)
	}

	sampler.LogBatchUsage(runID)

	if runStore != nil {
		outcome := runstore.Outcome{
			DocumentsProcessed:    result.DocumentsProcessed,
			DocumentsInaccessible: result.DocumentsInaccessible,
			Published:             batchErr == nil && cfg.Storage.Publish,
		}
		if batchErr != nil {
			outcome.DocumentsFailed = 1
		}
		if err := runStore.RecordCompletion(runID, time.Now(), outcome); err != nil {
			logger.Warn().Err(err).Msg("failed to record batch completion")
		}
	}

	if batchErr != nil {
		return fmt.Errorf("%s failed: %w", subcommand, batchErr)
	}

	logger.Info().
		Int("documents_processed", result.DocumentsProcessed).
		Int("documents_inaccessible", result.DocumentsInaccessible).
		Msg("batch complete")
	fmt.Printf("%s: %d processed, %d inaccessible\n", subcommand, result.DocumentsProcessed, result.DocumentsInaccessible)
	return nil
}

func fetchConfigFrom(fc config.FetchConfig) fetch.Config {
	cfg := fetch.DefaultConfig()
	if fc.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(fc.TimeoutSeconds) * time.Second
	}
	if fc.MaxRetries > 0 {
		cfg.MaxRetries = fc.MaxRetries
	}
	if fc.UserAgent != "" {
		cfg.UserAgent = fc.UserAgent
	}
	if fc.MaxContentBytes > 0 {
		cfg.MaxContentBytes = fc.MaxContentBytes
	}
	return cfg
}
