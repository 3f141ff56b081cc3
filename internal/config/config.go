// Package config holds the on-disk configuration shape, its defaults, and
// its validation rules. Resolved exactly once at startup; the engine itself
// never sees this struct, only the already-narrowed history.Options and
// engine.Options built from it. Grounded on the teacher's
// internal/config.GlobalConfig (one struct-of-structs aggregating every
// subsystem's config, DefaultXxx constants, YAML tags throughout).
package config

import "time"

const (
	DefaultMaxParallelDocumentTracks = 20
	DefaultMaxParallelRefilters      = 20

	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultMaxLogSizeMB  = 100
	DefaultMaxLogBackups = 5

	DefaultFetchTimeout     = 30 * time.Second
	DefaultFetchMaxRetries  = 3
	DefaultFetchUserAgent   = "doctrack/1.0"
	DefaultResourceCPUWindow = 100 * time.Millisecond
)

// StorageConfig locates the two git-backed repositories the history facade
// writes into, plus optional push configuration.
type StorageConfig struct {
	SnapshotsRepoPath string `yaml:"snapshotsRepoPath" validate:"required,dirpath"`
	VersionsRepoPath  string `yaml:"versionsRepoPath" validate:"required,dirpath"`
	SnapshotsBaseURL  string `yaml:"snapshotsBaseURL" validate:"omitempty,url"`
	Publish           bool   `yaml:"publish"`
}

// LogConfig configures internal/logging.
type LogConfig struct {
	Level      string `yaml:"level" validate:"omitempty,loglevel"`
	Format     string `yaml:"format" validate:"omitempty,logformat"`
	FilePath   string `yaml:"filePath"`
	MaxSizeMB  int    `yaml:"maxSizeMB" validate:"omitempty,gt=0"`
	MaxBackups int    `yaml:"maxBackups" validate:"omitempty,gte=0"`
}

// FetchConfig configures internal/fetch.HTTPFetcher.
type FetchConfig struct {
	TimeoutSeconds  int    `yaml:"timeoutSeconds" validate:"omitempty,gt=0"`
	MaxRetries      int    `yaml:"maxRetries" validate:"omitempty,gte=0"`
	UserAgent       string `yaml:"userAgent"`
	MaxContentBytes int64  `yaml:"maxContentBytes" validate:"omitempty,gt=0"`
}

// EngineConfig configures internal/engine's concurrency caps.
type EngineConfig struct {
	MaxParallelDocumentTracks int `yaml:"maxParallelDocumentTracks" validate:"omitempty,gt=0"`
	MaxParallelRefilters      int `yaml:"maxParallelRefilters" validate:"omitempty,gt=0"`
}

// NotificationConfig configures the sample Discord listener.
type NotificationConfig struct {
	DiscordWebhookURL string `yaml:"discordWebhookURL" validate:"omitempty,url"`
}

// CommitIndexConfig configures internal/commitindex.
type CommitIndexConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseDir string `yaml:"baseDir" validate:"required_if=Enabled true"`
}

// RunStoreConfig configures internal/runstore.
type RunStoreConfig struct {
	Enabled    bool   `yaml:"enabled"`
	DBPath     string `yaml:"dbPath" validate:"required_if=Enabled true"`
}

// Config is the root configuration document, resolved once at startup.
type Config struct {
	DeclarationsDir string              `yaml:"declarationsDir" validate:"required,dirpath"`
	Storage         StorageConfig       `yaml:"storage" validate:"required"`
	Log             LogConfig           `yaml:"log"`
	Fetch           FetchConfig         `yaml:"fetch"`
	Engine          EngineConfig        `yaml:"engine"`
	Notification    NotificationConfig  `yaml:"notification"`
	CommitIndex     CommitIndexConfig   `yaml:"commitIndex"`
	RunStore        RunStoreConfig      `yaml:"runStore"`
}

// Default returns a Config with every optional field set to its documented
// default; callers still must supply DeclarationsDir and Storage paths.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:      DefaultLogLevel,
			Format:     DefaultLogFormat,
			MaxSizeMB:  DefaultMaxLogSizeMB,
			MaxBackups: DefaultMaxLogBackups,
		},
		Fetch: FetchConfig{
			TimeoutSeconds: int(DefaultFetchTimeout.Seconds()),
			MaxRetries:     DefaultFetchMaxRetries,
			UserAgent:      DefaultFetchUserAgent,
		},
		Engine: EngineConfig{
			MaxParallelDocumentTracks: DefaultMaxParallelDocumentTracks,
			MaxParallelRefilters:      DefaultMaxParallelRefilters,
		},
	}
}
