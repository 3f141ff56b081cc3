package logging

import "github.com/rs/zerolog"

// Format selects how log lines are rendered.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Config configures a Logger. Zero value is not usable; use DefaultConfig.
type Config struct {
	Level         zerolog.Level
	Format        Format
	EnableConsole bool
	EnableFile    bool
	FilePath      string
	MaxSizeMB     int
	MaxBackups    int
	RunID         string
}

// DefaultConfig returns sane console-only defaults.
func DefaultConfig() Config {
	return Config{
		Level:         zerolog.InfoLevel,
		Format:        FormatConsole,
		EnableConsole: true,
		EnableFile:    false,
		MaxSizeMB:     50,
		MaxBackups:    5,
	}
}
