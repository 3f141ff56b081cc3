package fetch

import "time"

// Config configures an HTTPFetcher, mirroring the teacher's
// HTTPClientConfig fields this domain actually needs.
type Config struct {
	Timeout             time.Duration
	DialTimeout         time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	FollowRedirects     bool
	MaxRedirects        int
	UserAgent           string
	MaxContentBytes     int64 // 0 means no limit
	InsecureSkipVerify  bool

	MaxRetries   int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	EnableJitter bool
}

// DefaultConfig mirrors the teacher's DefaultHTTPClientConfig defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:             30 * time.Second,
		DialTimeout:         10 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     0,
		IdleConnTimeout:     90 * time.Second,
		FollowRedirects:     true,
		MaxRedirects:        10,
		UserAgent:           "doctrack/1.0",
		MaxContentBytes:     50 << 20,
		MaxRetries:          3,
		BaseDelay:           500 * time.Millisecond,
		MaxDelay:            10 * time.Second,
		EnableJitter:        true,
	}
}
