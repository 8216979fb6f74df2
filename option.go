package chump

import (
	"log/slog"
	"net/http"
	"time"
)

// DefaultBaseURL is the Pushover API root every request path is resolved against.
const DefaultBaseURL = "https://api.pushover.net/1/"

const defaultTimeout = 30 * time.Second

type Config struct {
	BaseURL    string
	UserAgent  string
	HttpClient *http.Client
	Logger     *slog.Logger
	Limits     Limits
	Clock      func() time.Time
}

type Option func(*Config)

func WithBaseURL(baseURL string) Option {
	return func(c *Config) {
		c.BaseURL = baseURL
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Config) {
		c.UserAgent = userAgent
	}
}

func WithHttpClient(httpClient *http.Client) Option {
	return func(c *Config) {
		c.HttpClient = httpClient
	}
}

// WithLogger routes request/response debug lines to logger. The app token is never logged.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithLimits overrides the provider bounds used for local message validation.
func WithLimits(limits Limits) Option {
	return func(c *Config) {
		c.Limits = limits
	}
}

func WithClock(clock func() time.Time) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

func withDefaults(c *Config) {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.BaseURL[len(c.BaseURL)-1] != '/' {
		c.BaseURL += "/"
	}
	if c.UserAgent == "" {
		c.UserAgent = "chump/" + Version
	}
	if c.HttpClient == nil {
		c.HttpClient = &http.Client{Timeout: defaultTimeout}
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.Limits == (Limits{}) {
		c.Limits = DefaultLimits()
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}
