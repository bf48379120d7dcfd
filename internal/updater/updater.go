package updater

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/otc-labs/otc/internal/branding"
)

const (
	// DefaultCheckTimeout bounds the manifest fetch.
	DefaultCheckTimeout = 6 * time.Second
	// DefaultDownloadTimeout bounds the artifact download.
	DefaultDownloadTimeout = 30 * time.Second
)

// Config carries everything the update engine needs. It is assembled once at
// process start and passed in explicitly; the package holds no mutable
// process-wide state.
type Config struct {
	// CurrentVersion is the version of the running binary.
	CurrentVersion string
	// ManifestURL is the update descriptor endpoint.
	ManifestURL string
	// AutoApply skips the decision prompt when a download URL is present.
	AutoApply bool

	CheckTimeout    time.Duration
	DownloadTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ManifestURL == "" {
		c.ManifestURL = branding.UpdateURL()
	}
	if c.CheckTimeout <= 0 {
		c.CheckTimeout = DefaultCheckTimeout
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = DefaultDownloadTimeout
	}
	return c
}

// Updater provides self-update functionality.
type Updater struct {
	cfg        Config
	httpClient *http.Client
	userAgent  string
	log        *logrus.Logger
	inv        Invocation
	restart    func(Invocation) error
}

// Option configures an Updater.
type Option func(*Updater)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(u *Updater) {
		u.httpClient = c
	}
}

// WithLogger sets the logger used for best-effort diagnostics.
func WithLogger(log *logrus.Logger) Option {
	return func(u *Updater) {
		u.log = log
	}
}

// WithInvocation overrides the re-exec invocation captured at construction.
func WithInvocation(inv Invocation) Option {
	return func(u *Updater) {
		u.inv = inv
	}
}

// WithRestartFunc overrides the process restarter (useful for testing).
func WithRestartFunc(fn func(Invocation) error) Option {
	return func(u *Updater) {
		u.restart = fn
	}
}

// New creates an Updater with the given configuration and options.
func New(cfg Config, opts ...Option) *Updater {
	u := &Updater{
		cfg:        cfg.withDefaults(),
		httpClient: http.DefaultClient,
		userAgent:  branding.UserAgent(),
		log:        logrus.StandardLogger(),
		inv:        CaptureInvocation(),
		restart:    Restart,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Config returns the configuration this updater was created with.
func (u *Updater) Config() Config {
	return u.cfg
}
