// Package config resolves server settings from defaults, environment
// variables and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
)

// Defaults.
const (
	DefaultPort            = "8080"
	DefaultDBPath          = "portfolio.db"
	DefaultStaticDir       = "static"
	DefaultAdminUsername   = "admin"
	DefaultAdminPassword   = "admin123"
	DefaultViewerIdleTTL   = 30 * time.Minute
	DefaultViewerSessions  = 64
	DefaultPDFFetchTimeout = time.Duration(0) // no timeout
	DefaultPDFMaxBytes     = 50 << 20
	DefaultSMTPHost        = "smtp.gmail.com"
	DefaultSMTPPort        = "587"
)

// ErrInvalidConfig reports a setting that parsed but cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds everything main needs to start the server.
type Config struct {
	Port    string // PORT
	GinMode string // GIN_MODE: debug, release, test

	ContentDir   string // CONTENT_DIR: markdown posts on disk ("" = embedded)
	SiteConfig   string // SITE_CONFIG: site YAML on disk ("" = embedded)
	StaticDir    string // STATIC_DIR: served under /static/
	TemplatesDir string // TEMPLATES_DIR: HTML templates on disk ("" = embedded)
	DBPath       string // DB_PATH: analytics SQLite file

	AdminUsername string // ADMIN_USERNAME
	AdminPassword string // ADMIN_PASSWORD

	ViewerIdleTTL   time.Duration // VIEWER_IDLE_TTL
	ViewerSessions  int           // VIEWER_MAX_SESSIONS: live viewer sessions
	PDFFetchTimeout time.Duration // PDF_FETCH_TIMEOUT: 0 waits as long as the client does
	PDFMaxBytes     int64         // PDF_MAX_BYTES

	// PDFAllowedHosts lists the remote hosts the viewer may fetch from
	// (PDF_ALLOWED_HOSTS, comma separated). Hosts of PDF links in the site
	// config are added at startup; everything else is refused.
	PDFAllowedHosts []string

	// Contact form delivery. The form is disabled until SMTPUser and
	// SMTPPass are set.
	SMTPHost  string // SMTP_HOST
	SMTPPort  string // SMTP_PORT
	SMTPUser  string // SMTP_USER
	SMTPPass  string // SMTP_PASS
	ContactTo string // TO_EMAIL ("" = SMTPUser)

	ListPosts bool // --list-posts: print the blog index and exit
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Port:            DefaultPort,
		StaticDir:       DefaultStaticDir,
		DBPath:          DefaultDBPath,
		AdminUsername:   DefaultAdminUsername,
		AdminPassword:   DefaultAdminPassword,
		ViewerIdleTTL:   DefaultViewerIdleTTL,
		ViewerSessions:  DefaultViewerSessions,
		PDFFetchTimeout: DefaultPDFFetchTimeout,
		PDFMaxBytes:     DefaultPDFMaxBytes,
		SMTPHost:        DefaultSMTPHost,
		SMTPPort:        DefaultSMTPPort,
	}
}

// FromEnv overlays environment variables on the defaults. Values that do
// not parse are logged and ignored.
func FromEnv(getenv func(string) string) *Config {
	cfg := Default()

	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(&cfg.Port, "PORT")
	setString(&cfg.GinMode, "GIN_MODE")
	setString(&cfg.ContentDir, "CONTENT_DIR")
	setString(&cfg.SiteConfig, "SITE_CONFIG")
	setString(&cfg.StaticDir, "STATIC_DIR")
	setString(&cfg.TemplatesDir, "TEMPLATES_DIR")
	setString(&cfg.DBPath, "DB_PATH")
	setString(&cfg.AdminUsername, "ADMIN_USERNAME")
	setString(&cfg.AdminPassword, "ADMIN_PASSWORD")
	setString(&cfg.SMTPHost, "SMTP_HOST")
	setString(&cfg.SMTPPort, "SMTP_PORT")
	setString(&cfg.SMTPUser, "SMTP_USER")
	setString(&cfg.SMTPPass, "SMTP_PASS")
	setString(&cfg.ContactTo, "TO_EMAIL")

	setDuration := func(dst *time.Duration, key string) {
		v := getenv(key)
		if v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			log.Printf("config: ignoring %s=%q: not a duration", key, v)
			return
		}
		*dst = d
	}
	setDuration(&cfg.ViewerIdleTTL, "VIEWER_IDLE_TTL")
	setDuration(&cfg.PDFFetchTimeout, "PDF_FETCH_TIMEOUT")

	if v := getenv("VIEWER_MAX_SESSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Printf("config: ignoring VIEWER_MAX_SESSIONS=%q: not a positive integer", v)
		} else {
			cfg.ViewerSessions = n
		}
	}
	if v := getenv("PDF_ALLOWED_HOSTS"); v != "" {
		cfg.PDFAllowedHosts = splitList(v)
	}

	if v := getenv("PDF_MAX_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			log.Printf("config: ignoring PDF_MAX_BYTES=%q: not a positive integer", v)
		} else {
			cfg.PDFMaxBytes = n
		}
	}
	return cfg
}

// Load resolves the configuration: flags in args override the environment,
// which overrides the defaults.
func Load(args []string, getenv func(string) string, stderr io.Writer) (*Config, error) {
	cfg := FromEnv(getenv)

	fs := flag.NewFlagSet("portfolio-site", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVarP(&cfg.Port, "port", "p", cfg.Port, "HTTP listen port")
	fs.StringVar(&cfg.GinMode, "mode", cfg.GinMode, "gin mode: debug, release, test")
	fs.StringVar(&cfg.ContentDir, "content-dir", cfg.ContentDir, "markdown posts directory (\"\" = embedded)")
	fs.StringVar(&cfg.SiteConfig, "site-config", cfg.SiteConfig, "site YAML file (\"\" = embedded)")
	fs.StringVar(&cfg.StaticDir, "static-dir", cfg.StaticDir, "static files directory")
	fs.StringVar(&cfg.TemplatesDir, "templates-dir", cfg.TemplatesDir, "HTML templates directory (\"\" = embedded)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "analytics database path")
	fs.DurationVar(&cfg.ViewerIdleTTL, "viewer-idle-ttl", cfg.ViewerIdleTTL, "close PDF viewer sessions idle for this long")
	fs.IntVar(&cfg.ViewerSessions, "viewer-max-sessions", cfg.ViewerSessions, "most PDF viewer sessions open at once")
	fs.StringSliceVar(&cfg.PDFAllowedHosts, "pdf-allowed-hosts", cfg.PDFAllowedHosts, "remote hosts PDFs may be fetched from")
	fs.DurationVar(&cfg.PDFFetchTimeout, "pdf-fetch-timeout", cfg.PDFFetchTimeout, "remote PDF fetch timeout (0 = none)")
	fs.Int64Var(&cfg.PDFMaxBytes, "pdf-max-bytes", cfg.PDFMaxBytes, "largest PDF the viewer will load")
	fs.BoolVar(&cfg.ListPosts, "list-posts", false, "print the blog index and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments %v", ErrInvalidConfig, fs.Args())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values flags can set to nonsense.
func (c *Config) Validate() error {
	if _, err := strconv.ParseUint(c.Port, 10, 16); err != nil {
		return fmt.Errorf("%w: port %q", ErrInvalidConfig, c.Port)
	}
	switch c.GinMode {
	case "", "debug", "release", "test":
	default:
		return fmt.Errorf("%w: gin mode %q", ErrInvalidConfig, c.GinMode)
	}
	if c.ViewerIdleTTL <= 0 {
		return fmt.Errorf("%w: viewer idle TTL must be positive", ErrInvalidConfig)
	}
	if c.ViewerSessions <= 0 {
		return fmt.Errorf("%w: viewer session limit must be positive", ErrInvalidConfig)
	}
	for _, h := range c.PDFAllowedHosts {
		if h == "" || strings.ContainsAny(h, "/ ") {
			return fmt.Errorf("%w: allowed PDF host %q", ErrInvalidConfig, h)
		}
	}
	if c.PDFFetchTimeout < 0 {
		return fmt.Errorf("%w: negative PDF fetch timeout", ErrInvalidConfig)
	}
	if c.PDFMaxBytes <= 0 {
		return fmt.Errorf("%w: PDF size limit must be positive", ErrInvalidConfig)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Addr is the listen address.
func (c *Config) Addr() string { return ":" + c.Port }

// ContactEnabled reports whether SMTP credentials are configured.
func (c *Config) ContactEnabled() bool {
	return c.SMTPUser != "" && c.SMTPPass != ""
}

// ContactRecipient is where contact form messages are sent.
func (c *Config) ContactRecipient() string {
	if c.ContactTo != "" {
		return c.ContactTo
	}
	return c.SMTPUser
}

// DefaultAdmin reports whether the built-in admin credentials are in use.
func (c *Config) DefaultAdmin() bool {
	return c.AdminUsername == DefaultAdminUsername || c.AdminPassword == DefaultAdminPassword
}
