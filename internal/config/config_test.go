package config

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

// ---------------------------------------------------------------------------
// FromEnv
// ---------------------------------------------------------------------------

func TestFromEnv_Defaults(t *testing.T) {
	t.Parallel()

	got := FromEnv(envMap(nil))
	if diff := cmp.Diff(Default(), got); diff != "" {
		t.Errorf("FromEnv(empty) mismatch (-want +got):\n%s", diff)
	}
	if !got.DefaultAdmin() {
		t.Error("DefaultAdmin() = false with built-in credentials")
	}
	if got.ContactEnabled() {
		t.Error("ContactEnabled() = true without SMTP credentials")
	}
}

func TestContactRecipient(t *testing.T) {
	t.Parallel()

	cfg := FromEnv(envMap(map[string]string{"SMTP_USER": "me@example.com", "SMTP_PASS": "pw"}))
	if !cfg.ContactEnabled() {
		t.Fatal("ContactEnabled() = false")
	}
	if got := cfg.ContactRecipient(); got != "me@example.com" {
		t.Errorf("ContactRecipient() = %q, want the SMTP user", got)
	}
	cfg.ContactTo = "inbox@example.com"
	if got := cfg.ContactRecipient(); got != "inbox@example.com" {
		t.Errorf("ContactRecipient() = %q, want TO_EMAIL", got)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Parallel()

	got := FromEnv(envMap(map[string]string{
		"PORT":              "9000",
		"GIN_MODE":          "release",
		"CONTENT_DIR":       "/srv/posts",
		"DB_PATH":           "/var/lib/site.db",
		"ADMIN_USERNAME":    "owner",
		"ADMIN_PASSWORD":    "s3cret",
		"VIEWER_IDLE_TTL":   "5m",
		"PDF_FETCH_TIMEOUT": "20s",
		"PDF_MAX_BYTES":     "1048576",

		"VIEWER_MAX_SESSIONS": "8",
		"PDF_ALLOWED_HOSTS":   " raw.githubusercontent.com, ,github.com ",
	}))

	want := Default()
	want.Port = "9000"
	want.GinMode = "release"
	want.ContentDir = "/srv/posts"
	want.DBPath = "/var/lib/site.db"
	want.AdminUsername = "owner"
	want.AdminPassword = "s3cret"
	want.ViewerIdleTTL = 5 * time.Minute
	want.PDFFetchTimeout = 20 * time.Second
	want.PDFMaxBytes = 1 << 20
	want.ViewerSessions = 8
	want.PDFAllowedHosts = []string{"raw.githubusercontent.com", "github.com"}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromEnv mismatch (-want +got):\n%s", diff)
	}
	if got.DefaultAdmin() {
		t.Error("DefaultAdmin() = true with custom credentials")
	}
}

func TestFromEnv_IgnoresMalformed(t *testing.T) {
	t.Parallel()

	got := FromEnv(envMap(map[string]string{
		"VIEWER_IDLE_TTL":   "soon",
		"PDF_FETCH_TIMEOUT": "-1s",
		"PDF_MAX_BYTES":     "lots",

		"VIEWER_MAX_SESSIONS": "-3",
	}))
	if got.ViewerIdleTTL != DefaultViewerIdleTTL || got.PDFFetchTimeout != 0 || got.PDFMaxBytes != DefaultPDFMaxBytes ||
		got.ViewerSessions != DefaultViewerSessions {
		t.Errorf("malformed env changed config: %+v", got)
	}
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

func TestLoad_AllowedHostsFlagReplacesEnv(t *testing.T) {
	t.Parallel()

	env := envMap(map[string]string{"PDF_ALLOWED_HOSTS": "env.example.com"})
	got, err := Load([]string{"--pdf-allowed-hosts", "a.example.com,b.example.com"}, env, io.Discard)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := []string{"a.example.com", "b.example.com"}
	if diff := cmp.Diff(want, got.PDFAllowedHosts); diff != "" {
		t.Errorf("PDFAllowedHosts mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Parallel()

	env := envMap(map[string]string{"PORT": "9000", "DB_PATH": "env.db"})
	got, err := Load([]string{"-p", "7000", "--list-posts", "--viewer-idle-ttl", "1h"}, env, io.Discard)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.Port != "7000" || got.DBPath != "env.db" || !got.ListPosts || got.ViewerIdleTTL != time.Hour {
		t.Errorf("Load() = %+v", got)
	}
	if got.Addr() != ":7000" {
		t.Errorf("Addr() = %q", got.Addr())
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantCfg bool
	}{
		{"unknown flag", []string{"--nope"}, false},
		{"bad port", []string{"--port", "http"}, true},
		{"bad mode", []string{"--mode", "turbo"}, true},
		{"zero ttl", []string{"--viewer-idle-ttl", "0s"}, true},
		{"zero max bytes", []string{"--pdf-max-bytes", "0"}, true},
		{"zero sessions", []string{"--viewer-max-sessions", "0"}, true},
		{"host with path", []string{"--pdf-allowed-hosts", "example.com/pdfs"}, true},
		{"positional", []string{"extra"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(tt.args, envMap(nil), io.Discard)
			if err == nil {
				t.Fatal("Load() error = nil")
			}
			if tt.wantCfg && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Load() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
