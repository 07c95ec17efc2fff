package pdfview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strings"
)

// DefaultMaxBytes caps fetched documents at 50MB.
const DefaultMaxBytes = 50 << 20

// Loader fetches and decodes the document behind a URL.
type Loader interface {
	Load(ctx context.Context, rawURL string) (Document, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, rawURL string) (Document, error)

func (f LoaderFunc) Load(ctx context.Context, rawURL string) (Document, error) {
	return f(ctx, rawURL)
}

// FetchLoader loads site paths under StaticPrefix from Static and absolute
// http(s) URLs whose host is in AllowedHosts. With no allowed hosts every
// remote URL is refused.
type FetchLoader struct {
	Client       *http.Client
	Static       fs.FS
	StaticPrefix string // e.g. "/static/"
	AllowedHosts []string
	MaxBytes     int64
	Decode       func([]byte) (Document, error)
}

// NewFetchLoader returns a loader for the given static tree. A zero client
// timeout means a stalled fetch waits until ctx is done. Redirects are
// followed only to allowed hosts.
func NewFetchLoader(static fs.FS, staticPrefix string, client *http.Client, allowedHosts ...string) *FetchLoader {
	if client == nil {
		client = http.DefaultClient
	}
	l := &FetchLoader{
		Static:       static,
		StaticPrefix: staticPrefix,
		AllowedHosts: allowedHosts,
		MaxBytes:     DefaultMaxBytes,
		Decode:       DecodePDF,
	}
	c := *client
	c.CheckRedirect = l.checkRedirect
	l.Client = &c
	return l
}

// HostAllowed reports whether u may be fetched. An entry matches either the
// bare host name or host:port.
func (l *FetchLoader) HostAllowed(u *url.URL) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return slices.ContainsFunc(l.AllowedHosts, func(h string) bool {
		h = strings.TrimSpace(h)
		return h != "" && (strings.EqualFold(h, u.Host) || strings.EqualFold(h, u.Hostname()))
	})
}

func (l *FetchLoader) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return fmt.Errorf("%w: too many redirects", ErrFetch)
	}
	if !l.HostAllowed(req.URL) {
		return fmt.Errorf("%w: redirect to %s", ErrUnsupportedURL, req.URL.Host)
	}
	return nil
}

func (l *FetchLoader) Load(ctx context.Context, rawURL string) (Document, error) {
	data, err := l.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return l.Decode(data)
}

// Fetch returns the raw bytes behind rawURL.
func (l *FetchLoader) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	switch {
	case u.Scheme == "http" || u.Scheme == "https":
		if !l.HostAllowed(u) {
			return nil, fmt.Errorf("%w: host %s is not allowed", ErrUnsupportedURL, u.Host)
		}
		return l.fetchRemote(ctx, u.String())
	case u.Scheme == "" && u.Host == "":
		return l.readStatic(u.Path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, rawURL)
	}
}

func (l *FetchLoader) fetchRemote(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := l.Client.Do(req)
	if err != nil {
		if errors.Is(err, ErrUnsupportedURL) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, target)
		}
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrFetch, target, resp.Status)
	}
	return l.readLimited(resp.Body)
}

func (l *FetchLoader) readStatic(p string) ([]byte, error) {
	if l.Static == nil || l.StaticPrefix == "" || !strings.HasPrefix(p, l.StaticPrefix) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, p)
	}
	name := path.Clean(strings.TrimPrefix(p, l.StaticPrefix))
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, p)
	}
	f, err := l.Static.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer f.Close()
	return l.readLimited(f)
}

func (l *FetchLoader) readLimited(r io.Reader) ([]byte, error) {
	limit := l.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}
