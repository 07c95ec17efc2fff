// Package analytics records page hits without keeping visitor IP addresses.
package analytics

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// RetentionMonths is how long hits are kept.
const RetentionMonths = 12

// timeLayout is the stored timestamp format. SQLite date functions accept it
// and it sorts lexically.
const timeLayout = "2006-01-02 15:04:05"

var ErrClosed = errors.New("analytics store closed")

// Hit is one recorded page view.
type Hit struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// PathCount is a path and how often it was viewed.
type PathCount struct {
	Path  string `json:"path"`
	Views int64  `json:"views"`
}

// Stats summarizes the recorded hits.
type Stats struct {
	TotalVisitors    int64       `json:"total_visitors"`
	UniqueVisitors   int64       `json:"unique_visitors"`
	VisitorsToday    int64       `json:"visitors_today"`
	VisitorsThisWeek int64       `json:"visitors_this_week"`
	TopPaths         []PathCount `json:"top_paths"`
	RecentVisitors   []Hit       `json:"recent_visitors"`
}

// Store is a SQLite-backed hit log.
type Store struct {
	db   *sql.DB
	salt string
	now  func() time.Time

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}
	// one connection keeps ":memory:" a single database and serializes writes
	db.SetMaxOpenConns(1)

	s := New(db, NewSalt())
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database. The schema is not created; use Open for that.
func New(db *sql.DB, salt string) *Store {
	return &Store{db: db, salt: salt, now: time.Now}
}

// NewSalt returns a random hex string. A fresh salt per process means hashed
// IPs cannot be joined across restarts.
func NewSalt() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatal("analytics: failed to generate salt: ", err)
	}
	return hex.EncodeToString(b)
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS visitors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hashed_ip TEXT NOT NULL,
		user_agent TEXT,
		path TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create visitors table: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS visitors_timestamp ON visitors (timestamp)`)
	if err != nil {
		return fmt.Errorf("create visitors index: %w", err)
	}
	return nil
}

// HashIP returns a salted, truncated SHA-256 of ip. It is stable for the
// life of the store.
func (s *Store) HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + s.salt))
	return hex.EncodeToString(sum[:])[:16]
}

// ShouldTrack reports whether a request for path is recorded. Static files,
// admin pages, the privacy page and the viewer API are skipped, as is any
// request sent with Do Not Track.
func ShouldTrack(path, dnt string) bool {
	if dnt == "1" {
		return false
	}
	for _, prefix := range []string{"/static/", "/images/", "/admin/", "/favicon", "/privacy", "/api/", "/thumbnails"} {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

// Record stores a hit for the given client.
func (s *Store) Record(ctx context.Context, ip, userAgent, path string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO visitors (hashed_ip, user_agent, path, timestamp) VALUES (?, ?, ?, ?)`,
		s.HashIP(ip), userAgent, path, s.now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("record hit: %w", err)
	}
	return nil
}

// RecordAsync stores a hit in the background. Errors are logged.
func (s *Store) RecordAsync(ip, userAgent, path string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		if err := s.Record(context.Background(), ip, userAgent, path); err != nil {
			log.Printf("Error recording visitor: %v", err)
		}
	}()
}

// Wait blocks until background writes finish.
func (s *Store) Wait() { s.wg.Wait() }

// Cleanup deletes hits older than the retention window and returns how many
// were removed.
func (s *Store) Cleanup(ctx context.Context) (int64, error) {
	cutoff := s.now().AddDate(0, -RetentionMonths, 0).UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM visitors WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("clean up visitors: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		log.Printf("Privacy cleanup: Removed %d visitor records older than %d months", n, RetentionMonths)
	}
	return n, nil
}

// Recent returns the latest hits, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Hit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), timestamp
		FROM visitors
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query visitors: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var ts string
		if err := rows.Scan(&h.ID, &h.HashedIP, &h.UserAgent, &h.Path, &ts); err != nil {
			return nil, fmt.Errorf("scan visitor: %w", err)
		}
		h.Timestamp = parseTimestamp(ts)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Stats summarizes the log.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	week := now.Add(-7 * 24 * time.Hour)

	stats := &Stats{}
	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.TotalVisitors, `SELECT COUNT(*) FROM visitors`, nil},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&stats.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{today.Format(timeLayout)}},
		{&stats.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{week.Format(timeLayout)}},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("count visitors: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(path, ''), COUNT(*) AS views
		FROM visitors
		GROUP BY path
		ORDER BY views DESC, path
		LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("query top paths: %w", err)
	}
	for rows.Next() {
		var pc PathCount
		if err := rows.Scan(&pc.Path, &pc.Views); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan top path: %w", err)
		}
		stats.TopPaths = append(stats.TopPaths, pc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.RecentVisitors, err = s.Recent(ctx, 50)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Close waits for background writes and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	s.mu.Unlock()

	s.wg.Wait()
	return s.db.Close()
}

func parseTimestamp(v string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
