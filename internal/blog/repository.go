// Package blog loads markdown posts from a content collection and answers
// the list, filter and slug queries of the blog pages.
package blog

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/nIBOP/portfolio-site/internal/frontmatter"
)

// ErrNoContent is returned when the content collection cannot be read at all.
var ErrNoContent = errors.New("blog: content collection unreadable")

// epoch is the publish time of posts without a usable date; they sort last.
var epoch = time.Unix(0, 0).UTC()

// dateLayouts are tried in order when parsing the date field.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// Post is one published document.
type Post struct {
	frontmatter.Header
	Body      string
	Published time.Time
	File      string
}

// Dated reports whether the post carried a parseable date.
func (p Post) Dated() bool {
	return !p.Published.Equal(epoch)
}

// Repository is an immutable, date-ordered set of posts.
type Repository struct {
	posts []Post
}

// Load reads every *.md file at the root of fsys. Files without valid
// frontmatter are skipped and logged.
func Load(fsys fs.FS) (*Repository, error) {
	names, err := fs.Glob(fsys, "*.md")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoContent, err)
	}
	slices.Sort(names)

	posts := make([]Post, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrNoContent, name, err)
		}
		doc := frontmatter.Parse(string(data))
		if doc.Header == nil {
			log.Printf("blog: skipping %s: no valid frontmatter", name)
			continue
		}
		posts = append(posts, Post{
			Header:    *doc.Header,
			Body:      doc.Body,
			Published: ParseDate(doc.Header.Date),
			File:      path.Base(name),
		})
	}
	return New(posts), nil
}

// New orders posts newest first. Equal dates keep their input order.
func New(posts []Post) *Repository {
	sorted := slices.Clone(posts)
	slices.SortStableFunc(sorted, func(a, b Post) int {
		return b.Published.Compare(a.Published)
	})
	return &Repository{posts: sorted}
}

// ParseDate parses an ISO-8601 date. Missing or unparseable values map to
// the Unix epoch.
func ParseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return epoch
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return epoch
}

// List returns the posts tagged with filter, or all posts when filter is empty.
func (r *Repository) List(filter string) []Post {
	if filter == "" {
		return slices.Clone(r.posts)
	}
	var out []Post
	for _, p := range r.posts {
		if p.HasTag(filter) {
			out = append(out, p)
		}
	}
	return out
}

// BySlug returns the first post with the given slug.
func (r *Repository) BySlug(slug string) (Post, bool) {
	if slug == "" {
		return Post{}, false
	}
	for _, p := range r.posts {
		if p.Slug == slug {
			return p, true
		}
	}
	return Post{}, false
}

// Tags lists every tag in use, in the order first seen.
func (r *Repository) Tags() []string {
	seen := make(map[string]bool)
	var tags []string
	add := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			tags = append(tags, t)
		}
	}
	for _, p := range r.posts {
		for _, t := range p.Tags {
			add(t)
		}
		add(p.Specialization)
	}
	return tags
}

// Len returns the number of posts.
func (r *Repository) Len() int { return len(r.posts) }
