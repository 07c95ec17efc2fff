// Package site holds the static description of the portfolio: the owner's
// profile, the specializations with their resumes and project cards, and
// the display names of blog tags.
package site

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/nIBOP/portfolio-site/internal/yamlutil"
)

// Sentinel errors for site configuration.
var (
	ErrConfigNotFound = errors.New("site config not found")
	ErrConfigParse    = errors.New("failed to parse site config")
	ErrInvalidConfig  = errors.New("invalid site config")
)

// Field length limits.
const (
	MaxIDLength          = 40
	MaxNameLength        = 100
	MaxURLLength         = 2048
	MaxDescriptionLength = 1000
)

// Config is the whole site file.
type Config struct {
	Profile         Profile          `yaml:"profile"`
	Specializations []Specialization `yaml:"specializations"`
	Tags            []Tag            `yaml:"tags"`
	Timeline        []Event          `yaml:"timeline"`
	Skills          []Skill          `yaml:"skills"`
}

// Profile is the hero section.
type Profile struct {
	Name     string `yaml:"name"`
	Headline string `yaml:"headline"`
	Bio      string `yaml:"bio"`
	Avatar   string `yaml:"avatar"`
}

// Specialization is one role the owner applies for.
type Specialization struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	DisplayName string    `yaml:"displayName"`
	ResumeURL   string    `yaml:"resumeUrl"`
	Projects    []Project `yaml:"projects"`
}

// Project is a card shown under a specialization.
type Project struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Href        string `yaml:"href"`
	Image       string `yaml:"image"`
	PDFURL      string `yaml:"pdfUrl"`
	BlogSlug    string `yaml:"blogSlug"`
}

// BlogLink is where the card's "read more" link points: the post when the
// project has one, the blog index otherwise.
func (p Project) BlogLink() string {
	if p.BlogSlug != "" {
		return "/blog/" + p.BlogSlug
	}
	return "/blog?from=home"
}

// Tag is a blog filter value with its label.
type Tag struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"displayName"`
}

// Event is a career timeline entry.
type Event struct {
	Date        string `yaml:"date"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// Skill is a technology badge. Without an icon the badge shows Abbrev.
type Skill struct {
	Name string `yaml:"name"`
	Icon string `yaml:"icon"`
}

// Abbrev returns names of up to three characters unchanged, and the first
// three characters upper-cased otherwise.
func (s Skill) Abbrev() string {
	r := []rune(s.Name)
	if len(r) <= 3 {
		return s.Name
	}
	return strings.ToUpper(string(r[:3]))
}

// Parse decodes and validates a site file.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile reads a site file from disk.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	return Parse(data)
}

// Validate rejects empty or duplicate ids and over-long fields.
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for i, s := range c.Specializations {
		field := fmt.Sprintf("specializations[%d]", i)
		if s.ID == "" {
			return fmt.Errorf("%w: %s.id is empty", ErrInvalidConfig, field)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate specialization id %q", ErrInvalidConfig, s.ID)
		}
		seen[s.ID] = true
		if err := checkLength(field+".id", s.ID, MaxIDLength); err != nil {
			return err
		}
		if err := checkLength(field+".displayName", s.DisplayName, MaxNameLength); err != nil {
			return err
		}
		if err := checkLength(field+".resumeUrl", s.ResumeURL, MaxURLLength); err != nil {
			return err
		}
		for j, p := range s.Projects {
			pf := fmt.Sprintf("%s.projects[%d]", field, j)
			if p.Title == "" {
				return fmt.Errorf("%w: %s.title is empty", ErrInvalidConfig, pf)
			}
			if err := checkLength(pf+".description", p.Description, MaxDescriptionLength); err != nil {
				return err
			}
			if err := checkLength(pf+".pdfUrl", p.PDFURL, MaxURLLength); err != nil {
				return err
			}
		}
	}

	tags := make(map[string]bool)
	for i, t := range c.Tags {
		if t.ID == "" {
			return fmt.Errorf("%w: tags[%d].id is empty", ErrInvalidConfig, i)
		}
		if tags[t.ID] {
			return fmt.Errorf("%w: duplicate tag id %q", ErrInvalidConfig, t.ID)
		}
		tags[t.ID] = true
	}
	return nil
}

func checkLength(field, value string, limit int) error {
	if len(value) > limit {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrInvalidConfig, field, len(value), limit)
	}
	return nil
}

// DocumentHosts returns the hosts of the absolute http(s) resume and
// project PDF links, in first-seen order.
func (c *Config) DocumentHosts() []string {
	var hosts []string
	add := func(raw string) {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return
		}
		if !slices.Contains(hosts, u.Host) {
			hosts = append(hosts, u.Host)
		}
	}
	for _, s := range c.Specializations {
		add(s.ResumeURL)
		for _, p := range s.Projects {
			add(p.PDFURL)
		}
	}
	return hosts
}

// ByID returns the specialization with the given id.
func (c *Config) ByID(id string) (Specialization, bool) {
	for _, s := range c.Specializations {
		if s.ID == id {
			return s, true
		}
	}
	return Specialization{}, false
}

// TagDisplayName returns the label of a blog tag, or the id itself when the
// tag is not configured.
func (c *Config) TagDisplayName(id string) string {
	for _, t := range c.Tags {
		if t.ID == id {
			return t.DisplayName
		}
	}
	return id
}
