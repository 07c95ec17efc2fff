package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nIBOP/portfolio-site/internal/blog"
	"github.com/nIBOP/portfolio-site/internal/config"
)

func TestListPosts(t *testing.T) {
	t.Parallel()

	siteCfg, posts, err := loadContent(config.Default())
	if err != nil {
		t.Fatalf("loadContent() error: %v", err)
	}

	var buf bytes.Buffer
	if err := listPosts(&buf, posts.List(""), siteCfg, 50); err != nil {
		t.Fatalf("listPosts() error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"2024-11-02  bi-dashboard  Automated Power BI report\n",
		"    [Data analytics, Development, BI analyst]\n",
		"2023-12-20  monitoring  Regional transport infrastructure load monitoring\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
	for i, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "    ") && !strings.HasPrefix(line, "    [") && len(line) > 50 {
			t.Errorf("summary line %d is %d wide, want at most 50: %q", i, len(line), line)
		}
	}
}

func TestListPosts_UndatedAndEmpty(t *testing.T) {
	t.Parallel()

	siteCfg, _, err := loadContent(config.Default())
	if err != nil {
		t.Fatalf("loadContent() error: %v", err)
	}

	var buf bytes.Buffer
	listPosts(&buf, nil, siteCfg, 80)
	if got := buf.String(); got != noPostsMessage+"\n" {
		t.Errorf("empty listing = %q", got)
	}

	buf.Reset()
	p := blog.Post{Published: blog.ParseDate("")}
	p.Slug, p.Title = "draft", "Draft"
	listPosts(&buf, []blog.Post{p}, siteCfg, 10)
	if got := buf.String(); !strings.HasPrefix(got, "----------  draft  Draft\n") {
		t.Errorf("undated listing = %q", got)
	}
}
