package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/term"

	"github.com/nIBOP/portfolio-site/internal/blog"
	"github.com/nIBOP/portfolio-site/internal/site"
)

const (
	defaultListWidth = 80
	minListWidth     = 40
	summaryIndent    = 4
)

// terminalWidth returns the width of stdout, COLUMNS, or a default.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			return w
		}
	}
	if v := os.Getenv("COLUMNS"); v != "" {
		if w, err := strconv.Atoi(v); err == nil && w > 0 {
			return w
		}
	}
	return defaultListWidth
}

// listPosts prints the blog index: date, slug and title on one line, the
// tags and a wrapped summary below.
func listPosts(w io.Writer, posts []blog.Post, siteCfg *site.Config, width int) error {
	width = max(width, minListWidth)
	bw := bufio.NewWriter(w)

	if len(posts) == 0 {
		fmt.Fprintln(bw, noPostsMessage)
		return bw.Flush()
	}

	for i, p := range posts {
		if i > 0 {
			fmt.Fprintln(bw)
		}
		date := "----------"
		if p.Dated() {
			date = p.Published.Format("2006-01-02")
		}
		fmt.Fprintf(bw, "%s  %s  %s\n", date, p.Slug, p.Title)

		var labels []string
		for _, id := range p.Tags {
			labels = append(labels, siteCfg.TagDisplayName(id))
		}
		if p.Specialization != "" {
			if spec, ok := siteCfg.ByID(p.Specialization); ok {
				labels = append(labels, spec.DisplayName)
			} else {
				labels = append(labels, p.Specialization)
			}
		}
		if len(labels) > 0 {
			fmt.Fprintln(bw, indent.String("["+strings.Join(labels, ", ")+"]", summaryIndent))
		}
		if p.Summary != "" {
			wrapped := wordwrap.String(p.Summary, width-summaryIndent)
			fmt.Fprintln(bw, indent.String(wrapped, summaryIndent))
		}
	}
	return bw.Flush()
}
