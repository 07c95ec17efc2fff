// Package frontmatter reads the small "key: value" header that opens a blog
// post. The grammar is deliberately narrow: flat keys, one value per line,
// and a single bracketed list for tags.
package frontmatter

import (
	"log"
	"strings"
)

const delimiter = "---"

// logf reports malformed headers. Replaced in tests.
var logf = log.Printf

// Header is the parsed frontmatter of one document.
type Header struct {
	Slug    string
	Title   string
	Summary string
	Date    string

	// Tags is nil when the field is absent or malformed.
	Tags []string

	// Specialization is the singular tag some posts use instead of Tags.
	Specialization string

	// Extra keeps every other key for templates.
	Extra map[string]string
}

// HasTag reports whether the header is tagged with id, either through Tags
// or the singular specialization field.
func (h *Header) HasTag(id string) bool {
	if h.Specialization == id {
		return true
	}
	for _, t := range h.Tags {
		if t == id {
			return true
		}
	}
	return false
}

// Document is a header plus the markdown that follows it.
type Document struct {
	Header *Header // nil when the document has no valid frontmatter
	Body   string
}

// Parse splits text into header and body for the post detail view. Without
// delimiters the whole text is the body.
func Parse(text string) Document {
	raw, body, ok := split(text)
	if !ok {
		return Document{Body: text}
	}
	return Document{Header: parseHeader(raw), Body: body}
}

// ParseHeader returns the header for list views. ok is false when the text
// has no delimited header or the header lacks slug or title.
func ParseHeader(text string) (*Header, bool) {
	raw, _, ok := split(text)
	if !ok {
		return nil, false
	}
	h := parseHeader(raw)
	return h, h != nil
}

// split locates the opening marker at the very start (after leading
// whitespace) and the first "\n---" after it.
func split(text string) (header, body string, ok bool) {
	trimmed := strings.TrimLeft(text, " \t\r\n")
	if !strings.HasPrefix(trimmed, delimiter) {
		return "", "", false
	}
	end := strings.Index(trimmed[len(delimiter):], "\n"+delimiter)
	if end == -1 {
		return "", "", false
	}
	end += len(delimiter)
	header = strings.TrimSpace(trimmed[len(delimiter):end])
	rest := trimmed[end+1+len(delimiter):]
	// drop the remainder of the closing marker line
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && strings.TrimSpace(rest[:nl]) == "" {
		rest = rest[nl+1:]
	}
	body = strings.TrimLeft(rest, " \t\r\n")
	return header, body, true
}

func parseHeader(raw string) *Header {
	h := &Header{}
	for _, line := range strings.Split(raw, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = unquote(strings.TrimSpace(value))

		switch key {
		case "slug":
			h.Slug = value
		case "title":
			h.Title = value
		case "summary":
			h.Summary = value
		case "date":
			h.Date = value
		case "specialization":
			h.Specialization = value
		case "tags":
			tags, ok := parseList(value)
			if !ok {
				logf("frontmatter: ignoring malformed tags %q", value)
				continue
			}
			h.Tags = tags
		default:
			if key == "" {
				continue
			}
			if h.Extra == nil {
				h.Extra = make(map[string]string)
			}
			h.Extra[key] = value
		}
	}
	if h.Slug == "" || h.Title == "" {
		return nil
	}
	return h
}

// parseList reads "[a, 'b', "c"]". Empty elements are dropped.
func parseList(value string) ([]string, bool) {
	if len(value) < 2 || value[0] != '[' || value[len(value)-1] != ']' {
		return nil, false
	}
	inner := strings.TrimSpace(value[1 : len(value)-1])
	tags := []string{}
	if inner == "" {
		return tags, true
	}
	for _, part := range strings.Split(inner, ",") {
		item := strings.TrimSpace(unquote(strings.TrimSpace(part)))
		if item != "" {
			tags = append(tags, item)
		}
	}
	return tags, true
}

// unquote strips one layer of matching single or double quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
