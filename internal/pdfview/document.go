package pdfview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
	ledongthuc "github.com/ledongthuc/pdf"
	"seehuhn.de/go/pdf"
)

// Document is a decoded PDF. Page numbers are 1-based.
type Document interface {
	NumPages() int
	PageSize(page int) (Size, error)
	Render(ctx context.Context, page int, scale float64) (image.Image, error)
	Close() error
}

// DocumentInfo is metadata shown in the viewer toolbar.
type DocumentInfo struct {
	Title   string `json:"title,omitempty"`
	Author  string `json:"author,omitempty"`
	Version string `json:"version,omitempty"`
}

// Describer is implemented by documents that expose metadata.
type Describer interface {
	Info() DocumentInfo
}

// TextSource is implemented by documents with an extractable text layer.
type TextSource interface {
	PageText(page int) (string, error)
}

// fitzDocument rasterizes with MuPDF, reads metadata with seehuhn.de/go/pdf
// and extracts text with ledongthuc/pdf. The raw bytes are kept for the
// latter two.
type fitzDocument struct {
	doc  *fitz.Document
	data []byte
	info DocumentInfo
}

// DecodePDF decodes an in-memory PDF file.
func DecodePDF(data []byte) (Document, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data[:min(len(data), 1024)], "\x00\t\r\n "), []byte("%PDF-")) {
		return nil, ErrNotPDF
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	if doc.NumPage() < 1 {
		doc.Close()
		return nil, ErrNoPages
	}
	return &fitzDocument{doc: doc, data: data, info: readInfo(data)}, nil
}

func (d *fitzDocument) NumPages() int { return d.doc.NumPage() }

func (d *fitzDocument) PageSize(page int) (Size, error) {
	if page < 1 || page > d.doc.NumPage() {
		return Size{}, fmt.Errorf("%w: %d", ErrPageOutOfRange, page)
	}
	rect, err := d.doc.Bound(page - 1)
	if err != nil {
		return Size{}, err
	}
	return Size{Width: float64(rect.Dx()), Height: float64(rect.Dy())}, nil
}

// Render rasterizes at 72*scale DPI. MuPDF has no cancel hook; ctx is only
// checked before starting.
func (d *fitzDocument) Render(ctx context.Context, page int, scale float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := d.doc.ImageDPI(page-1, 72*scale)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (d *fitzDocument) Info() DocumentInfo { return d.info }

func (d *fitzDocument) PageText(page int) (text string, err error) {
	// ledongthuc/pdf panics on some malformed files
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrNoText, p)
		}
	}()

	r, err := ledongthuc.NewReader(bytes.NewReader(d.data), int64(len(d.data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoText, err)
	}
	if page < 1 || page > r.NumPage() {
		return "", fmt.Errorf("%w: %d", ErrPageOutOfRange, page)
	}
	p := r.Page(page)
	if p.V.IsNull() {
		return "", ErrNoText
	}
	text, err = p.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoText, err)
	}
	return strings.TrimSpace(text), nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}

// readInfo pulls the document information dictionary. Metadata is optional,
// so any failure yields an empty DocumentInfo.
func readInfo(data []byte) DocumentInfo {
	r, err := pdf.NewReader(bytes.NewReader(data), nil)
	if err != nil {
		return DocumentInfo{}
	}
	defer r.Close()

	meta := r.GetMeta()
	if meta == nil {
		return DocumentInfo{}
	}
	info := DocumentInfo{Version: meta.Version.String()}
	if meta.Info != nil {
		info.Title = string(meta.Info.Title)
		info.Author = string(meta.Info.Author)
	}
	return info
}

// handle shares a document between the viewer and in-flight renders. The
// document is closed once it has been released and the last render is done.
type handle struct {
	doc Document

	mu      sync.Mutex
	refs    int
	closing bool
	closed  bool
}

func newHandle(doc Document) *handle {
	return &handle{doc: doc}
}

func (h *handle) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.refs++
	return true
}

func (h *handle) release() {
	h.mu.Lock()
	h.refs--
	shouldClose := h.closing && h.refs == 0 && !h.closed
	if shouldClose {
		h.closed = true
	}
	h.mu.Unlock()
	if shouldClose {
		h.doc.Close()
	}
}

// close marks the handle for release and closes the document right away
// when no render holds it.
func (h *handle) close() {
	h.mu.Lock()
	h.closing = true
	shouldClose := h.refs == 0 && !h.closed
	if shouldClose {
		h.closed = true
	}
	h.mu.Unlock()
	if shouldClose {
		h.doc.Close()
	}
}
