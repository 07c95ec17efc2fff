package pdfview

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"
)

// fakeDoc is an in-memory Document. Like MuPDF it ignores ctx while
// rendering, so cancellation can only drop results.
type fakeDoc struct {
	sizes []Size

	// started receives the page number when Render begins, if non-nil.
	started chan int
	// block holds Render until closed, if non-nil.
	block chan struct{}

	mu      sync.Mutex
	closed  int
	renders []float64
}

func newFakeDoc(pages int, w, h float64) *fakeDoc {
	sizes := make([]Size, pages)
	for i := range sizes {
		sizes[i] = Size{Width: w, Height: h}
	}
	return &fakeDoc{sizes: sizes}
}

func (d *fakeDoc) NumPages() int { return len(d.sizes) }

func (d *fakeDoc) PageSize(page int) (Size, error) {
	if page < 1 || page > len(d.sizes) {
		return Size{}, ErrPageOutOfRange
	}
	return d.sizes[page-1], nil
}

func (d *fakeDoc) Render(_ context.Context, page int, scale float64) (image.Image, error) {
	if d.started != nil {
		d.started <- page
	}
	if d.block != nil {
		<-d.block
	}
	d.mu.Lock()
	d.renders = append(d.renders, scale)
	d.mu.Unlock()

	s := d.sizes[page-1].Scaled(scale)
	img := image.NewRGBA(image.Rect(0, 0, int(s.Width), int(s.Height)))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	return img, nil
}

func (d *fakeDoc) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

func (d *fakeDoc) Info() DocumentInfo { return DocumentInfo{Title: "Resume"} }

func (d *fakeDoc) closeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func staticLoader(doc Document) Loader {
	return LoaderFunc(func(context.Context, string) (Document, error) {
		return doc, nil
	})
}

// readyViewer opens doc in a viewer whose page column is width pixels wide.
func readyViewer(t *testing.T, doc Document, width float64) *Viewer {
	t.Helper()
	v := NewViewer(staticLoader(doc))
	v.Resize(width)
	waitDone(t, v.Open(context.Background(), "/static/doc.pdf"))
	if got := v.State(); got != StateReady {
		t.Fatalf("State() = %v, want ready (err %v)", got, v.Err())
	}
	return v
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Wait(ctx, done); err != nil {
		t.Fatalf("load did not finish: %v", err)
	}
}

func near(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
