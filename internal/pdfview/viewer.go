package pdfview

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// State is the lifecycle of a viewer.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText lets State appear as a string in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// slot is the display position of one page.
type slot struct {
	seq     uint64
	cancel  context.CancelFunc
	surface *Surface
	draws   int
}

// stop cancels the live render and drops the surface.
func (s *slot) stop() {
	s.seq++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.surface = nil
}

// Viewer shows one document at a time.
type Viewer struct {
	loader Loader

	mu         sync.Mutex
	state      State
	url        string
	loadErr    error
	gen        uint64
	cancelLoad context.CancelFunc
	doc        *handle
	sizes      []Size
	slots      []*slot
	scale      ScaleState
	width      float64
}

// NewViewer returns an idle viewer at scale 1.
func NewViewer(loader Loader) *Viewer {
	return &Viewer{
		loader: loader,
		scale:  ScaleState{Current: 1},
	}
}

// Open replaces the current document with the one at rawURL. The previous
// document is released immediately; the new one loads in the background.
// The returned channel is closed when the viewer reaches Ready or Error.
// ctx bounds the load.
func (v *Viewer) Open(ctx context.Context, rawURL string) <-chan struct{} {
	v.mu.Lock()
	v.releaseLocked()
	v.gen++
	gen := v.gen
	loadCtx, cancel := context.WithCancel(ctx)
	v.cancelLoad = cancel
	v.state = StateLoading
	v.url = rawURL
	v.loadErr = nil
	v.mu.Unlock()

	done := make(chan struct{})
	go v.load(loadCtx, gen, rawURL, done)
	return done
}

func (v *Viewer) load(ctx context.Context, gen uint64, rawURL string, done chan struct{}) {
	defer close(done)

	doc, sizes, err := v.fetch(ctx, rawURL)

	v.mu.Lock()
	defer v.mu.Unlock()

	if gen != v.gen {
		// a newer Open or Close took over
		if doc != nil {
			doc.Close()
		}
		return
	}
	v.cancelLoad = nil
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if doc != nil {
			doc.Close()
		}
		log.Printf("pdfview: load %s: %v", rawURL, err)
		v.state = StateError
		v.loadErr = fmt.Errorf("%w: %v", ErrLoad, err)
		return
	}

	v.doc = newHandle(doc)
	v.sizes = sizes
	v.slots = make([]*slot, len(sizes))
	for i := range v.slots {
		v.slots[i] = &slot{}
	}
	// renders are refused until the fit is in place
	v.scale.applyFit(Fit(v.width, sizes[0].Width))
	v.state = StateReady
}

// fetch loads the document and reads every page's native size.
func (v *Viewer) fetch(ctx context.Context, rawURL string) (Document, []Size, error) {
	doc, err := v.loader.Load(ctx, rawURL)
	if err != nil {
		return nil, nil, err
	}
	n := doc.NumPages()
	if n < 1 {
		return doc, nil, ErrNoPages
	}
	sizes := make([]Size, n)
	for i := range sizes {
		if err := ctx.Err(); err != nil {
			return doc, nil, err
		}
		s, err := doc.PageSize(i + 1)
		if err != nil {
			return doc, nil, err
		}
		sizes[i] = s
	}
	return doc, sizes, nil
}

// releaseLocked cancels the load and every render and releases the document.
func (v *Viewer) releaseLocked() {
	if v.cancelLoad != nil {
		v.cancelLoad()
		v.cancelLoad = nil
	}
	for _, s := range v.slots {
		s.stop()
	}
	v.slots = nil
	v.sizes = nil
	if v.doc != nil {
		v.doc.close()
		v.doc = nil
	}
}

// Close releases the document and returns the viewer to Idle.
func (v *Viewer) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	v.releaseLocked()
	v.state = StateIdle
	v.url = ""
	v.loadErr = nil
	return nil
}

// Resize records the width of the page column and re-fits the zoom when the
// user has not moved away from the fitted value. It reports whether the
// scale changed.
func (v *Viewer) Resize(width float64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.width = max(0, width)
	if v.state != StateReady {
		return false
	}
	before := v.scale.Current
	if !v.scale.refit(Fit(v.width, v.sizes[0].Width)) {
		return false
	}
	return v.scaleChangedLocked(before)
}

// ZoomIn steps the zoom up and returns the new scale.
func (v *Viewer) ZoomIn() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.setManualLocked(ZoomIn(v.scale.Current))
}

// ZoomOut steps the zoom down and returns the new scale.
func (v *Viewer) ZoomOut() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.setManualLocked(ZoomOut(v.scale.Current))
}

// SetPreset sets an explicit zoom, clamped to the manual zoom bounds.
func (v *Viewer) SetPreset(scale float64) (float64, error) {
	if !validScale(scale) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidScale, scale)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.setManualLocked(ClampZoom(scale)), nil
}

func (v *Viewer) setManualLocked(scale float64) float64 {
	before := v.scale.Current
	v.scale.setManual(scale)
	v.scaleChangedLocked(before)
	return v.scale.Current
}

// scaleChangedLocked drops every surface when the scale moved.
func (v *Viewer) scaleChangedLocked(before float64) bool {
	if v.scale.Current == before {
		return false
	}
	for _, s := range v.slots {
		s.stop()
	}
	return true
}

// Render draws page at scale into a fresh surface sized for dpr. Scales
// outside [ZoomMinScale, MaxScale] are rejected and dpr is bounded by
// ClampDPR. A live render of the same page is cancelled first. When this
// call is itself superseded it returns ErrSuperseded and publishes nothing.
func (v *Viewer) Render(ctx context.Context, page int, scale, dpr float64) (*Surface, error) {
	if !renderableScale(scale) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScale, scale)
	}
	dpr = ClampDPR(dpr)

	v.mu.Lock()
	if v.state != StateReady {
		v.mu.Unlock()
		return nil, ErrNotReady
	}
	if page < 1 || page > len(v.slots) {
		v.mu.Unlock()
		return nil, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, page, len(v.slots))
	}
	s := v.slots[page-1]
	if s.cancel != nil {
		s.cancel()
	}
	taskCtx, cancel := context.WithCancel(ctx)
	s.seq++
	seq := s.seq
	s.cancel = cancel
	h := v.doc
	if !h.acquire() {
		v.mu.Unlock()
		cancel()
		return nil, ErrSuperseded
	}
	v.mu.Unlock()
	defer cancel()
	defer h.release()

	size, err := h.doc.PageSize(page)
	if err := checkToken(ctx, taskCtx); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %v", ErrRender, page, err)
	}

	surface := newSurface(page, size, scale, dpr)
	img, err := h.doc.Render(taskCtx, page, scale*dpr)
	if err := checkToken(ctx, taskCtx); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %v", ErrRender, page, err)
	}
	surface.paint(img)

	v.mu.Lock()
	defer v.mu.Unlock()
	if s.seq != seq {
		return nil, ErrSuperseded
	}
	s.cancel = nil
	s.surface = surface
	s.draws++
	return surface, nil
}

// checkToken distinguishes a caller giving up from a newer render taking
// over the slot.
func checkToken(caller, task context.Context) error {
	if err := caller.Err(); err != nil {
		return err
	}
	if task.Err() != nil {
		return ErrSuperseded
	}
	return nil
}

// Surface returns the last published surface of page.
func (v *Viewer) Surface(page int) (*Surface, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if page < 1 || page > len(v.slots) {
		return nil, false
	}
	s := v.slots[page-1].surface
	return s, s != nil
}

// Navigate returns where to scroll for the previous or next page, given the
// current scroll offset of the page column. ok is false at either end.
func (v *Viewer) Navigate(dir Direction, scrollTop float64) (ScrollTarget, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateReady {
		return ScrollTarget{}, false
	}
	return navigate(layoutSlots(v.sizes, v.scale.Current), scrollTop, dir)
}

// Layout returns the page slot boxes at the current scale, or nil before
// the document is ready.
func (v *Viewer) Layout() []SlotBox {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateReady {
		return nil
	}
	return layoutSlots(v.sizes, v.scale.Current)
}

// PageText returns the text layer of page when the document has one.
func (v *Viewer) PageText(page int) (string, error) {
	v.mu.Lock()
	if v.state != StateReady {
		v.mu.Unlock()
		return "", ErrNotReady
	}
	h := v.doc
	if !h.acquire() {
		v.mu.Unlock()
		return "", ErrNotReady
	}
	v.mu.Unlock()
	defer h.release()

	ts, ok := h.doc.(TextSource)
	if !ok {
		return "", ErrNoText
	}
	return ts.PageText(page)
}

// Status is a snapshot of the viewer for the browser.
type Status struct {
	State        State        `json:"state"`
	URL          string       `json:"url,omitempty"`
	Error        string       `json:"error,omitempty"`
	NumPages     int          `json:"numPages"`
	Scale        float64      `json:"scale"`
	LastFitted   float64      `json:"lastFitted"`
	UserAdjusted bool         `json:"userAdjusted"`
	Info         DocumentInfo `json:"info"`
	Pages        []SlotBox    `json:"pages,omitempty"`
}

// Status returns the current state, scale and page layout.
func (v *Viewer) Status() Status {
	v.mu.Lock()
	defer v.mu.Unlock()

	st := Status{
		State:        v.state,
		URL:          v.url,
		NumPages:     len(v.sizes),
		Scale:        v.scale.Current,
		LastFitted:   v.scale.LastFitted,
		UserAdjusted: v.scale.UserAdjusted,
	}
	if v.state == StateError {
		st.Error = LoadFailedMessage
	}
	if v.state == StateReady {
		st.Pages = layoutSlots(v.sizes, v.scale.Current)
		if d, ok := v.doc.doc.(Describer); ok {
			st.Info = d.Info()
		}
	}
	return st
}

// State returns the lifecycle state.
func (v *Viewer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Err returns the load error while in StateError.
func (v *Viewer) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loadErr
}

// Scale returns the zoom bookkeeping.
func (v *Viewer) Scale() ScaleState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scale
}

// Wait blocks until done is closed or ctx ends.
func Wait(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
