package main

import (
	"bytes"
	"fmt"
	"image/png"
	"net/http"
	"strings"
	"testing"

	"github.com/nIBOP/portfolio-site/internal/pdfview"
)

type statusBody struct {
	State        string            `json:"state"`
	URL          string            `json:"url"`
	Error        string            `json:"error"`
	NumPages     int               `json:"numPages"`
	Scale        float64           `json:"scale"`
	LastFitted   float64           `json:"lastFitted"`
	UserAdjusted bool              `json:"userAdjusted"`
	Pages        []pdfview.SlotBox `json:"pages"`
}

type openBody struct {
	ID     string     `json:"id"`
	Status statusBody `json:"status"`
}

func jsonBody(s string) *strings.Reader { return strings.NewReader(s) }

func openViewer(t *testing.T, env *testEnv, url string, width float64) openBody {
	t.Helper()
	rec := env.do(http.MethodPost, "/api/viewer?wait=1", jsonBody(fmt.Sprintf(`{"url":%q,"width":%g}`, url, width)))
	assertStatus(t, rec, http.StatusCreated)
	var body openBody
	decodeJSON(t, rec, &body)
	return body
}

func TestViewerAPI_OpenAndZoom(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	opened := openViewer(t, env, "/static/doc.pdf", 1024)
	if opened.Status.State != "ready" || opened.Status.NumPages != 2 {
		t.Fatalf("status after open = %+v", opened.Status)
	}
	if opened.Status.Scale != 990.0/600 {
		t.Errorf("fit scale = %v, want %v", opened.Status.Scale, 990.0/600)
	}
	if len(opened.Status.Pages) != 2 || opened.Status.Pages[1].Top <= opened.Status.Pages[0].Top {
		t.Errorf("pages = %+v", opened.Status.Pages)
	}
	base := "/api/viewer/" + opened.ID

	var st statusBody
	rec := env.do(http.MethodPost, base+"/zoom-in", nil)
	assertStatus(t, rec, http.StatusOK)
	decodeJSON(t, rec, &st)
	if st.Scale != 1.75 || !st.UserAdjusted {
		t.Errorf("after zoom-in = %+v", st)
	}

	rec = env.do(http.MethodPost, base+"/zoom-out", nil)
	decodeJSON(t, rec, &st)
	if st.Scale != 1.65 {
		t.Errorf("after zoom-out scale = %v, want 1.65", st.Scale)
	}

	rec = env.do(http.MethodPost, base+"/preset", jsonBody(`{"scale":2}`))
	assertStatus(t, rec, http.StatusOK)
	decodeJSON(t, rec, &st)
	if st.Scale != 2 {
		t.Errorf("after preset scale = %v, want 2", st.Scale)
	}

	assertStatus(t, env.do(http.MethodPost, base+"/preset", jsonBody(`{"scale":0}`)), http.StatusBadRequest)
	assertStatus(t, env.do(http.MethodPost, base+"/preset", jsonBody(`{"scale":-3}`)), http.StatusBadRequest)
}

func TestViewerAPI_Resize(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	opened := openViewer(t, env, "/static/doc.pdf", 1024)
	base := "/api/viewer/" + opened.ID

	var res struct {
		Changed bool       `json:"changed"`
		Status  statusBody `json:"status"`
	}
	rec := env.do(http.MethodPost, base+"/resize", jsonBody(`{"width":634}`))
	assertStatus(t, rec, http.StatusOK)
	decodeJSON(t, rec, &res)
	if !res.Changed || res.Status.Scale != 1 {
		t.Errorf("resize = %+v", res)
	}

	assertStatus(t, env.do(http.MethodPost, base+"/resize", jsonBody(`{"width":-5}`)), http.StatusBadRequest)
}

func TestViewerAPI_Navigate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	opened := openViewer(t, env, "/static/doc.pdf", 0)
	base := "/api/viewer/" + opened.ID

	var res struct {
		OK     bool                 `json:"ok"`
		Target pdfview.ScrollTarget `json:"target"`
	}
	rec := env.do(http.MethodPost, base+"/navigate", jsonBody(`{"direction":"next","scrollTop":0}`))
	assertStatus(t, rec, http.StatusOK)
	decodeJSON(t, rec, &res)
	if !res.OK || res.Target.Page != 2 || res.Target.Top != opened.Status.Pages[1].Top || res.Target.Behavior != "smooth" {
		t.Errorf("navigate next = %+v", res)
	}

	res.OK = true
	rec = env.do(http.MethodPost, base+"/navigate", jsonBody(`{"direction":"previous","scrollTop":0}`))
	decodeJSON(t, rec, &res)
	if res.OK {
		t.Error("navigate before the first page reported ok")
	}

	assertStatus(t, env.do(http.MethodPost, base+"/navigate", jsonBody(`{"direction":"sideways"}`)), http.StatusBadRequest)
}

func TestViewerAPI_PageImage(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	opened := openViewer(t, env, "/static/doc.pdf", 0)
	base := "/api/viewer/" + opened.ID

	rec := env.get(base + "/pages/1?dpr=2")
	assertStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if cfg.Width != 1200 || cfg.Height != 1600 {
		t.Errorf("bitmap = %dx%d, want 1200x1600", cfg.Width, cfg.Height)
	}
	if got := rec.Header().Get("X-Page-Width"); got != "600" {
		t.Errorf("X-Page-Width = %q, want 600", got)
	}

	rec = env.get(base + "/pages/2?scale=0.5")
	assertStatus(t, rec, http.StatusOK)
	cfg, _ = png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	if cfg.Width != 300 {
		t.Errorf("bitmap width at scale 0.5 = %d, want 300", cfg.Width)
	}

	assertStatus(t, env.get(base+"/pages/3"), http.StatusBadRequest)
	assertStatus(t, env.get(base+"/pages/one"), http.StatusBadRequest)
	assertStatus(t, env.get(base+"/pages/1?scale=big"), http.StatusBadRequest)
	assertStatus(t, env.get(base+"/pages/1?scale=-1"), http.StatusBadRequest)
	assertStatus(t, env.get(base+"/pages/1?scale=6"), http.StatusBadRequest)
	assertStatus(t, env.get(base+"/pages/1?scale=1e5"), http.StatusBadRequest)

	rec = env.get(base + "/pages/2?scale=0.5&dpr=1e6")
	assertStatus(t, rec, http.StatusOK)
	cfg, _ = png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	if want := int(300 * pdfview.MaxDPR); cfg.Width != want {
		t.Errorf("bitmap width at dpr 1e6 = %d, want %d", cfg.Width, want)
	}
	assertStatus(t, env.get(base+"/pages/1/text"), http.StatusNotFound)
}

func TestViewerAPI_SessionLimit(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	env.srv.viewers.SetMaxSessions(1)

	first := openViewer(t, env, "/static/doc.pdf", 800)
	rec := env.do(http.MethodPost, "/api/viewer", jsonBody(`{"url":"/static/doc.pdf"}`))
	assertStatus(t, rec, http.StatusTooManyRequests)
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 without Retry-After")
	}

	assertStatus(t, env.do(http.MethodDelete, "/api/viewer/"+first.ID, nil), http.StatusNoContent)
	openViewer(t, env, "/static/doc.pdf", 800)
}

func TestViewerAPI_LoadFailure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	opened := openViewer(t, env, "/static/missing.pdf", 800)
	if opened.Status.State != "error" || opened.Status.Error != pdfview.LoadFailedMessage {
		t.Fatalf("status = %+v, want error with %q", opened.Status, pdfview.LoadFailedMessage)
	}

	var st statusBody
	rec := env.get("/api/viewer/" + opened.ID)
	assertStatus(t, rec, http.StatusOK)
	decodeJSON(t, rec, &st)
	if st.State != "error" {
		t.Errorf("GET status state = %q", st.State)
	}
	assertStatus(t, env.get("/api/viewer/"+opened.ID+"/pages/1"), http.StatusConflict)
}

func TestViewerAPI_Sessions(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	assertStatus(t, env.do(http.MethodPost, "/api/viewer", jsonBody(`{}`)), http.StatusBadRequest)
	assertStatus(t, env.get("/api/viewer/not-a-session"), http.StatusNotFound)
	assertStatus(t, env.get("/api/viewer/6f1c1d0e-7c62-4d8e-a1a4-2b1b1f1a9c11"), http.StatusNotFound)

	opened := openViewer(t, env, "/static/doc.pdf", 0)
	base := "/api/viewer/" + opened.ID
	assertStatus(t, env.get(base), http.StatusOK)
	assertStatus(t, env.do(http.MethodDelete, base, nil), http.StatusNoContent)
	assertStatus(t, env.get(base), http.StatusNotFound)
	assertStatus(t, env.do(http.MethodDelete, base, nil), http.StatusNotFound)
}

func TestViewerPage(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	assertStatus(t, env.get("/viewer"), http.StatusBadRequest)

	rec := env.get("/viewer?url=/static/doc.pdf")
	assertStatus(t, rec, http.StatusOK)
	assertContains(t, rec.Body.String(), `data-url="/static/doc.pdf"`, "/static/js/viewer.js")
}

// ---------------------------------------------------------------------------
// Thumbnails
// ---------------------------------------------------------------------------

func TestThumbnail(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	rec := env.get("/thumbnails?url=/static/doc.pdf&width=100")
	assertStatus(t, rec, http.StatusOK)
	cfg, err := png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if cfg.Width != 100 || cfg.Height != 133 {
		t.Errorf("thumbnail = %dx%d, want 100x133", cfg.Width, cfg.Height)
	}

	assertStatus(t, env.get("/thumbnails"), http.StatusBadRequest)
	assertStatus(t, env.get("/thumbnails?url=/static/doc.pdf&width=0"), http.StatusBadRequest)
	assertStatus(t, env.get("/thumbnails?url=ftp://example.com/doc.pdf"), http.StatusBadRequest)
	assertStatus(t, env.get("/thumbnails?url=/static/missing.pdf"), http.StatusBadGateway)
}
