package main

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nIBOP/portfolio-site/internal/pdfview"
)

const viewerKey = "viewer"

type openRequest struct {
	URL   string  `json:"url" binding:"required"`
	Width float64 `json:"width" binding:"gte=0"`
}

type resizeRequest struct {
	Width float64 `json:"width" binding:"gte=0"`
}

type presetRequest struct {
	Scale float64 `json:"scale"`
}

type navigateRequest struct {
	Direction string  `json:"direction" binding:"required,oneof=next previous"`
	ScrollTop float64 `json:"scrollTop"`
}

func (s *server) setupViewerAPI(r *gin.Engine) {
	api := r.Group("/api/viewer")
	api.POST("", s.handleViewerOpen)

	session := api.Group("/:id", s.viewerSession())
	session.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, viewerFrom(c).Status())
	})
	session.DELETE("", func(c *gin.Context) {
		if err := s.viewers.Remove(c.Param("id")); err != nil {
			viewerError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
	session.POST("/resize", handleResize)
	session.POST("/zoom-in", func(c *gin.Context) {
		v := viewerFrom(c)
		v.ZoomIn()
		c.JSON(http.StatusOK, v.Status())
	})
	session.POST("/zoom-out", func(c *gin.Context) {
		v := viewerFrom(c)
		v.ZoomOut()
		c.JSON(http.StatusOK, v.Status())
	})
	session.POST("/preset", handlePreset)
	session.POST("/navigate", handleNavigate)
	session.GET("/pages/:page", handlePageImage)
	session.GET("/pages/:page/text", handlePageText)
}

// viewerSession resolves the :id parameter to a live viewer.
func (s *server) viewerSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := s.viewers.Get(c.Param("id"))
		if err != nil {
			viewerError(c, err)
			c.Abort()
			return
		}
		c.Set(viewerKey, v)
		c.Next()
	}
}

func viewerFrom(c *gin.Context) *pdfview.Viewer {
	return c.MustGet(viewerKey).(*pdfview.Viewer)
}

// viewerError maps viewer errors to responses. Superseded renders and
// clients that went away are not errors and are not logged.
func viewerError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case pdfview.IsSuperseded(err):
		c.Status(http.StatusNoContent)
		return
	case errors.Is(err, context.Canceled):
		c.Abort()
		return
	case errors.Is(err, pdfview.ErrSessionNotFound), errors.Is(err, pdfview.ErrNoText):
		status = http.StatusNotFound
	case errors.Is(err, pdfview.ErrNotReady):
		status = http.StatusConflict
	case errors.Is(err, pdfview.ErrTooManySessions):
		c.Header("Retry-After", "60")
		status = http.StatusTooManyRequests
	case errors.Is(err, pdfview.ErrManagerClosed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, pdfview.ErrPageOutOfRange), errors.Is(err, pdfview.ErrInvalidScale):
		status = http.StatusBadRequest
	default:
		log.Printf("Viewer error on %s: %v", c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// handleViewerOpen creates a session and starts loading the document. With
// ?wait=1 the response is sent once the load has finished.
func (s *server) handleViewerOpen(c *gin.Context) {
	var req openRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, v, err := s.viewers.Create()
	if err != nil {
		viewerError(c, err)
		return
	}
	v.Resize(req.Width)
	done := v.Open(s.viewers.Context(), req.URL)

	if wait, _ := strconv.ParseBool(c.Query("wait")); wait {
		if err := pdfview.Wait(c.Request.Context(), done); err != nil {
			return
		}
	}
	c.JSON(http.StatusCreated, gin.H{"id": id.String(), "status": v.Status()})
}

func handleResize(c *gin.Context) {
	var req resizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v := viewerFrom(c)
	changed := v.Resize(req.Width)
	c.JSON(http.StatusOK, gin.H{"changed": changed, "status": v.Status()})
}

func handlePreset(c *gin.Context) {
	var req presetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v := viewerFrom(c)
	if _, err := v.SetPreset(req.Scale); err != nil {
		viewerError(c, err)
		return
	}
	c.JSON(http.StatusOK, v.Status())
}

func handleNavigate(c *gin.Context) {
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dir := pdfview.Next
	if req.Direction == "previous" {
		dir = pdfview.Previous
	}
	target, ok := viewerFrom(c).Navigate(dir, req.ScrollTop)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "target": target})
}

func pageParam(c *gin.Context) (int, bool) {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a number"})
		return 0, false
	}
	return page, true
}

func floatQuery(c *gin.Context, key string, fallback float64) (float64, bool) {
	v := c.Query(key)
	if v == "" {
		return fallback, true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": key + " must be a number"})
		return 0, false
	}
	return f, true
}

// handlePageImage serves the page bitmap, reusing the slot's surface when
// it was drawn for the requested scale and DPR.
func handlePageImage(c *gin.Context) {
	v := viewerFrom(c)
	page, ok := pageParam(c)
	if !ok {
		return
	}
	scale, ok := floatQuery(c, "scale", v.Scale().Current)
	if !ok {
		return
	}
	dpr, ok := floatQuery(c, "dpr", 1)
	if !ok {
		return
	}
	dpr = pdfview.ClampDPR(dpr)

	surface, cached := v.Surface(page)
	if !cached || !surface.Matches(scale, dpr) {
		var err error
		surface, err = v.Render(c.Request.Context(), page, scale, dpr)
		if err != nil {
			viewerError(c, err)
			return
		}
	}

	var buf bytes.Buffer
	if err := surface.WritePNG(&buf); err != nil {
		viewerError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Header("X-Page-Scale", strconv.FormatFloat(surface.Scale, 'f', -1, 64))
	c.Header("X-Page-Width", strconv.FormatFloat(surface.CSSWidth, 'f', -1, 64))
	c.Header("X-Page-Height", strconv.FormatFloat(surface.CSSHeight, 'f', -1, 64))
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func handlePageText(c *gin.Context) {
	page, ok := pageParam(c)
	if !ok {
		return
	}
	text, err := viewerFrom(c).PageText(page)
	if err != nil {
		viewerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": page, "text": text})
}
