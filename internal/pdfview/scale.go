package pdfview

import "math"

// Scale bounds. Auto-fit never goes below FitMinScale, manual zoom may go
// down to ZoomMinScale.
const (
	FitMinScale  = 0.3
	ZoomMinScale = 0.25
	MaxScale     = 5.0
	ZoomStep     = 0.1

	// Device pixel ratios outside [MinDPR, MaxDPR] are clamped.
	MinDPR = 1.0
	MaxDPR = 4.0

	// FitEpsilon is how close the live scale must be to the last fitted
	// value for a resize to keep auto-fitting after a manual zoom.
	FitEpsilon = 0.001
)

// Page chrome in CSS pixels, matching the viewer stylesheet.
const (
	ContainerPadding = 12 // each side of the page column
	PageMargin       = 8  // gap below each page
	PageBorder       = 1  // each side of a page

	// PageChrome is subtracted from the container width before fitting.
	PageChrome = 2*ContainerPadding + PageMargin + 2*PageBorder
)

// Fit returns the scale at which a page of native width pageWidth fills a
// container of the given width.
func Fit(containerWidth, pageWidth float64) float64 {
	available := math.Max(0, containerWidth-PageChrome)
	fit := 1.0
	if available > 0 && pageWidth > 0 {
		fit = available / pageWidth
	}
	return clamp(fit, FitMinScale, MaxScale)
}

// ZoomIn returns the next larger zoom step.
func ZoomIn(scale float64) float64 {
	return math.Min(MaxScale, round2(scale+ZoomStep))
}

// ZoomOut returns the next smaller zoom step.
func ZoomOut(scale float64) float64 {
	return math.Max(ZoomMinScale, round2(scale-ZoomStep))
}

// ClampZoom bounds an explicit zoom value.
func ClampZoom(scale float64) float64 {
	return clamp(scale, ZoomMinScale, MaxScale)
}

// ClampDPR bounds a device pixel ratio. Non-finite or non-positive values
// mean 1.
func ClampDPR(dpr float64) float64 {
	if !validScale(dpr) {
		return MinDPR
	}
	return clamp(dpr, MinDPR, MaxDPR)
}

// renderableScale reports whether a page may be drawn at scale.
func renderableScale(scale float64) bool {
	return validScale(scale) && scale >= ZoomMinScale && scale <= MaxScale
}

func validScale(scale float64) bool {
	return scale > 0 && !math.IsInf(scale, 0) && !math.IsNaN(scale)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// ScaleState is the zoom bookkeeping of one viewer.
type ScaleState struct {
	Current      float64
	LastFitted   float64
	HasFitted    bool
	UserAdjusted bool
}

func (s *ScaleState) applyFit(fit float64) {
	s.Current = fit
	s.LastFitted = fit
	s.HasFitted = true
}

// refit applies fit unless the user has zoomed away from the last fitted
// value. It reports whether the fit was applied.
func (s *ScaleState) refit(fit float64) bool {
	if s.UserAdjusted && !(s.HasFitted && math.Abs(s.Current-s.LastFitted) < FitEpsilon) {
		return false
	}
	s.applyFit(fit)
	return true
}

func (s *ScaleState) setManual(scale float64) {
	s.UserAdjusted = true
	s.Current = scale
}
