package pdfview

import "errors"

// LoadFailedMessage is shown to the visitor when a document cannot be opened.
const LoadFailedMessage = "Failed to load PDF"

// Sentinel errors for viewer operations.
var (
	ErrLoad            = errors.New("pdfview: document load failed")
	ErrNoPages         = errors.New("pdfview: document has no pages")
	ErrNotReady        = errors.New("pdfview: viewer is not ready")
	ErrPageOutOfRange  = errors.New("pdfview: page out of range")
	ErrInvalidScale    = errors.New("pdfview: invalid scale")
	ErrRender          = errors.New("pdfview: page render failed")
	ErrSessionNotFound = errors.New("pdfview: session not found")
	ErrTooManySessions = errors.New("pdfview: too many viewer sessions")
	ErrManagerClosed   = errors.New("pdfview: session manager closed")
	ErrNoText          = errors.New("pdfview: document has no text layer")

	// ErrSuperseded is returned by Render when a newer request for the same
	// page slot, a scale change, or a new document replaced the call. It is
	// not a failure and callers should drop it silently.
	ErrSuperseded = errors.New("pdfview: render superseded")

	// Fetch errors.
	ErrUnsupportedURL = errors.New("pdfview: unsupported document url")
	ErrFetch          = errors.New("pdfview: document fetch failed")
	ErrTooLarge       = errors.New("pdfview: document exceeds size limit")
	ErrNotPDF         = errors.New("pdfview: not a PDF file")
)

// IsSuperseded reports whether err only means a newer render took over.
func IsSuperseded(err error) bool {
	return errors.Is(err, ErrSuperseded)
}
