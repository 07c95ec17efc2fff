// Package pdfview is the server side of the embedded PDF viewer.
//
// A Viewer owns one decoded document at a time. It computes the fit-to-width
// zoom against the width the browser reports for its page column, keeps the
// zoom sticky once the user changes it, rasterizes pages into surfaces on
// request and tells the browser where to scroll for previous/next page.
//
// Loads and renders run outside the viewer lock. Each page slot allows one
// live render: a newer request cancels the older one, and a cancelled render
// never publishes its surface. The rasterizer cannot be interrupted, so a
// cancelled render finishes in the background and its result is dropped.
//
// A Manager keeps viewers addressable by session id for the HTTP layer and
// closes sessions that have been idle too long.
package pdfview
