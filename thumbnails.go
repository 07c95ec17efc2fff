package main

import (
	"bytes"
	"context"
	"image/png"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nIBOP/portfolio-site/internal/pdfview"
)

const (
	thumbnailCacheSize     = 64
	thumbnailRenderTimeout = 30 * time.Second
)

// thumbnailCache keeps encoded thumbnails in memory, evicting the oldest
// entry when full. Concurrent misses for the same key share one render.
type thumbnailCache struct {
	group singleflight.Group
	size  int

	mu      sync.Mutex
	entries map[string][]byte
	order   []string
}

func newThumbnailCache(size int) *thumbnailCache {
	return &thumbnailCache{
		size:    size,
		entries: make(map[string][]byte, size),
	}
}

func thumbnailKey(target string, width int) string {
	return strconv.Itoa(width) + " " + target
}

func (c *thumbnailCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	return data, ok
}

func (c *thumbnailCache) put(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return
	}
	if len(c.order) >= c.size {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
	c.entries[key] = data
	c.order = append(c.order, key)
}

func (c *thumbnailCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// load returns the cached thumbnail for key or renders it. Failed renders
// are not cached.
func (c *thumbnailCache) load(key string, render func() ([]byte, error)) ([]byte, error) {
	if data, ok := c.get(key); ok {
		return data, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if data, ok := c.get(key); ok {
			return data, nil
		}
		data, err := render()
		if err != nil {
			return nil, err
		}
		c.put(key, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// renderThumbnail loads target and encodes page 1 at width as a PNG. The
// render outlives the request that started it, since other requests may be
// waiting on the same key.
func renderThumbnail(ctx context.Context, loader pdfview.Loader, target string, width int) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), thumbnailRenderTimeout)
	defer cancel()

	doc, err := loader.Load(ctx, target)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	img, err := pdfview.Thumbnail(ctx, doc, 1, width)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
