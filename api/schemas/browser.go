package schemas

import (
	"fmt"
	"time"
)

// -- Tab Schemas --

// TabState is the lifecycle state of a tab as it appears on the wire.
type TabState string

const (
	TabCreated    TabState = "created"
	TabNavigating TabState = "navigating"
	TabLoaded     TabState = "loaded"
	TabError      TabState = "error"
	TabCrashed    TabState = "crashed"
	TabClosing    TabState = "closing"
	TabClosed     TabState = "closed"
)

// TabSnapshot is the wire representation of a tab at a point in time.
type TabSnapshot struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	State       TabState  `json:"state"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
	Error       string    `json:"error,omitempty"`
}

// PageInfo carries the current URL and title of a page.
type PageInfo struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// -- Screenshot Schemas --

// ScreenshotFormat is the output encoding for a captured screenshot.
type ScreenshotFormat string

const (
	FormatPNG  ScreenshotFormat = "png"
	FormatJPEG ScreenshotFormat = "jpeg"
	FormatWebP ScreenshotFormat = "webp"
)

// MIMEType returns the MIME type for the format.
func (f ScreenshotFormat) MIMEType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatWebP:
		return "image/webp"
	default:
		return "image/png"
	}
}

// Extension returns the file extension for the format, without the dot.
func (f ScreenshotFormat) Extension() string {
	switch f {
	case FormatJPEG:
		return "jpg"
	case FormatWebP:
		return "webp"
	default:
		return "png"
	}
}

// ClipRegion restricts a screenshot to a rectangle in CSS pixels.
type ClipRegion struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ScreenshotOptions controls screenshot capture.
type ScreenshotOptions struct {
	Format ScreenshotFormat `json:"format"`
	// Quality applies to lossy formats only, 0-100.
	Quality int `json:"quality,omitempty"`
	// FullPage captures the entire scrollable page instead of the viewport.
	FullPage bool        `json:"full_page,omitempty"`
	Clip     *ClipRegion `json:"clip,omitempty"`
}

// DefaultScreenshotOptions returns PNG viewport capture.
func DefaultScreenshotOptions() ScreenshotOptions {
	return ScreenshotOptions{Format: FormatPNG, Quality: 90}
}

// Validate checks the option combination.
func (o ScreenshotOptions) Validate() error {
	switch o.Format {
	case FormatPNG, FormatJPEG, FormatWebP:
	default:
		return fmt.Errorf("unsupported screenshot format %q", o.Format)
	}
	if o.Quality < 0 || o.Quality > 100 {
		return fmt.Errorf("screenshot quality must be within 0-100, got %d", o.Quality)
	}
	if o.Clip != nil && (o.Clip.Width <= 0 || o.Clip.Height <= 0) {
		return fmt.Errorf("screenshot clip region must have positive dimensions")
	}
	return nil
}
