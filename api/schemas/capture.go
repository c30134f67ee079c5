package schemas

import "time"

// ElementRect is a raw border box as the browser reports it, in viewport
// coordinates.
type ElementRect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CapturedElement is one element lifted out of the live page, exactly as
// measured. Geometry is untouched viewport data; every derived coordinate
// is computed later so that capture stays a dumb recording step.
type CapturedElement struct {
	Index       int               `json:"index"`
	ParentIndex int               `json:"parentIndex"`
	Selector    string            `json:"selector"`
	TagName     string            `json:"tagName"`
	Rect        ElementRect       `json:"rect"`
	Transform   string            `json:"transform,omitempty"`
	Styles      map[string]string `json:"styles,omitempty"`
	Text        string            `json:"text,omitempty"`
	ImageURL    string            `json:"imageUrl,omitempty"`
	SVGMarkup   string            `json:"svgMarkup,omitempty"`
	Visible     bool              `json:"visible"`
}

// CaptureResult is everything one page session produced: the element list,
// the page-level quantities the coordinate engine needs as context, and
// the capture artifacts.
type CaptureResult struct {
	URL           string            `json:"url"`
	Title         string            `json:"title"`
	Viewport      Viewport          `json:"viewport"`
	CanvasOriginX float64           `json:"canvasOriginX"`
	CanvasOriginY float64           `json:"canvasOriginY"`
	Elements      []CapturedElement `json:"elements"`
	CSSVariables  map[string]string `json:"cssVariables,omitempty"`
	Screenshot    []byte            `json:"screenshot,omitempty"`
	ConsoleErrors []string          `json:"consoleErrors,omitempty"`
	CapturedAt    time.Time         `json:"capturedAt"`
	Duration      time.Duration     `json:"duration"`
}
