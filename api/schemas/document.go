package schemas

import "time"

// SchemaVersion is the document format revision this build writes.
const SchemaVersion = "3.1"

// NodeType classifies a node in the produced document tree.
type NodeType string

const (
	NodeFrame  NodeType = "FRAME"
	NodeGroup  NodeType = "GROUP"
	NodeText   NodeType = "TEXT"
	NodeImage  NodeType = "IMAGE"
	NodeVector NodeType = "VECTOR"
)

// Document is the complete design document produced from one capture. The
// field names mirror the on-disk JSON consumed by the plugin side, so the
// tags here are the format contract.
type Document struct {
	SchemaVersion     string              `json:"schemaVersion"`
	Source            Source              `json:"source"`
	Viewport          Viewport            `json:"viewport"`
	Tree              *Node               `json:"tree"`
	Assets            Assets              `json:"assets"`
	DesignTokens      DesignTokens        `json:"designTokens"`
	Components        Components          `json:"components"`
	Variants          map[string][]string `json:"variants,omitempty"`
	CSSVariables      map[string]string   `json:"cssVariables,omitempty"`
	Screenshot        string              `json:"screenshot,omitempty"`
	ExtractionSummary *ExtractionSummary  `json:"extractionSummary,omitempty"`
}

// Source records where and when the document was captured.
type Source struct {
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Viewport is the browser viewport configuration at capture time.
type Viewport struct {
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	DevicePixelRatio float64 `json:"devicePixelRatio"`
	ScrollX          float64 `json:"scrollX"`
	ScrollY          float64 `json:"scrollY"`
	Zoom             float64 `json:"zoom"`
}

// Node is one element of the document tree, positioned in canvas space.
type Node struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Type     NodeType   `json:"type"`
	Bounds   NodeBounds `json:"bounds"`
	Children []*Node    `json:"children,omitempty"`

	Transform   *TransformRecord  `json:"transform,omitempty"`
	Validation  *ValidationRecord `json:"validation,omitempty"`
	Adjustments *EdgeAdjustments  `json:"adjustments,omitempty"`
	Styles      map[string]string `json:"styles,omitempty"`
	Text        string            `json:"text,omitempty"`
	ImageRef    string            `json:"imageRef,omitempty"`
	SVGRef      string            `json:"svgRef,omitempty"`

	// Debug and provenance metadata; stripped by the compressor.
	HTMLMetadata       map[string]string `json:"htmlMetadata,omitempty"`
	DebugInfo          map[string]string `json:"debugInfo,omitempty"`
	SourceSelector     string            `json:"sourceSelector,omitempty"`
	ComponentSignature string            `json:"componentSignature,omitempty"`
	ContentHash        string            `json:"contentHash,omitempty"`
	CSSVariables       map[string]string `json:"cssVariables,omitempty"`
}

// NodeBounds is final canvas geometry: origin plus extent, already snapped.
type NodeBounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TransformRecord is the node-level rotate/scale/translate reading of the
// element's CSS transform. Supported is false when the matrix carries
// shear the canvas model cannot express.
type TransformRecord struct {
	Rotation   float64 `json:"rotation"`
	ScaleX     float64 `json:"scaleX"`
	ScaleY     float64 `json:"scaleY"`
	TranslateX float64 `json:"translateX"`
	TranslateY float64 `json:"translateY"`
	Supported  bool    `json:"supported"`
}

// ValidationRecord carries the confidence verdict for a node's geometry.
type ValidationRecord struct {
	Score           float64  `json:"score"`
	WithinTolerance bool     `json:"withinTolerance"`
	Issues          []string `json:"issues,omitempty"`
}

// EdgeAdjustments records how far pixel snapping moved each edge.
type EdgeAdjustments struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Assets holds the binary payloads referenced from the tree, keyed by
// content hash.
type Assets struct {
	Images map[string]*ImageAsset `json:"images"`
	SVGs   map[string]*SVGAsset   `json:"svgs"`
}

// ImageAsset is one raster image, base64-encoded.
type ImageAsset struct {
	Data   string `json:"data"`
	Format string `json:"format"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	URL    string `json:"url,omitempty"`
}

// SVGAsset is one inline vector, sanitized markup.
type SVGAsset struct {
	SVGCode string `json:"svgCode"`
}

// DesignTokens are the reusable style values mined from the page.
type DesignTokens struct {
	Colors     map[string]*ColorToken      `json:"colors"`
	Typography map[string]*TypographyToken `json:"typography"`
	Spacing    map[string]*SpacingToken    `json:"spacing"`
}

// ColorToken is one color value with its usage count across the tree.
type ColorToken struct {
	Value string `json:"value"`
	Usage int    `json:"usage"`
}

// TypographyToken is one font family/size/weight combination.
type TypographyToken struct {
	FontFamily string  `json:"fontFamily"`
	FontSize   float64 `json:"fontSize"`
	FontWeight string  `json:"fontWeight"`
	LineHeight string  `json:"lineHeight,omitempty"`
	Usage      int     `json:"usage"`
}

// SpacingToken is one margin/padding magnitude.
type SpacingToken struct {
	Value float64 `json:"value"`
	Usage int     `json:"usage"`
}

// Components groups repeated subtrees detected by signature.
type Components struct {
	Definitions map[string]*ComponentDefinition `json:"definitions"`
}

// ComponentDefinition names one repeated subtree and the nodes using it.
type ComponentDefinition struct {
	Name      string   `json:"name"`
	Signature string   `json:"signature"`
	NodeIDs   []string `json:"nodeIds,omitempty"`
}

// ExtractionSummary is the run report embedded in the document.
type ExtractionSummary struct {
	ElementCount     int      `json:"elementCount"`
	SkippedCount     int      `json:"skippedCount"`
	DurationMS       int64    `json:"durationMs"`
	Conversions      int64    `json:"conversions"`
	AveragePrecision float64  `json:"averagePrecision"`
	DegradedCount    int      `json:"degradedCount"`
	Warnings         []string `json:"warnings,omitempty"`
}

// CountNodes walks the tree under n, n included. A nil node counts zero.
func (n *Node) CountNodes() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, child := range n.Children {
		total += child.CountNodes()
	}
	return total
}
