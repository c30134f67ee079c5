// File: internal/assets/svg.go
package assets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// blockedSVGTags are element names removed outright. Inline SVG lifted
// from arbitrary pages can carry active content; the design document must
// only ever hold inert vector data.
var blockedSVGTags = map[string]bool{
	"script":        true,
	"foreignObject": true,
	"iframe":        true,
	"embed":         true,
	"object":        true,
	"audio":         true,
	"video":         true,
}

// urlAttrs are attributes whose values can smuggle a javascript: URL.
var urlAttrs = map[string]bool{
	"href": true,
	"src":  true,
}

// SVGSanitizer scrubs captured inline SVG markup down to inert vector
// content and drops documents over the configured size cap.
type SVGSanitizer struct {
	// MaxKB rejects sanitized documents larger than this; 0 disables the cap.
	MaxKB int
}

// NewSVGSanitizer creates a sanitizer with the given size cap in KB.
func NewSVGSanitizer(maxKB int) *SVGSanitizer {
	return &SVGSanitizer{MaxKB: maxKB}
}

// ErrSVGTooLarge reports a sanitized document over the size cap.
var ErrSVGTooLarge = errors.New("svg exceeds size cap")

// Sanitize parses the markup, removes active content and comments, and
// re-serializes. Returns ErrSVGTooLarge when the result is over the cap.
func (s *SVGSanitizer) Sanitize(markup string) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(markup); err != nil {
		return "", fmt.Errorf("failed to parse svg: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "svg" {
		return "", errors.New("markup has no svg root element")
	}

	scrubElement(root)

	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("failed to serialize svg: %w", err)
	}
	out = strings.TrimSpace(out)

	if s.MaxKB > 0 && RawSizeKB([]byte(out)) > float64(s.MaxKB) {
		return "", fmt.Errorf("%w: %.0fKB > %dKB", ErrSVGTooLarge, RawSizeKB([]byte(out)), s.MaxKB)
	}
	return out, nil
}

// scrubElement removes blocked children, comments, event-handler attributes
// and javascript: URLs, depth-first.
func scrubElement(el *etree.Element) {
	// Collect first; removing while ranging over Child skips tokens.
	var doomed []etree.Token
	for _, token := range el.Child {
		switch t := token.(type) {
		case *etree.Element:
			if blockedSVGTags[t.Tag] {
				doomed = append(doomed, t)
			}
		case *etree.Comment:
			doomed = append(doomed, t)
		}
	}
	for _, token := range doomed {
		el.RemoveChild(token)
	}

	attrs := make([]etree.Attr, len(el.Attr))
	copy(attrs, el.Attr)
	for _, attr := range attrs {
		key := attr.Key
		if attr.Space != "" {
			key = attr.Space + ":" + attr.Key
		}
		lower := strings.ToLower(attr.Key)
		switch {
		case strings.HasPrefix(lower, "on"):
			// onload, onclick and friends.
			el.RemoveAttr(key)
		case urlAttrs[lower] && isScriptURL(attr.Value):
			el.RemoveAttr(key)
		}
	}

	for _, child := range el.ChildElements() {
		scrubElement(child)
	}
}

func isScriptURL(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	// Embedded control characters can hide the scheme from a plain prefix
	// check.
	v = strings.Map(func(r rune) rune {
		if r <= ' ' {
			return -1
		}
		return r
	}, v)
	return strings.HasPrefix(v, "javascript:") || strings.HasPrefix(v, "vbscript:")
}
