// File: internal/extract/tokens.go
package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stickerverse/figmaconvert/api/schemas"
)

// colorProperties are the captured style keys mined for color tokens.
var colorProperties = []string{"color", "background-color"}

// spacingProperties are mined for spacing tokens. Computed values are
// shorthands carrying one to four px figures.
var spacingProperties = []string{"margin", "padding"}

// mineTokens aggregates reusable style values across every retained
// element. Usage counts drive the compressor's top-N selection later, so
// they matter more than the keys themselves.
func mineTokens(elements []schemas.CapturedElement, nodes map[int]*schemas.Node) schemas.DesignTokens {
	tokens := schemas.DesignTokens{
		Colors:     map[string]*schemas.ColorToken{},
		Typography: map[string]*schemas.TypographyToken{},
		Spacing:    map[string]*schemas.SpacingToken{},
	}
	for _, el := range elements {
		if _, ok := nodes[el.Index]; !ok {
			continue
		}
		mineColors(tokens.Colors, el.Styles)
		mineTypography(tokens.Typography, el)
		mineSpacing(tokens.Spacing, el.Styles)
	}
	return tokens
}

func mineColors(out map[string]*schemas.ColorToken, styles map[string]string) {
	for _, prop := range colorProperties {
		value := strings.TrimSpace(styles[prop])
		if !usableColor(value) {
			continue
		}
		if tok, ok := out[value]; ok {
			tok.Usage++
			continue
		}
		out[value] = &schemas.ColorToken{Value: value, Usage: 1}
	}
}

// usableColor filters out fully transparent and keyword values that carry
// no design intent.
func usableColor(v string) bool {
	switch v {
	case "", "none", "transparent", "rgba(0, 0, 0, 0)":
		return false
	}
	return true
}

func mineTypography(out map[string]*schemas.TypographyToken, el schemas.CapturedElement) {
	if strings.TrimSpace(el.Text) == "" {
		return
	}
	family := strings.TrimSpace(el.Styles["font-family"])
	if family == "" {
		return
	}
	size := parsePixels(el.Styles["font-size"])
	weight := strings.TrimSpace(el.Styles["font-weight"])
	if weight == "" {
		weight = "400"
	}
	key := fmt.Sprintf("%s/%g/%s", family, size, weight)
	if tok, ok := out[key]; ok {
		tok.Usage++
		return
	}
	out[key] = &schemas.TypographyToken{
		FontFamily: family,
		FontSize:   size,
		FontWeight: weight,
		LineHeight: strings.TrimSpace(el.Styles["line-height"]),
		Usage:      1,
	}
}

func mineSpacing(out map[string]*schemas.SpacingToken, styles map[string]string) {
	for _, prop := range spacingProperties {
		for _, field := range strings.Fields(styles[prop]) {
			px := parsePixels(field)
			if px <= 0 {
				continue
			}
			key := strconv.FormatFloat(px, 'g', -1, 64) + "px"
			if tok, ok := out[key]; ok {
				tok.Usage++
				continue
			}
			out[key] = &schemas.SpacingToken{Value: px, Usage: 1}
		}
	}
}

// parsePixels reads a computed "<number>px" value; anything else is 0.
func parsePixels(s string) float64 {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "px") {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "px"), 64)
	if err != nil {
		return 0
	}
	return v
}
