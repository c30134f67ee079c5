// File: internal/extract/tokens_test.go
package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stickerverse/figmaconvert/api/schemas"
)

func TestParsePixels(t *testing.T) {
	testCases := []struct {
		input    string
		expected float64
	}{
		{"16px", 16},
		{" 12.5px ", 12.5},
		{"0px", 0},
		{"1em", 0},
		{"auto", 0},
		{"", 0},
		{"px", 0},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, parsePixels(tc.input), "input %q", tc.input)
	}
}

func TestUsableColor(t *testing.T) {
	assert.False(t, usableColor(""))
	assert.False(t, usableColor("transparent"))
	assert.False(t, usableColor("rgba(0, 0, 0, 0)"))
	assert.True(t, usableColor("rgb(255, 0, 0)"))
	assert.True(t, usableColor("#aabbcc"))
}

func TestMineTokens(t *testing.T) {
	elements := []schemas.CapturedElement{
		{
			Index:  0,
			Styles: styleMap("background-color", "rgb(250, 250, 250)", "padding", "24px 16px"),
		},
		{
			Index: 1,
			Text:  "Read more",
			Styles: styleMap(
				"color", "rgb(59, 130, 246)",
				"font-family", "Roboto, sans-serif",
				"font-size", "14px", "font-weight", "500",
				"margin", "0px 16px",
			),
		},
		{
			Index: 2,
			Text:  "Read even more",
			Styles: styleMap(
				"color", "rgb(59, 130, 246)",
				"font-family", "Roboto, sans-serif",
				"font-size", "14px", "font-weight", "500",
			),
		},
		{
			// Dropped during extraction; must not contribute.
			Index:  3,
			Styles: styleMap("background-color", "rgb(0, 0, 0)"),
		},
		{
			// Text without a font family mints no typography token.
			Index:  4,
			Text:   "bare",
			Styles: styleMap("color", "transparent"),
		},
	}
	nodes := map[int]*schemas.Node{0: {}, 1: {}, 2: {}, 4: {}}

	tokens := mineTokens(elements, nodes)

	require.Len(t, tokens.Colors, 2)
	assert.Equal(t, 2, tokens.Colors["rgb(59, 130, 246)"].Usage)
	assert.Equal(t, 1, tokens.Colors["rgb(250, 250, 250)"].Usage)

	require.Len(t, tokens.Typography, 1)
	tok := tokens.Typography["Roboto, sans-serif/14/500"]
	require.NotNil(t, tok)
	assert.Equal(t, "Roboto, sans-serif", tok.FontFamily)
	assert.Equal(t, 14.0, tok.FontSize)
	assert.Equal(t, "500", tok.FontWeight)
	assert.Equal(t, 2, tok.Usage)

	// 24px and two 16px figures; the 0px margin field is noise.
	require.Len(t, tokens.Spacing, 2)
	assert.Equal(t, 2, tokens.Spacing["16px"].Usage)
	assert.Equal(t, 1, tokens.Spacing["24px"].Usage)
}
