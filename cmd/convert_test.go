// File: cmd/convert_test.go
package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stickerverse/figmaconvert/internal/payload"
)

func TestParseViewport(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		width   int
		height  int
		wantErr bool
	}{
		{name: "standard", input: "1440x900", width: 1440, height: 900},
		{name: "uppercase separator", input: "1280X800", width: 1280, height: 800},
		{name: "padded", input: " 1920 x 1080 ", width: 1920, height: 1080},
		{name: "missing separator", input: "1440", wantErr: true},
		{name: "zero width", input: "0x900", wantErr: true},
		{name: "negative height", input: "1440x-900", wantErr: true},
		{name: "not a number", input: "wide-tall", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			width, height, err := parseViewport(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.width, width)
			assert.Equal(t, tc.height, height)
		})
	}
}

func TestPathForCompression(t *testing.T) {
	assert.Equal(t, "out.json", pathForCompression("out.json", payload.CompressionNone))
	assert.Equal(t, "out.json.gz", pathForCompression("out.json", payload.CompressionGzip))
	assert.Equal(t, "out.json.gz", pathForCompression("out.json.gz", payload.CompressionGzip))
	assert.Equal(t, "out.json.br", pathForCompression("out.json", payload.CompressionBrotli))
	assert.Equal(t, "out.json.br", pathForCompression("out.json.br", payload.CompressionBrotli))
}
