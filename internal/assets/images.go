// File: internal/assets/images.go
package assets

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"image"
	"net/url"
	"strings"

	// Registered decoders for dimension probing.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// ContentKey derives the stable asset identifier from raw content. Assets
// are content-addressed so the same image referenced by ten elements is
// stored once.
func ContentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

// Base64SizeKB estimates the decoded size of a base64 payload in KB.
func Base64SizeKB(data string) float64 {
	return float64(len(data)) * 0.75 / 1024
}

// RawSizeKB reports the size of raw bytes in KB.
func RawSizeKB(data []byte) float64 {
	return float64(len(data)) / 1024
}

// DecodeDataURL unpacks a data: URI into raw bytes and its media type.
// Returns ok=false for anything that is not a well-formed data URI.
func DecodeDataURL(s string) (data []byte, mediaType string, ok bool) {
	const prefix = "data:"
	if !strings.HasPrefix(s, prefix) {
		return nil, "", false
	}
	meta, payload, found := strings.Cut(s[len(prefix):], ",")
	if !found {
		return nil, "", false
	}
	if strings.HasSuffix(meta, ";base64") {
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", false
		}
		return raw, strings.TrimSuffix(meta, ";base64"), true
	}
	unescaped, err := url.QueryUnescape(payload)
	if err != nil {
		return nil, "", false
	}
	return []byte(unescaped), meta, true
}

// DetectFormat sniffs the image format from magic bytes, falling back to
// the transport content type. Returns one of png, jpeg, gif, webp, svg, or
// an empty string when unknown.
func DetectFormat(data []byte, contentType string) string {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG")):
		return "png"
	case bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		return "jpeg"
	case bytes.HasPrefix(data, []byte("GIF8")):
		return "gif"
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "webp"
	case looksLikeSVG(data):
		return "svg"
	}

	media := strings.ToLower(contentType)
	if i := strings.IndexByte(media, ';'); i >= 0 {
		media = media[:i]
	}
	switch strings.TrimSpace(media) {
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpeg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/svg+xml":
		return "svg"
	}
	return ""
}

func looksLikeSVG(data []byte) bool {
	head := bytes.TrimSpace(data)
	if len(head) > 256 {
		head = head[:256]
	}
	return bytes.HasPrefix(head, []byte("<svg")) ||
		(bytes.HasPrefix(head, []byte("<?xml")) && bytes.Contains(head, []byte("<svg")))
}

// ImageDims probes pixel dimensions without a full decode. Formats the
// standard library cannot parse (webp, svg) report 0x0.
func ImageDims(data []byte) (width, height int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
