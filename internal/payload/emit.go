// File: internal/payload/emit.go
package payload

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"

	"github.com/stickerverse/figmaconvert/api/schemas"
)

// Accepted values of output.compression.
const (
	CompressionNone   = "none"
	CompressionGzip   = "gzip"
	CompressionBrotli = "brotli"
)

// Writer pools: emitting is hot when a convert run and a compress run
// share a process, and both writer types carry large internal buffers.
var (
	gzipWriterPool = sync.Pool{New: func() any {
		return gzip.NewWriter(io.Discard)
	}}
	brotliWriterPool = sync.Pool{New: func() any {
		return brotli.NewWriter(io.Discard)
	}}
)

// Write sends data through the selected compression layer onto w.
func Write(w io.Writer, data []byte, compression string) error {
	switch compression {
	case CompressionNone, "":
		_, err := w.Write(data)
		return err
	case CompressionGzip:
		zw := gzipWriterPool.Get().(*gzip.Writer)
		defer gzipWriterPool.Put(zw)
		zw.Reset(w)
		if _, err := zw.Write(data); err != nil {
			return err
		}
		return zw.Close()
	case CompressionBrotli:
		bw := brotliWriterPool.Get().(*brotli.Writer)
		defer brotliWriterPool.Put(bw)
		bw.Reset(w)
		if _, err := bw.Write(data); err != nil {
			return err
		}
		return bw.Close()
	default:
		return fmt.Errorf("unsupported compression %q", compression)
	}
}

// WriteFile encodes doc and writes it to path. The returned size is the
// raw JSON length before any compression layer.
func WriteFile(path string, doc *schemas.Document, compression string) (int, error) {
	data, err := Encode(doc)
	if err != nil {
		return 0, fmt.Errorf("failed to encode document: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	if err := Write(f, data, compression); err != nil {
		f.Close()
		return 0, fmt.Errorf("failed to write document: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	return len(data), nil
}

// ReadFile loads a document written by WriteFile, picking the decoder
// from the file extension: .gz and .br are unwrapped, anything else is
// read as plain JSON.
func ReadFile(path string) (*schemas.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip layer: %w", err)
		}
		defer zr.Close()
		r = zr
	case ".br":
		r = brotli.NewReader(f)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	var doc schemas.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return &doc, nil
}
