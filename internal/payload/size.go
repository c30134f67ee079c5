// File: internal/payload/size.go
package payload

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/stickerverse/figmaconvert/api/schemas"
)

// json is the fast drop-in codec; documents run to tens of megabytes, so
// encoder throughput matters here.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// DefaultTargetMB is the size target applied when the config carries
	// none.
	DefaultTargetMB = 150.0
	// autoAggressiveMB is the size past which the aggressive pass kicks
	// in without being asked.
	autoAggressiveMB = 250.0
	// oversizeWarnMB still loads, but slowly enough to complain about.
	oversizeWarnMB = 200.0
)

// Encode renders the document as compact JSON.
func Encode(doc *schemas.Document) ([]byte, error) {
	return json.Marshal(doc)
}

// EncodedSizeMB measures the document's compact JSON footprint.
func EncodedSizeMB(doc *schemas.Document) (float64, error) {
	data, err := Encode(doc)
	if err != nil {
		return 0, err
	}
	return float64(len(data)) / (1024 * 1024), nil
}
