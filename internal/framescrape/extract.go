// Package framescrape recovers raw link frames from the engine's diagnostic text.
//
// The engine prints every frame as a spaced hex dump at the maximum decode level.
// Scraping that text is the only byte-exact signal the tap receives, so accuracy
// is bounded by the dump format produced by pkg/link.
package framescrape

import (
	"strconv"
	"strings"
)

// MinFrameLen is the size of a link header without user data
const MinFrameLen = 10

var preamble = [2]byte{0x05, 0x64}

// Extractor turns one diagnostic line into frame bytes, or nil when it carries none
type Extractor interface {
	Extract(text string) []byte
}

// ExtractorFunc adapts a function to Extractor
type ExtractorFunc func(text string) []byte

// Extract calls f(text)
func (f ExtractorFunc) Extract(text string) []byte {
	return f(text)
}

// HexScrape is the default Extractor
var HexScrape Extractor = ExtractorFunc(ExtractHexBytes)

// ExtractHexBytes collects every two-character hex token of text and returns the
// bytes from the first 05 64 preamble on, provided at least MinFrameLen remain.
// Only the first frame of a line is recovered.
func ExtractHexBytes(text string) []byte {
	var candidate []byte
	for _, tok := range strings.Fields(text) {
		tok = strings.Trim(tok, ",:[]")
		if len(tok) != 2 {
			continue
		}
		b, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			continue
		}
		candidate = append(candidate, byte(b))
	}

	for i := 0; i+1 < len(candidate); i++ {
		if candidate[i] == preamble[0] && candidate[i+1] == preamble[1] {
			if len(candidate)-i >= MinFrameLen {
				return candidate[i:]
			}
			return nil
		}
	}
	return nil
}
