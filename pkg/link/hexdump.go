package link

import (
	"encoding/hex"
	"strings"
)

// HexDump formats data as lowercase space separated hex, 16 bytes per line
func HexDump(data []byte) string {
	var b strings.Builder
	for i := 0; i < len(data); i += BlockSize {
		if i > 0 {
			b.WriteByte('\n')
		}
		end := min(i+BlockSize, len(data))
		for j, v := range data[i:end] {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(hex.EncodeToString([]byte{v}))
		}
	}
	return b.String()
}
