package framescrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractHexBytes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []byte
	}{
		{
			name: "phys dump",
			text: "PHYS TX - 15 bytes 05 64 08 c3 01 00 02 00 aa 32 c0 d1 01 3c 02 06",
			want: []byte{0x05, 0x64, 0x08, 0xc3, 0x01, 0x00, 0x02, 0x00, 0xaa, 0x32, 0xc0, 0xd1, 0x01, 0x3c, 0x02, 0x06},
		},
		{
			name: "no hex",
			text: "no hex here",
		},
		{
			name: "short after preamble",
			text: "RX 05 64 08 c3 01",
		},
		{
			name: "leading noise and punctuation",
			text: "[ab] x: 05, 64, 05 c0 01 00 0a 00 [e0] 8c: zz",
			want: []byte{0x05, 0x64, 0x05, 0xc0, 0x01, 0x00, 0x0a, 0x00, 0xe0, 0x8c},
		},
		{
			name: "uppercase tokens",
			text: "05 64 05 C0 01 00 0A 00 E0 8C",
			want: []byte{0x05, 0x64, 0x05, 0xc0, 0x01, 0x00, 0x0a, 0x00, 0xe0, 0x8c},
		},
		{
			name: "non hex words skipped",
			text: "05 64 to 05 C0 01 00 is 0A 00 E0 8C",
			want: []byte{0x05, 0x64, 0x05, 0xc0, 0x01, 0x00, 0x0a, 0x00, 0xe0, 0x8c},
		},
		{
			name: "only first preamble considered",
			text: "05 64 01 02 05 64 05 c0 01 00 0a 00 e0 8c",
			want: []byte{0x05, 0x64, 0x01, 0x02, 0x05, 0x64, 0x05, 0xc0, 0x01, 0x00, 0x0a, 0x00, 0xe0, 0x8c},
		},
		{
			name: "first preamble too short",
			text: "ff 05 64 01 02 03 04 05",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractHexBytes(tt.text))
		})
	}
}

func TestHexScrapeExtractor(t *testing.T) {
	got := HexScrape.Extract("05 64 05 c0 01 00 0a 00 e0 8c")
	assert.Len(t, got, MinFrameLen)
}
