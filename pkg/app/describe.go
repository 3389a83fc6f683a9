package app

import (
	"fmt"

	"avaneesh/dnp3-tester/pkg/types"
)

// Describe renders one line per object header, and one per value when values is set.
// Output stops at the first header it cannot size.
func Describe(objects []byte, values bool) []string {
	var lines []string
	p := NewParser(objects)
	for p.HasMore() {
		h, err := p.ReadObjectHeader()
		if err != nil {
			return append(lines, fmt.Sprintf("  <%v>", err))
		}
		count := Count(h.Range)
		lines = append(lines, fmt.Sprintf("  g%dv%d qc=0x%02X count=%d", h.Group, h.Variation, uint8(h.Qualifier), count))
		if count == 0 {
			continue
		}

		size, decode := objectSize(h)
		if size == 0 {
			return append(lines, "  <undecoded objects>")
		}
		nextIndex := p.indexer(h)
		for i := uint32(0); i < count; i++ {
			index, err := nextIndex(i)
			if err != nil {
				return lines
			}
			raw, err := p.ReadBytes(size)
			if err != nil {
				return lines
			}
			if values && decode != nil {
				v, flags := decode(raw)
				lines = append(lines, fmt.Sprintf("    [%d] value=%v flags=0x%02X", index, v, uint8(flags)))
			} else if values {
				lines = append(lines, fmt.Sprintf("    [%d] % x", index, raw))
			}
		}
	}
	return lines
}

func objectSize(h *ObjectHeader) (int, func([]byte) (float64, types.Flags)) {
	switch {
	case h.Group == GroupBinaryOutputCommand && h.Variation == 1:
		return CROBSize, nil
	case h.Group == GroupAnalogOutputCommand && AnalogOutputSize(h.Variation) > 0:
		return AnalogOutputSize(h.Variation), nil
	}
	if c, ok := codecs[gv(h.Group, h.Variation)]; ok {
		return c.size, c.decode
	}
	return 0, nil
}
