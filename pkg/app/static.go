package app

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"avaneesh/dnp3-tester/pkg/types"
)

// binary state bit carried in the flags octet of g1v2, g2v1 and g10v2
const flagState uint8 = 0x80

// PointValue is a single measurement decoded from, or encoded into, a response
type PointValue struct {
	Type  types.MeasurementType
	Index uint16
	Value float64
	Flags types.Flags
}

type objectCodec struct {
	mtype  types.MeasurementType
	size   int
	decode func([]byte) (float64, types.Flags)
}

func gv(g, v uint8) uint16 { return uint16(g)<<8 | uint16(v) }

func flagsBinary(b []byte) (float64, types.Flags) {
	v := 0.0
	if b[0]&flagState != 0 {
		v = 1
	}
	return v, types.Flags(b[0] &^ flagState)
}

func flagsInt32(b []byte) (float64, types.Flags) {
	return float64(int32(binary.LittleEndian.Uint32(b[1:]))), types.Flags(b[0])
}

func flagsUint32(b []byte) (float64, types.Flags) {
	return float64(binary.LittleEndian.Uint32(b[1:])), types.Flags(b[0])
}

func flagsInt16(b []byte) (float64, types.Flags) {
	return float64(int16(binary.LittleEndian.Uint16(b[1:]))), types.Flags(b[0])
}

func flagsFloat(b []byte) (float64, types.Flags) {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[1:]))), types.Flags(b[0])
}

func noFlagUint32(b []byte) (float64, types.Flags) {
	return float64(binary.LittleEndian.Uint32(b)), types.FlagOnline
}

func noFlagInt32(b []byte) (float64, types.Flags) {
	return float64(int32(binary.LittleEndian.Uint32(b))), types.FlagOnline
}

var codecs = map[uint16]objectCodec{
	gv(1, 2):  {types.MeasurementBinary, 1, flagsBinary},
	gv(2, 1):  {types.MeasurementBinary, 1, flagsBinary},
	gv(2, 2):  {types.MeasurementBinary, 7, flagsBinary},
	gv(10, 2): {types.MeasurementBinaryOutputStatus, 1, flagsBinary},
	gv(11, 1): {types.MeasurementBinaryOutputStatus, 1, flagsBinary},
	gv(20, 1): {types.MeasurementCounter, 5, flagsUint32},
	gv(20, 5): {types.MeasurementCounter, 4, noFlagUint32},
	gv(22, 1): {types.MeasurementCounter, 5, flagsUint32},
	gv(30, 1): {types.MeasurementAnalog, 5, flagsInt32},
	gv(30, 2): {types.MeasurementAnalog, 3, flagsInt16},
	gv(30, 3): {types.MeasurementAnalog, 4, noFlagInt32},
	gv(30, 5): {types.MeasurementAnalog, 5, flagsFloat},
	gv(32, 1): {types.MeasurementAnalog, 5, flagsInt32},
	gv(32, 5): {types.MeasurementAnalog, 5, flagsFloat},
	gv(40, 1): {types.MeasurementAnalogOutputStatus, 5, flagsInt32},
	gv(40, 3): {types.MeasurementAnalogOutputStatus, 5, flagsFloat},
	gv(42, 5): {types.MeasurementAnalogOutputStatus, 5, flagsFloat},
}

// DecodeMeasurements extracts every supported measurement from response objects.
// Parsing stops at the first unsupported header; values decoded before it are returned.
func DecodeMeasurements(objects []byte) ([]PointValue, error) {
	var values []PointValue
	p := NewParser(objects)
	for p.HasMore() {
		h, err := p.ReadObjectHeader()
		if err != nil {
			return values, err
		}

		if h.Group == GroupBinaryInput && h.Variation == 1 {
			vals, err := decodePackedBinary(p, h)
			values = append(values, vals...)
			if err != nil {
				return values, err
			}
			continue
		}

		codec, ok := codecs[gv(h.Group, h.Variation)]
		if !ok {
			return values, fmt.Errorf("%w: g%dv%d", ErrUnsupportedObject, h.Group, h.Variation)
		}

		nextIndex := p.indexer(h)
		for i := uint32(0); i < Count(h.Range); i++ {
			index, err := nextIndex(i)
			if err != nil {
				return values, err
			}
			raw, err := p.ReadBytes(codec.size)
			if err != nil {
				return values, err
			}
			v, flags := codec.decode(raw)
			values = append(values, PointValue{Type: codec.mtype, Index: index, Value: v, Flags: flags})
		}
	}
	return values, nil
}

func decodePackedBinary(p *Parser, h *ObjectHeader) ([]PointValue, error) {
	count := Count(h.Range)
	raw, err := p.ReadBytes(int(count+7) / 8)
	if err != nil {
		return nil, err
	}
	start := uint32(0)
	if r, ok := h.Range.(StartStopRange); ok {
		start = r.Start
	}

	values := make([]PointValue, 0, count)
	for i := uint32(0); i < count; i++ {
		v := 0.0
		if raw[i/8]&(1<<(i%8)) != 0 {
			v = 1
		}
		values = append(values, PointValue{
			Type:  types.MeasurementBinary,
			Index: uint16(start + i),
			Value: v,
			Flags: types.FlagOnline,
		})
	}
	return values, nil
}

// static response variation per measurement type
var staticVariation = map[types.MeasurementType]struct{ group, variation uint8 }{
	types.MeasurementBinary:             {GroupBinaryInput, 2},
	types.MeasurementBinaryOutputStatus: {GroupBinaryOutput, 2},
	types.MeasurementCounter:            {GroupCounter, 1},
	types.MeasurementAnalog:             {GroupAnalogInput, 5},
	types.MeasurementAnalogOutputStatus: {GroupAnalogOutputStatus, 3},
}

// EncodeStatic writes values of one measurement type as g1v2, g10v2, g20v1, g30v5 or g40v3.
// Contiguous indices share a 16-bit start-stop header.
func EncodeStatic(b *ObjectBuilder, mtype types.MeasurementType, values []PointValue) {
	if len(values) == 0 {
		return
	}
	obj := staticVariation[mtype]

	sorted := make([]PointValue, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	for start := 0; start < len(sorted); {
		end := start
		for end+1 < len(sorted) && sorted[end+1].Index == sorted[end].Index+1 {
			end++
		}

		b.AddHeader(obj.group, obj.variation, Qualifier16BitStartStop, StartStopRange{
			Start: uint32(sorted[start].Index),
			Stop:  uint32(sorted[end].Index),
		})
		for _, v := range sorted[start : end+1] {
			encodeValue(b, mtype, v)
		}
		start = end + 1
	}
}

func encodeValue(b *ObjectBuilder, mtype types.MeasurementType, v PointValue) {
	flags := uint8(v.Flags)
	switch mtype {
	case types.MeasurementBinary, types.MeasurementBinaryOutputStatus:
		if v.Value != 0 {
			flags |= flagState
		}
		b.AddByte(flags)
	case types.MeasurementCounter:
		b.AddByte(flags)
		b.AddUint32(uint32(v.Value))
	default:
		b.AddByte(flags)
		b.AddFloat32(float32(v.Value))
	}
}
