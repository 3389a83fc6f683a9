package app

import (
	"encoding/binary"
	"fmt"
	"math"

	"avaneesh/dnp3-tester/pkg/types"
)

// Object sizes excluding index prefixes
const (
	CROBSize                 = 11
	AnalogOutputInt32Size    = 5
	AnalogOutputInt16Size    = 3
	AnalogOutputFloat32Size  = 5
	AnalogOutputDouble64Size = 9
)

// AnalogOutputSize returns the object size of a g41 variation, or 0 when unsupported
func AnalogOutputSize(variation uint8) int {
	switch variation {
	case 1:
		return AnalogOutputInt32Size
	case 2:
		return AnalogOutputInt16Size
	case 3:
		return AnalogOutputFloat32Size
	case 4:
		return AnalogOutputDouble64Size
	}
	return 0
}

// EncodeCROB serializes a g12v1 object
func EncodeCROB(c types.CROB, status types.CommandStatus) []byte {
	buf := make([]byte, CROBSize)
	buf[0] = uint8(c.OpType)
	buf[1] = c.Count
	binary.LittleEndian.PutUint32(buf[2:], c.OnTimeMs)
	binary.LittleEndian.PutUint32(buf[6:], c.OffTimeMs)
	buf[10] = uint8(status)
	return buf
}

// DecodeCROB parses a g12v1 object
func DecodeCROB(data []byte) (types.CROB, types.CommandStatus, error) {
	if len(data) < CROBSize {
		return types.CROB{}, 0, fmt.Errorf("crob too short: %d bytes", len(data))
	}
	return types.CROB{
		OpType:    types.ControlCode(data[0]),
		Count:     data[1],
		OnTimeMs:  binary.LittleEndian.Uint32(data[2:]),
		OffTimeMs: binary.LittleEndian.Uint32(data[6:]),
	}, types.CommandStatus(data[10]), nil
}

// EncodeAnalogOutputInt32 serializes a g41v1 object
func EncodeAnalogOutputInt32(a types.AnalogOutputInt32, status types.CommandStatus) []byte {
	buf := make([]byte, AnalogOutputInt32Size)
	binary.LittleEndian.PutUint32(buf, uint32(a.Value))
	buf[4] = uint8(status)
	return buf
}

// EncodeAnalogOutput serializes any g41 variation
func EncodeAnalogOutput(a types.AnalogOutput, status types.CommandStatus) []byte {
	switch c := a.(type) {
	case types.AnalogOutputInt32:
		return EncodeAnalogOutputInt32(c, status)
	case types.AnalogOutputInt16:
		buf := make([]byte, AnalogOutputInt16Size)
		binary.LittleEndian.PutUint16(buf, uint16(c.Value))
		buf[2] = uint8(status)
		return buf
	case types.AnalogOutputFloat32:
		buf := make([]byte, AnalogOutputFloat32Size)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(c.Value))
		buf[4] = uint8(status)
		return buf
	case types.AnalogOutputDouble64:
		buf := make([]byte, AnalogOutputDouble64Size)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(c.Value))
		buf[8] = uint8(status)
		return buf
	}
	return nil
}

// DecodeAnalogOutput parses a g41 object of the given variation
func DecodeAnalogOutput(variation uint8, data []byte) (types.AnalogOutput, types.CommandStatus, error) {
	size := AnalogOutputSize(variation)
	if size == 0 {
		return nil, 0, fmt.Errorf("%w: g41v%d", ErrUnsupportedObject, variation)
	}
	if len(data) < size {
		return nil, 0, fmt.Errorf("analog output too short: %d bytes", len(data))
	}
	status := types.CommandStatus(data[size-1])
	switch variation {
	case 1:
		return types.AnalogOutputInt32{Value: int32(binary.LittleEndian.Uint32(data))}, status, nil
	case 2:
		return types.AnalogOutputInt16{Value: int16(binary.LittleEndian.Uint16(data))}, status, nil
	case 3:
		return types.AnalogOutputFloat32{Value: math.Float32frombits(binary.LittleEndian.Uint32(data))}, status, nil
	default:
		return types.AnalogOutputDouble64{Value: math.Float64frombits(binary.LittleEndian.Uint64(data))}, status, nil
	}
}

// ControlItem is one command decoded from a control request or response
type ControlItem struct {
	Command types.Command
	Status  types.CommandStatus
}

// ParseCommands decodes every g12v1 and g41v1-v4 object in a control request or response
func ParseCommands(objects []byte) ([]ControlItem, error) {
	var items []ControlItem
	p := NewParser(objects)
	for p.HasMore() {
		h, err := p.ReadObjectHeader()
		if err != nil {
			return items, err
		}

		var size int
		switch {
		case h.Group == GroupBinaryOutputCommand && h.Variation == 1:
			size = CROBSize
		case h.Group == GroupAnalogOutputCommand && AnalogOutputSize(h.Variation) > 0:
			size = AnalogOutputSize(h.Variation)
		default:
			return items, fmt.Errorf("%w: g%dv%d in control", ErrUnsupportedObject, h.Group, h.Variation)
		}

		nextIndex := p.indexer(h)
		for i := uint32(0); i < Count(h.Range); i++ {
			index, err := nextIndex(i)
			if err != nil {
				return items, err
			}
			raw, err := p.ReadBytes(size)
			if err != nil {
				return items, err
			}

			item := ControlItem{Command: types.Command{Index: index}}
			if h.Group == GroupBinaryOutputCommand {
				crob, status, _ := DecodeCROB(raw)
				item.Command.Data, item.Status = crob, status
			} else {
				ao, status, _ := DecodeAnalogOutput(h.Variation, raw)
				item.Command.Data, item.Status = ao, status
			}
			items = append(items, item)
		}
	}
	return items, nil
}
