package app

import (
	"encoding/binary"
	"fmt"
	"math"

	"avaneesh/dnp3-tester/pkg/types"
)

// ObjectBuilder helps construct object headers and data
type ObjectBuilder struct {
	buf []byte
}

// NewObjectBuilder creates a new object builder
func NewObjectBuilder() *ObjectBuilder {
	return &ObjectBuilder{}
}

// AddHeader adds an object header without data
func (b *ObjectBuilder) AddHeader(group, variation uint8, qualifier QualifierCode, rng Range) {
	b.buf = append(b.buf, group, variation, uint8(qualifier))

	switch r := rng.(type) {
	case StartStopRange:
		if qualifier == Qualifier8BitStartStop {
			b.buf = append(b.buf, uint8(r.Start), uint8(r.Stop))
		} else {
			b.AddUint16(uint16(r.Start))
			b.AddUint16(uint16(r.Stop))
		}
	case CountRange:
		if qualifier == Qualifier8BitCount || qualifier == Qualifier8BitIndexCount {
			b.buf = append(b.buf, uint8(r.Count))
		} else {
			b.AddUint16(uint16(r.Count))
		}
	}
}

// AddByte adds a single byte
func (b *ObjectBuilder) AddByte(v uint8) {
	b.buf = append(b.buf, v)
}

// AddUint16 adds a 16-bit value (little endian)
func (b *ObjectBuilder) AddUint16(v uint16) {
	b.buf = binary.LittleEndian.AppendUint16(b.buf, v)
}

// AddUint32 adds a 32-bit value (little endian)
func (b *ObjectBuilder) AddUint32(v uint32) {
	b.buf = binary.LittleEndian.AppendUint32(b.buf, v)
}

// AddFloat32 adds an IEEE-754 single (little endian)
func (b *ObjectBuilder) AddFloat32(v float32) {
	b.AddUint32(math.Float32bits(v))
}

// AddRaw adds raw bytes without a header
func (b *ObjectBuilder) AddRaw(data []byte) {
	b.buf = append(b.buf, data...)
}

// Build returns a copy of the constructed object data
func (b *ObjectBuilder) Build() []byte {
	out := make([]byte, len(b.buf))
	copy(out, b.buf)
	return out
}

// BuildClassRead builds g60 headers for every class set in classes
func BuildClassRead(classes ClassField) []byte {
	b := NewObjectBuilder()
	// g60v1 is class 0, v2..v4 are classes 1..3
	for i := 0; i < 4; i++ {
		if classes&(1<<i) != 0 {
			b.AddHeader(GroupClassData, uint8(i+1), QualifierNoRange, NoRange{})
		}
	}
	return b.Build()
}

// BuildCommands encodes CROB (g12v1) and analog output (g41v1-v4) commands.
// Each command gets its own header with a 16-bit index prefix.
func BuildCommands(commands []types.Command) ([]byte, error) {
	b := NewObjectBuilder()
	for _, cmd := range commands {
		switch c := cmd.Data.(type) {
		case types.CROB:
			b.AddHeader(GroupBinaryOutputCommand, 1, Qualifier16BitIndexCount, CountRange{Count: 1})
			b.AddUint16(cmd.Index)
			b.AddRaw(EncodeCROB(c, types.CommandStatusSuccess))
		case types.AnalogOutput:
			b.AddHeader(GroupAnalogOutputCommand, c.Variation(), Qualifier16BitIndexCount, CountRange{Count: 1})
			b.AddUint16(cmd.Index)
			b.AddRaw(EncodeAnalogOutput(c, types.CommandStatusSuccess))
		default:
			return nil, fmt.Errorf("unsupported command type %T", cmd.Data)
		}
	}
	return b.Build(), nil
}
