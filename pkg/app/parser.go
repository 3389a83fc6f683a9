package app

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrInsufficientData  = errors.New("insufficient data")
	ErrUnsupportedObject = errors.New("unsupported object")
)

// Parser walks object headers and data
type Parser struct {
	data   []byte
	offset int
}

// NewParser creates a new parser for object data
func NewParser(data []byte) *Parser {
	return &Parser{data: data}
}

// HasMore returns true if there is more data to parse
func (p *Parser) HasMore() bool {
	return p.offset < len(p.data)
}

// Remaining returns the number of bytes remaining
func (p *Parser) Remaining() int {
	return len(p.data) - p.offset
}

// ReadObjectHeader reads an object header
func (p *Parser) ReadObjectHeader() (*ObjectHeader, error) {
	raw, err := p.ReadBytes(3)
	if err != nil {
		return nil, err
	}
	h := &ObjectHeader{
		Group:     raw[0],
		Variation: raw[1],
		Qualifier: QualifierCode(raw[2]),
	}

	switch h.Qualifier & 0x0F {
	case 0x00:
		b, err := p.ReadBytes(2)
		if err != nil {
			return nil, err
		}
		h.Range = StartStopRange{Start: uint32(b[0]), Stop: uint32(b[1])}
	case 0x01:
		b, err := p.ReadBytes(4)
		if err != nil {
			return nil, err
		}
		h.Range = StartStopRange{
			Start: uint32(binary.LittleEndian.Uint16(b)),
			Stop:  uint32(binary.LittleEndian.Uint16(b[2:])),
		}
	case 0x06:
		h.Range = NoRange{}
	case 0x07:
		b, err := p.ReadBytes(1)
		if err != nil {
			return nil, err
		}
		h.Range = CountRange{Count: uint32(b[0])}
	case 0x08:
		b, err := p.ReadBytes(2)
		if err != nil {
			return nil, err
		}
		h.Range = CountRange{Count: uint32(binary.LittleEndian.Uint16(b))}
	default:
		return nil, fmt.Errorf("%w: qualifier 0x%02X", ErrUnsupportedObject, uint8(h.Qualifier))
	}
	return h, nil
}

// ReadBytes reads n bytes from the parser
func (p *Parser) ReadBytes(n int) ([]byte, error) {
	if p.Remaining() < n {
		return nil, ErrInsufficientData
	}
	b := p.data[p.offset : p.offset+n]
	p.offset += n
	return b, nil
}

// ReadIndex reads an index prefix of the given size
func (p *Parser) ReadIndex(size int) (uint16, error) {
	b, err := p.ReadBytes(size)
	if err != nil {
		return 0, err
	}
	switch size {
	case 1:
		return uint16(b[0]), nil
	case 2:
		return binary.LittleEndian.Uint16(b), nil
	default:
		return uint16(binary.LittleEndian.Uint32(b)), nil
	}
}

// indexer returns the point index of each object under h, reading prefixes as needed
func (p *Parser) indexer(h *ObjectHeader) func(i uint32) (uint16, error) {
	prefix := h.Qualifier.PrefixSize()
	start := uint32(0)
	if r, ok := h.Range.(StartStopRange); ok {
		start = r.Start
	}
	return func(i uint32) (uint16, error) {
		if prefix > 0 {
			return p.ReadIndex(prefix)
		}
		return uint16(start + i), nil
	}
}
