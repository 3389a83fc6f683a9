package app

import (
	"fmt"
	"strings"

	"avaneesh/dnp3-tester/pkg/types"
)

// Application control field bits
const (
	CtrlFIR     uint8 = 0x80
	CtrlFIN     uint8 = 0x40
	CtrlCON     uint8 = 0x20
	CtrlUNS     uint8 = 0x10
	CtrlSeqMask uint8 = 0x0F
)

// APDU represents an Application Protocol Data Unit
type APDU struct {
	FIR      bool
	FIN      bool
	CON      bool
	UNS      bool
	Sequence uint8

	FunctionCode FunctionCode
	IIN          types.IIN // responses only

	Objects []byte
}

// NewRequest creates a single-fragment request
func NewRequest(fc FunctionCode, seq uint8, objects []byte) *APDU {
	return &APDU{
		FIR:          true,
		FIN:          true,
		Sequence:     seq & CtrlSeqMask,
		FunctionCode: fc,
		Objects:      objects,
	}
}

// NewResponse creates a single-fragment solicited response
func NewResponse(seq uint8, iin types.IIN, objects []byte) *APDU {
	return &APDU{
		FIR:          true,
		FIN:          true,
		Sequence:     seq & CtrlSeqMask,
		FunctionCode: FuncResponse,
		IIN:          iin,
		Objects:      objects,
	}
}

// Control returns the application control byte
func (a *APDU) Control() uint8 {
	c := a.Sequence & CtrlSeqMask
	if a.FIR {
		c |= CtrlFIR
	}
	if a.FIN {
		c |= CtrlFIN
	}
	if a.CON {
		c |= CtrlCON
	}
	if a.UNS {
		c |= CtrlUNS
	}
	return c
}

// Serialize converts APDU to wire format
func (a *APDU) Serialize() []byte {
	out := make([]byte, 0, 4+len(a.Objects))
	out = append(out, a.Control(), byte(a.FunctionCode))
	if a.FunctionCode.IsResponse() {
		out = append(out, a.IIN.IIN1, a.IIN.IIN2)
	}
	return append(out, a.Objects...)
}

// Parse parses wire format data into APDU
func Parse(data []byte) (*APDU, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("apdu too short: %d bytes", len(data))
	}

	ctrl := data[0]
	a := &APDU{
		FIR:          ctrl&CtrlFIR != 0,
		FIN:          ctrl&CtrlFIN != 0,
		CON:          ctrl&CtrlCON != 0,
		UNS:          ctrl&CtrlUNS != 0,
		Sequence:     ctrl & CtrlSeqMask,
		FunctionCode: FunctionCode(data[1]),
	}

	offset := 2
	if a.FunctionCode.IsResponse() {
		if len(data) < 4 {
			return nil, fmt.Errorf("response apdu too short for IIN: %d bytes", len(data))
		}
		a.IIN = types.IIN{IIN1: data[2], IIN2: data[3]}
		offset = 4
	}
	if offset < len(data) {
		a.Objects = data[offset:]
	}
	return a, nil
}

// String returns string representation of APDU
func (a *APDU) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "APDU{Func=%s, Seq=%d", a.FunctionCode, a.Sequence)
	for _, f := range []struct {
		set  bool
		name string
	}{{a.FIR, "FIR"}, {a.FIN, "FIN"}, {a.CON, "CON"}, {a.UNS, "UNS"}} {
		if f.set {
			b.WriteString(", " + f.name)
		}
	}
	if a.FunctionCode.IsResponse() {
		fmt.Fprintf(&b, ", IIN=[%02X,%02X]", a.IIN.IIN1, a.IIN.IIN2)
	}
	fmt.Fprintf(&b, ", ObjectsLen=%d}", len(a.Objects))
	return b.String()
}

// SequenceCounter generates 4-bit application sequence numbers
type SequenceCounter struct {
	seq uint8
}

// Next returns the current sequence and advances the counter
func (s *SequenceCounter) Next() uint8 {
	seq := s.seq
	s.seq = (s.seq + 1) & CtrlSeqMask
	return seq
}
