package link

import (
	"fmt"
	"io"
)

// Frame represents a DNP3 link layer frame
type Frame struct {
	Control     uint8
	Destination uint16
	Source      uint16

	// Derived from the control byte
	Dir          Direction
	IsPrimary    IsPrimary
	FCB          bool
	FCV          bool
	FunctionCode FunctionCode

	UserData []byte // without CRCs
}

// NewFrame creates a new link frame
func NewFrame(dir Direction, isPrimary IsPrimary, fc FunctionCode, dst, src uint16, data []byte) *Frame {
	f := &Frame{
		Dir:          dir,
		IsPrimary:    isPrimary,
		FunctionCode: fc,
		Destination:  dst,
		Source:       src,
		UserData:     data,
	}
	f.buildControl()
	return f
}

func (f *Frame) buildControl() {
	f.Control = uint8(f.FunctionCode) & CtrlFuncMask
	if f.Dir == DirectionMasterToOutstation {
		f.Control |= CtrlDIR
	}
	if f.IsPrimary == PrimaryFrame {
		f.Control |= CtrlPRM
		if f.FCV {
			f.Control |= CtrlFCV
			if f.FCB {
				f.Control |= CtrlFCB
			}
		}
	}
}

func (f *Frame) parseControl() {
	f.FunctionCode = FunctionCode(f.Control & CtrlFuncMask)
	f.Dir = Direction(f.Control&CtrlDIR != 0)
	f.IsPrimary = IsPrimary(f.Control&CtrlPRM != 0)
	if f.IsPrimary == PrimaryFrame {
		f.FCV = f.Control&CtrlFCV != 0
		f.FCB = f.Control&CtrlFCB != 0
	}
}

// Serialize converts frame to wire format with CRCs
func (f *Frame) Serialize() ([]byte, error) {
	dataLen := len(f.UserData)
	if dataLen > MaxDataSize {
		return nil, ErrFrameTooLong
	}

	out := make([]byte, 8, WireSize(dataLen))
	out[0] = StartByte1
	out[1] = StartByte2
	out[2] = byte(dataLen + 5) // control + addresses
	out[3] = f.Control
	out[4] = byte(f.Destination)
	out[5] = byte(f.Destination >> 8)
	out[6] = byte(f.Source)
	out[7] = byte(f.Source >> 8)

	crc := CalculateCRC(out)
	out = append(out, byte(crc), byte(crc>>8))
	return append(out, AddCRCs(f.UserData)...), nil
}

// Parse parses one frame from the start of data and returns the bytes consumed
func Parse(data []byte) (*Frame, int, error) {
	if len(data) < HeaderSize {
		return nil, 0, ErrFrameTooShort
	}
	if data[0] != StartByte1 || data[1] != StartByte2 {
		return nil, 0, ErrInvalidStartBytes
	}

	length := int(data[2])
	if length < 5 {
		return nil, 0, ErrInvalidLength
	}
	dataLen := length - 5
	size := WireSize(dataLen)
	if len(data) < size {
		return nil, 0, ErrFrameTooShort
	}
	if !VerifyCRC(data[:HeaderSize]) {
		return nil, 0, ErrInvalidCRC
	}

	f := &Frame{
		Control:     data[3],
		Destination: uint16(data[4]) | uint16(data[5])<<8,
		Source:      uint16(data[6]) | uint16(data[7])<<8,
	}
	f.parseControl()

	if dataLen > 0 {
		userData, err := RemoveCRCs(data[HeaderSize:size])
		if err != nil {
			return nil, 0, err
		}
		f.UserData = userData
	}
	return f, size, nil
}

// ReadFrame reads exactly one encoded frame from a byte stream.
// Bytes preceding the start sequence are discarded.
func ReadFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, HeaderSize)
	one := header[:1]

	// Sync on 0x05 0x64
	var prev byte
	for {
		if _, err := io.ReadFull(r, one); err != nil {
			return nil, err
		}
		if prev == StartByte1 && one[0] == StartByte2 {
			break
		}
		prev = one[0]
	}

	header[0], header[1] = StartByte1, StartByte2
	if _, err := io.ReadFull(r, header[2:]); err != nil {
		return nil, err
	}
	if header[2] < 5 {
		return nil, ErrInvalidLength
	}

	size := WireSize(int(header[2]) - 5)
	frame := make([]byte, size)
	copy(frame, header)
	if _, err := io.ReadFull(r, frame[HeaderSize:]); err != nil {
		return nil, err
	}
	return frame, nil
}

// String returns a string representation of the frame
func (f *Frame) String() string {
	return fmt.Sprintf("Frame{Dir=%s, Func=%d, Dst=%d, Src=%d, DataLen=%d}",
		f.Dir, f.FunctionCode, f.Destination, f.Source, len(f.UserData))
}
