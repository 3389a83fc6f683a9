package link

import "errors"

// Start bytes
const (
	StartByte1 uint8 = 0x05
	StartByte2 uint8 = 0x64
)

// Frame sizes
const (
	HeaderSize   = 10  // start bytes, length, control, addresses and header CRC
	MaxDataSize  = 250 // user data in a single frame
	MaxFrameSize = 292
	BlockSize    = 16 // CRC block size
)

// FunctionCode is the 4-bit link function code
type FunctionCode uint8

const (
	// Primary to secondary
	FuncResetLink           FunctionCode = 0x00
	FuncTestLinkStates      FunctionCode = 0x02
	FuncUserDataConfirmed   FunctionCode = 0x03
	FuncUserDataUnconfirmed FunctionCode = 0x04
	FuncRequestLinkStatus   FunctionCode = 0x09

	// Secondary to primary
	FuncAck                FunctionCode = 0x00
	FuncNack               FunctionCode = 0x01
	FuncLinkStatusResponse FunctionCode = 0x0B
	FuncLinkNotUsed        FunctionCode = 0x0F
)

// Control field bits
const (
	CtrlDIR      uint8 = 0x80 // 1 = master to outstation
	CtrlPRM      uint8 = 0x40 // 1 = from primary station
	CtrlFCB      uint8 = 0x20
	CtrlFCV      uint8 = 0x10
	CtrlFuncMask uint8 = 0x0F
)

// Errors
var (
	ErrInvalidStartBytes = errors.New("invalid start bytes")
	ErrInvalidLength     = errors.New("invalid frame length")
	ErrInvalidCRC        = errors.New("invalid CRC")
	ErrFrameTooShort     = errors.New("frame too short")
	ErrFrameTooLong      = errors.New("frame too long")
)

// Direction indicates frame direction
type Direction bool

const (
	DirectionMasterToOutstation Direction = true
	DirectionOutstationToMaster Direction = false
)

// String returns string representation of Direction
func (d Direction) String() string {
	if d {
		return "Master->Outstation"
	}
	return "Outstation->Master"
}

// IsPrimary indicates if frame is from primary station
type IsPrimary bool

const (
	PrimaryFrame   IsPrimary = true
	SecondaryFrame IsPrimary = false
)
