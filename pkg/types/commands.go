package types

import "fmt"

// ControlCode defines DNP3 control operations for binary outputs
type ControlCode uint8

// DNP3 Control Code values
const (
	ControlCodeNUL      ControlCode = 0x00 // No operation
	ControlCodePulseOn  ControlCode = 0x01 // Pulse output on
	ControlCodePulseOff ControlCode = 0x02 // Pulse output off
	ControlCodeLatchOn  ControlCode = 0x03 // Latch output on
	ControlCodeLatchOff ControlCode = 0x04 // Latch output off
)

// String returns the control code name
func (c ControlCode) String() string {
	switch c {
	case ControlCodeNUL:
		return "NUL"
	case ControlCodePulseOn:
		return "PulseOn"
	case ControlCodePulseOff:
		return "PulseOff"
	case ControlCodeLatchOn:
		return "LatchOn"
	case ControlCodeLatchOff:
		return "LatchOff"
	default:
		return fmt.Sprintf("Code(0x%02X)", uint8(c))
	}
}

// IsLatch reports whether c is latch on or latch off
func (c ControlCode) IsLatch() bool {
	return c == ControlCodeLatchOn || c == ControlCodeLatchOff
}

// CROB (Control Relay Output Block) represents a binary control command (G12V1)
type CROB struct {
	OpType    ControlCode
	Count     uint8
	OnTimeMs  uint32
	OffTimeMs uint32
}

// AnalogOutput is implemented by the four g41 analog output command variations
type AnalogOutput interface {
	// Variation is the g41 variation the command is encoded as
	Variation() uint8
	// Float64 is the commanded value
	Float64() float64
}

// AnalogOutputInt32 represents a 32-bit integer analog output command (G41V1)
type AnalogOutputInt32 struct {
	Value int32
}

// AnalogOutputInt16 represents a 16-bit integer analog output command (G41V2)
type AnalogOutputInt16 struct {
	Value int16
}

// AnalogOutputFloat32 represents a single precision analog output command (G41V3)
type AnalogOutputFloat32 struct {
	Value float32
}

// AnalogOutputDouble64 represents a double precision analog output command (G41V4)
type AnalogOutputDouble64 struct {
	Value float64
}

func (AnalogOutputInt32) Variation() uint8    { return 1 }
func (AnalogOutputInt16) Variation() uint8    { return 2 }
func (AnalogOutputFloat32) Variation() uint8  { return 3 }
func (AnalogOutputDouble64) Variation() uint8 { return 4 }

func (a AnalogOutputInt32) Float64() float64    { return float64(a.Value) }
func (a AnalogOutputInt16) Float64() float64    { return float64(a.Value) }
func (a AnalogOutputFloat32) Float64() float64  { return float64(a.Value) }
func (a AnalogOutputDouble64) Float64() float64 { return a.Value }

// Command is a CROB or an AnalogOutput addressed to a point index
type Command struct {
	Index uint16
	Data  interface{}
}

// NewLatchCommand creates a latch on (on=true) or latch off CROB command
func NewLatchCommand(index uint16, on bool) Command {
	code := ControlCodeLatchOff
	if on {
		code = ControlCodeLatchOn
	}
	return Command{
		Index: index,
		Data:  CROB{OpType: code, Count: 1},
	}
}

// NewAnalogOutputCommand creates a G41V1 analog output command
func NewAnalogOutputCommand(index uint16, value int32) Command {
	return Command{
		Index: index,
		Data:  AnalogOutputInt32{Value: value},
	}
}

// CommandStatus indicates the result of a command operation
type CommandStatus uint8

// DNP3 Command Status values
const (
	CommandStatusSuccess           CommandStatus = 0
	CommandStatusTimeout           CommandStatus = 1
	CommandStatusNoSelect          CommandStatus = 2
	CommandStatusFormatError       CommandStatus = 3
	CommandStatusNotSupported      CommandStatus = 4
	CommandStatusAlreadyActive     CommandStatus = 5
	CommandStatusHardwareError     CommandStatus = 6
	CommandStatusLocal             CommandStatus = 7
	CommandStatusTooManyOps        CommandStatus = 8
	CommandStatusNotAuthorized     CommandStatus = 9
	CommandStatusAutomationInhibit CommandStatus = 10
	CommandStatusOutOfRange        CommandStatus = 12
	CommandStatusUndefined         CommandStatus = 127
)

// String returns a string representation of CommandStatus
func (s CommandStatus) String() string {
	switch s {
	case CommandStatusSuccess:
		return "Success"
	case CommandStatusTimeout:
		return "Timeout"
	case CommandStatusNoSelect:
		return "NoSelect"
	case CommandStatusFormatError:
		return "FormatError"
	case CommandStatusNotSupported:
		return "NotSupported"
	case CommandStatusAlreadyActive:
		return "AlreadyActive"
	case CommandStatusHardwareError:
		return "HardwareError"
	case CommandStatusLocal:
		return "Local"
	case CommandStatusTooManyOps:
		return "TooManyOps"
	case CommandStatusNotAuthorized:
		return "NotAuthorized"
	case CommandStatusAutomationInhibit:
		return "AutomationInhibit"
	case CommandStatusOutOfRange:
		return "OutOfRange"
	case CommandStatusUndefined:
		return "Undefined"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// IsSuccess returns true if the command was successful
func (s CommandStatus) IsSuccess() bool {
	return s == CommandStatusSuccess
}
