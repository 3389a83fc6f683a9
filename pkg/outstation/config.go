package outstation

import (
	"time"

	"avaneesh/dnp3-tester/pkg/types"
)

// OutstationConfig configures an outstation session
type OutstationConfig struct {
	ID            string
	LocalAddress  uint16
	RemoteAddress uint16

	// SelectTimeout bounds the time between SELECT and OPERATE
	SelectTimeout time.Duration

	EventBuffers EventBufferConfig
}

// EventBufferConfig sets the per-type event buffer capacity
type EventBufferConfig struct {
	MaxBinary             int
	MaxBinaryOutputStatus int
	MaxCounter            int
	MaxAnalog             int
	MaxAnalogOutputStatus int
}

// DefaultEventBufferConfig returns the default event buffer sizes
func DefaultEventBufferConfig() EventBufferConfig {
	return EventBufferConfig{
		MaxBinary:             100,
		MaxBinaryOutputStatus: 100,
		MaxCounter:            50,
		MaxAnalog:             100,
		MaxAnalogOutputStatus: 100,
	}
}

// DefaultOutstationConfig returns outstation 10 answering master 1
func DefaultOutstationConfig() OutstationConfig {
	return OutstationConfig{
		ID:            "outstation",
		LocalAddress:  10,
		RemoteAddress: 1,
		SelectTimeout: 10 * time.Second,
		EventBuffers:  DefaultEventBufferConfig(),
	}
}

func (c EventBufferConfig) limit(mtype types.MeasurementType) int {
	switch mtype {
	case types.MeasurementBinary:
		return c.MaxBinary
	case types.MeasurementBinaryOutputStatus:
		return c.MaxBinaryOutputStatus
	case types.MeasurementCounter:
		return c.MaxCounter
	case types.MeasurementAnalog:
		return c.MaxAnalog
	case types.MeasurementAnalogOutputStatus:
		return c.MaxAnalogOutputStatus
	}
	return 0
}

// ControlHandler processes commands from the master.
// Operate callbacks may update the database; they run outside any transaction.
type ControlHandler interface {
	SelectCROB(crob types.CROB, index uint16) types.CommandStatus
	OperateCROB(crob types.CROB, index uint16, opType OperateType, db *Database) types.CommandStatus

	// Analog output callbacks receive any g41 variation
	SelectAnalogOutput(ao types.AnalogOutput, index uint16) types.CommandStatus
	OperateAnalogOutput(ao types.AnalogOutput, index uint16, opType OperateType, db *Database) types.CommandStatus
}

// OperateType indicates how an operate was requested
type OperateType int

const (
	OperateTypeSelectBeforeOperate OperateType = iota
	OperateTypeDirectOperate
	OperateTypeDirectOperateNoAck
)

// String returns the operate type name
func (t OperateType) String() string {
	switch t {
	case OperateTypeSelectBeforeOperate:
		return "SelectBeforeOperate"
	case OperateTypeDirectOperate:
		return "DirectOperate"
	case OperateTypeDirectOperateNoAck:
		return "DirectOperateNoAck"
	default:
		return "Unknown"
	}
}

// EventMode controls event generation on update
type EventMode int

const (
	// EventModeDetect creates an event when the value or flags change
	EventModeDetect EventMode = iota
	EventModeForce
	EventModeSuppress
)

// RejectingControlHandler answers every command with NotSupported
type RejectingControlHandler struct{}

func (RejectingControlHandler) SelectCROB(types.CROB, uint16) types.CommandStatus {
	return types.CommandStatusNotSupported
}

func (RejectingControlHandler) OperateCROB(types.CROB, uint16, OperateType, *Database) types.CommandStatus {
	return types.CommandStatusNotSupported
}

func (RejectingControlHandler) SelectAnalogOutput(types.AnalogOutput, uint16) types.CommandStatus {
	return types.CommandStatusNotSupported
}

func (RejectingControlHandler) OperateAnalogOutput(types.AnalogOutput, uint16, OperateType, *Database) types.CommandStatus {
	return types.CommandStatusNotSupported
}
