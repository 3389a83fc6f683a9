package types

// MeasurementType identifies a point database section
type MeasurementType int

const (
	MeasurementBinary MeasurementType = iota
	MeasurementBinaryOutputStatus
	MeasurementCounter
	MeasurementAnalog
	MeasurementAnalogOutputStatus
)

// String returns the measurement type name
func (m MeasurementType) String() string {
	switch m {
	case MeasurementBinary:
		return "Binary"
	case MeasurementBinaryOutputStatus:
		return "BinaryOutputStatus"
	case MeasurementCounter:
		return "Counter"
	case MeasurementAnalog:
		return "Analog"
	case MeasurementAnalogOutputStatus:
		return "AnalogOutputStatus"
	default:
		return "Unknown"
	}
}

// Measurement is implemented by every measurement value
type Measurement interface {
	Type() MeasurementType
	GetFlags() Flags
	GetTime() DNP3Time
}

// Binary represents a binary input (on/off) measurement
type Binary struct {
	Value bool
	Flags Flags
	Time  DNP3Time
}

func (b Binary) Type() MeasurementType { return MeasurementBinary }
func (b Binary) GetFlags() Flags       { return b.Flags }
func (b Binary) GetTime() DNP3Time     { return b.Time }

// BinaryOutputStatus represents the status of a binary output
type BinaryOutputStatus struct {
	Value bool
	Flags Flags
	Time  DNP3Time
}

func (b BinaryOutputStatus) Type() MeasurementType { return MeasurementBinaryOutputStatus }
func (b BinaryOutputStatus) GetFlags() Flags       { return b.Flags }
func (b BinaryOutputStatus) GetTime() DNP3Time     { return b.Time }

// Counter represents a counter value
type Counter struct {
	Value uint32
	Flags Flags
	Time  DNP3Time
}

func (c Counter) Type() MeasurementType { return MeasurementCounter }
func (c Counter) GetFlags() Flags       { return c.Flags }
func (c Counter) GetTime() DNP3Time     { return c.Time }

// Analog represents an analog input measurement
type Analog struct {
	Value float64
	Flags Flags
	Time  DNP3Time
}

func (a Analog) Type() MeasurementType { return MeasurementAnalog }
func (a Analog) GetFlags() Flags       { return a.Flags }
func (a Analog) GetTime() DNP3Time     { return a.Time }

// AnalogOutputStatus represents the status of an analog output
type AnalogOutputStatus struct {
	Value float64
	Flags Flags
	Time  DNP3Time
}

func (a AnalogOutputStatus) Type() MeasurementType { return MeasurementAnalogOutputStatus }
func (a AnalogOutputStatus) GetFlags() Flags       { return a.Flags }
func (a AnalogOutputStatus) GetTime() DNP3Time     { return a.Time }

// Indexed measurement types delivered to read handlers

// IndexedBinary is a binary measurement with its index
type IndexedBinary struct {
	Index uint16
	Value Binary
}

// IndexedBinaryOutputStatus is a binary output status with its index
type IndexedBinaryOutputStatus struct {
	Index uint16
	Value BinaryOutputStatus
}

// IndexedCounter is a counter measurement with its index
type IndexedCounter struct {
	Index uint16
	Value Counter
}

// IndexedAnalog is an analog measurement with its index
type IndexedAnalog struct {
	Index uint16
	Value Analog
}

// IndexedAnalogOutputStatus is an analog output status with its index
type IndexedAnalogOutputStatus struct {
	Index uint16
	Value AnalogOutputStatus
}
