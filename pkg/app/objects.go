package app

// Object groups
const (
	GroupBinaryInput         uint8 = 1
	GroupBinaryInputEvent    uint8 = 2
	GroupBinaryOutput        uint8 = 10
	GroupBinaryOutputEvent   uint8 = 11
	GroupBinaryOutputCommand uint8 = 12
	GroupCounter             uint8 = 20
	GroupCounterEvent        uint8 = 22
	GroupAnalogInput         uint8 = 30
	GroupAnalogInputEvent    uint8 = 32
	GroupAnalogOutputStatus  uint8 = 40
	GroupAnalogOutputCommand uint8 = 41
	GroupAnalogOutputEvent   uint8 = 42
	GroupClassData           uint8 = 60
)

// QualifierCode is the object header qualifier byte
type QualifierCode uint8

const (
	Qualifier8BitStartStop  QualifierCode = 0x00
	Qualifier16BitStartStop QualifierCode = 0x01
	QualifierNoRange        QualifierCode = 0x06
	Qualifier8BitCount      QualifierCode = 0x07
	Qualifier16BitCount     QualifierCode = 0x08
	// Count of objects each prefixed with an index
	Qualifier8BitIndexCount  QualifierCode = 0x17
	Qualifier16BitIndexCount QualifierCode = 0x28
)

// PrefixSize returns the size of the index prefix carried before each object
func (q QualifierCode) PrefixSize() int {
	switch (uint8(q) >> 4) & 0x07 {
	case 1:
		return 1
	case 2:
		return 2
	case 3:
		return 4
	default:
		return 0
	}
}

// ObjectHeader represents a DNP3 object header
type ObjectHeader struct {
	Group     uint8
	Variation uint8
	Qualifier QualifierCode
	Range     Range
}

// Range represents the range/addressing in an object header
type Range interface {
	isRange()
}

// StartStopRange represents start-stop index range
type StartStopRange struct {
	Start uint32
	Stop  uint32
}

func (StartStopRange) isRange() {}

// CountRange represents count-based range
type CountRange struct {
	Count uint32
}

func (CountRange) isRange() {}

// NoRange represents headers with no range
type NoRange struct{}

func (NoRange) isRange() {}

// Count returns the number of objects described by a range
func Count(r Range) uint32 {
	switch v := r.(type) {
	case StartStopRange:
		if v.Stop >= v.Start {
			return v.Stop - v.Start + 1
		}
	case CountRange:
		return v.Count
	}
	return 0
}

// ClassField represents DNP3 class assignments
type ClassField uint8

const (
	ClassNone ClassField = 0
	Class0    ClassField = 1 << 0 // static data
	Class1    ClassField = 1 << 1
	Class2    ClassField = 1 << 2
	Class3    ClassField = 1 << 3
	ClassAll  ClassField = Class0 | Class1 | Class2 | Class3
)

// String returns string representation of ClassField
func (c ClassField) String() string {
	if c == ClassNone {
		return "None"
	}
	s := "Class"
	sep := ""
	for i := 0; i < 4; i++ {
		if c&(1<<i) != 0 {
			s += sep + string(rune('0'+i))
			sep = ","
		}
	}
	return s
}
