// Package points holds a session's table of configured data points.
package points

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"avaneesh/dnp3-tester/pkg/types"
)

var (
	ErrPointExists    = errors.New("already exists")
	ErrUnknownType    = errors.New("invalid point type")
	ErrUnknownQuality = errors.New("invalid quality")
)

// Type is the kind of a data point
type Type int

const (
	BinaryInput Type = iota
	BinaryOutput
	AnalogInput
	AnalogOutput
	Counter
)

var typeNames = [...]string{"BinaryInput", "BinaryOutput", "AnalogInput", "AnalogOutput", "Counter"}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// ParseType parses a type name such as "AnalogInput"
func ParseType(s string) (Type, error) {
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownType, s)
}

// MarshalText implements encoding.TextMarshaler
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// MeasurementType returns the engine database section backing t
func (t Type) MeasurementType() types.MeasurementType {
	switch t {
	case BinaryOutput:
		return types.MeasurementBinaryOutputStatus
	case AnalogInput:
		return types.MeasurementAnalog
	case AnalogOutput:
		return types.MeasurementAnalogOutputStatus
	case Counter:
		return types.MeasurementCounter
	default:
		return types.MeasurementBinary
	}
}

// FromMeasurementType is the inverse of Type.MeasurementType
func FromMeasurementType(m types.MeasurementType) Type {
	switch m {
	case types.MeasurementBinaryOutputStatus:
		return BinaryOutput
	case types.MeasurementAnalog:
		return AnalogInput
	case types.MeasurementAnalogOutputStatus:
		return AnalogOutput
	case types.MeasurementCounter:
		return Counter
	default:
		return BinaryInput
	}
}

// Quality of a point value
type Quality int

const (
	Online Quality = iota
	Offline
	CommLost
	LocalForced
	RemoteForced
)

var qualityNames = [...]string{"Online", "Offline", "CommLost", "LocalForced", "RemoteForced"}

func (q Quality) String() string {
	if q < 0 || int(q) >= len(qualityNames) {
		return fmt.Sprintf("Quality(%d)", int(q))
	}
	return qualityNames[q]
}

// MarshalText implements encoding.TextMarshaler
func (q Quality) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (q *Quality) UnmarshalText(b []byte) error {
	for i, name := range qualityNames {
		if name == string(b) {
			*q = Quality(i)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownQuality, b)
}

// QualityFromFlags maps DNP3 flags to Online when the online bit is set, else Offline
func QualityFromFlags(f types.Flags) Quality {
	if f.IsOnline() {
		return Online
	}
	return Offline
}

// Key identifies a point within a table
type Key struct {
	Type  Type
	Index uint16
}

func (k Key) String() string {
	return fmt.Sprintf("%s[%d]", k.Type, k.Index)
}

// DataPoint is one configured point
type DataPoint struct {
	Type      Type
	Index     uint16
	Name      string
	Value     float64
	Quality   Quality
	Timestamp time.Time
}

// Key returns the identity of p
func (p DataPoint) Key() Key {
	return Key{p.Type, p.Index}
}

// Table is an ordered set of points unique by (type, index)
type Table struct {
	mu     sync.RWMutex
	points []DataPoint
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{}
}

// Add appends an Online point with value 0
func (t *Table) Add(typ Type, index uint16, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := Key{typ, index}
	if t.find(key) >= 0 {
		return fmt.Errorf("data point %s %w", key, ErrPointExists)
	}
	t.points = append(t.points, DataPoint{
		Type:      typ,
		Index:     index,
		Name:      name,
		Quality:   Online,
		Timestamp: time.Now(),
	})
	return nil
}

// Replace swaps the whole table for pts, keeping the first of any duplicate keys
func (t *Table) Replace(pts []DataPoint) {
	seen := make(map[Key]bool, len(pts))
	next := make([]DataPoint, 0, len(pts))
	for _, p := range pts {
		if seen[p.Key()] {
			continue
		}
		seen[p.Key()] = true
		next = append(next, p)
	}

	t.mu.Lock()
	t.points = next
	t.mu.Unlock()
}

// Clear removes every point and returns how many there were
func (t *Table) Clear() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.points)
	t.points = nil
	return n
}

// ResetAll sets every point to value 0 and Offline
func (t *Table) ResetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	for i := range t.points {
		t.points[i].Value = 0
		t.points[i].Quality = Offline
		t.points[i].Timestamp = now
	}
}

// Set updates the value and quality of an existing point. It returns false when absent.
func (t *Table) Set(key Key, value float64, quality Quality) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.find(key)
	if i < 0 {
		return false
	}
	t.points[i].Value = value
	t.points[i].Quality = quality
	t.points[i].Timestamp = time.Now()
	return true
}

// Mutate applies fn to every point under the write lock
func (t *Table) Mutate(fn func(p *DataPoint)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.points {
		fn(&t.points[i])
	}
}

// Get returns a point by key
func (t *Table) Get(key Key) (DataPoint, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i := t.find(key)
	if i < 0 {
		return DataPoint{}, false
	}
	return t.points[i], true
}

// Snapshot returns a copy of the table in insertion order
func (t *Table) Snapshot() []DataPoint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]DataPoint(nil), t.points...)
}

// Len returns the number of points
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.points)
}

func (t *Table) find(key Key) int {
	for i, p := range t.points {
		if p.Type == key.Type && p.Index == key.Index {
			return i
		}
	}
	return -1
}
