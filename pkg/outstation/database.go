package outstation

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"avaneesh/dnp3-tester/pkg/app"
	"avaneesh/dnp3-tester/pkg/types"
)

var ErrInvalidClass = errors.New("event class must be 0-3")

type pointKey struct {
	mtype types.MeasurementType
	index uint16
}

type point struct {
	class uint8
	value app.PointValue
}

type pointStore struct {
	mu     sync.Mutex
	points map[pointKey]*point
	events *EventBuffer
}

// Database stores measurement points keyed by type and index and generates events.
// The Database passed to a Transaction callback is already locked.
type Database struct {
	*pointStore
	inTx bool
}

// NewDatabase creates an empty database reporting changes to events
func NewDatabase(events *EventBuffer) *Database {
	return &Database{pointStore: &pointStore{
		points: make(map[pointKey]*point),
		events: events,
	}}
}

func (db *Database) lock() {
	if !db.inTx {
		db.mu.Lock()
	}
}

func (db *Database) unlock() {
	if !db.inTx {
		db.mu.Unlock()
	}
}

// Transaction runs fn with the database locked so readers see all of its updates or none
func (db *Database) Transaction(fn func(*Database)) {
	if db.inTx {
		fn(db)
		return
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	fn(&Database{pointStore: db.pointStore, inTx: true})
}

// Add registers a point with value 0 and no flags. Adding an existing point changes its class only.
func (db *Database) Add(index uint16, mtype types.MeasurementType, class uint8) error {
	if class > 3 {
		return fmt.Errorf("%w: %d", ErrInvalidClass, class)
	}
	db.lock()
	defer db.unlock()

	key := pointKey{mtype, index}
	if p, ok := db.points[key]; ok {
		p.class = class
		return nil
	}
	db.points[key] = &point{class: class, value: app.PointValue{Type: mtype, Index: index}}
	return nil
}

// Update sets a point's current value. It returns false when the point does not exist.
func (db *Database) Update(index uint16, meas types.Measurement, mode EventMode) bool {
	next := toPointValue(index, meas)

	db.lock()
	defer db.unlock()

	p, ok := db.points[pointKey{next.Type, index}]
	if !ok {
		return false
	}
	changed := p.value.Value != next.Value || p.value.Flags != next.Flags
	p.value = next

	if db.events != nil && (mode == EventModeForce || (mode == EventModeDetect && changed)) {
		db.events.Add(Event{Class: p.class, Value: next})
	}
	return true
}

// Value returns the current value of a point
func (db *Database) Value(index uint16, mtype types.MeasurementType) (app.PointValue, bool) {
	db.lock()
	defer db.unlock()

	p, ok := db.points[pointKey{mtype, index}]
	if !ok {
		return app.PointValue{}, false
	}
	return p.value, true
}

// Len returns the number of points
func (db *Database) Len() int {
	db.lock()
	defer db.unlock()
	return len(db.points)
}

// Clear removes every point
func (db *Database) Clear() {
	db.lock()
	defer db.unlock()
	db.points = make(map[pointKey]*point)
}

// Static returns the current values of one measurement type sorted by index
func (db *Database) Static(mtype types.MeasurementType) []app.PointValue {
	db.lock()
	defer db.unlock()

	var values []app.PointValue
	for key, p := range db.points {
		if key.mtype == mtype {
			values = append(values, p.value)
		}
	}
	sort.Slice(values, func(i, j int) bool { return values[i].Index < values[j].Index })
	return values
}

func toPointValue(index uint16, meas types.Measurement) app.PointValue {
	v := app.PointValue{Type: meas.Type(), Index: index, Flags: meas.GetFlags()}
	switch m := meas.(type) {
	case types.Binary:
		v.Value = boolValue(m.Value)
	case types.BinaryOutputStatus:
		v.Value = boolValue(m.Value)
	case types.Counter:
		v.Value = float64(m.Value)
	case types.Analog:
		v.Value = m.Value
	case types.AnalogOutputStatus:
		v.Value = m.Value
	}
	return v
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
