package outstation

import (
	"errors"
	"sync"
	"testing"

	"avaneesh/dnp3-tester/pkg/app"
	"avaneesh/dnp3-tester/pkg/types"
)

func TestDatabase_AddAndUpdate(t *testing.T) {
	events := NewEventBuffer(DefaultEventBufferConfig())
	db := NewDatabase(events)

	if err := db.Add(0, types.MeasurementAnalog, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := db.Add(1, types.MeasurementAnalog, 4); !errors.Is(err, ErrInvalidClass) {
		t.Errorf("expected ErrInvalidClass, got %v", err)
	}

	if db.Update(5, types.Analog{Value: 1}, EventModeDetect) {
		t.Error("update of missing point should fail")
	}
	if !db.Update(0, types.Analog{Value: 3.5, Flags: types.FlagOnline}, EventModeDetect) {
		t.Fatal("update failed")
	}

	v, ok := db.Value(0, types.MeasurementAnalog)
	if !ok || v.Value != 3.5 || !v.Flags.IsOnline() {
		t.Errorf("unexpected value %+v", v)
	}
	if events.Len() != 1 {
		t.Errorf("expected 1 event, got %d", events.Len())
	}
}

func TestDatabase_EventModes(t *testing.T) {
	tests := []struct {
		name   string
		mode   EventMode
		value  float64
		events int
	}{
		{"detect unchanged", EventModeDetect, 0, 0},
		{"detect changed", EventModeDetect, 1, 1},
		{"force unchanged", EventModeForce, 0, 1},
		{"suppress changed", EventModeSuppress, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := NewEventBuffer(DefaultEventBufferConfig())
			db := NewDatabase(events)
			db.Add(2, types.MeasurementCounter, 2)

			db.Update(2, types.Counter{Value: uint32(tt.value)}, tt.mode)
			if events.Len() != tt.events {
				t.Errorf("expected %d events, got %d", tt.events, events.Len())
			}
		})
	}
}

func TestDatabase_ClassZeroHasNoEvents(t *testing.T) {
	events := NewEventBuffer(DefaultEventBufferConfig())
	db := NewDatabase(events)
	db.Add(0, types.MeasurementBinary, 0)

	db.Update(0, types.Binary{Value: true}, EventModeForce)
	if events.Len() != 0 {
		t.Errorf("class 0 point produced %d events", events.Len())
	}
}

func TestDatabase_TransactionIsAtomic(t *testing.T) {
	db := NewDatabase(nil)
	db.Add(0, types.MeasurementAnalog, 0)
	db.Add(1, types.MeasurementAnalog, 0)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 200; i++ {
			db.Transaction(func(tx *Database) {
				tx.Update(0, types.Analog{Value: float64(i)}, EventModeDetect)
				tx.Update(1, types.Analog{Value: float64(i)}, EventModeDetect)
			})
		}
	}()

	for i := 0; i < 200; i++ {
		db.Transaction(func(tx *Database) {
			values := tx.Static(types.MeasurementAnalog)
			if values[0].Value != values[1].Value {
				t.Errorf("torn read: %v != %v", values[0].Value, values[1].Value)
			}
		})
	}
	wg.Wait()
}

func TestDatabase_StaticSortedAndClear(t *testing.T) {
	db := NewDatabase(nil)
	for _, i := range []uint16{4, 1, 3} {
		db.Add(i, types.MeasurementBinaryOutputStatus, 0)
	}
	db.Add(0, types.MeasurementAnalog, 0)

	values := db.Static(types.MeasurementBinaryOutputStatus)
	if len(values) != 3 || values[0].Index != 1 || values[2].Index != 4 {
		t.Errorf("unexpected order %+v", values)
	}

	db.Clear()
	if db.Len() != 0 {
		t.Errorf("expected empty database, got %d points", db.Len())
	}
}

func TestEventBuffer_DropsOldest(t *testing.T) {
	eb := NewEventBuffer(EventBufferConfig{MaxAnalog: 2})
	for i := 0; i < 3; i++ {
		eb.Add(Event{Class: 1, Value: app.PointValue{Type: types.MeasurementAnalog, Index: uint16(i)}})
	}
	eb.Add(Event{Class: 1, Value: app.PointValue{Type: types.MeasurementCounter}})

	if !eb.Overflowed() {
		t.Error("expected overflow")
	}
	got := eb.Take(app.ClassAll)[types.MeasurementAnalog]
	if len(got) != 2 || got[0].Index != 1 || got[1].Index != 2 {
		t.Errorf("unexpected events %+v", got)
	}
	if eb.Overflowed() {
		t.Error("overflow should clear after take")
	}
}

func TestEventBuffer_TakeByClass(t *testing.T) {
	eb := NewEventBuffer(DefaultEventBufferConfig())
	eb.Add(Event{Class: 1, Value: app.PointValue{Type: types.MeasurementBinary, Index: 1}})
	eb.Add(Event{Class: 3, Value: app.PointValue{Type: types.MeasurementBinary, Index: 3}})

	if eb.Pending() != app.Class1|app.Class3 {
		t.Errorf("unexpected pending classes %s", eb.Pending())
	}

	got := eb.Take(app.Class3)
	if len(got[types.MeasurementBinary]) != 1 || got[types.MeasurementBinary][0].Index != 3 {
		t.Errorf("unexpected class 3 events %+v", got)
	}
	if eb.Pending() != app.Class1 {
		t.Errorf("class 1 event should remain, pending %s", eb.Pending())
	}
}
