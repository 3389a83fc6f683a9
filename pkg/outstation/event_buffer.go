package outstation

import (
	"container/list"
	"sync"

	"avaneesh/dnp3-tester/pkg/app"
	"avaneesh/dnp3-tester/pkg/types"
)

// Event is a measurement change waiting to be reported
type Event struct {
	Class uint8 // 1, 2 or 3
	Value app.PointValue
}

// EventBuffer holds events per measurement type. A full list drops its oldest event.
type EventBuffer struct {
	mu       sync.Mutex
	lists    map[types.MeasurementType]*list.List
	config   EventBufferConfig
	overflow bool
}

// NewEventBuffer creates an event buffer with the given capacities
func NewEventBuffer(config EventBufferConfig) *EventBuffer {
	return &EventBuffer{
		lists:  make(map[types.MeasurementType]*list.List),
		config: config,
	}
}

// Add queues an event
func (eb *EventBuffer) Add(ev Event) {
	limit := eb.config.limit(ev.Value.Type)
	if limit <= 0 || ev.Class == 0 || ev.Class > 3 {
		return
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	l, ok := eb.lists[ev.Value.Type]
	if !ok {
		l = list.New()
		eb.lists[ev.Value.Type] = l
	}
	if l.Len() >= limit {
		l.Remove(l.Front())
		eb.overflow = true
	}
	l.PushBack(ev)
}

// Take removes and returns the events of the requested classes, grouped by type in arrival order
func (eb *EventBuffer) Take(classes app.ClassField) map[types.MeasurementType][]app.PointValue {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	out := make(map[types.MeasurementType][]app.PointValue)
	for mtype, l := range eb.lists {
		for e := l.Front(); e != nil; {
			next := e.Next()
			ev := e.Value.(Event)
			if classes&classBit(ev.Class) != 0 {
				out[mtype] = append(out[mtype], ev.Value)
				l.Remove(e)
			}
			e = next
		}
	}
	if len(out) > 0 {
		eb.overflow = false
	}
	return out
}

// Pending returns which event classes have queued events
func (eb *EventBuffer) Pending() app.ClassField {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	var classes app.ClassField
	for _, l := range eb.lists {
		for e := l.Front(); e != nil; e = e.Next() {
			classes |= classBit(e.Value.(Event).Class)
		}
	}
	return classes
}

// Len returns the number of queued events
func (eb *EventBuffer) Len() int {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	n := 0
	for _, l := range eb.lists {
		n += l.Len()
	}
	return n
}

// Overflowed reports whether events were dropped since the last Take
func (eb *EventBuffer) Overflowed() bool {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	return eb.overflow
}

func classBit(class uint8) app.ClassField {
	switch class {
	case 1:
		return app.Class1
	case 2:
		return app.Class2
	case 3:
		return app.Class3
	}
	return app.ClassNone
}
