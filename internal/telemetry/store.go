package telemetry

import (
	"sync"
	"time"
)

// Default capacities of the process-wide store
const (
	DefaultLogCapacity   = 1000
	DefaultFrameCapacity = 500
)

// Direction of a log entry or captured frame
type Direction string

const (
	DirectionTX     Direction = "TX"
	DirectionRX     Direction = "RX"
	DirectionSystem Direction = "System"
	DirectionError  Direction = "Error"
)

// LogEntry is one line of the protocol log
type LogEntry struct {
	ID            uint64
	Timestamp     time.Time
	Direction     Direction
	Message       string
	TransactionID uint32
}

// WithID returns a copy of e carrying id
func (e LogEntry) WithID(id uint64) LogEntry {
	e.ID = id
	return e
}

// RawFrame holds the bytes of one link frame seen on the wire
type RawFrame struct {
	ID        uint64
	Timestamp time.Time
	Direction Direction
	Data      []byte
}

// WithID returns a copy of f carrying id
func (f RawFrame) WithID(id uint64) RawFrame {
	f.ID = id
	return f
}

// Update is delivered to subscribers after a successful insert. Exactly one field is set.
type Update struct {
	Log   *LogEntry
	Frame *RawFrame
}

// Store holds the shared log and frame rings
type Store struct {
	logs   *Ring[LogEntry]
	frames *Ring[RawFrame]

	subMu  sync.RWMutex
	subs   map[int]chan Update
	nextID int
}

// NewStore creates a store with the default capacities
func NewStore() *Store {
	return NewStoreWithCapacity(DefaultLogCapacity, DefaultFrameCapacity)
}

// NewStoreWithCapacity creates a store with explicit ring sizes
func NewStoreWithCapacity(logs, frames int) *Store {
	return &Store{
		logs:   NewRing[LogEntry](logs),
		frames: NewRing[RawFrame](frames),
		subs:   make(map[int]chan Update),
	}
}

// Log appends a log entry, waiting for the ring lock
func (s *Store) Log(dir Direction, msg string) LogEntry {
	e := s.logs.Push(LogEntry{Timestamp: time.Now(), Direction: dir, Message: msg})
	s.publish(Update{Log: &e})
	return e
}

// TryLog appends a log entry unless the ring is busy
func (s *Store) TryLog(dir Direction, msg string) bool {
	e, ok := s.logs.TryPush(LogEntry{Timestamp: time.Now(), Direction: dir, Message: msg})
	if ok {
		s.publish(Update{Log: &e})
	}
	return ok
}

// Frame appends a frame, waiting for the ring lock
func (s *Store) Frame(dir Direction, data []byte) RawFrame {
	f := s.frames.Push(RawFrame{Timestamp: time.Now(), Direction: dir, Data: append([]byte(nil), data...)})
	s.publish(Update{Frame: &f})
	return f
}

// TryFrame appends a frame unless the ring is busy
func (s *Store) TryFrame(dir Direction, data []byte) bool {
	f, ok := s.frames.TryPush(RawFrame{Timestamp: time.Now(), Direction: dir, Data: append([]byte(nil), data...)})
	if ok {
		s.publish(Update{Frame: &f})
	}
	return ok
}

// Logs returns the held log entries, oldest first
func (s *Store) Logs() []LogEntry {
	return s.logs.Snapshot()
}

// Frames returns the held frames, oldest first
func (s *Store) Frames() []RawFrame {
	return s.frames.Snapshot()
}

// FindFrame returns a held frame by id
func (s *Store) FindFrame(id uint64) (RawFrame, bool) {
	for _, f := range s.frames.Snapshot() {
		if f.ID == id {
			return f, true
		}
	}
	return RawFrame{}, false
}

// Subscribe registers a listener for new entries. Updates that do not fit in
// the buffer are dropped for that listener. Call the returned func to unsubscribe.
func (s *Store) Subscribe(buffer int) (<-chan Update, func()) {
	ch := make(chan Update, buffer)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) publish(u Update) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- u:
		default:
		}
	}
}
