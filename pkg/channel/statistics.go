package channel

import "sync/atomic"

// Statistics tracks channel-level link frame counters
type Statistics struct {
	linkFramesTx  atomic.Uint64
	linkFramesRx  atomic.Uint64
	badLinkFrames atomic.Uint64
	unrouted      atomic.Uint64
}

// StatisticsSnapshot is a point-in-time copy of Statistics
type StatisticsSnapshot struct {
	LinkFramesTx  uint64
	LinkFramesRx  uint64
	BadLinkFrames uint64
	Unrouted      uint64
}

// Snapshot returns the current counter values
func (s *Statistics) Snapshot() StatisticsSnapshot {
	return StatisticsSnapshot{
		LinkFramesTx:  s.linkFramesTx.Load(),
		LinkFramesRx:  s.linkFramesRx.Load(),
		BadLinkFrames: s.badLinkFrames.Load(),
		Unrouted:      s.unrouted.Load(),
	}
}
