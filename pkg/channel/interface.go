package channel

import (
	"context"
	"errors"
)

var (
	ErrChannelClosed = errors.New("channel is closed")
	ErrChannelOpen   = errors.New("channel is already open")
	ErrNoConnection  = errors.New("no connection")
)

// PhysicalChannel is a pluggable byte transport carrying whole link frames.
// TCP, UDP, QUIC and serial implementations live in this package.
type PhysicalChannel interface {
	// Read blocks until a complete link frame is available or ctx is done
	Read(ctx context.Context) ([]byte, error)

	// Write sends one link frame. Safe for concurrent use.
	Write(ctx context.Context, data []byte) error

	// Close releases the medium and unblocks pending Read/Write calls
	Close() error

	// Statistics returns transport-level counters
	Statistics() TransportStats
}

// TransportStats provides transport-level statistics
type TransportStats struct {
	BytesSent     uint64
	BytesReceived uint64
	WriteErrors   uint64
	ReadErrors    uint64
	Connects      uint64
	Disconnects   uint64
}

// ChannelState represents the state of a channel
type ChannelState int

const (
	ChannelStateClosed ChannelState = iota
	ChannelStateOpen
)

// String returns string representation of ChannelState
func (s ChannelState) String() string {
	if s == ChannelStateOpen {
		return "Open"
	}
	return "Closed"
}

// DecodeLevel controls how much protocol detail is written to the engine log
type DecodeLevel int

const (
	DecodeNothing DecodeLevel = iota
	// link and application headers
	DecodeHeaders
	// application object headers
	DecodeObjectHeaders
	// object headers and values
	DecodeObjectValues
	// everything above plus a hex dump of every frame on the wire
	DecodeMax
)

// String returns the decode level name
func (d DecodeLevel) String() string {
	switch d {
	case DecodeNothing:
		return "Nothing"
	case DecodeHeaders:
		return "Headers"
	case DecodeObjectHeaders:
		return "ObjectHeaders"
	case DecodeObjectValues:
		return "ObjectValues"
	case DecodeMax:
		return "Max"
	default:
		return "Unknown"
	}
}
