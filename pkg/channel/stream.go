package channel

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"avaneesh/dnp3-tester/pkg/link"
	"avaneesh/dnp3-tester/pkg/logger"
)

// streamChannel holds the active byte stream of a connection-oriented physical channel.
// TCP, QUIC and serial embed it and only differ in how the stream is obtained.
type streamChannel struct {
	mu   sync.RWMutex
	rw   io.ReadWriteCloser
	wake chan struct{} // closed and replaced whenever a stream is attached

	writeTimeout time.Duration
	logger       logger.Logger

	stats struct {
		bytesSent     atomic.Uint64
		bytesReceived atomic.Uint64
		writeErrors   atomic.Uint64
		readErrors    atomic.Uint64
		connects      atomic.Uint64
		disconnects   atomic.Uint64
	}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
}

func newStreamChannel(log logger.Logger, writeTimeout time.Duration) *streamChannel {
	ctx, cancel := context.WithCancel(context.Background())
	if writeTimeout == 0 {
		writeTimeout = 10 * time.Second
	}
	return &streamChannel{
		wake:         make(chan struct{}),
		writeTimeout: writeTimeout,
		logger:       logger.OrNoOp(log),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// attach replaces the current stream, closing any previous one
func (s *streamChannel) attach(rw io.ReadWriteCloser) {
	s.mu.Lock()
	if s.rw != nil {
		s.rw.Close()
		s.stats.disconnects.Add(1)
	}
	s.rw = rw
	s.stats.connects.Add(1)
	close(s.wake)
	s.wake = make(chan struct{})
	s.mu.Unlock()
}

// detach drops rw if it is still the current stream
func (s *streamChannel) detach(rw io.ReadWriteCloser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rw == rw && rw != nil {
		rw.Close()
		s.rw = nil
		s.stats.disconnects.Add(1)
	}
}

func (s *streamChannel) current() (io.ReadWriteCloser, <-chan struct{}) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rw, s.wake
}

// connected reports whether a stream is attached
func (s *streamChannel) connected() bool {
	rw, _ := s.current()
	return rw != nil
}

// Read implements PhysicalChannel.Read
func (s *streamChannel) Read(ctx context.Context) ([]byte, error) {
	for {
		rw, wake := s.current()
		if rw == nil {
			select {
			case <-wake:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-s.ctx.Done():
				return nil, ErrChannelClosed
			}
		}

		frame, err := link.ReadFrame(rw)
		if err != nil {
			if s.closed.Load() {
				return nil, ErrChannelClosed
			}
			if errors.Is(err, link.ErrInvalidLength) {
				s.stats.readErrors.Add(1)
				continue
			}
			s.stats.readErrors.Add(1)
			s.logger.Info("connection closed: %v", err)
			s.detach(rw)
			continue
		}

		s.stats.bytesReceived.Add(uint64(len(frame)))
		return frame, nil
	}
}

// Write implements PhysicalChannel.Write
func (s *streamChannel) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrChannelClosed
	}

	rw, _ := s.current()
	if rw == nil {
		s.stats.writeErrors.Add(1)
		return ErrNoConnection
	}

	if d, ok := rw.(interface{ SetWriteDeadline(time.Time) error }); ok {
		d.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if _, err := rw.Write(data); err != nil {
		s.stats.writeErrors.Add(1)
		s.detach(rw)
		return err
	}

	s.stats.bytesSent.Add(uint64(len(data)))
	return nil
}

// Statistics implements PhysicalChannel.Statistics
func (s *streamChannel) Statistics() TransportStats {
	return TransportStats{
		BytesSent:     s.stats.bytesSent.Load(),
		BytesReceived: s.stats.bytesReceived.Load(),
		WriteErrors:   s.stats.writeErrors.Load(),
		ReadErrors:    s.stats.readErrors.Load(),
		Connects:      s.stats.connects.Load(),
		Disconnects:   s.stats.disconnects.Load(),
	}
}

// shutdown stops background loops and closes the current stream.
// It returns false if the channel was already closed.
func (s *streamChannel) shutdown(closeListener func()) bool {
	if !s.closed.CompareAndSwap(false, true) {
		return false
	}
	s.cancel()
	if closeListener != nil {
		closeListener()
	}

	s.mu.Lock()
	if s.rw != nil {
		s.rw.Close()
		s.rw = nil
		s.stats.disconnects.Add(1)
	}
	s.mu.Unlock()

	s.wg.Wait()
	return true
}

// sleep waits for d or until the channel is closed
func (s *streamChannel) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-s.ctx.Done():
		return false
	}
}

// waitDisconnect blocks until the current stream is dropped or the channel closes
func (s *streamChannel) waitDisconnect() bool {
	for {
		if !s.connected() {
			return s.ctx.Err() == nil
		}
		if !s.sleep(250 * time.Millisecond) {
			return false
		}
	}
}
