package channel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"avaneesh/dnp3-tester/pkg/link"
	"avaneesh/dnp3-tester/pkg/logger"
)

// Channel runs one read loop and one write loop over a PhysicalChannel and
// routes received frames to sessions by link address
type Channel struct {
	id       string
	physical PhysicalChannel
	router   *Router
	stats    Statistics
	logger   logger.Logger
	decode   atomic.Int32

	state   ChannelState
	stateMu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	writeQueue chan *writeRequest
}

type writeRequest struct {
	data []byte
	resp chan error
}

// New creates a new channel
func New(id string, physical PhysicalChannel, log logger.Logger) *Channel {
	ctx, cancel := context.WithCancel(context.Background())
	return &Channel{
		id:         id,
		physical:   physical,
		router:     NewRouter(),
		logger:     logger.OrNoOp(log),
		ctx:        ctx,
		cancel:     cancel,
		writeQueue: make(chan *writeRequest, 100),
	}
}

// ID returns the channel ID
func (c *Channel) ID() string {
	return c.id
}

// Logger returns the engine logger used by the channel and its sessions
func (c *Channel) Logger() logger.Logger {
	return c.logger
}

// SetDecodeLevel changes the protocol diagnostics written to the log
func (c *Channel) SetDecodeLevel(level DecodeLevel) {
	c.decode.Store(int32(level))
}

// DecodeLevel returns the current decode level
func (c *Channel) DecodeLevel() DecodeLevel {
	return DecodeLevel(c.decode.Load())
}

// Open starts the read and write loops
func (c *Channel) Open() error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if c.state == ChannelStateOpen {
		return ErrChannelOpen
	}
	if c.ctx.Err() != nil {
		return ErrChannelClosed
	}
	c.state = ChannelStateOpen

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.readLoop()
	}()
	go func() {
		defer c.wg.Done()
		c.writeLoop()
	}()

	c.logger.Debug("channel %s opened", c.id)
	return nil
}

// Close stops both loops and closes the physical channel. Calling Close more than once is safe.
func (c *Channel) Close() error {
	c.stateMu.Lock()
	wasOpen := c.state == ChannelStateOpen
	c.state = ChannelStateClosed
	c.stateMu.Unlock()

	if c.ctx.Err() != nil {
		return nil
	}
	c.cancel()

	err := c.physical.Close()
	if err != nil {
		c.logger.Error("channel %s: close physical: %v", c.id, err)
	}
	if wasOpen {
		c.wg.Wait()
	}
	c.logger.Debug("channel %s closed", c.id)
	return err
}

func (c *Channel) readLoop() {
	for c.ctx.Err() == nil {
		data, err := c.physical.Read(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.logger.Debug("channel %s read error: %v", c.id, err)
			continue
		}

		c.tracePhys("RX", data)

		frame, _, err := link.Parse(data)
		if err != nil {
			c.stats.badLinkFrames.Add(1)
			c.logger.Warn("channel %s: bad link frame: %v", c.id, err)
			continue
		}
		c.stats.linkFramesRx.Add(1)
		if c.DecodeLevel() >= DecodeHeaders {
			c.logger.Info("LINK RX - %s", frame)
		}

		if err := c.router.Route(frame); err != nil {
			c.stats.unrouted.Add(1)
			c.logger.Warn("channel %s: %v", c.id, err)
		}
	}
}

func (c *Channel) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			for {
				select {
				case req := <-c.writeQueue:
					req.resp <- ErrChannelClosed
				default:
					return
				}
			}

		case req := <-c.writeQueue:
			err := c.physical.Write(c.ctx, req.data)
			if err == nil {
				c.stats.linkFramesTx.Add(1)
				c.tracePhys("TX", req.data)
			}
			req.resp <- err
		}
	}
}

// tracePhys writes the hex dump of a raw frame at DecodeMax
func (c *Channel) tracePhys(dir string, data []byte) {
	if c.DecodeLevel() < DecodeMax {
		return
	}
	c.logger.Debug("PHYS %s - %d bytes\n%s", dir, len(data), link.HexDump(data))
}

// Write queues a serialized link frame and waits for it to be written
func (c *Channel) Write(data []byte) error {
	if c.State() != ChannelStateOpen {
		return ErrChannelClosed
	}

	req := &writeRequest{data: data, resp: make(chan error, 1)}
	select {
	case c.writeQueue <- req:
	case <-c.ctx.Done():
		return ErrChannelClosed
	}
	select {
	case err := <-req.resp:
		return err
	case <-c.ctx.Done():
		return ErrChannelClosed
	}
}

// SendFrame serializes and writes a link frame
func (c *Channel) SendFrame(frame *link.Frame) error {
	data, err := frame.Serialize()
	if err != nil {
		return err
	}
	if c.DecodeLevel() >= DecodeHeaders {
		c.logger.Info("LINK TX - %s", frame)
	}
	return c.Write(data)
}

// AddSession adds a session to the channel
func (c *Channel) AddSession(session Session) error {
	if err := c.router.AddSession(session); err != nil {
		return err
	}
	c.logger.Debug("channel %s: added %s session at address %d", c.id, session.Type(), session.LinkAddress())
	return nil
}

// RemoveSession removes a session from the channel
func (c *Channel) RemoveSession(address uint16) {
	c.router.RemoveSession(address)
}

// Statistics returns channel statistics
func (c *Channel) Statistics() StatisticsSnapshot {
	return c.stats.Snapshot()
}

// PhysicalStatistics returns physical channel statistics
func (c *Channel) PhysicalStatistics() TransportStats {
	return c.physical.Statistics()
}

// State returns the current channel state
func (c *Channel) State() ChannelState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// String returns string representation of channel
func (c *Channel) String() string {
	return fmt.Sprintf("Channel{ID=%s, State=%s, Sessions=%d}", c.id, c.State(), c.router.Count())
}
