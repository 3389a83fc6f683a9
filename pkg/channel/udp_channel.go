package channel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"avaneesh/dnp3-tester/pkg/link"
	"avaneesh/dnp3-tester/pkg/logger"
)

// UDPChannel implements PhysicalChannel for UDP. Every datagram carries one link frame.
type UDPChannel struct {
	conn   *net.UDPConn
	remote *net.UDPAddr // fixed peer for clients, last sender for servers

	isServer bool
	peerMu   sync.RWMutex
	logger   logger.Logger

	stats struct {
		bytesSent     atomic.Uint64
		bytesReceived atomic.Uint64
		writeErrors   atomic.Uint64
		readErrors    atomic.Uint64
	}
	closed atomic.Bool
}

// UDPChannelConfig configures a UDP channel
type UDPChannelConfig struct {
	Address  string // local bind address for servers, remote address for clients
	IsServer bool
	Logger   logger.Logger
}

// NewUDPChannel creates a new UDP channel
func NewUDPChannel(config UDPChannelConfig) (*UDPChannel, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("address is required")
	}
	addr, err := net.ResolveUDPAddr("udp", config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address %s: %w", config.Address, err)
	}

	uc := &UDPChannel{isServer: config.IsServer, logger: logger.OrNoOp(config.Logger)}
	if config.IsServer {
		if uc.conn, err = net.ListenUDP("udp", addr); err != nil {
			return nil, fmt.Errorf("failed to listen on %s: %w", config.Address, err)
		}
		uc.logger.Info("waiting for connection on %s", uc.conn.LocalAddr())
	} else {
		if uc.conn, err = net.ListenUDP("udp", &net.UDPAddr{}); err != nil {
			return nil, fmt.Errorf("failed to create UDP socket: %w", err)
		}
		uc.remote = addr
		uc.logger.Info("connected to %s (udp)", addr)
	}
	return uc, nil
}

// Read implements PhysicalChannel.Read
func (uc *UDPChannel) Read(ctx context.Context) ([]byte, error) {
	buf := make([]byte, link.MaxFrameSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// Wake periodically so a cancelled ctx is noticed
		uc.conn.SetReadDeadline(time.Now().Add(time.Second))

		n, from, err := uc.conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if uc.closed.Load() {
				return nil, ErrChannelClosed
			}
			uc.stats.readErrors.Add(1)
			return nil, err
		}

		if uc.isServer {
			uc.peerMu.Lock()
			if uc.remote == nil || uc.remote.String() != from.String() {
				uc.logger.Info("connected to %s (udp)", from)
			}
			uc.remote = from
			uc.peerMu.Unlock()
		}

		if n < link.HeaderSize || buf[0] != link.StartByte1 || buf[1] != link.StartByte2 {
			uc.stats.readErrors.Add(1)
			continue
		}

		uc.stats.bytesReceived.Add(uint64(n))
		frame := make([]byte, n)
		copy(frame, buf[:n])
		return frame, nil
	}
}

// Write implements PhysicalChannel.Write
func (uc *UDPChannel) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if uc.closed.Load() {
		return ErrChannelClosed
	}

	uc.peerMu.RLock()
	dest := uc.remote
	uc.peerMu.RUnlock()
	if dest == nil {
		uc.stats.writeErrors.Add(1)
		return fmt.Errorf("%w: no datagram received yet", ErrNoConnection)
	}

	if _, err := uc.conn.WriteToUDP(data, dest); err != nil {
		uc.stats.writeErrors.Add(1)
		return err
	}
	uc.stats.bytesSent.Add(uint64(len(data)))
	return nil
}

// Close implements PhysicalChannel.Close
func (uc *UDPChannel) Close() error {
	if !uc.closed.CompareAndSwap(false, true) {
		return nil
	}
	return uc.conn.Close()
}

// Statistics implements PhysicalChannel.Statistics
func (uc *UDPChannel) Statistics() TransportStats {
	return TransportStats{
		BytesSent:     uc.stats.bytesSent.Load(),
		BytesReceived: uc.stats.bytesReceived.Load(),
		WriteErrors:   uc.stats.writeErrors.Load(),
		ReadErrors:    uc.stats.readErrors.Load(),
	}
}

// LocalAddr returns the bound address
func (uc *UDPChannel) LocalAddr() net.Addr {
	return uc.conn.LocalAddr()
}
