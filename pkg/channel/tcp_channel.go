package channel

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"avaneesh/dnp3-tester/pkg/logger"
)

// TCPChannel implements PhysicalChannel for TCP client and server connections
type TCPChannel struct {
	*streamChannel

	address        string
	isServer       bool
	listener       net.Listener
	reconnectDelay time.Duration
}

// TCPChannelConfig configures a TCP channel
type TCPChannelConfig struct {
	Address        string        // "host:port"
	IsServer       bool          // true = listen, false = connect
	ReconnectDelay time.Duration // client only
	WriteTimeout   time.Duration
	Logger         logger.Logger
}

// NewTCPChannel creates a TCP channel. A server binds immediately and fails if the
// address is unavailable; a client connects and reconnects in the background.
func NewTCPChannel(config TCPChannelConfig) (*TCPChannel, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("address is required")
	}
	if config.ReconnectDelay == 0 {
		config.ReconnectDelay = 2 * time.Second
	}

	tc := &TCPChannel{
		streamChannel:  newStreamChannel(config.Logger, config.WriteTimeout),
		address:        config.Address,
		isServer:       config.IsServer,
		reconnectDelay: config.ReconnectDelay,
	}

	if config.IsServer {
		listener, err := net.Listen("tcp", config.Address)
		if err != nil {
			tc.cancel()
			return nil, fmt.Errorf("failed to listen on %s: %w", config.Address, err)
		}
		tc.listener = listener
		tc.logger.Info("waiting for connection on %s", listener.Addr())
		tc.wg.Add(1)
		go tc.acceptLoop()
	} else {
		tc.wg.Add(1)
		go tc.connectLoop()
	}
	return tc, nil
}

func (tc *TCPChannel) acceptLoop() {
	defer tc.wg.Done()
	for {
		conn, err := tc.listener.Accept()
		if err != nil {
			if tc.closed.Load() {
				return
			}
			tc.logger.Warn("accept on %s failed: %v", tc.address, err)
			if !tc.sleep(time.Second) {
				return
			}
			continue
		}
		tc.logger.Info("accepted connection from %s", conn.RemoteAddr())
		tc.attach(conn)
	}
}

func (tc *TCPChannel) connectLoop() {
	defer tc.wg.Done()
	dialer := net.Dialer{Timeout: 10 * time.Second}
	for {
		tc.logger.Info("connecting to %s", tc.address)
		conn, err := dialer.DialContext(tc.ctx, "tcp", tc.address)
		if err != nil {
			if tc.ctx.Err() != nil {
				return
			}
			if errors.Is(err, syscall.ECONNREFUSED) {
				tc.logger.Warn("connection refused: %s", tc.address)
			} else {
				tc.logger.Warn("failed to connect to %s: %v", tc.address, err)
			}
			if !tc.sleep(tc.reconnectDelay) {
				return
			}
			continue
		}

		tc.logger.Info("connected to %s", conn.RemoteAddr())
		tc.attach(conn)
		if !tc.waitDisconnect() {
			return
		}
		if !tc.sleep(tc.reconnectDelay) {
			return
		}
	}
}

// Close implements PhysicalChannel.Close
func (tc *TCPChannel) Close() error {
	tc.shutdown(func() {
		if tc.listener != nil {
			tc.listener.Close()
		}
	})
	return nil
}

// IsConnected returns true if there is an active connection
func (tc *TCPChannel) IsConnected() bool {
	return tc.connected()
}

// Addr returns the listening address of a server channel
func (tc *TCPChannel) Addr() net.Addr {
	if tc.listener == nil {
		return nil
	}
	return tc.listener.Addr()
}
