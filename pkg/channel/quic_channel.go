package channel

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"

	"github.com/quic-go/quic-go"

	"avaneesh/dnp3-tester/pkg/logger"
)

const quicALPN = "dnp3-quic"

// QUICChannel implements PhysicalChannel over a single bidirectional QUIC stream
type QUICChannel struct {
	*streamChannel

	address        string
	listener       *quic.Listener
	tlsConfig      *tls.Config
	reconnectDelay time.Duration
}

// QUICChannelConfig configures a QUIC channel
type QUICChannelConfig struct {
	Address        string // "host:port"
	IsServer       bool
	ReconnectDelay time.Duration
	WriteTimeout   time.Duration
	TLSConfig      *tls.Config // self-signed when nil
	Logger         logger.Logger
}

// quicStream closes its connection together with the stream
type quicStream struct {
	*quic.Stream
	conn *quic.Conn
}

func (s quicStream) Close() error {
	s.Stream.CancelRead(0)
	s.Stream.Close()
	return s.conn.CloseWithError(0, "closed")
}

// NewQUICChannel creates a new QUIC channel
func NewQUICChannel(config QUICChannelConfig) (*QUICChannel, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("address is required")
	}
	if config.ReconnectDelay == 0 {
		config.ReconnectDelay = 2 * time.Second
	}

	tlsConfig := config.TLSConfig
	if tlsConfig == nil {
		var err error
		if tlsConfig, err = generateTLSConfig(); err != nil {
			return nil, fmt.Errorf("failed to generate TLS config: %w", err)
		}
	}

	qc := &QUICChannel{
		streamChannel:  newStreamChannel(config.Logger, config.WriteTimeout),
		address:        config.Address,
		tlsConfig:      tlsConfig,
		reconnectDelay: config.ReconnectDelay,
	}

	if config.IsServer {
		listener, err := quic.ListenAddr(config.Address, tlsConfig, nil)
		if err != nil {
			qc.cancel()
			return nil, fmt.Errorf("failed to listen on %s: %w", config.Address, err)
		}
		qc.listener = listener
		qc.logger.Info("waiting for connection on %s", listener.Addr())
		qc.wg.Add(1)
		go qc.acceptLoop()
	} else {
		qc.wg.Add(1)
		go qc.connectLoop()
	}
	return qc, nil
}

func generateTLSConfig() (*tls.Config, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates:       []tls.Certificate{cert},
		NextProtos:         []string{quicALPN},
		InsecureSkipVerify: true, // self-signed
	}, nil
}

func (qc *QUICChannel) acceptLoop() {
	defer qc.wg.Done()
	for {
		conn, err := qc.listener.Accept(qc.ctx)
		if err != nil {
			if qc.ctx.Err() != nil {
				return
			}
			qc.logger.Warn("quic accept on %s failed: %v", qc.address, err)
			continue
		}

		// The peer's stream becomes visible once it sends its first frame
		stream, err := conn.AcceptStream(qc.ctx)
		if err != nil {
			conn.CloseWithError(0, "no stream")
			continue
		}
		qc.logger.Info("accepted connection from %s", conn.RemoteAddr())
		qc.attach(quicStream{Stream: stream, conn: conn})
	}
}

func (qc *QUICChannel) connectLoop() {
	defer qc.wg.Done()
	for {
		qc.logger.Info("connecting to %s", qc.address)
		stream, err := qc.dial()
		if err != nil {
			if qc.ctx.Err() != nil {
				return
			}
			qc.logger.Warn("connection refused: %s: %v", qc.address, err)
			if !qc.sleep(qc.reconnectDelay) {
				return
			}
			continue
		}

		qc.logger.Info("connected to %s", stream.conn.RemoteAddr())
		qc.attach(stream)
		if !qc.waitDisconnect() {
			return
		}
		if !qc.sleep(qc.reconnectDelay) {
			return
		}
	}
}

func (qc *QUICChannel) dial() (quicStream, error) {
	ctx, cancel := context.WithTimeout(qc.ctx, 10*time.Second)
	defer cancel()

	conn, err := quic.DialAddr(ctx, qc.address, qc.tlsConfig, nil)
	if err != nil {
		return quicStream{}, err
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(0, "failed to open stream")
		return quicStream{}, err
	}
	return quicStream{Stream: stream, conn: conn}, nil
}

// Close implements PhysicalChannel.Close
func (qc *QUICChannel) Close() error {
	qc.shutdown(func() {
		if qc.listener != nil {
			qc.listener.Close()
		}
	})
	return nil
}

// IsConnected returns true if a stream is attached
func (qc *QUICChannel) IsConnected() bool {
	return qc.connected()
}
