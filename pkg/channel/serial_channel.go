package channel

import (
	"fmt"
	"time"

	"go.bug.st/serial"

	"avaneesh/dnp3-tester/pkg/logger"
)

// Parity of a serial line
type Parity int

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

// StopBits of a serial line
type StopBits int

const (
	StopBitsOne StopBits = iota
	StopBitsTwo
)

// SerialConfig describes a serial port
type SerialConfig struct {
	Port     string
	BaudRate int
	DataBits int
	Parity   Parity
	StopBits StopBits
}

// DefaultSerialConfig returns 9600 8N1 on port
func DefaultSerialConfig(port string) SerialConfig {
	return SerialConfig{
		Port:     port,
		BaudRate: 9600,
		DataBits: 8,
		Parity:   ParityNone,
		StopBits: StopBitsOne,
	}
}

func (c SerialConfig) mode() *serial.Mode {
	m := &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	switch c.Parity {
	case ParityEven:
		m.Parity = serial.EvenParity
	case ParityOdd:
		m.Parity = serial.OddParity
	}
	if c.StopBits == StopBitsTwo {
		m.StopBits = serial.TwoStopBits
	}
	return m
}

// SerialChannel implements PhysicalChannel on a serial port.
// The port is reopened after a read failure.
type SerialChannel struct {
	*streamChannel
	config SerialConfig
}

// NewSerialChannel opens the port described by config
func NewSerialChannel(config SerialConfig, log logger.Logger) (*SerialChannel, error) {
	if config.Port == "" {
		return nil, fmt.Errorf("serial port name is required")
	}

	sc := &SerialChannel{
		streamChannel: newStreamChannel(log, 0),
		config:        config,
	}

	port, err := serial.Open(config.Port, config.mode())
	if err != nil {
		sc.cancel()
		return nil, fmt.Errorf("failed to open serial port %s: %w", config.Port, err)
	}
	sc.logger.Info("connected to serial port %s (%d baud)", config.Port, config.BaudRate)
	sc.attach(port)

	sc.wg.Add(1)
	go sc.reopenLoop()
	return sc, nil
}

func (sc *SerialChannel) reopenLoop() {
	defer sc.wg.Done()
	for sc.waitDisconnect() {
		if !sc.sleep(time.Second) {
			return
		}
		port, err := serial.Open(sc.config.Port, sc.config.mode())
		if err != nil {
			sc.logger.Warn("failed to reopen serial port %s: %v", sc.config.Port, err)
			continue
		}
		sc.logger.Info("connected to serial port %s", sc.config.Port)
		sc.attach(port)
	}
}

// Close implements PhysicalChannel.Close
func (sc *SerialChannel) Close() error {
	sc.shutdown(nil)
	return nil
}

// ListSerialPorts returns the names of the serial ports present on the host
func ListSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	return ports, nil
}
