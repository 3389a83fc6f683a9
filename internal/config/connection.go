package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Mode is the protocol role a session plays
type Mode string

const (
	ModeMaster     Mode = "master"
	ModeOutstation Mode = "outstation"
)

// ConnType selects the physical transport
type ConnType string

const (
	ConnTCP       ConnType = "tcp"
	ConnTCPServer ConnType = "tcp_server"
	ConnUDP       ConnType = "udp"
	ConnQUIC      ConnType = "quic"
	ConnSerial    ConnType = "serial"
)

// Connection is a request to start a master or outstation
type Connection struct {
	Mode       Mode     `json:"mode"`
	IP         string   `json:"ip"`
	Port       uint16   `json:"port"`
	LocalAddr  uint16   `json:"localAddr"`
	RemoteAddr uint16   `json:"remoteAddr"`
	ConnType   ConnType `json:"connType,omitempty"`

	SerialName string   `json:"serialName,omitempty"`
	BaudRate   *int     `json:"baudRate,omitempty"`
	DataBits   *int     `json:"dataBits,omitempty"`
	Parity     *string  `json:"parity,omitempty"`
	StopBits   *float64 `json:"stopBits,omitempty"`
}

// DefaultConnection mirrors the UI defaults: outstation 10 talking to master 1 on 20000
func DefaultConnection() Connection {
	return Connection{
		Mode:       ModeOutstation,
		IP:         "127.0.0.1",
		Port:       20000,
		LocalAddr:  10,
		RemoteAddr: 1,
		ConnType:   ConnTCP,
	}
}

// Normalize fills an empty ip with 0.0.0.0 for outstations and 127.0.0.1 for
// masters, and maps an empty or unknown connType to tcp
func (c Connection) Normalize() Connection {
	if c.Mode != ModeMaster {
		c.Mode = ModeOutstation
	}
	if strings.TrimSpace(c.IP) == "" {
		if c.Mode == ModeOutstation {
			c.IP = "0.0.0.0"
		} else {
			c.IP = "127.0.0.1"
		}
	}
	switch c.ConnType {
	case ConnTCP, ConnTCPServer, ConnUDP, ConnQUIC, ConnSerial:
	default:
		c.ConnType = ConnTCP
	}
	return c
}

// Address returns ip:port
func (c Connection) Address() string {
	return net.JoinHostPort(strings.TrimSpace(c.IP), strconv.Itoa(int(c.Port)))
}

func (c Connection) String() string {
	if c.ConnType == ConnSerial {
		return fmt.Sprintf("%s serial %s", c.Mode, c.SerialName)
	}
	return fmt.Sprintf("%s %s %s", c.Mode, c.ConnType, c.Address())
}
