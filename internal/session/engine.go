package session

import (
	"context"
	"fmt"

	"avaneesh/dnp3-tester/internal/config"
	"avaneesh/dnp3-tester/pkg/app"
	"avaneesh/dnp3-tester/pkg/channel"
	"avaneesh/dnp3-tester/pkg/dnp3"
	"avaneesh/dnp3-tester/pkg/logger"
	"avaneesh/dnp3-tester/pkg/master"
	"avaneesh/dnp3-tester/pkg/outstation"
	"avaneesh/dnp3-tester/pkg/types"
)

// Link describes the physical side of a start request
type Link struct {
	// ID names the engine channel; unique per session and role
	ID       string
	ConnType config.ConnType
	Address  string
	Listen   bool
	Serial   channel.SerialConfig
}

func (l Link) String() string {
	if l.ConnType == config.ConnSerial {
		return "serial " + l.Serial.Port
	}
	if l.Listen {
		return fmt.Sprintf("%s listen %s", l.ConnType, l.Address)
	}
	return fmt.Sprintf("%s %s", l.ConnType, l.Address)
}

// Engine starts protocol sessions. The service only talks to the engine through
// this interface and the two connection handles below.
type Engine interface {
	StartMaster(link Link, cfg master.MasterConfig, handler master.ReadHandler) (MasterConn, error)
	// StartOutstation runs init against the new point database before returning
	StartOutstation(link Link, cfg outstation.OutstationConfig, handler outstation.ControlHandler,
		init func(db *outstation.Database)) (OutstationConn, error)
}

// MasterConn is a live master association
type MasterConn interface {
	Read(ctx context.Context, classes app.ClassField) error
	DirectOperate(ctx context.Context, commands []types.Command) ([]types.CommandStatus, error)
	SelectAndOperate(ctx context.Context, commands []types.Command) ([]types.CommandStatus, error)
	Close() error
}

// OutstationConn is a running outstation
type OutstationConn interface {
	Transaction(fn func(db *outstation.Database))
	Close() error
}

// StackEngine runs sessions on the in-tree protocol stack. Every channel is
// opened at DecodeMax so the tap sees a hex dump of each frame.
type StackEngine struct {
	manager *dnp3.Manager
	logger  logger.Logger
}

// NewStackEngine creates an engine whose channels log through log
func NewStackEngine(log logger.Logger) *StackEngine {
	log = logger.OrNoOp(log)
	return &StackEngine{manager: dnp3.NewManager(log), logger: log}
}

// Shutdown closes every open channel
func (e *StackEngine) Shutdown() {
	e.manager.Shutdown()
}

// ChannelCount returns the number of open channels
func (e *StackEngine) ChannelCount() int {
	return e.manager.ChannelCount()
}

// StartMaster implements Engine
func (e *StackEngine) StartMaster(link Link, cfg master.MasterConfig, handler master.ReadHandler) (MasterConn, error) {
	ch, err := e.open(link)
	if err != nil {
		return nil, err
	}
	m, err := ch.AddMaster(cfg, handler)
	if err != nil {
		ch.Shutdown()
		return nil, fmt.Errorf("failed to add association: %w", err)
	}
	return &stackMaster{Master: m, ch: ch}, nil
}

// StartOutstation implements Engine
func (e *StackEngine) StartOutstation(link Link, cfg outstation.OutstationConfig, handler outstation.ControlHandler,
	init func(db *outstation.Database)) (OutstationConn, error) {
	ch, err := e.open(link)
	if err != nil {
		return nil, err
	}
	o, err := ch.AddOutstation(cfg, handler)
	if err != nil {
		ch.Shutdown()
		return nil, fmt.Errorf("failed to add outstation: %w", err)
	}
	if init != nil {
		o.Transaction(init)
	}
	return &stackOutstation{Outstation: o, ch: ch}, nil
}

func (e *StackEngine) open(link Link) (*dnp3.Channel, error) {
	phys, err := e.physical(link)
	if err != nil {
		return nil, err
	}
	ch, err := e.manager.AddChannel(link.ID, phys, channel.DecodeMax)
	if err != nil {
		phys.Close()
		return nil, err
	}
	return ch, nil
}

func (e *StackEngine) physical(link Link) (channel.PhysicalChannel, error) {
	switch link.ConnType {
	case config.ConnSerial:
		return channel.NewSerialChannel(link.Serial, e.logger)
	case config.ConnUDP:
		return channel.NewUDPChannel(channel.UDPChannelConfig{
			Address:  link.Address,
			IsServer: link.Listen,
			Logger:   e.logger,
		})
	case config.ConnQUIC:
		return channel.NewQUICChannel(channel.QUICChannelConfig{
			Address:  link.Address,
			IsServer: link.Listen,
			Logger:   e.logger,
		})
	default:
		return channel.NewTCPChannel(channel.TCPChannelConfig{
			Address:  link.Address,
			IsServer: link.Listen,
			Logger:   e.logger,
		})
	}
}

type stackMaster struct {
	*master.Master
	ch *dnp3.Channel
}

func (m *stackMaster) Close() error {
	return m.ch.Shutdown()
}

type stackOutstation struct {
	*outstation.Outstation
	ch *dnp3.Channel
}

func (o *stackOutstation) Close() error {
	return o.ch.Shutdown()
}
