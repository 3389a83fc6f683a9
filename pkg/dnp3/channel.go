package dnp3

import (
	"sync"

	"avaneesh/dnp3-tester/pkg/channel"
	"avaneesh/dnp3-tester/pkg/master"
	"avaneesh/dnp3-tester/pkg/outstation"
)

// Channel is a managed channel that creates master and outstation sessions
type Channel struct {
	*channel.Channel
	manager *Manager

	mu          sync.Mutex
	masters     []*master.Master
	outstations []*outstation.Outstation
}

// ChannelStatistics combines link and physical counters
type ChannelStatistics struct {
	LinkFramesTx    uint64
	LinkFramesRx    uint64
	BadLinkFrames   uint64
	Unrouted        uint64
	PhysicalBytesTx uint64
	PhysicalBytesRx uint64
	Connects        uint64
	Disconnects     uint64
}

// AddMaster adds a master session to this channel
func (c *Channel) AddMaster(config master.MasterConfig, handler master.ReadHandler) (*master.Master, error) {
	m, err := master.New(config, handler, c.Channel)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.masters = append(c.masters, m)
	c.mu.Unlock()
	return m, nil
}

// AddOutstation adds an outstation session to this channel
func (c *Channel) AddOutstation(config outstation.OutstationConfig, handler outstation.ControlHandler) (*outstation.Outstation, error) {
	o, err := outstation.New(config, handler, c.Channel)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.outstations = append(c.outstations, o)
	c.mu.Unlock()
	return o, nil
}

// Shutdown stops the channel's sessions and closes it
func (c *Channel) Shutdown() error {
	return c.manager.RemoveChannel(c.ID())
}

// Statistics returns channel statistics
func (c *Channel) Statistics() ChannelStatistics {
	stats := c.Channel.Statistics()
	phys := c.PhysicalStatistics()
	return ChannelStatistics{
		LinkFramesTx:    stats.LinkFramesTx,
		LinkFramesRx:    stats.LinkFramesRx,
		BadLinkFrames:   stats.BadLinkFrames,
		Unrouted:        stats.Unrouted,
		PhysicalBytesTx: phys.BytesSent,
		PhysicalBytesRx: phys.BytesReceived,
		Connects:        phys.Connects,
		Disconnects:     phys.Disconnects,
	}
}

func (c *Channel) shutdownSessions() {
	c.mu.Lock()
	masters, outstations := c.masters, c.outstations
	c.masters, c.outstations = nil, nil
	c.mu.Unlock()

	for _, m := range masters {
		m.Shutdown()
	}
	for _, o := range outstations {
		o.Shutdown()
	}
}
