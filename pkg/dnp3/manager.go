package dnp3

import (
	"errors"
	"fmt"
	"sync"

	"avaneesh/dnp3-tester/pkg/channel"
	"avaneesh/dnp3-tester/pkg/logger"
)

var ErrChannelExists = errors.New("channel already exists")

// Manager is the root object for DNP3 operations.
// It owns every channel it creates and closes them on Shutdown.
type Manager struct {
	channels map[string]*Channel
	mu       sync.RWMutex
	logger   logger.Logger
}

// NewManager creates a manager whose channels log through log
func NewManager(log logger.Logger) *Manager {
	return &Manager{
		channels: make(map[string]*Channel),
		logger:   logger.OrNoOp(log),
	}
}

// AddChannel wraps physical in a channel, sets its decode level and opens it
func (m *Manager) AddChannel(id string, physical channel.PhysicalChannel, level channel.DecodeLevel) (*Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.channels[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrChannelExists, id)
	}

	ch := channel.New(id, physical, m.logger)
	ch.SetDecodeLevel(level)
	if err := ch.Open(); err != nil {
		physical.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	c := &Channel{Channel: ch, manager: m}
	m.channels[id] = c
	m.logger.Debug("manager: added channel %s (decode level %s)", id, level)
	return c, nil
}

// RemoveChannel closes and forgets a channel
func (m *Manager) RemoveChannel(id string) error {
	m.mu.Lock()
	c, exists := m.channels[id]
	delete(m.channels, id)
	m.mu.Unlock()

	if !exists {
		return fmt.Errorf("channel %s not found", id)
	}
	c.shutdownSessions()
	if err := c.Close(); err != nil {
		m.logger.Error("manager: closing channel %s: %v", id, err)
	}
	m.logger.Debug("manager: removed channel %s", id)
	return nil
}

// GetChannel returns a channel by ID
func (m *Manager) GetChannel(id string) (*Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.channels[id]
	return c, ok
}

// Shutdown closes every channel
func (m *Manager) Shutdown() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.channels))
	for id := range m.channels {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.RemoveChannel(id)
	}
}

// ChannelCount returns the number of channels
func (m *Manager) ChannelCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.channels)
}
