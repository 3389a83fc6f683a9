// Package session runs one master or outstation per session on top of the
// protocol engine and keeps the session's point table in step with it.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"avaneesh/dnp3-tester/internal/config"
	"avaneesh/dnp3-tester/internal/points"
	"avaneesh/dnp3-tester/internal/telemetry"
	"avaneesh/dnp3-tester/pkg/channel"
	"avaneesh/dnp3-tester/pkg/logger"
	"avaneesh/dnp3-tester/pkg/master"
	"avaneesh/dnp3-tester/pkg/outstation"
)

var (
	ErrNotConnected         = errors.New("master not connected")
	ErrUnsupportedPointType = errors.New("unsupported control point type")
	ErrSerialPortMissing    = errors.New("serial port not configured")
	ErrInvalidAddress       = errors.New("invalid address")
	ErrClosed               = errors.New("session closed")
)

// maxLinkAddress is the highest non-reserved link address
const maxLinkAddress = 0xFFEF

// Options tunes timing. Zero values are replaced by DefaultOptions.
type Options struct {
	MasterGrace        time.Duration
	OutstationGrace    time.Duration
	SimulationInterval time.Duration
	VerifyDelay        time.Duration
	ResponseTimeout    time.Duration
}

// DefaultOptions returns the standard timings
func DefaultOptions() Options {
	return Options{
		MasterGrace:        100 * time.Millisecond,
		OutstationGrace:    200 * time.Millisecond,
		SimulationInterval: 2 * time.Second,
		VerifyDelay:        50 * time.Millisecond,
		ResponseTimeout:    5 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MasterGrace == 0 {
		o.MasterGrace = d.MasterGrace
	}
	if o.OutstationGrace == 0 {
		o.OutstationGrace = d.OutstationGrace
	}
	if o.SimulationInterval == 0 {
		o.SimulationInterval = d.SimulationInterval
	}
	if o.VerifyDelay == 0 {
		o.VerifyDelay = d.VerifyDelay
	}
	if o.ResponseTimeout == 0 {
		o.ResponseTimeout = d.ResponseTimeout
	}
	return o
}

// Role of an active session
type Role string

const (
	RoleIdle       Role = "idle"
	RoleMaster     Role = "master"
	RoleOutstation Role = "outstation"
)

// Stats are per-session counters, reset only by restarting the process
type Stats struct {
	Tx     uint32 `json:"tx"`
	Rx     uint32 `json:"rx"`
	Errors uint32 `json:"errors"`
}

type counters struct {
	tx, rx, errors atomic.Uint32
}

// activation is one successful start. Its connected flag is cleared on teardown,
// which is what stops that activation's simulator.
type activation struct {
	role       Role
	connected  atomic.Bool
	master     MasterConn
	outstation OutstationConn
}

// Service owns one session's engine resources, point table and counters.
// Telemetry is shared with every other session.
type Service struct {
	id     string
	engine Engine
	store  *telemetry.Store
	logger logger.Logger
	opts   Options

	points *points.Table
	stats  counters

	// lifecycle serializes start and disconnect
	lifecycle sync.Mutex
	mu        sync.RWMutex
	active    *activation

	updates chan pointUpdate
	done    chan struct{}
	closed  sync.Once
	wg      sync.WaitGroup
}

// NewService creates an idle session and starts its update-apply loop
func NewService(id string, engine Engine, store *telemetry.Store, log logger.Logger, opts Options) *Service {
	s := &Service{
		id:      id,
		engine:  engine,
		store:   store,
		logger:  logger.OrNoOp(log),
		opts:    opts.withDefaults(),
		points:  points.NewTable(),
		updates: make(chan pointUpdate, 256),
		done:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.applyLoop()
	return s
}

// ID returns the session identifier
func (s *Service) ID() string {
	return s.id
}

// Connected reports whether a master or outstation is running
func (s *Service) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active != nil && s.active.connected.Load()
}

// Role returns the active role, or RoleIdle
func (s *Service) Role() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return RoleIdle
	}
	return s.active.role
}

// Stats returns a copy of the counters
func (s *Service) Stats() Stats {
	return Stats{
		Tx:     s.stats.tx.Load(),
		Rx:     s.stats.rx.Load(),
		Errors: s.stats.errors.Load(),
	}
}

// Points returns a snapshot of the point table
func (s *Service) Points() []points.DataPoint {
	return s.points.Snapshot()
}

// ApplyConfig replaces the point table with the device's points, all Offline
func (s *Service) ApplyConfig(dev *config.DeviceConfiguration) {
	pts := dev.Points()
	s.points.Replace(pts)
	s.logger.Info("session %s: device configuration %s applied, %d points", s.id, dev.DisplayName(), len(pts))
}

// AddPoint adds an Online point. Duplicate (type, index) pairs are rejected.
func (s *Service) AddPoint(typ points.Type, index uint16, name string) error {
	if err := s.points.Add(typ, index, name); err != nil {
		return err
	}
	s.logger.Info("session %s: added data point %s[%d], %d points", s.id, typ, index, s.points.Len())
	return nil
}

// ClearPoints empties the point table
func (s *Service) ClearPoints() {
	n := s.points.Clear()
	s.logger.Info("session %s: cleared %d data points", s.id, n)
}

// StartMaster tears down any running role and starts a master
func (s *Service) StartMaster(conn config.Connection) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.isClosed() {
		return ErrClosed
	}

	s.teardown(s.opts.MasterGrace)

	conn.Mode = config.ModeMaster
	conn = conn.Normalize()
	link, err := s.link(conn)
	if err != nil {
		return err
	}
	if err := checkAddresses(conn); err != nil {
		return err
	}

	cfg := master.DefaultMasterConfig()
	cfg.ID = s.id
	cfg.LocalAddress = conn.LocalAddr
	cfg.RemoteAddress = conn.RemoteAddr
	cfg.ResponseTimeout = s.opts.ResponseTimeout

	s.logger.Info("session %s: starting master on %s", s.id, link)
	mc, err := s.engine.StartMaster(link, cfg, &readHandler{s: s})
	if err != nil {
		s.logger.Error("session %s: start master: %v", s.id, err)
		return fmt.Errorf("start master: %w", err)
	}

	act := &activation{role: RoleMaster, master: mc}
	act.connected.Store(true)
	s.mu.Lock()
	s.active = act
	s.mu.Unlock()

	s.store.Log(telemetry.DirectionSystem, "Master connected")
	return nil
}

// StartOutstation tears down any running role, starts an outstation whose
// database mirrors the point table and launches the simulator
func (s *Service) StartOutstation(conn config.Connection) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.isClosed() {
		return ErrClosed
	}

	s.teardown(s.opts.OutstationGrace)

	conn.Mode = config.ModeOutstation
	conn = conn.Normalize()
	link, err := s.link(conn)
	if err != nil {
		return err
	}
	if err := checkAddresses(conn); err != nil {
		return err
	}

	cfg := outstation.DefaultOutstationConfig()
	cfg.ID = s.id
	cfg.LocalAddress = conn.LocalAddr
	cfg.RemoteAddress = conn.RemoteAddr

	s.logger.Info("session %s: starting outstation on %s", s.id, link)
	oc, err := s.engine.StartOutstation(link, cfg, &controlHandler{s: s}, s.initDatabase)
	if err != nil {
		s.logger.Error("session %s: start outstation: %v", s.id, err)
		return fmt.Errorf("start outstation: %w", err)
	}

	act := &activation{role: RoleOutstation, outstation: oc}
	act.connected.Store(true)
	s.mu.Lock()
	s.active = act
	s.mu.Unlock()

	s.wg.Add(1)
	go s.simulate(act)

	if conn.ConnType == config.ConnSerial {
		s.store.Log(telemetry.DirectionSystem, "Outstation started on serial "+conn.SerialName)
	} else {
		s.store.Log(telemetry.DirectionSystem, "Outstation started")
	}
	return nil
}

// Disconnect stops whatever is running. Calling it while idle is harmless.
func (s *Service) Disconnect() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.release()
	s.store.Log(telemetry.DirectionSystem, "Disconnected")
	s.logger.Info("session %s: disconnected", s.id)
}

// Close disconnects and stops the update-apply loop
func (s *Service) Close() {
	s.closed.Do(func() {
		s.lifecycle.Lock()
		s.release()
		s.lifecycle.Unlock()
		close(s.done)
		s.wg.Wait()
	})
}

func (s *Service) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// teardown releases any held role, waits for the engine to let go of sockets
// and marks every point Offline
func (s *Service) teardown(grace time.Duration) {
	s.release()
	time.Sleep(grace)
	s.points.ResetAll()
}

func (s *Service) release() {
	s.mu.Lock()
	act := s.active
	s.active = nil
	s.mu.Unlock()
	if act == nil {
		return
	}

	act.connected.Store(false)
	if act.master != nil {
		if err := act.master.Close(); err != nil {
			s.logger.Warn("session %s: closing master: %v", s.id, err)
		}
	}
	if act.outstation != nil {
		if err := act.outstation.Close(); err != nil {
			s.logger.Warn("session %s: closing outstation: %v", s.id, err)
		}
	}
}

func (s *Service) masterConn() MasterConn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil || !s.active.connected.Load() {
		return nil
	}
	return s.active.master
}

// initDatabase adds every point of the table to db in event class 1
func (s *Service) initDatabase(db *outstation.Database) {
	for _, p := range s.points.Snapshot() {
		if err := db.Add(p.Index, p.Type.MeasurementType(), 1); err != nil {
			s.logger.Warn("session %s: adding %s[%d] to database: %v", s.id, p.Type, p.Index, err)
		}
	}
}

// link maps a normalized connection request onto the engine's physical settings
func (s *Service) link(conn config.Connection) (Link, error) {
	l := Link{
		ID:       s.id + "/" + string(conn.Mode),
		ConnType: conn.ConnType,
		Address:  conn.Address(),
		Listen:   conn.Mode == config.ModeOutstation || conn.ConnType == config.ConnTCPServer,
	}
	if conn.ConnType == config.ConnSerial {
		sc, err := SerialConfig(conn)
		if err != nil {
			return Link{}, err
		}
		l.Serial = sc
		l.Address = ""
	}
	return l, nil
}

func checkAddresses(conn config.Connection) error {
	if conn.LocalAddr > maxLinkAddress {
		return fmt.Errorf("%w: local address %d", ErrInvalidAddress, conn.LocalAddr)
	}
	if conn.RemoteAddr > maxLinkAddress {
		return fmt.Errorf("%w: remote address %d", ErrInvalidAddress, conn.RemoteAddr)
	}
	return nil
}

// SerialConfig decodes the serial fields of a request. Unset fields default to
// 9600 8N1; data bits other than 5, 6 or 7 become 8; parity other than even or
// odd becomes none; stop bits other than 2 become one.
func SerialConfig(conn config.Connection) (channel.SerialConfig, error) {
	port := strings.TrimSpace(conn.SerialName)
	if port == "" {
		return channel.SerialConfig{}, ErrSerialPortMissing
	}
	sc := channel.DefaultSerialConfig(port)

	if conn.BaudRate != nil && *conn.BaudRate > 0 {
		sc.BaudRate = *conn.BaudRate
	}
	if conn.DataBits != nil {
		switch *conn.DataBits {
		case 5, 6, 7:
			sc.DataBits = *conn.DataBits
		default:
			sc.DataBits = 8
		}
	}
	if conn.Parity != nil {
		switch strings.ToLower(*conn.Parity) {
		case "even":
			sc.Parity = channel.ParityEven
		case "odd":
			sc.Parity = channel.ParityOdd
		default:
			sc.Parity = channel.ParityNone
		}
	}
	// 1.5 has no downstream representation and is treated as one
	if conn.StopBits != nil && *conn.StopBits == 2 {
		sc.StopBits = channel.StopBitsTwo
	}
	return sc, nil
}
