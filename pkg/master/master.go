package master

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"avaneesh/dnp3-tester/pkg/app"
	"avaneesh/dnp3-tester/pkg/channel"
	"avaneesh/dnp3-tester/pkg/internal/queue"
	"avaneesh/dnp3-tester/pkg/logger"
	"avaneesh/dnp3-tester/pkg/types"
)

var (
	ErrMasterShutdown  = errors.New("master shut down")
	ErrTimeout         = errors.New("response timeout")
	ErrCommandFailed   = errors.New("command failed")
	ErrRequestRejected = errors.New("request rejected by outstation")
)

// Task priorities
const (
	PriorityHigh   = 100
	PriorityNormal = 50
)

// Master is a DNP3 master session bound to one outstation address
type Master struct {
	config  MasterConfig
	handler ReadHandler
	channel *channel.Channel
	session *session
	logger  logger.Logger

	seq   app.SequenceCounter
	tasks *queue.PriorityQueue[*task]

	pendingMu sync.Mutex
	pending   *exchange

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	shutdown sync.Once
}

// task is a queued operation run by the task processor
type task struct {
	name string
	run  func(ctx context.Context) ([]types.CommandStatus, error)
	done chan taskResult
}

type taskResult struct {
	statuses []types.CommandStatus
	err      error
}

// exchange tracks one outstanding request until its final response fragment
type exchange struct {
	seq     uint8
	fc      app.FunctionCode
	objects []byte
	iin     types.IIN
	done    chan struct{}
}

// New creates a master session on ch. A nil handler discards measurements.
func New(config MasterConfig, handler ReadHandler, ch *channel.Channel) (*Master, error) {
	if handler == nil {
		handler = NullReadHandler{}
	}
	if config.ResponseTimeout <= 0 {
		config.ResponseTimeout = DefaultMasterConfig().ResponseTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Master{
		config:  config,
		handler: handler,
		channel: ch,
		logger:  logger.OrNoOp(ch.Logger()),
		tasks:   queue.NewPriorityQueue[*task](),
		ctx:     ctx,
		cancel:  cancel,
	}
	m.session = newSession(config.LocalAddress, config.RemoteAddress, ch, m)
	if err := ch.AddSession(m.session); err != nil {
		cancel()
		return nil, err
	}

	m.wg.Add(1)
	go m.processTasks()

	m.logger.Debug("master %s: created (local=%d, remote=%d)", config.ID, config.LocalAddress, config.RemoteAddress)
	return m, nil
}

// Config returns the master configuration
func (m *Master) Config() MasterConfig {
	return m.config
}

// Shutdown stops the task processor and detaches from the channel.
// Queued operations fail with ErrMasterShutdown.
func (m *Master) Shutdown() {
	m.shutdown.Do(func() {
		m.cancel()
		m.channel.RemoveSession(m.config.LocalAddress)
		m.wg.Wait()
		for _, t := range m.tasks.Drain() {
			t.done <- taskResult{err: ErrMasterShutdown}
		}
		m.logger.Debug("master %s: shut down", m.config.ID)
	})
}

func (m *Master) processTasks() {
	defer m.wg.Done()
	for {
		t, err := m.tasks.Pop(m.ctx)
		if err != nil {
			return
		}
		m.logger.Debug("master %s: running %s", m.config.ID, t.name)
		statuses, err := t.run(m.ctx)
		t.done <- taskResult{statuses: statuses, err: err}
	}
}

// submit queues fn and waits for it to run
func (m *Master) submit(ctx context.Context, name string, priority int, fn func(ctx context.Context) ([]types.CommandStatus, error)) ([]types.CommandStatus, error) {
	if m.ctx.Err() != nil {
		return nil, ErrMasterShutdown
	}
	t := &task{name: name, run: fn, done: make(chan taskResult, 1)}
	m.tasks.Push(t, priority)

	select {
	case r := <-t.done:
		return r.statuses, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.ctx.Done():
		return nil, ErrMasterShutdown
	}
}

// sendAndWait sends a request and collects response objects until FIN
func (m *Master) sendAndWait(ctx context.Context, fc app.FunctionCode, objects []byte) (*exchange, error) {
	req := app.NewRequest(fc, m.seq.Next(), objects)
	ex := &exchange{seq: req.Sequence, fc: fc, done: make(chan struct{})}

	m.pendingMu.Lock()
	m.pending = ex
	m.pendingMu.Unlock()
	defer func() {
		m.pendingMu.Lock()
		if m.pending == ex {
			m.pending = nil
		}
		m.pendingMu.Unlock()
	}()

	if err := m.sendAPDU(req); err != nil {
		return nil, err
	}

	timer := time.NewTimer(m.config.ResponseTimeout)
	defer timer.Stop()
	select {
	case <-ex.done:
		return ex, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s seq=%d", ErrTimeout, fc, req.Sequence)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Master) sendAPDU(apdu *app.APDU) error {
	m.traceAPDU("TX", apdu)
	return m.session.sendAPDU(apdu.Serialize())
}

// onReceiveAPDU handles a reassembled fragment from the outstation
func (m *Master) onReceiveAPDU(data []byte) error {
	apdu, err := app.Parse(data)
	if err != nil {
		m.logger.Warn("master %s: bad apdu: %v", m.config.ID, err)
		return nil
	}
	m.traceAPDU("RX", apdu)

	if !apdu.FunctionCode.IsResponse() {
		m.logger.Debug("master %s: ignoring %s", m.config.ID, apdu.FunctionCode)
		return nil
	}
	if apdu.CON {
		confirm := &app.APDU{FIR: true, FIN: true, UNS: apdu.UNS, Sequence: apdu.Sequence, FunctionCode: app.FuncConfirm}
		if err := m.sendAPDU(confirm); err != nil {
			m.logger.Warn("master %s: confirm failed: %v", m.config.ID, err)
		}
	}

	info := ResponseInfo{Unsolicited: apdu.UNS, FIR: apdu.FIR, FIN: apdu.FIN, IIN: apdu.IIN}
	if apdu.UNS {
		m.deliver(info, apdu.Objects)
		return nil
	}

	m.pendingMu.Lock()
	ex := m.pending
	if ex == nil || ex.seq != apdu.Sequence {
		m.pendingMu.Unlock()
		m.logger.Debug("master %s: unexpected response seq=%d", m.config.ID, apdu.Sequence)
		return nil
	}
	ex.objects = append(ex.objects, apdu.Objects...)
	ex.iin = apdu.IIN
	if apdu.FIN {
		m.pending = nil
	}
	m.pendingMu.Unlock()

	if ex.fc == app.FuncRead {
		m.deliver(info, apdu.Objects)
	}
	if apdu.FIN {
		close(ex.done)
	}
	return nil
}

func (m *Master) traceAPDU(dir string, apdu *app.APDU) {
	level := m.channel.DecodeLevel()
	if level < channel.DecodeHeaders {
		return
	}
	m.logger.Info("APP %s - %s", dir, apdu)
	if level < channel.DecodeObjectHeaders || len(apdu.Objects) == 0 {
		return
	}
	for _, line := range app.Describe(apdu.Objects, level >= channel.DecodeObjectValues) {
		m.logger.Info("%s", line)
	}
}
