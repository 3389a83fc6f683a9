package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"avaneesh/dnp3-tester/internal/telemetry"
	"avaneesh/dnp3-tester/pkg/app"
	"avaneesh/dnp3-tester/pkg/master"
	"avaneesh/dnp3-tester/pkg/outstation"
	"avaneesh/dnp3-tester/pkg/types"
)

type fakeMaster struct {
	handler master.ReadHandler

	mu      sync.Mutex
	calls   []string
	closed  bool
	readErr error
	opErr   error
	// analog values returned by every read
	analogs []types.IndexedAnalog
}

func (m *fakeMaster) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *fakeMaster) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *fakeMaster) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *fakeMaster) Read(_ context.Context, classes app.ClassField) error {
	m.record("read " + classes.String())
	if m.readErr != nil {
		return m.readErr
	}
	info := master.ResponseInfo{FIR: true, FIN: true}
	m.handler.OnBeginFragment(info)
	if len(m.analogs) > 0 {
		m.handler.ProcessAnalog(m.analogs)
	}
	m.handler.OnEndFragment(info)
	return nil
}

func (m *fakeMaster) DirectOperate(_ context.Context, cmds []types.Command) ([]types.CommandStatus, error) {
	m.record("direct")
	return statuses(cmds), m.opErr
}

func (m *fakeMaster) SelectAndOperate(_ context.Context, cmds []types.Command) ([]types.CommandStatus, error) {
	m.record("sbo")
	return statuses(cmds), m.opErr
}

func (m *fakeMaster) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func statuses(cmds []types.Command) []types.CommandStatus {
	return make([]types.CommandStatus, len(cmds))
}

type fakeOutstation struct {
	db       *outstation.Database
	controls outstation.ControlHandler

	mu     sync.Mutex
	closed bool
}

func (o *fakeOutstation) Transaction(fn func(db *outstation.Database)) {
	o.db.Transaction(fn)
}

func (o *fakeOutstation) Close() error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	return nil
}

func (o *fakeOutstation) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

type fakeEngine struct {
	mu          sync.Mutex
	links       []Link
	masters     []*fakeMaster
	outstations []*fakeOutstation
	startErr    error
	// applied to every new master before it is returned
	prepare func(m *fakeMaster)
}

func (e *fakeEngine) StartMaster(link Link, _ master.MasterConfig, h master.ReadHandler) (MasterConn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.links = append(e.links, link)
	if e.startErr != nil {
		return nil, e.startErr
	}
	m := &fakeMaster{handler: h}
	if e.prepare != nil {
		e.prepare(m)
	}
	e.masters = append(e.masters, m)
	return m, nil
}

func (e *fakeEngine) StartOutstation(link Link, _ outstation.OutstationConfig, h outstation.ControlHandler,
	init func(db *outstation.Database)) (OutstationConn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.links = append(e.links, link)
	if e.startErr != nil {
		return nil, e.startErr
	}
	o := &fakeOutstation{db: outstation.NewDatabase(nil), controls: h}
	o.Transaction(init)
	e.outstations = append(e.outstations, o)
	return o, nil
}

func (e *fakeEngine) lastMaster() *fakeMaster {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.masters) == 0 {
		return nil
	}
	return e.masters[len(e.masters)-1]
}

func (e *fakeEngine) lastOutstation() *fakeOutstation {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.outstations) == 0 {
		return nil
	}
	return e.outstations[len(e.outstations)-1]
}

func (e *fakeEngine) lastLink() Link {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.links[len(e.links)-1]
}

func testOptions() Options {
	return Options{
		MasterGrace:        time.Millisecond,
		OutstationGrace:    time.Millisecond,
		SimulationInterval: time.Hour,
		VerifyDelay:        time.Millisecond,
		ResponseTimeout:    time.Second,
	}
}

func newTestService(t *testing.T, opts Options) (*Service, *fakeEngine, *telemetry.Store) {
	t.Helper()
	engine := &fakeEngine{}
	store := telemetry.NewStore()
	s := NewService("test", engine, store, nil, opts)
	t.Cleanup(s.Close)
	return s, engine, store
}

func messages(store *telemetry.Store) []string {
	var out []string
	for _, e := range store.Logs() {
		out = append(out, string(e.Direction)+" "+e.Message)
	}
	return out
}
