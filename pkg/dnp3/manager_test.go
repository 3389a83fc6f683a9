package dnp3

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"avaneesh/dnp3-tester/pkg/app"
	"avaneesh/dnp3-tester/pkg/channel"
	"avaneesh/dnp3-tester/pkg/master"
	"avaneesh/dnp3-tester/pkg/outstation"
	"avaneesh/dnp3-tester/pkg/types"
)

type pipeEnd struct {
	in     chan []byte
	peer   *pipeEnd
	closed chan struct{}
	once   sync.Once
}

func newPipe() (*pipeEnd, *pipeEnd) {
	a := &pipeEnd{in: make(chan []byte, 64), closed: make(chan struct{})}
	b := &pipeEnd{in: make(chan []byte, 64), closed: make(chan struct{})}
	a.peer, b.peer = b, a
	return a, b
}

func (p *pipeEnd) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-p.in:
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.closed:
		return nil, channel.ErrChannelClosed
	}
}

func (p *pipeEnd) Write(ctx context.Context, data []byte) error {
	select {
	case p.peer.in <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeEnd) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *pipeEnd) Statistics() channel.TransportStats { return channel.TransportStats{} }

func TestManager_MasterOutstationExchange(t *testing.T) {
	mgr := NewManager(nil)
	defer mgr.Shutdown()

	masterEnd, outstationEnd := newPipe()
	och, err := mgr.AddChannel("outstation", outstationEnd, channel.DecodeNothing)
	if err != nil {
		t.Fatalf("add outstation channel: %v", err)
	}
	mch, err := mgr.AddChannel("master", masterEnd, channel.DecodeMax)
	if err != nil {
		t.Fatalf("add master channel: %v", err)
	}
	if mch.DecodeLevel() != channel.DecodeMax {
		t.Errorf("decode level not applied: %s", mch.DecodeLevel())
	}

	o, err := och.AddOutstation(outstation.DefaultOutstationConfig(), nil)
	if err != nil {
		t.Fatalf("add outstation: %v", err)
	}
	o.Database().Add(0, types.MeasurementCounter, 0)

	config := master.DefaultMasterConfig()
	config.ResponseTimeout = time.Second
	m, err := mch.AddMaster(config, nil)
	if err != nil {
		t.Fatalf("add master: %v", err)
	}

	if err := m.Read(context.Background(), app.ClassAll); err != nil {
		t.Fatalf("read: %v", err)
	}
	if stats := mch.Statistics(); stats.LinkFramesTx == 0 || stats.LinkFramesRx == 0 {
		t.Errorf("unexpected statistics %+v", stats)
	}

	if _, err := m.DirectOperate(context.Background(), []types.Command{types.NewLatchCommand(0, true)}); !errors.Is(err, master.ErrCommandFailed) {
		t.Errorf("rejecting handler should fail the command, got %v", err)
	}
}

func TestManager_DuplicateChannel(t *testing.T) {
	mgr := NewManager(nil)
	defer mgr.Shutdown()

	a, b := newPipe()
	if _, err := mgr.AddChannel("x", a, channel.DecodeNothing); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := mgr.AddChannel("x", b, channel.DecodeNothing); !errors.Is(err, ErrChannelExists) {
		t.Errorf("expected ErrChannelExists, got %v", err)
	}
	if mgr.ChannelCount() != 1 {
		t.Errorf("expected 1 channel, got %d", mgr.ChannelCount())
	}
}

func TestManager_RemoveChannelShutsDownSessions(t *testing.T) {
	mgr := NewManager(nil)
	a, _ := newPipe()
	ch, err := mgr.AddChannel("m", a, channel.DecodeNothing)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	m, err := ch.AddMaster(master.DefaultMasterConfig(), nil)
	if err != nil {
		t.Fatalf("add master: %v", err)
	}

	if err := ch.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if _, ok := mgr.GetChannel("m"); ok {
		t.Error("channel should be removed")
	}
	if err := m.Read(context.Background(), app.ClassAll); !errors.Is(err, master.ErrMasterShutdown) {
		t.Errorf("expected ErrMasterShutdown, got %v", err)
	}
	if err := mgr.RemoveChannel("m"); err == nil {
		t.Error("second remove should fail")
	}
}
