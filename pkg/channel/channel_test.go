package channel

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"avaneesh/dnp3-tester/pkg/link"
	"avaneesh/dnp3-tester/pkg/logger"
)

// pipeChannel is an in-memory PhysicalChannel
type pipeChannel struct {
	in      chan []byte
	mu      sync.Mutex
	written [][]byte
	closed  chan struct{}
	once    sync.Once
}

func newPipeChannel() *pipeChannel {
	return &pipeChannel{in: make(chan []byte, 10), closed: make(chan struct{})}
}

func (p *pipeChannel) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-p.in:
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.closed:
		return nil, ErrChannelClosed
	}
}

func (p *pipeChannel) Write(ctx context.Context, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, data)
	return nil
}

func (p *pipeChannel) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *pipeChannel) Statistics() TransportStats { return TransportStats{} }

type recordingSession struct {
	addr   uint16
	frames chan *link.Frame
}

func (s *recordingSession) OnReceive(f *link.Frame) error {
	s.frames <- f
	return nil
}
func (s *recordingSession) LinkAddress() uint16 { return s.addr }
func (s *recordingSession) Type() SessionType   { return SessionTypeMaster }

type eventLog struct {
	mu     sync.Mutex
	events []logger.Event
}

func (e *eventLog) Handle(ev logger.Event) {
	e.mu.Lock()
	e.events = append(e.events, ev)
	e.mu.Unlock()
}

func (e *eventLog) contains(substr string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ev := range e.events {
		if strings.Contains(ev.Message, substr) {
			return true
		}
	}
	return false
}

func TestChannel_RoutesByDestination(t *testing.T) {
	pipe := newPipeChannel()
	ch := New("test", pipe, nil)
	session := &recordingSession{addr: 1, frames: make(chan *link.Frame, 1)}
	if err := ch.AddSession(session); err != nil {
		t.Fatalf("add session: %v", err)
	}
	if err := ch.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ch.Close()

	wire, _ := link.NewFrame(link.DirectionOutstationToMaster, link.PrimaryFrame, link.FuncUserDataUnconfirmed, 1, 10, []byte{0xC0}).Serialize()
	pipe.in <- wire

	select {
	case f := <-session.frames:
		if f.Source != 10 {
			t.Errorf("unexpected source %d", f.Source)
		}
	case <-time.After(time.Second):
		t.Fatal("frame not routed")
	}
}

func TestChannel_DecodeMaxDumpsFrames(t *testing.T) {
	events := &eventLog{}
	pipe := newPipeChannel()
	ch := New("test", pipe, logger.New(logger.TargetEngine, logger.LevelError, events))
	ch.SetDecodeLevel(DecodeMax)
	if err := ch.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ch.Close()

	frame := link.NewFrame(link.DirectionMasterToOutstation, link.PrimaryFrame, link.FuncResetLink, 10, 1, nil)
	if err := ch.SendFrame(frame); err != nil {
		t.Fatalf("send: %v", err)
	}

	if !events.contains("PHYS TX - 10 bytes\n05 64 05 c0 0a 00 01 00") {
		t.Error("expected hex dump of the transmitted frame")
	}
	if !events.contains("LINK TX") {
		t.Error("expected link header line")
	}
}

func TestChannel_WriteWhenClosed(t *testing.T) {
	ch := New("test", newPipeChannel(), nil)
	if err := ch.Write([]byte{1}); err != ErrChannelClosed {
		t.Errorf("expected ErrChannelClosed, got %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	if err := ch.Open(); err != ErrChannelClosed {
		t.Errorf("reopen should fail, got %v", err)
	}
}

func TestRouter_DuplicateAddress(t *testing.T) {
	r := NewRouter()
	if err := r.AddSession(&recordingSession{addr: 5}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := r.AddSession(&recordingSession{addr: 5}); err == nil {
		t.Error("expected duplicate address error")
	}
	r.RemoveSession(5)
	if r.Count() != 0 {
		t.Errorf("expected empty router, got %d", r.Count())
	}
}

func TestTCPChannel_ServerClientExchange(t *testing.T) {
	server, err := NewTCPChannel(TCPChannelConfig{Address: "127.0.0.1:0", IsServer: true})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	defer server.Close()

	client, err := NewTCPChannel(TCPChannelConfig{Address: server.Addr().String(), ReconnectDelay: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	defer client.Close()

	wire, _ := link.NewFrame(link.DirectionMasterToOutstation, link.PrimaryFrame, link.FuncUserDataUnconfirmed, 10, 1, []byte{0xC0, 0xC1, 0x01}).Serialize()

	deadline := time.Now().Add(2 * time.Second)
	for !client.IsConnected() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if err := client.Write(context.Background(), wire); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, err := server.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != string(wire) {
		t.Errorf("got % x, want % x", got, wire)
	}
}

func TestSerialConfig_Mode(t *testing.T) {
	cfg := DefaultSerialConfig("/dev/ttyS0")
	m := cfg.mode()
	if m.BaudRate != 9600 || m.DataBits != 8 {
		t.Errorf("unexpected mode %+v", m)
	}
}
