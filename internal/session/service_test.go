package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avaneesh/dnp3-tester/internal/config"
	"avaneesh/dnp3-tester/internal/points"
	"avaneesh/dnp3-tester/pkg/channel"
	"avaneesh/dnp3-tester/pkg/types"
)

func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestService_StartMaster(t *testing.T) {
	s, engine, store := newTestService(t, testOptions())

	conn := config.Connection{Mode: config.ModeMaster, Port: 20000, LocalAddr: 1, RemoteAddr: 10}
	require.NoError(t, s.StartMaster(conn))

	assert.True(t, s.Connected())
	assert.Equal(t, RoleMaster, s.Role())

	link := engine.lastLink()
	assert.Equal(t, "test/master", link.ID)
	assert.Equal(t, "127.0.0.1:20000", link.Address)
	assert.False(t, link.Listen)
	assert.Contains(t, messages(store), "System Master connected")
}

func TestService_StartMasterTCPServerListens(t *testing.T) {
	s, engine, _ := newTestService(t, testOptions())

	require.NoError(t, s.StartMaster(config.Connection{Mode: config.ModeMaster, Port: 20000, ConnType: config.ConnTCPServer}))
	assert.True(t, engine.lastLink().Listen)
}

func TestService_RestartReleasesPrevious(t *testing.T) {
	s, engine, _ := newTestService(t, testOptions())
	require.NoError(t, s.AddPoint(points.AnalogInput, 0, "AI0"))

	require.NoError(t, s.StartMaster(config.Connection{Port: 20000}))
	first := engine.lastMaster()
	require.True(t, s.points.Set(points.Key{Type: points.AnalogInput}, 5, points.Online))

	require.NoError(t, s.StartOutstation(config.Connection{Port: 20001}))
	assert.True(t, first.Closed())
	assert.Equal(t, RoleOutstation, s.Role())

	p, ok := s.points.Get(points.Key{Type: points.AnalogInput})
	require.True(t, ok)
	assert.Equal(t, points.Offline, p.Quality)
	assert.Zero(t, p.Value)
}

func TestService_StartMasterTwice(t *testing.T) {
	s, engine, _ := newTestService(t, testOptions())

	require.NoError(t, s.StartMaster(config.Connection{Port: 20000}))
	require.NoError(t, s.StartMaster(config.Connection{Port: 20001}))

	engine.mu.Lock()
	masters := append([]*fakeMaster(nil), engine.masters...)
	engine.mu.Unlock()
	require.Len(t, masters, 2)
	assert.True(t, masters[0].Closed())
	assert.False(t, masters[1].Closed())

	assert.Same(t, masters[1], s.masterConn())
	assert.Equal(t, RoleMaster, s.Role())
	assert.Equal(t, "127.0.0.1:20001", engine.lastLink().Address)
}

func TestService_StartFailureLeavesIdle(t *testing.T) {
	s, engine, _ := newTestService(t, testOptions())
	engine.startErr = errors.New("address in use")

	err := s.StartOutstation(config.Connection{Port: 20000})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address in use")
	assert.False(t, s.Connected())
	assert.Equal(t, RoleIdle, s.Role())
}

func TestService_InvalidAddress(t *testing.T) {
	s, engine, _ := newTestService(t, testOptions())

	err := s.StartMaster(config.Connection{Port: 20000, LocalAddr: 0xFFF0})
	assert.ErrorIs(t, err, ErrInvalidAddress)
	assert.Empty(t, engine.links)
	assert.False(t, s.Connected())
}

func TestService_SerialPortMissing(t *testing.T) {
	s, engine, _ := newTestService(t, testOptions())

	err := s.StartOutstation(config.Connection{ConnType: config.ConnSerial})
	assert.ErrorIs(t, err, ErrSerialPortMissing)
	assert.Empty(t, engine.links)
}

func TestService_SerialOutstation(t *testing.T) {
	s, engine, store := newTestService(t, testOptions())

	conn := config.Connection{ConnType: config.ConnSerial, SerialName: "/dev/ttyUSB0", BaudRate: intPtr(19200)}
	require.NoError(t, s.StartOutstation(conn))

	link := engine.lastLink()
	assert.Empty(t, link.Address)
	assert.Equal(t, "/dev/ttyUSB0", link.Serial.Port)
	assert.Equal(t, 19200, link.Serial.BaudRate)
	assert.Contains(t, messages(store), "System Outstation started on serial /dev/ttyUSB0")
}

func TestService_OutstationDatabaseMirrorsTable(t *testing.T) {
	s, engine, store := newTestService(t, testOptions())
	require.NoError(t, s.AddPoint(points.BinaryInput, 0, "BI0"))
	require.NoError(t, s.AddPoint(points.AnalogOutput, 3, "AO3"))
	require.NoError(t, s.AddPoint(points.Counter, 1, "C1"))

	require.NoError(t, s.StartOutstation(config.Connection{Port: 20000}))

	db := engine.lastOutstation().db
	assert.Equal(t, 3, db.Len())
	_, ok := db.Value(3, types.MeasurementAnalogOutputStatus)
	assert.True(t, ok)
	assert.Contains(t, messages(store), "System Outstation started")
	assert.Equal(t, "0.0.0.0:20000", engine.lastLink().Address)
	assert.True(t, engine.lastLink().Listen)
}

func TestService_DisconnectIdempotent(t *testing.T) {
	s, engine, store := newTestService(t, testOptions())
	require.NoError(t, s.StartOutstation(config.Connection{Port: 20000}))

	s.Disconnect()
	s.Disconnect()

	assert.True(t, engine.lastOutstation().Closed())
	assert.False(t, s.Connected())
	assert.Equal(t, RoleIdle, s.Role())

	var n int
	for _, m := range messages(store) {
		if m == "System Disconnected" {
			n++
		}
	}
	assert.Equal(t, 2, n)
}

func TestService_StartAfterClose(t *testing.T) {
	s, _, _ := newTestService(t, testOptions())
	s.Close()
	assert.ErrorIs(t, s.StartMaster(config.Connection{Port: 20000}), ErrClosed)
}

func TestService_ApplyConfig(t *testing.T) {
	s, _, _ := newTestService(t, testOptions())
	require.NoError(t, s.AddPoint(points.Counter, 9, "old"))

	dev := &config.DeviceConfiguration{
		BinaryInputs:  []config.PointConfig{{Index: 0, Name: "Breaker"}},
		AnalogOutputs: []config.PointConfig{{Index: 1, Name: "Setpoint"}},
	}
	s.ApplyConfig(dev)

	pts := s.Points()
	require.Len(t, pts, 2)
	assert.Equal(t, points.BinaryInput, pts[0].Type)
	assert.Equal(t, points.Offline, pts[0].Quality)
	assert.Equal(t, points.AnalogOutput, pts[1].Type)

	s.ClearPoints()
	assert.Empty(t, s.Points())
}

func TestSerialConfig(t *testing.T) {
	tests := []struct {
		name string
		conn config.Connection
		want channel.SerialConfig
	}{
		{
			name: "defaults",
			conn: config.Connection{SerialName: "COM3"},
			want: channel.DefaultSerialConfig("COM3"),
		},
		{
			name: "explicit",
			conn: config.Connection{
				SerialName: "COM3",
				BaudRate:   intPtr(115200),
				DataBits:   intPtr(7),
				Parity:     strPtr("Even"),
				StopBits:   floatPtr(2),
			},
			want: channel.SerialConfig{Port: "COM3", BaudRate: 115200, DataBits: 7, Parity: channel.ParityEven, StopBits: channel.StopBitsTwo},
		},
		{
			name: "odd data bits and unknown parity",
			conn: config.Connection{
				SerialName: "COM3",
				BaudRate:   intPtr(0),
				DataBits:   intPtr(9),
				Parity:     strPtr("mark"),
				StopBits:   floatPtr(1.5),
			},
			want: channel.SerialConfig{Port: "COM3", BaudRate: 9600, DataBits: 8, Parity: channel.ParityNone, StopBits: channel.StopBitsOne},
		},
		{
			name: "odd parity",
			conn: config.Connection{SerialName: "COM3", Parity: strPtr("odd")},
			want: channel.SerialConfig{Port: "COM3", BaudRate: 9600, DataBits: 8, Parity: channel.ParityOdd, StopBits: channel.StopBitsOne},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SerialConfig(tt.conn)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := SerialConfig(config.Connection{SerialName: "  "})
	assert.ErrorIs(t, err, ErrSerialPortMissing)
}
