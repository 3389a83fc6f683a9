package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avaneesh/dnp3-tester/internal/config"
	"avaneesh/dnp3-tester/internal/points"
	"avaneesh/dnp3-tester/pkg/outstation"
	"avaneesh/dnp3-tester/pkg/types"
)

func TestSimulateOnce(t *testing.T) {
	s, engine, _ := newTestService(t, testOptions())
	require.NoError(t, s.AddPoint(points.AnalogInput, 0, "AI"))
	require.NoError(t, s.AddPoint(points.Counter, 0, "C"))
	require.NoError(t, s.AddPoint(points.BinaryInput, 0, "BI"))
	require.NoError(t, s.AddPoint(points.BinaryOutput, 0, "BO"))
	require.NoError(t, s.AddPoint(points.AnalogOutput, 0, "AO"))
	require.NoError(t, s.StartOutstation(config.Connection{Port: 20000}))

	s.points.Set(points.Key{Type: points.BinaryOutput}, 1, points.Offline)
	s.points.Set(points.Key{Type: points.AnalogOutput}, 77, points.Offline)

	oc := engine.lastOutstation()
	s.simulateOnce(oc)

	for _, p := range s.Points() {
		assert.Equal(t, points.Online, p.Quality, p.Key().String())
		assert.False(t, p.Timestamp.IsZero())

		switch p.Type {
		case points.AnalogInput:
			assert.GreaterOrEqual(t, p.Value, 200.0)
			assert.Less(t, p.Value, 251.0)
		case points.Counter:
			assert.GreaterOrEqual(t, p.Value, 0.0)
			assert.Less(t, p.Value, 10.0)
		case points.BinaryInput:
			assert.Contains(t, []float64{0, 1}, p.Value)
		case points.BinaryOutput:
			assert.Equal(t, 1.0, p.Value)
		case points.AnalogOutput:
			assert.Equal(t, 77.0, p.Value)
		}
	}

	ao, ok := oc.db.Value(0, types.MeasurementAnalogOutputStatus)
	require.True(t, ok)
	assert.Equal(t, 77.0, ao.Value)
	bo, ok := oc.db.Value(0, types.MeasurementBinaryOutputStatus)
	require.True(t, ok)
	assert.Equal(t, 1.0, bo.Value)
}

func TestSimulateOnce_CounterAccumulates(t *testing.T) {
	s, engine, _ := newTestService(t, testOptions())
	require.NoError(t, s.AddPoint(points.Counter, 0, "C"))
	require.NoError(t, s.StartOutstation(config.Connection{Port: 20000}))

	var last float64
	for range 20 {
		s.simulateOnce(engine.lastOutstation())
		p, _ := s.points.Get(points.Key{Type: points.Counter})
		assert.GreaterOrEqual(t, p.Value, last)
		last = p.Value
	}
}

func TestSimulator_RunsAndStops(t *testing.T) {
	opts := testOptions()
	opts.SimulationInterval = 5 * time.Millisecond
	s, _, _ := newTestService(t, opts)
	require.NoError(t, s.AddPoint(points.AnalogInput, 0, "AI"))
	require.NoError(t, s.StartOutstation(config.Connection{Port: 20000}))

	require.Eventually(t, func() bool {
		p, _ := s.points.Get(points.Key{Type: points.AnalogInput})
		return p.Value >= 200
	}, time.Second, 5*time.Millisecond)

	s.Disconnect()
	before, _ := s.points.Get(points.Key{Type: points.AnalogInput})
	time.Sleep(4 * opts.SimulationInterval)
	after, _ := s.points.Get(points.Key{Type: points.AnalogInput})
	assert.Equal(t, before.Value, after.Value)
}

func TestSimulator_StopsWhenReplacedByMaster(t *testing.T) {
	opts := testOptions()
	opts.SimulationInterval = 50 * time.Millisecond
	s, _, _ := newTestService(t, opts)
	require.NoError(t, s.AddPoint(points.AnalogInput, 0, "AI"))

	require.NoError(t, s.StartOutstation(config.Connection{Port: 20000}))
	// the simulator is mid-sleep when the master replaces the outstation
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.StartMaster(config.Connection{Port: 20001}))
	assert.Equal(t, RoleMaster, s.Role())

	time.Sleep(3 * opts.SimulationInterval)
	p, ok := s.points.Get(points.Key{Type: points.AnalogInput})
	require.True(t, ok)
	assert.Equal(t, points.Offline, p.Quality)
	assert.Zero(t, p.Value)
}

func TestControlHandler(t *testing.T) {
	s, engine, store := newTestService(t, testOptions())
	require.NoError(t, s.AddPoint(points.BinaryOutput, 2, "Breaker"))
	require.NoError(t, s.AddPoint(points.AnalogOutput, 1, "Setpoint"))
	require.NoError(t, s.StartOutstation(config.Connection{Port: 20000}))

	oc := engine.lastOutstation()
	h := oc.controls

	latchOn := types.CROB{OpType: types.ControlCodeLatchOn, Count: 1}
	pulse := types.CROB{OpType: types.ControlCodePulseOn, Count: 1}
	assert.Equal(t, types.CommandStatusSuccess, h.SelectCROB(latchOn, 2))
	assert.Equal(t, types.CommandStatusNotSupported, h.SelectCROB(pulse, 2))
	assert.Equal(t, types.CommandStatusNotSupported, h.SelectCROB(latchOn, 100))
	assert.Equal(t, types.CommandStatusSuccess, h.SelectAnalogOutput(types.AnalogOutputInt32{Value: 5}, 99))
	assert.Equal(t, types.CommandStatusNotSupported, h.SelectAnalogOutput(types.AnalogOutputInt32{Value: 5}, 100))

	var status types.CommandStatus
	oc.Transaction(func(db *outstation.Database) {
		status = h.OperateCROB(latchOn, 2, outstation.OperateTypeSelectBeforeOperate, db)
	})
	assert.Equal(t, types.CommandStatusSuccess, status)
	oc.Transaction(func(db *outstation.Database) {
		status = h.OperateAnalogOutput(types.AnalogOutputInt32{Value: 55}, 1, outstation.OperateTypeDirectOperate, db)
	})
	assert.Equal(t, types.CommandStatusSuccess, status)

	require.NoError(t, s.flushUpdates(context.Background()))

	bo, _ := s.points.Get(points.Key{Type: points.BinaryOutput, Index: 2})
	assert.Equal(t, 1.0, bo.Value)
	assert.Equal(t, points.Online, bo.Quality)
	ao, _ := s.points.Get(points.Key{Type: points.AnalogOutput, Index: 1})
	assert.Equal(t, 55.0, ao.Value)

	dbValue, ok := oc.db.Value(1, types.MeasurementAnalogOutputStatus)
	require.True(t, ok)
	assert.Equal(t, 55.0, dbValue.Value)

	logs := messages(store)
	assert.Contains(t, logs, "RX [FC=03 SELECT] BinaryOutput[2] = 1")
	assert.Contains(t, logs, "RX [FC=04 OPERATE] BinaryOutput[2] = 1")
	assert.Contains(t, logs, "RX [FC=04 OPERATE] AnalogOutput[1] = 55")
	assert.Contains(t, logs, "TX [FC=129] OPERATE Success - Status: 0")
}
