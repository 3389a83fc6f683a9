package session

import (
	"math/rand/v2"
	"time"

	"avaneesh/dnp3-tester/internal/points"
	"avaneesh/dnp3-tester/pkg/outstation"
	"avaneesh/dnp3-tester/pkg/types"
)

// simulate perturbs input points every interval until act is torn down. The
// flag is checked after each sleep, so a torn-down activation never writes to
// the table again, though the goroutine may linger for one interval.
func (s *Service) simulate(act *activation) {
	defer s.wg.Done()
	for {
		select {
		case <-time.After(s.opts.SimulationInterval):
		case <-s.done:
			return
		}
		if !act.connected.Load() {
			return
		}
		s.simulateOnce(act.outstation)
	}
}

// simulateOnce randomizes inputs and mirrors every point into the outstation
// database, one transaction per point. Outputs keep their stored value.
func (s *Service) simulateOnce(oc OutstationConn) {
	s.points.Mutate(func(p *points.DataPoint) {
		now := time.Now()
		ts := types.FromTime(now)

		var meas types.Measurement
		switch p.Type {
		case points.AnalogInput:
			p.Value = 200 + rand.Float64()*50 + rand.Float64()*0.99
			meas = types.Analog{Value: p.Value, Flags: types.FlagOnline, Time: ts}
		case points.Counter:
			p.Value += rand.Float64() * 10
			meas = types.Counter{Value: uint32(p.Value), Flags: types.FlagOnline, Time: ts}
		case points.BinaryInput:
			p.Value = boolValue(rand.Float64() > 0.5)
			meas = types.Binary{Value: p.Value > 0.5, Flags: types.FlagOnline, Time: ts}
		case points.BinaryOutput:
			meas = types.BinaryOutputStatus{Value: p.Value > 0.5, Flags: types.FlagOnline, Time: ts}
		case points.AnalogOutput:
			meas = types.AnalogOutputStatus{Value: p.Value, Flags: types.FlagOnline, Time: ts}
		default:
			return
		}
		p.Quality = points.Online
		p.Timestamp = now

		index := p.Index
		oc.Transaction(func(db *outstation.Database) {
			db.Update(index, meas, outstation.EventModeDetect)
		})
	})
}
