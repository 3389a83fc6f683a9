package master

import (
	"avaneesh/dnp3-tester/pkg/app"
	"avaneesh/dnp3-tester/pkg/types"
)

// deliver decodes a response fragment and passes the measurements to the handler
func (m *Master) deliver(info ResponseInfo, objects []byte) {
	m.handler.OnBeginFragment(info)
	defer m.handler.OnEndFragment(info)

	values, err := app.DecodeMeasurements(objects)
	if err != nil {
		m.logger.Warn("master %s: partial decode: %v", m.config.ID, err)
	}
	if len(values) == 0 {
		return
	}
	dispatch(m.handler, values)
}

// dispatch groups values by type, keeping their wire order
func dispatch(h ReadHandler, values []app.PointValue) {
	var (
		binaries  []types.IndexedBinary
		bos       []types.IndexedBinaryOutputStatus
		counters  []types.IndexedCounter
		analogs   []types.IndexedAnalog
		aos       []types.IndexedAnalogOutputStatus
		timestamp = types.Now()
	)

	for _, v := range values {
		switch v.Type {
		case types.MeasurementBinary:
			binaries = append(binaries, types.IndexedBinary{Index: v.Index, Value: types.Binary{Value: v.Value != 0, Flags: v.Flags, Time: timestamp}})
		case types.MeasurementBinaryOutputStatus:
			bos = append(bos, types.IndexedBinaryOutputStatus{Index: v.Index, Value: types.BinaryOutputStatus{Value: v.Value != 0, Flags: v.Flags, Time: timestamp}})
		case types.MeasurementCounter:
			counters = append(counters, types.IndexedCounter{Index: v.Index, Value: types.Counter{Value: uint32(v.Value), Flags: v.Flags, Time: timestamp}})
		case types.MeasurementAnalog:
			analogs = append(analogs, types.IndexedAnalog{Index: v.Index, Value: types.Analog{Value: v.Value, Flags: v.Flags, Time: timestamp}})
		case types.MeasurementAnalogOutputStatus:
			aos = append(aos, types.IndexedAnalogOutputStatus{Index: v.Index, Value: types.AnalogOutputStatus{Value: v.Value, Flags: v.Flags, Time: timestamp}})
		}
	}

	if len(binaries) > 0 {
		h.ProcessBinary(binaries)
	}
	if len(bos) > 0 {
		h.ProcessBinaryOutputStatus(bos)
	}
	if len(counters) > 0 {
		h.ProcessCounter(counters)
	}
	if len(analogs) > 0 {
		h.ProcessAnalog(analogs)
	}
	if len(aos) > 0 {
		h.ProcessAnalogOutputStatus(aos)
	}
}
