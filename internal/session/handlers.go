package session

import (
	"context"
	"fmt"

	"avaneesh/dnp3-tester/internal/points"
	"avaneesh/dnp3-tester/internal/telemetry"
	"avaneesh/dnp3-tester/pkg/master"
	"avaneesh/dnp3-tester/pkg/outstation"
	"avaneesh/dnp3-tester/pkg/types"
)

// pointUpdate is queued by engine callbacks and applied by the session's
// update-apply loop, the only writer of the table on behalf of the engine.
// An update with flush set carries no value and is acknowledged once reached.
type pointUpdate struct {
	key     points.Key
	value   float64
	quality points.Quality
	flush   chan struct{}
}

func (s *Service) applyLoop() {
	defer s.wg.Done()
	for {
		select {
		case u := <-s.updates:
			if u.flush != nil {
				close(u.flush)
				continue
			}
			s.points.Set(u.key, u.value, u.quality)
		case <-s.done:
			return
		}
	}
}

func (s *Service) enqueue(u pointUpdate) {
	select {
	case s.updates <- u:
	case <-s.done:
	}
}

// flushUpdates waits until every update queued before the call has been applied
func (s *Service) flushUpdates(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case s.updates <- pointUpdate{flush: ack}:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readHandler receives measurements for a master session
type readHandler struct {
	s *Service
}

func (h *readHandler) OnBeginFragment(master.ResponseInfo) {}

func (h *readHandler) OnEndFragment(master.ResponseInfo) {
	h.s.store.Log(telemetry.DirectionRX, "Response received")
	h.s.stats.rx.Add(1)
}

func (h *readHandler) update(typ points.Type, index uint16, value float64, flags types.Flags) {
	h.s.enqueue(pointUpdate{
		key:     points.Key{Type: typ, Index: index},
		value:   value,
		quality: points.QualityFromFlags(flags),
	})
}

func (h *readHandler) ProcessBinary(values []types.IndexedBinary) {
	for _, v := range values {
		h.update(points.BinaryInput, v.Index, boolValue(v.Value.Value), v.Value.Flags)
	}
}

func (h *readHandler) ProcessBinaryOutputStatus(values []types.IndexedBinaryOutputStatus) {
	for _, v := range values {
		h.update(points.BinaryOutput, v.Index, boolValue(v.Value.Value), v.Value.Flags)
	}
}

func (h *readHandler) ProcessCounter(values []types.IndexedCounter) {
	for _, v := range values {
		h.update(points.Counter, v.Index, float64(v.Value.Value), v.Value.Flags)
	}
}

func (h *readHandler) ProcessAnalog(values []types.IndexedAnalog) {
	for _, v := range values {
		h.update(points.AnalogInput, v.Index, v.Value.Value, v.Value.Flags)
	}
}

func (h *readHandler) ProcessAnalogOutputStatus(values []types.IndexedAnalogOutputStatus) {
	for _, v := range values {
		h.update(points.AnalogOutput, v.Index, v.Value.Value, v.Value.Flags)
	}
}

// controlHandler executes controls received by an outstation session
type controlHandler struct {
	s *Service
}

// selectLimit is the exclusive upper bound of controllable indexes
const selectLimit = 100

func (h *controlHandler) SelectCROB(crob types.CROB, index uint16) types.CommandStatus {
	h.s.store.Log(telemetry.DirectionRX, fmt.Sprintf("[FC=03 SELECT] BinaryOutput[%d] = %v", index, latchValue(crob)))
	h.s.store.Log(telemetry.DirectionTX, "[FC=129] SELECT Success - Status: 0")
	if index < selectLimit && crob.OpType.IsLatch() {
		return types.CommandStatusSuccess
	}
	return types.CommandStatusNotSupported
}

func (h *controlHandler) OperateCROB(crob types.CROB, index uint16, _ outstation.OperateType, db *outstation.Database) types.CommandStatus {
	value := latchValue(crob)
	db.Update(index, types.BinaryOutputStatus{
		Value: value > 0.5,
		Flags: types.FlagOnline,
		Time:  types.Now(),
	}, outstation.EventModeDetect)

	h.s.enqueue(pointUpdate{key: points.Key{Type: points.BinaryOutput, Index: index}, value: value, quality: points.Online})
	h.s.store.Log(telemetry.DirectionRX, fmt.Sprintf("[FC=04 OPERATE] BinaryOutput[%d] = %v", index, value))
	h.s.store.Log(telemetry.DirectionTX, "[FC=129] OPERATE Success - Status: 0")
	return types.CommandStatusSuccess
}

func (h *controlHandler) SelectAnalogOutput(_ types.AnalogOutput, index uint16) types.CommandStatus {
	if index < selectLimit {
		return types.CommandStatusSuccess
	}
	return types.CommandStatusNotSupported
}

func (h *controlHandler) OperateAnalogOutput(ao types.AnalogOutput, index uint16, _ outstation.OperateType, db *outstation.Database) types.CommandStatus {
	value := ao.Float64()
	db.Update(index, types.AnalogOutputStatus{
		Value: value,
		Flags: types.FlagOnline,
		Time:  types.Now(),
	}, outstation.EventModeDetect)

	h.s.enqueue(pointUpdate{key: points.Key{Type: points.AnalogOutput, Index: index}, value: value, quality: points.Online})
	h.s.store.Log(telemetry.DirectionRX, fmt.Sprintf("[FC=04 OPERATE] AnalogOutput[%d] = %v", index, value))
	h.s.store.Log(telemetry.DirectionTX, "[FC=129] OPERATE Success - Status: 0")
	return types.CommandStatusSuccess
}

func latchValue(crob types.CROB) float64 {
	if crob.OpType == types.ControlCodeLatchOn {
		return 1
	}
	return 0
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
