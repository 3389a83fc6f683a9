package session

import (
	"context"
	"fmt"
	"math"
	"time"

	"avaneesh/dnp3-tester/internal/points"
	"avaneesh/dnp3-tester/internal/telemetry"
	"avaneesh/dnp3-tester/pkg/app"
	"avaneesh/dnp3-tester/pkg/types"
)

// Control modes offered to the operator. The engine's select-before-operate
// runs both phases in one call, so Select and SBO behave identically, and
// DirectNoAck and Operate both fall back to a direct operate.
const (
	ModeDirect      = "Direct"
	ModeDirectNoAck = "DirectNoAck"
	ModeSelect      = "Select"
	ModeOperate     = "Operate"
	ModeSBO         = "SBO"
)

// usesSelect reports whether mode is carried out as select-before-operate
func usesSelect(mode string) bool {
	return mode == ModeSelect || mode == ModeSBO
}

// ReadAll issues a class 0,1,2,3 integrity poll. A connected session with no
// master association, such as an outstation, records a simulated read instead.
func (s *Service) ReadAll(ctx context.Context) error {
	if m := s.masterConn(); m != nil {
		s.store.Log(telemetry.DirectionTX, "READ Class 0,1,2,3 (Integrity Poll)")
		if err := m.Read(ctx, app.ClassAll); err != nil {
			s.stats.errors.Add(1)
			return fmt.Errorf("read failed: %w", err)
		}
		s.stats.tx.Add(1)
		return s.flushUpdates(ctx)
	}

	if s.Connected() {
		s.store.Log(telemetry.DirectionTX, "Simulated READ (serial)")
		s.stats.tx.Add(1)
		s.stats.rx.Add(1)
		return nil
	}
	return ErrNotConnected
}

// ExecuteControl operates a BinaryOutput or AnalogOutput point. Binary values
// above 0.5 latch on; analog values are sent as int32. Unknown modes run as
// Direct. Every mode except Select is followed by a verification read whose
// failure is only logged.
func (s *Service) ExecuteControl(ctx context.Context, typ points.Type, index uint16, value float64, mode string) (string, error) {
	cmd, err := command(typ, index, value)
	if err != nil {
		return "", err
	}
	if mode == "" {
		mode = ModeDirect
	}

	m := s.masterConn()
	if m == nil {
		if !s.Connected() {
			return "", ErrNotConnected
		}
		s.points.Set(points.Key{Type: typ, Index: index}, value, points.Online)
		s.stats.tx.Add(1)
		return mode + " Control executed (simulated)", nil
	}

	cmds := []types.Command{cmd}
	if mode == ModeSelect {
		s.logger.Warn("session %s: Select runs select and operate in one call; %s[%d] will be operated", s.id, typ, index)
	}
	if usesSelect(mode) {
		s.logger.Info("session %s: select before operate %s[%d] = %v (%s)", s.id, typ, index, value, mode)
		_, err = m.SelectAndOperate(ctx, cmds)
	} else {
		s.logger.Info("session %s: direct operate %s[%d] = %v (%s)", s.id, typ, index, value, mode)
		_, err = m.DirectOperate(ctx, cmds)
	}
	if err != nil {
		s.stats.errors.Add(1)
		return "", fmt.Errorf("%s failed: %w", mode, err)
	}
	s.stats.tx.Add(1)
	s.stats.rx.Add(1)

	if mode != ModeSelect {
		s.verify(ctx, m)
	}
	return mode + " Control executed", nil
}

func (s *Service) verify(ctx context.Context, m MasterConn) {
	t := time.NewTimer(s.opts.VerifyDelay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		s.logger.Warn("session %s: verification read skipped: %v", s.id, ctx.Err())
		return
	}
	if err := m.Read(ctx, app.ClassAll); err != nil {
		s.logger.Warn("session %s: verification read failed: %v", s.id, err)
		return
	}
	if err := s.flushUpdates(ctx); err != nil {
		s.logger.Warn("session %s: applying verification read: %v", s.id, err)
	}
}

func command(typ points.Type, index uint16, value float64) (types.Command, error) {
	switch typ {
	case points.BinaryOutput:
		return types.NewLatchCommand(index, value > 0.5), nil
	case points.AnalogOutput:
		return types.NewAnalogOutputCommand(index, saturateInt32(value)), nil
	default:
		return types.Command{}, fmt.Errorf("%w: %s", ErrUnsupportedPointType, typ)
	}
}

// saturateInt32 converts like a saturating cast: out-of-range values clamp to
// the int32 limits and NaN becomes 0
func saturateInt32(v float64) int32 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}
