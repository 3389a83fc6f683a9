package tap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avaneesh/dnp3-tester/internal/framescrape"
	"avaneesh/dnp3-tester/internal/telemetry"
	"avaneesh/dnp3-tester/pkg/link"
	"avaneesh/dnp3-tester/pkg/logger"
)

func event(target string, level logger.Level, msg string) logger.Event {
	return logger.Event{Time: time.Now(), Target: target, Level: level, Message: msg}
}

func TestTap_Routing(t *testing.T) {
	tests := []struct {
		name       string
		ev         logger.Event
		wantLog    telemetry.Direction
		wantFrame  telemetry.Direction
		wantNoData bool
	}{
		{
			name:      "tx frame dump",
			ev:        event(logger.TargetEngine, logger.LevelDebug, "PHYS TX - 10 bytes\n05 64 05 c0 01 00 0a 00 e0 8c"),
			wantFrame: telemetry.DirectionTX,
		},
		{
			name:      "rx frame dump with escaped newline",
			ev:        event(logger.TargetEngine, logger.LevelDebug, `PHYS RX - 10 bytes\n05 64 05 c0 01 00 0a 00 e0 8c`),
			wantFrame: telemetry.DirectionRX,
		},
		{
			name:    "warning",
			ev:      event(logger.TargetEngine, logger.LevelWarn, "link: unexpected source 4"),
			wantLog: telemetry.DirectionSystem,
		},
		{
			name:    "error",
			ev:      event(logger.TargetApp, logger.LevelError, "bind failed"),
			wantLog: telemetry.DirectionError,
		},
		{
			name:    "keyword",
			ev:      event(logger.TargetEngine, logger.LevelInfo, "waiting for connection on 0.0.0.0:20000"),
			wantLog: telemetry.DirectionSystem,
		},
		{
			name:       "noise",
			ev:         event(logger.TargetEngine, logger.LevelDebug, "APP TX - READ seq=1"),
			wantNoData: true,
		},
		{
			name:       "foreign target",
			ev:         event(logger.TargetHTTP, logger.LevelError, "GET /api/data 500"),
			wantNoData: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := telemetry.NewStore()
			New(store, nil).Handle(tt.ev)

			logs, frames := store.Logs(), store.Frames()
			switch {
			case tt.wantNoData:
				assert.Empty(t, logs)
				assert.Empty(t, frames)
			case tt.wantFrame != "":
				assert.Empty(t, logs)
				require.Len(t, frames, 1)
				assert.Equal(t, tt.wantFrame, frames[0].Direction)
				assert.Equal(t, byte(0x05), frames[0].Data[0])
			default:
				assert.Empty(t, frames)
				require.Len(t, logs, 1)
				assert.Equal(t, tt.wantLog, logs[0].Direction)
			}
		})
	}
}

func TestTap_UnescapesMessages(t *testing.T) {
	store := telemetry.NewStore()
	New(store, nil).Handle(event(logger.TargetApp, logger.LevelWarn, `config \"x\"\tignored`))

	logs := store.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, `config "x" ignored`, logs[0].Message)
}

func TestTap_ShortExtractionFallsThrough(t *testing.T) {
	store := telemetry.NewStore()
	one := framescrape.ExtractorFunc(func(string) []byte { return []byte{0x05} })
	New(store, one).Handle(event(logger.TargetEngine, logger.LevelInfo, "connected to 127.0.0.1:20000"))

	assert.Empty(t, store.Frames())
	assert.Len(t, store.Logs(), 1)
}

func TestTap_AsLoggerSink(t *testing.T) {
	store := telemetry.NewStore()
	log := logger.New(logger.TargetEngine, logger.LevelError, New(store, nil))

	frame := link.NewFrame(link.DirectionMasterToOutstation, link.PrimaryFrame, link.FuncResetLink, 10, 1, nil)
	data, err := frame.Serialize()
	require.NoError(t, err)
	log.Debug("PHYS TX - %d bytes\n%s", len(data), link.HexDump(data))

	frames := store.Frames()
	require.Len(t, frames, 1)
	assert.Equal(t, data, frames[0].Data)
}
