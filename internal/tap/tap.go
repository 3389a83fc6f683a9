// Package tap turns engine and application log events into telemetry.
package tap

import (
	"strings"

	"avaneesh/dnp3-tester/internal/framescrape"
	"avaneesh/dnp3-tester/internal/telemetry"
	"avaneesh/dnp3-tester/pkg/logger"
)

var unescaper = strings.NewReplacer(`\n`, " ", `\r`, " ", `\t`, " ", `\"`, `"`)

var keywords = []string{"connected", "refused", "waiting"}

// Tap is a logger.Sink. Events carrying a frame dump go to the frame ring, important
// events go to the log ring, everything else is dropped. Writes never block.
type Tap struct {
	store   *telemetry.Store
	extract framescrape.Extractor
	targets map[string]bool
}

// New creates a tap writing to store. A nil extractor means framescrape.HexScrape.
func New(store *telemetry.Store, extract framescrape.Extractor) *Tap {
	if extract == nil {
		extract = framescrape.HexScrape
	}
	return &Tap{
		store:   store,
		extract: extract,
		targets: map[string]bool{logger.TargetEngine: true, logger.TargetApp: true},
	}
}

// Handle implements logger.Sink
func (t *Tap) Handle(ev logger.Event) {
	if !t.targets[ev.Target] {
		return
	}
	msg := unescaper.Replace(ev.Message)

	if data := t.extract.Extract(msg); len(data) >= 2 {
		dir := telemetry.DirectionRX
		if strings.Contains(msg, "TX") {
			dir = telemetry.DirectionTX
		}
		t.store.TryFrame(dir, data)
		return
	}

	if !important(ev.Level, msg) {
		return
	}
	dir := telemetry.DirectionSystem
	if ev.Level == logger.LevelError {
		dir = telemetry.DirectionError
	}
	t.store.TryLog(dir, msg)
}

func important(level logger.Level, msg string) bool {
	if level >= logger.LevelWarn {
		return true
	}
	for _, k := range keywords {
		if strings.Contains(msg, k) {
			return true
		}
	}
	return false
}
