package api

import (
	"encoding/hex"
	"time"

	"avaneesh/dnp3-tester/internal/points"
	"avaneesh/dnp3-tester/internal/session"
	"avaneesh/dnp3-tester/internal/telemetry"
)

// Wire shapes of the operator UI. Timestamps are Unix milliseconds.

type pointView struct {
	Type      string  `json:"type" msgpack:"type"`
	Index     uint16  `json:"index" msgpack:"index"`
	Name      string  `json:"name" msgpack:"name"`
	Value     float64 `json:"value" msgpack:"value"`
	Quality   string  `json:"quality" msgpack:"quality"`
	Timestamp int64   `json:"timestamp" msgpack:"timestamp"`
}

type dataResponse struct {
	Points    []pointView   `json:"points"`
	Stats     session.Stats `json:"stats"`
	Connected bool          `json:"connected"`
	Role      session.Role  `json:"role"`
	Logs      []string      `json:"logs"`
}

type logView struct {
	ID        uint64 `json:"id" msgpack:"id"`
	Timestamp int64  `json:"timestamp" msgpack:"timestamp"`
	Direction string `json:"direction" msgpack:"direction"`
	Message   string `json:"message" msgpack:"message"`
}

type frameView struct {
	ID        uint64 `json:"id" msgpack:"id"`
	Timestamp int64  `json:"timestamp" msgpack:"timestamp"`
	Direction string `json:"direction" msgpack:"direction"`
	Data      []int  `json:"data" msgpack:"-"`
	Raw       []byte `json:"-" msgpack:"data"`
	Hex       string `json:"hex" msgpack:"hex"`
}

type controlRequest struct {
	PointType   string  `json:"point_type"`
	Index       uint16  `json:"index"`
	Value       float64 `json:"value"`
	OpMode      string  `json:"op_mode"`
	CommandType string  `json:"command_type,omitempty"`
}

type controlResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type addPointRequest struct {
	PointType string `json:"point_type"`
	Index     uint16 `json:"index"`
	Name      string `json:"name"`
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func pointViews(pts []points.DataPoint) []pointView {
	out := make([]pointView, len(pts))
	for i, p := range pts {
		out[i] = pointView{
			Type:      p.Type.String(),
			Index:     p.Index,
			Name:      p.Name,
			Value:     p.Value,
			Quality:   p.Quality.String(),
			Timestamp: millis(p.Timestamp),
		}
	}
	return out
}

func newLogView(e telemetry.LogEntry) logView {
	return logView{
		ID:        e.ID,
		Timestamp: millis(e.Timestamp),
		Direction: string(e.Direction),
		Message:   e.Message,
	}
}

func logViews(entries []telemetry.LogEntry) []logView {
	out := make([]logView, len(entries))
	for i, e := range entries {
		out[i] = newLogView(e)
	}
	return out
}

func newFrameView(f telemetry.RawFrame) frameView {
	data := make([]int, len(f.Data))
	for i, b := range f.Data {
		data[i] = int(b)
	}
	return frameView{
		ID:        f.ID,
		Timestamp: millis(f.Timestamp),
		Direction: string(f.Direction),
		Data:      data,
		Raw:       f.Data,
		Hex:       hex.EncodeToString(f.Data),
	}
}

func frameViews(frames []telemetry.RawFrame) []frameView {
	out := make([]frameView, len(frames))
	for i, f := range frames {
		out[i] = newFrameView(f)
	}
	return out
}
