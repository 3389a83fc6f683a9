// Package framedecode annotates captured link frames for the frame viewer and
// the decode command. The link header is checked by the in-tree codec; the
// transport and application headers are read with go-dnp3.
package framedecode

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/nblair2/go-dnp3/dnp3"

	"avaneesh/dnp3-tester/pkg/app"
	"avaneesh/dnp3-tester/pkg/link"
	"avaneesh/dnp3-tester/pkg/transport"
)

var ErrEmptyFrame = errors.New("empty frame")

// Summary describes one link frame
type Summary struct {
	Length       int    `json:"length"`
	Direction    string `json:"direction"`
	Primary      bool   `json:"primary"`
	LinkFunction uint8  `json:"link_function"`
	Source       uint16 `json:"source"`
	Destination  uint16 `json:"destination"`

	Transport   *Transport   `json:"transport,omitempty"`
	Application *Application `json:"application,omitempty"`
	// Objects has one line per object header and value, only for
	// single-segment fragments.
	Objects []string `json:"objects,omitempty"`

	// Error is set when the header decoded but the payload did not
	Error string `json:"error,omitempty"`
}

type Transport struct {
	First    bool  `json:"fir"`
	Final    bool  `json:"fin"`
	Sequence uint8 `json:"seq"`
}

type Application struct {
	Kind        string `json:"kind"`
	Function    string `json:"function"`
	First       bool   `json:"fir"`
	Final       bool   `json:"fin"`
	Confirm     bool   `json:"con"`
	Unsolicited bool   `json:"uns"`
	Sequence    uint8  `json:"seq"`
	Objects     int    `json:"objects"`
}

// Decode summarizes a complete frame. It fails only when the link header is
// unusable; payload problems are reported in Summary.Error.
func Decode(data []byte) (*Summary, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}
	lf, n, err := link.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("link header: %w", err)
	}

	s := &Summary{
		Length:       n,
		Direction:    lf.Dir.String(),
		Primary:      bool(lf.IsPrimary),
		LinkFunction: uint8(lf.FunctionCode),
		Source:       lf.Source,
		Destination:  lf.Destination,
	}
	if len(lf.UserData) == 0 {
		return s, nil
	}

	var frame dnp3.Frame
	if err := frame.FromBytes(data[:n]); err != nil {
		s.Error = err.Error()
		return s, nil
	}
	s.Transport = &Transport{
		First:    frame.Transport.First,
		Final:    frame.Transport.Final,
		Sequence: frame.Transport.Sequence,
	}
	if frame.Application != nil {
		s.Application = application(&frame, lf.Dir)
	}

	if s.Transport.First && s.Transport.Final {
		s.Objects = describe(lf.UserData)
	}
	return s, nil
}

// DecodeHex decodes a frame given as hex text, with or without separators
func DecodeHex(text string) (*Summary, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', ':', ',', '-':
			return -1
		}
		return r
	}, text)
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return Decode(data)
}

func application(frame *dnp3.Frame, dir link.Direction) *Application {
	a := frame.Application
	ctl := a.GetControl()
	out := &Application{
		First:       ctl.First,
		Final:       ctl.Final,
		Confirm:     ctl.Confirm,
		Unsolicited: ctl.Unsolicited,
		Sequence:    ctl.Sequence,
		Objects:     len(a.GetData().Objects),
	}
	switch v := a.(type) {
	case *dnp3.ApplicationRequest:
		out.Kind = "request"
		out.Function = fmt.Sprint(v.FunctionCode)
	case *dnp3.ApplicationResponse:
		out.Kind = "response"
		out.Function = fmt.Sprint(v.FunctionCode)
	default:
		if dir == link.DirectionMasterToOutstation {
			out.Kind = "request"
		} else {
			out.Kind = "response"
		}
	}
	return out
}

// describe renders the objects of a single-segment APDU with the engine codec
func describe(userData []byte) []string {
	seg, err := transport.ParseSegment(userData)
	if err != nil {
		return nil
	}
	apdu, err := app.Parse(seg.Data)
	if err != nil {
		return nil
	}
	lines := app.Describe(apdu.Objects, true)
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return lines
}

// String renders the summary on one line
func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d->%d fc=%d len=%d", s.Direction, s.Source, s.Destination, s.LinkFunction, s.Length)
	if !s.Primary {
		b.WriteString(" secondary")
	}
	if t := s.Transport; t != nil {
		fmt.Fprintf(&b, " | TP seq=%d%s%s", t.Sequence, flag(t.First, " FIR"), flag(t.Final, " FIN"))
	}
	if a := s.Application; a != nil {
		fmt.Fprintf(&b, " | APP %s %s seq=%d objects=%d", a.Kind, a.Function, a.Sequence, a.Objects)
	}
	if s.Error != "" {
		fmt.Fprintf(&b, " | error: %s", s.Error)
	}
	return b.String()
}

func flag(on bool, name string) string {
	if on {
		return name
	}
	return ""
}
