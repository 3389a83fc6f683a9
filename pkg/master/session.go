package master

import (
	"avaneesh/dnp3-tester/pkg/channel"
	"avaneesh/dnp3-tester/pkg/link"
	"avaneesh/dnp3-tester/pkg/transport"
)

// session connects the master to a channel
type session struct {
	linkAddress uint16
	remoteAddr  uint16
	channel     *channel.Channel
	master      *Master
	transport   *transport.Layer
}

func newSession(linkAddr, remoteAddr uint16, ch *channel.Channel, m *Master) *session {
	return &session{
		linkAddress: linkAddr,
		remoteAddr:  remoteAddr,
		channel:     ch,
		master:      m,
		transport:   transport.NewLayer(),
	}
}

// OnReceive implements channel.Session
func (s *session) OnReceive(frame *link.Frame) error {
	if frame.Source != s.remoteAddr {
		s.master.logger.Warn("master %s: ignoring frame from unexpected source %d", s.master.config.ID, frame.Source)
		return nil
	}
	if frame.FunctionCode != link.FuncUserDataUnconfirmed && frame.FunctionCode != link.FuncUserDataConfirmed {
		return nil
	}

	apdu, err := s.transport.Receive(frame.UserData)
	if err != nil {
		s.master.logger.Debug("master %s: transport error: %v", s.master.config.ID, err)
		return nil
	}
	if apdu == nil {
		return nil
	}
	return s.master.onReceiveAPDU(apdu)
}

// LinkAddress implements channel.Session
func (s *session) LinkAddress() uint16 {
	return s.linkAddress
}

// Type implements channel.Session
func (s *session) Type() channel.SessionType {
	return channel.SessionTypeMaster
}

func (s *session) sendAPDU(apdu []byte) error {
	for _, segment := range s.transport.Send(apdu) {
		frame := link.NewFrame(
			link.DirectionMasterToOutstation,
			link.PrimaryFrame,
			link.FuncUserDataUnconfirmed,
			s.remoteAddr,
			s.linkAddress,
			segment,
		)
		if err := s.channel.SendFrame(frame); err != nil {
			return err
		}
	}
	return nil
}
