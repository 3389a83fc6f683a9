package outstation

import (
	"avaneesh/dnp3-tester/pkg/channel"
	"avaneesh/dnp3-tester/pkg/link"
	"avaneesh/dnp3-tester/pkg/transport"
)

// session connects the outstation to a channel
type session struct {
	linkAddress uint16
	remoteAddr  uint16
	channel     *channel.Channel
	outstation  *Outstation
	transport   *transport.Layer
}

// OnReceive implements channel.Session
func (s *session) OnReceive(frame *link.Frame) error {
	o := s.outstation
	if frame.Source != s.remoteAddr {
		o.logger.Warn("outstation %s: ignoring frame from unexpected source %d", o.config.ID, frame.Source)
		return nil
	}
	if frame.IsPrimary != link.PrimaryFrame {
		return nil
	}

	switch frame.FunctionCode {
	case link.FuncResetLink, link.FuncTestLinkStates:
		s.transport.Reset()
		return s.sendSecondary(link.FuncAck)
	case link.FuncRequestLinkStatus:
		return s.sendSecondary(link.FuncLinkStatusResponse)
	case link.FuncUserDataConfirmed:
		if err := s.sendSecondary(link.FuncAck); err != nil {
			return err
		}
	case link.FuncUserDataUnconfirmed:
	default:
		o.logger.Debug("outstation %s: unsupported link function %d", o.config.ID, frame.FunctionCode)
		return nil
	}

	apdu, err := s.transport.Receive(frame.UserData)
	if err != nil {
		o.logger.Debug("outstation %s: transport error: %v", o.config.ID, err)
		return nil
	}
	if apdu == nil {
		return nil
	}
	return o.onReceiveAPDU(apdu)
}

// LinkAddress implements channel.Session
func (s *session) LinkAddress() uint16 {
	return s.linkAddress
}

// Type implements channel.Session
func (s *session) Type() channel.SessionType {
	return channel.SessionTypeOutstation
}

func (s *session) sendSecondary(fc link.FunctionCode) error {
	frame := link.NewFrame(link.DirectionOutstationToMaster, link.SecondaryFrame, fc, s.remoteAddr, s.linkAddress, nil)
	return s.channel.SendFrame(frame)
}

func (s *session) sendAPDU(apdu []byte) error {
	for _, segment := range s.transport.Send(apdu) {
		frame := link.NewFrame(
			link.DirectionOutstationToMaster,
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
