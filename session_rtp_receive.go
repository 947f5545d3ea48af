package gortp

import (
	"net"

	"github.com/pion/rtp"

	"github.com/bluenviron/gortp/pkg/participant"
	"github.com/bluenviron/gortp/pkg/registry"
	"github.com/bluenviron/gortp/pkg/rtpcodec"
)

func (s *Session) collidesRTP(pkt *rtp.Packet) bool {
	ssrc := s.ssrc.Load()

	if pkt.SSRC == ssrc {
		return true
	}

	for _, csrc := range pkt.CSRC {
		if csrc == ssrc {
			return true
		}
	}

	return false
}

func (s *Session) handleRTP(buf []byte, from *net.UDPAddr) bool {
	s.tracePacket(PacketDirectionIn, false, buf, from)
	s.Metrics.packet(protocolRTP, directionIn, len(buf))

	pkt, err := rtpcodec.Decode(buf)
	if err != nil {
		s.log.Warnf("malformed RTP packet from %v: %v", from, err)
		s.Metrics.drop(protocolRTP, dropReasonMalformed)
		return false
	}

	if s.collidesRTP(pkt) {
		s.Metrics.drop(protocolRTP, dropReasonConflict)
		s.resolveConflict(from)
		return false
	}

	now := s.TimeNow()

	s.bufMutex.Lock()

	p, ev, err := s.findOrLearn(pkt.SSRC, from, registry.OriginRTP)
	if err != nil {
		s.bufMutex.Unlock()
		s.log.Warnf("unable to add participant with SSRC %d: %v", pkt.SSRC, err)
		s.Metrics.drop(protocolRTP, dropReasonRegistry)
		return false
	}

	p.SetRTPReceivedFrom(from)
	p.ProcessPacketRTP(pkt, now, s.ClockRate)

	b := p.Buffer()
	if b == nil {
		b = s.newBuffer(pkt.SSRC)
		p.SetBuffer(b)
	}

	err = b.Push(pkt)
	if err != nil {
		s.bufMutex.Unlock()

		if ev != nil {
			s.postEvent(*ev, p)
		}

		s.log.Tracef("dropping RTP packet %d from SSRC %d: %v", pkt.SequenceNumber, pkt.SSRC, err)

		s.Metrics.drop(protocolRTP, dropReasonBuffer)
		return false
	}

	if b.Ready() {
		s.bufCond.Signal()
	}

	s.bufMutex.Unlock()

	if ev != nil {
		s.postEvent(*ev, p)
	}

	return true
}

// findOrLearn returns the participant with the given SSRC.
// When it does not exist, a participant is learned from traffic, and the
// membership event to be posted is returned.
// The caller must hold bufMutex.
func (s *Session) findOrLearn(
	ssrc uint32,
	from *net.UDPAddr,
	origin registry.Origin,
) (*participant.Participant, *UserEventType, error) {
	if p, ok := s.registry.BySSRC(ssrc); ok {
		return p, nil, nil
	}

	res, err := s.registry.Add(origin, participant.NewUnexpected(ssrc, from, origin == registry.OriginRTCP))
	if err != nil {
		return nil, nil, err
	}

	if res.Existing {
		return res.Participant, nil, nil
	}

	s.Metrics.setParticipants(s.registry.Len())

	var ev UserEventType
	switch {
	case res.Matched:
		ev = UserEventAddressMatch
	case origin == registry.OriginRTCP:
		ev = UserEventNewViaRTCP
	default:
		ev = UserEventNewViaRTP
	}

	return res.Participant, &ev, nil
}
