package gortp

import (
	"net"
	"time"

	"github.com/pion/rtcp"

	"github.com/bluenviron/gortp/pkg/liberrors"
	"github.com/bluenviron/gortp/pkg/ntp"
	"github.com/bluenviron/gortp/pkg/participant"
	"github.com/bluenviron/gortp/pkg/rtcpcodec"
	"github.com/bluenviron/gortp/pkg/rtcpsched"
)

const (
	// the report count field of SR and RR is 5 bits wide.
	maxReceptionReports = 31

	maxAppSubtype = 31
	appNameLength = 4
)

func rtcpAddressOf(p *participant.Participant) *net.UDPAddr {
	if addr := p.RTCPAddress(); addr != nil {
		return addr
	}
	return p.RTCPReceivedFrom()
}

func (s *Session) rtcpDestinations() []*net.UDPAddr {
	if s.Multicast {
		return []*net.UDPAddr{s.rtcpListener.groupAddr}
	}

	declared := s.registry.Declared()
	ret := make([]*net.UDPAddr, 0, len(declared))
	for _, p := range declared {
		if addr := rtcpAddressOf(p); addr != nil {
			ret = append(ret, addr)
		}
	}
	return ret
}

func (s *Session) sdesPacket(ssrc uint32) *rtcp.SourceDescription {
	return &rtcp.SourceDescription{
		Chunks: []rtcp.SourceDescriptionChunk{{
			Source: ssrc,
			Items:  s.localSDES().Items(),
		}},
	}
}

// receptionReports generates reception reports about all participants that sent data.
func (s *Session) receptionReports(now time.Time) []rtcp.ReceptionReport {
	var ret []rtcp.ReceptionReport

	for _, p := range s.registry.Learned() {
		if bye, _ := p.Bye(); bye {
			continue
		}

		if rr, ok := p.ReceptionReport(now); ok {
			ret = append(ret, rr)
			if len(ret) == maxReceptionReports {
				break
			}
		}
	}

	return ret
}

// buildCompound builds a compound packet that starts with a report
// and a source description, followed by extra packets.
func (s *Session) buildCompound(weSent bool, extra []rtcp.Packet) rtcpcodec.Compound {
	now := s.TimeNow()
	ssrc := s.ssrc.Load()
	reports := s.receptionReports(now)

	var report rtcp.Packet
	if weSent {
		report = &rtcp.SenderReport{
			SSRC:        ssrc,
			NTPTime:     ntp.Encode(now),
			RTPTime:     s.rtpTimestamp(now),
			PacketCount: uint32(s.sentPackets.Load()),
			OctetCount:  uint32(s.sentOctets.Load()),
			Reports:     reports,
		}
	} else {
		report = &rtcp.ReceiverReport{
			SSRC:    ssrc,
			Reports: reports,
		}
	}

	c := rtcpcodec.Compound{report, s.sdesPacket(ssrc)}

	for _, pkt := range extra {
		if c.MarshalSize()+pkt.MarshalSize() > udpMaxPayloadSize {
			s.rtcpLog.Warnf("discarding RTCP packet of type %T, compound packet is full", pkt)
			continue
		}
		c = append(c, pkt)
	}

	return c
}

func (s *Session) writeCompound(c rtcpcodec.Compound, dests []*net.UDPAddr) {
	buf, err := c.Marshal()
	if err != nil {
		s.rtcpLog.Errorf("unable to encode RTCP packet: %v", err)
		return
	}

	for _, dest := range dests {
		err = s.rtcpListener.write(buf, dest)
		if err != nil {
			s.rtcpLog.Errorf("unable to send RTCP packet to %v: %v", dest, err)
			continue
		}

		s.tracePacket(PacketDirectionOut, true, buf, dest)
		s.Metrics.packet(protocolRTCP, directionOut, len(buf))
	}

	s.scheduler.UpdateAvgPacketSize(len(buf))
}

// closeRTCPInterval returns the number of participants that sent data
// since the last report, including the local one, and whether the local
// participant is a sender. It must be called before reports are generated,
// since generating them resets the counters of participants.
func (s *Session) closeRTCPInterval() (int, bool) {
	senders := 0
	for _, p := range s.registry.Learned() {
		if p.Stats().ReceivedSinceReport != 0 {
			senders++
		}
	}

	weSent := s.weSent.Swap(false)
	if weSent {
		senders++
	}

	return senders, weSent
}

// nextRTCPInterval starts a new RTCP interval and returns its duration.
func (s *Session) nextRTCPInterval(senders int, weSent bool) time.Duration {
	return s.scheduler.NextInterval(s.registry.Len()+1, senders, weSent)
}

// sendRegular sends the compound packet of a RTCP interval and returns the
// duration of the next interval.
// In multicast mode, it is sent to the group, together with all queued packets.
// In unicast mode, declared participants receive it in turn.
// When all is true, every declared participant receives it.
func (s *Session) sendRegular(peerIndex *int, all bool) time.Duration {
	senders, weSent := s.closeRTCPInterval()

	if s.Multicast {
		s.writeCompound(s.buildCompound(weSent, s.scheduler.DequeueAll()), s.rtcpDestinations())
		return s.nextRTCPInterval(senders, weSent)
	}

	peers := s.registry.Declared()

	if len(peers) != 0 && !all {
		*peerIndex %= len(peers)
		peers = peers[*peerIndex : *peerIndex+1]
		*peerIndex++
	}

	for _, p := range peers {
		addr := rtcpAddressOf(p)
		if addr == nil {
			continue
		}

		var extra []rtcp.Packet
		if ssrc, ok := p.SSRC(); ok {
			extra = append(s.scheduler.DequeueFeedback(ssrc), s.scheduler.DequeueApps(ssrc)...)
		}

		s.writeCompound(s.buildCompound(weSent, extra), []*net.UDPAddr{addr})
	}

	return s.nextRTCPInterval(senders, weSent)
}

// sendEarly sends queued feedback directed to a participant before the end of the interval.
// The early packet carries a full report, therefore it replaces the regular packet
// of the current interval, and a new interval is returned.
// Specification: RFC4585, section 3.5
func (s *Session) sendEarly(target uint32) (time.Duration, bool) {
	var dests []*net.UDPAddr

	if s.Multicast {
		dests = s.rtcpDestinations()
	} else {
		p, ok := s.registry.BySSRC(target)
		if !ok {
			s.rtcpLog.Debugf("discarding feedback directed to unknown SSRC %d", target)
			s.scheduler.DequeueFeedback(target)
			return 0, false
		}

		addr := rtcpAddressOf(p)
		if addr == nil {
			s.rtcpLog.Debugf("discarding feedback directed to SSRC %d, address is unknown", target)
			s.scheduler.DequeueFeedback(target)
			return 0, false
		}
		dests = []*net.UDPAddr{addr}
	}

	extra := s.scheduler.DequeueFeedback(target)
	if len(extra) == 0 {
		return 0, false
	}

	senders, weSent := s.closeRTCPInterval()
	s.writeCompound(s.buildCompound(weSent, extra), dests)

	return s.nextRTCPInterval(senders, weSent), true
}

// sendBye sends a BYE packet with the given SSRC to all participants.
func (s *Session) sendBye(ssrc uint32, reason string) {
	c := rtcpcodec.Compound{
		&rtcp.ReceiverReport{SSRC: ssrc},
		s.sdesPacket(ssrc),
		&rtcp.Goodbye{
			Sources: []uint32{ssrc},
			Reason:  reason,
		},
	}

	s.writeCompound(c, s.rtcpDestinations())
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

func (s *Session) runRTCPSender() {
	defer close(s.rtcpSenderDone)

	peerIndex := 0

	t := time.NewTimer(s.nextRTCPInterval(0, false))
	defer t.Stop()

	for {
		select {
		case target := <-s.rtcpWake:
			if next, ok := s.sendEarly(target); ok {
				resetTimer(t, next)
			}

		case <-s.rtcpReset:
			resetTimer(t, s.sendRegular(&peerIndex, true))

		case <-t.C:
			t.Reset(s.sendRegular(&peerIndex, false))

		case <-s.terminate:
			return
		}
	}
}

func (s *Session) checkSendable() error {
	if s.ended.Load() {
		return liberrors.ErrSessionTerminated{}
	}

	s.registerMutex.Lock()
	registered := s.handler != nil
	s.registerMutex.Unlock()

	if !registered {
		return liberrors.ErrSessionNotRegistered{}
	}

	if s.conflict.Load() {
		return liberrors.ErrSessionConflictInProgress{}
	}

	return nil
}

// SendApplicationPacket queues an application-defined packet directed to a participant.
// It is sent with the next regular RTCP packet.
// name must be 4 bytes long, data must be a multiple of 4 bytes.
func (s *Session) SendApplicationPacket(target uint32, subtype uint8, name string, data []byte) error {
	err := s.checkSendable()
	if err != nil {
		return err
	}

	if subtype > maxAppSubtype {
		return liberrors.ErrSessionAppInvalidSubtype{Subtype: subtype}
	}

	if len(name) != appNameLength {
		return liberrors.ErrSessionAppInvalidName{Name: name}
	}

	if len(data)%4 != 0 {
		return liberrors.ErrSessionAppInvalidData{Len: len(data)}
	}

	s.scheduler.EnqueueApp(target, &rtcp.ApplicationDefined{
		SubType: subtype,
		SSRC:    s.ssrc.Load(),
		Name:    name,
		Data:    data,
	})

	return nil
}

// sendFeedback queues a feedback packet and, when the group is small enough,
// wakes the sender in order to transmit it early.
func (s *Session) sendFeedback(target uint32, pkt rtcp.Packet) error {
	err := s.checkSendable()
	if err != nil {
		return err
	}

	if !s.scheduler.EnqueueFeedback(target, pkt) {
		s.rtcpLog.Debugf("suppressing feedback of type %T directed to SSRC %d, already sent", pkt, target)
		return nil
	}

	mode := s.scheduler.RequestFeedback(s.registry.Len() + 1)
	s.rtcpLog.Tracef("feedback of type %T directed to SSRC %d: %v", pkt, target, mode)

	if mode != rtcpsched.FeedbackRegular {
		select {
		case s.rtcpWake <- target:
		default:
		}
	}

	return nil
}

// SendPictureLossIndication requests a participant to send a new picture.
func (s *Session) SendPictureLossIndication(target uint32) error {
	return s.sendFeedback(target, &rtcp.PictureLossIndication{
		SenderSSRC: s.ssrc.Load(),
		MediaSSRC:  target,
	})
}

// SendSliceLossIndication notifies a participant about lost slices.
func (s *Session) SendSliceLossIndication(target uint32, entries []rtcp.SLIEntry) error {
	return s.sendFeedback(target, &rtcpcodec.SliceLossIndication{
		SenderSSRC: s.ssrc.Load(),
		MediaSSRC:  target,
		Entries:    entries,
	})
}

// SendReferencePictureSelection notifies a participant about the picture to use as reference.
func (s *Session) SendReferencePictureSelection(target uint32, payloadType uint8, bitString []byte) error {
	return s.sendFeedback(target, &rtcpcodec.ReferencePictureSelection{
		SenderSSRC:  s.ssrc.Load(),
		MediaSSRC:   target,
		PayloadType: payloadType,
		BitString:   bitString,
	})
}

// SendApplicationLayerFeedback sends application layer feedback to a participant.
func (s *Session) SendApplicationLayerFeedback(target uint32, data []byte) error {
	return s.sendFeedback(target, &rtcpcodec.ApplicationLayerFeedback{
		SenderSSRC: s.ssrc.Load(),
		MediaSSRC:  target,
		Data:       data,
	})
}

// SendNACK notifies a participant about lost packets.
func (s *Session) SendNACK(target uint32, lost []uint16) error {
	if len(lost) == 0 {
		return nil
	}

	return s.sendFeedback(target, &rtcp.TransportLayerNack{
		SenderSSRC: s.ssrc.Load(),
		MediaSSRC:  target,
		Nacks:      rtcp.NackPairsFromSequenceNumbers(lost),
	})
}
