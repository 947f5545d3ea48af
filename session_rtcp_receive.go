package gortp

import (
	"net"

	"github.com/pion/rtcp"

	"github.com/bluenviron/gortp/pkg/participant"
	"github.com/bluenviron/gortp/pkg/registry"
	"github.com/bluenviron/gortp/pkg/rtcpcodec"
)

// learnRTCP returns the sender of a RTCP packet, adding it to the registry if needed.
func (s *Session) learnRTCP(ssrc uint32, from *net.UDPAddr) *participant.Participant {
	s.bufMutex.Lock()
	p, ev, err := s.findOrLearn(ssrc, from, registry.OriginRTCP)
	s.bufMutex.Unlock()

	if err != nil {
		s.rtcpLog.Warnf("unable to add participant with SSRC %d: %v", ssrc, err)
		s.Metrics.drop(protocolRTCP, dropReasonRegistry)
		return nil
	}

	p.SetRTCPReceivedFrom(from)

	if ev != nil {
		s.postEvent(*ev, p)
	}

	return p
}

func (s *Session) handleRTCP(buf []byte, from *net.UDPAddr) bool {
	s.tracePacket(PacketDirectionIn, true, buf, from)
	s.Metrics.packet(protocolRTCP, directionIn, len(buf))

	var pkts rtcpcodec.Compound
	err := pkts.Unmarshal(buf)
	if err != nil {
		s.rtcpLog.Warnf("malformed RTCP packet from %v: %v", from, err)
		s.Metrics.drop(protocolRTCP, dropReasonMalformed)
		return false
	}

	s.scheduler.UpdateAvgPacketSize(len(buf))

	for _, pkt := range pkts {
		if !s.handleRTCPPacket(pkt, from) {
			break
		}
	}

	// packets can reference buf.
	return true
}

// handleRTCPPacket processes a packet of a compound packet.
// It returns false when the rest of the compound packet must be discarded.
func (s *Session) handleRTCPPacket(pkt rtcp.Packet, from *net.UDPAddr) bool {
	switch pkt := pkt.(type) {
	case *rtcp.SenderReport:
		return s.onSenderReport(pkt, from)

	case *rtcp.ReceiverReport:
		return s.onReceiverReport(pkt, from)

	case *rtcp.SourceDescription:
		return s.onSourceDescription(pkt, from)

	case *rtcp.Goodbye:
		s.onGoodbye(pkt)

	case *rtcp.ApplicationDefined:
		return s.onApplicationDefined(pkt, from)

	case *rtcp.TransportLayerNack,
		*rtcp.PictureLossIndication,
		*rtcpcodec.SliceLossIndication,
		*rtcp.FullIntraRequest,
		*rtcpcodec.ReferencePictureSelection,
		*rtcpcodec.ApplicationLayerFeedback:
		return s.onFeedback(pkt, from)

	default:
		s.rtcpLog.Tracef("ignoring RTCP packet of type %T from %v", pkt, from)
	}

	return true
}

// checkRTCPConflict resolves a conflict when the sender of a RTCP packet uses the local SSRC.
// It returns false when a conflict is detected.
func (s *Session) checkRTCPConflict(ssrc uint32, from *net.UDPAddr) bool {
	if ssrc != s.ssrc.Load() {
		return true
	}

	s.Metrics.drop(protocolRTCP, dropReasonConflict)
	s.resolveConflict(from)
	return false
}

func (s *Session) onSenderReport(sr *rtcp.SenderReport, from *net.UDPAddr) bool {
	if !s.checkRTCPConflict(sr.SSRC, from) {
		return false
	}

	p := s.learnRTCP(sr.SSRC, from)
	if p == nil {
		return true
	}

	p.ProcessSenderReport(sr, s.TimeNow())

	if h, ok := s.handler.(HandlerOnSenderReport); ok {
		h.OnSenderReport(&HandlerOnSenderReportCtx{
			Participant: p,
			Packet:      sr,
		})
	}

	return true
}

func (s *Session) onReceiverReport(rr *rtcp.ReceiverReport, from *net.UDPAddr) bool {
	if !s.checkRTCPConflict(rr.SSRC, from) {
		return false
	}

	p := s.learnRTCP(rr.SSRC, from)
	if p == nil {
		return true
	}

	if h, ok := s.handler.(HandlerOnReceiverReport); ok {
		h.OnReceiverReport(&HandlerOnReceiverReportCtx{
			Participant: p,
			Packet:      rr,
		})
	}

	return true
}

func (s *Session) onSourceDescription(sdes *rtcp.SourceDescription, from *net.UDPAddr) bool {
	var described []*participant.Participant
	var updated []*participant.Participant

	for _, chunk := range sdes.Chunks {
		if !s.checkRTCPConflict(chunk.Source, from) {
			return false
		}

		p := s.learnRTCP(chunk.Source, from)
		if p == nil {
			continue
		}

		described = append(described, p)

		if p.SetSDES(chunk.Items) {
			updated = append(updated, p)
		}
	}

	s.postEvent(UserEventSDESUpdate, updated...)

	if h, ok := s.handler.(HandlerOnSourceDescription); ok && len(described) != 0 {
		h.OnSourceDescription(&HandlerOnSourceDescriptionCtx{
			Participants: described,
			Packet:       sdes,
		})
	}

	return true
}

func (s *Session) onGoodbye(bye *rtcp.Goodbye) {
	var departed []*participant.Participant

	for _, ssrc := range bye.Sources {
		p, ok := s.registry.BySSRC(ssrc)
		if !ok {
			continue
		}

		p.MarkBye(bye.Reason)
		departed = append(departed, p)
	}

	s.postEvent(UserEventBye, departed...)

	if h, ok := s.handler.(HandlerOnBye); ok && len(departed) != 0 {
		h.OnBye(&HandlerOnByeCtx{
			Participants: departed,
			Packet:       bye,
		})
	}
}

func (s *Session) onApplicationDefined(app *rtcp.ApplicationDefined, from *net.UDPAddr) bool {
	if !s.checkRTCPConflict(app.SSRC, from) {
		return false
	}

	p := s.learnRTCP(app.SSRC, from)
	if p == nil {
		return true
	}

	if h, ok := s.handler.(HandlerOnApplicationDefined); ok {
		h.OnApplicationDefined(&HandlerOnApplicationDefinedCtx{
			Participant: p,
			Packet:      app,
		})
	}

	return true
}

func feedbackSSRCs(pkt rtcp.Packet) (uint32, []uint32) {
	switch pkt := pkt.(type) {
	case *rtcp.TransportLayerNack:
		return pkt.SenderSSRC, []uint32{pkt.MediaSSRC}

	case *rtcp.PictureLossIndication:
		return pkt.SenderSSRC, []uint32{pkt.MediaSSRC}

	case *rtcpcodec.SliceLossIndication:
		return pkt.SenderSSRC, []uint32{pkt.MediaSSRC}

	case *rtcp.FullIntraRequest:
		targets := make([]uint32, len(pkt.FIR))
		for i, e := range pkt.FIR {
			targets[i] = e.SSRC
		}
		return pkt.SenderSSRC, targets

	case *rtcpcodec.ReferencePictureSelection:
		return pkt.SenderSSRC, []uint32{pkt.MediaSSRC}

	case *rtcpcodec.ApplicationLayerFeedback:
		return pkt.SenderSSRC, []uint32{pkt.MediaSSRC}
	}

	return 0, nil
}

func (s *Session) onFeedback(pkt rtcp.Packet, from *net.UDPAddr) bool {
	sender, targets := feedbackSSRCs(pkt)

	if !s.checkRTCPConflict(sender, from) {
		return false
	}

	// identical feedback queued by the local participant becomes redundant.
	s.scheduler.ObserveFeedback(pkt)

	p := s.learnRTCP(sender, from)
	if p == nil {
		return true
	}

	local := s.ssrc.Load()
	toUs := false
	for _, t := range targets {
		if t == local {
			toUs = true
			break
		}
	}

	if !toUs {
		s.rtcpLog.Tracef("ignoring feedback of type %T directed to another source", pkt)
		return true
	}

	s.dispatchFeedback(pkt, p)

	return true
}

func (s *Session) dispatchFeedback(pkt rtcp.Packet, p *participant.Participant) {
	switch pkt := pkt.(type) {
	case *rtcp.TransportLayerNack:
		if h, ok := s.handler.(HandlerOnNACK); ok {
			h.OnNACK(&HandlerOnNACKCtx{Participant: p, Packet: pkt})
		}

	case *rtcp.PictureLossIndication:
		if h, ok := s.handler.(HandlerOnPictureLossIndication); ok {
			h.OnPictureLossIndication(&HandlerOnPictureLossIndicationCtx{Participant: p, Packet: pkt})
		}

	case *rtcpcodec.SliceLossIndication:
		if h, ok := s.handler.(HandlerOnSliceLossIndication); ok {
			h.OnSliceLossIndication(&HandlerOnSliceLossIndicationCtx{Participant: p, Packet: pkt})
		}

	case *rtcp.FullIntraRequest:
		if h, ok := s.handler.(HandlerOnFullIntraRequest); ok {
			h.OnFullIntraRequest(&HandlerOnFullIntraRequestCtx{Participant: p, Packet: pkt})
		}

	case *rtcpcodec.ReferencePictureSelection:
		if h, ok := s.handler.(HandlerOnReferencePictureSelection); ok {
			h.OnReferencePictureSelection(&HandlerOnReferencePictureSelectionCtx{Participant: p, Packet: pkt})
		}

	case *rtcpcodec.ApplicationLayerFeedback:
		if h, ok := s.handler.(HandlerOnApplicationLayerFeedback); ok {
			h.OnApplicationLayerFeedback(&HandlerOnApplicationLayerFeedbackCtx{Participant: p, Packet: pkt})
		}
	}
}
