package gortp

import (
	"net"
	"time"

	"github.com/pion/rtp"

	"github.com/bluenviron/gortp/pkg/liberrors"
	"github.com/bluenviron/gortp/pkg/rtpcodec"
)

// SendOptions are the options of SendWithOptions.
type SendOptions struct {
	// RTP timestamp of the frame.
	// It defaults to the current time, expressed in clock rate units.
	Timestamp *uint32

	// Sequence numbers, one per payload.
	// They default to the ones generated by the session.
	SequenceNumbers []uint16

	// Marker bits, one per payload.
	// They default to true for the last payload only.
	Markers []bool

	// Contributing sources.
	CSRC []uint32
}

// SentPacket contains the identifiers assigned to a sent packet.
type SentPacket struct {
	Timestamp      uint32
	SequenceNumber uint16
}

// rtpTimestamp converts an absolute time into a RTP timestamp.
func (s *Session) rtpTimestamp(t time.Time) uint32 {
	d := t.Sub(s.startTime)
	if d < 0 {
		d = 0
	}

	clockRate := uint64(s.ClockRate)
	secs := uint64(d / time.Second)
	rem := uint64(d % time.Second)

	return s.tsOffset + uint32(secs*clockRate+rem*clockRate/uint64(time.Second))
}

func (s *Session) rtpDestinations() []*net.UDPAddr {
	if s.Multicast {
		return []*net.UDPAddr{s.rtpListener.groupAddr}
	}

	declared := s.registry.Declared()
	ret := make([]*net.UDPAddr, 0, len(declared))
	for _, p := range declared {
		ret = append(ret, p.RTPAddress())
	}
	return ret
}

// Send sends a frame, split into the given payloads.
// The marker bit is set on the last packet.
func (s *Session) Send(payloads [][]byte) ([]SentPacket, error) {
	return s.SendWithOptions(payloads, SendOptions{})
}

// SendWithOptions sends a frame, split into the given payloads, with options.
func (s *Session) SendWithOptions(payloads [][]byte, opts SendOptions) ([]SentPacket, error) {
	if s.ended.Load() {
		return nil, liberrors.ErrSessionTerminated{}
	}

	s.registerMutex.Lock()
	registered := s.handler != nil
	s.registerMutex.Unlock()

	if !registered {
		return nil, liberrors.ErrSessionNotRegistered{}
	}

	if s.conflict.Load() {
		return nil, liberrors.ErrSessionConflictInProgress{}
	}

	if len(payloads) == 0 {
		return nil, liberrors.ErrSessionNoPayloads{}
	}

	if opts.SequenceNumbers != nil && len(opts.SequenceNumbers) != len(payloads) {
		return nil, liberrors.ErrSessionInvalidOptions{Reason: "sequence numbers do not match payloads"}
	}

	if opts.Markers != nil && len(opts.Markers) != len(payloads) {
		return nil, liberrors.ErrSessionInvalidOptions{Reason: "markers do not match payloads"}
	}

	var ts uint32
	if opts.Timestamp != nil {
		ts = *opts.Timestamp
	} else {
		ts = s.rtpTimestamp(s.TimeNow())
	}

	ssrc := s.ssrc.Load()
	dests := s.rtpDestinations()
	ret := make([]SentPacket, len(payloads))

	for i, payload := range payloads {
		pkt := &rtp.Packet{
			Header: rtp.Header{
				Version:     rtpcodec.Version,
				Marker:      i == len(payloads)-1,
				PayloadType: s.PayloadType,
				Timestamp:   ts,
				SSRC:        ssrc,
				CSRC:        opts.CSRC,
			},
			Payload: payload,
		}

		if opts.SequenceNumbers != nil {
			pkt.SequenceNumber = opts.SequenceNumbers[i]
		} else {
			pkt.SequenceNumber = s.sequencer.NextSequenceNumber()
		}

		if opts.Markers != nil {
			pkt.Marker = opts.Markers[i]
		}

		buf, err := rtpcodec.Encode(pkt)
		if err != nil {
			s.log.Errorf("unable to encode RTP packet: %v", err)
			return nil, err
		}

		for _, dest := range dests {
			err = s.rtpListener.write(buf, dest)
			if err != nil {
				s.log.Errorf("unable to send RTP packet to %v: %v", dest, err)
				return nil, err
			}

			s.tracePacket(PacketDirectionOut, false, buf, dest)
			s.Metrics.packet(protocolRTP, directionOut, len(buf))
		}

		s.sentPackets.Inc()
		s.sentOctets.Add(uint64(len(payload)))
		s.weSent.Store(true)

		ret[i] = SentPacket{
			Timestamp:      ts,
			SequenceNumber: pkt.SequenceNumber,
		}
	}

	return ret, nil
}
