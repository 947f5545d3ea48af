package participant

import (
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"

	"github.com/bluenviron/gortp/pkg/ntp"
)

// Stats are reception statistics of a participant.
type Stats struct {
	SSRC                    uint32
	ReceivedPackets         uint64
	ReceivedOctets          uint64
	ReceivedSinceReport     uint32
	ExtendedHighestSequence uint32
	CumulativeLost          uint32
	Jitter                  float64
	SenderReports           int
	LastSenderReport        time.Time
}

type receptionStats struct {
	// data from RTP packets
	initialized         bool
	timeInitialized     bool
	baseSeq             uint16
	maxSeq              uint16
	cycles              uint16
	received            uint64
	receivedOctets      uint64
	receivedSinceReport uint32
	expectedPrior       uint32
	lastTimeRTP         uint32
	lastTimeSystem      time.Time
	jitter              float64

	// data from RTCP packets
	srCount      int
	lastSRNTP    uint64
	lastSRRTP    uint32
	lastSRSystem time.Time
	prevSRNTP    uint64
	prevSRRTP    uint32
}

func (s *receptionStats) processRTP(pkt *rtp.Packet, now time.Time, clockRate int) {
	s.received++
	s.receivedOctets += uint64(len(pkt.Payload))
	s.receivedSinceReport++

	if !s.initialized {
		s.initialized = true
		s.baseSeq = pkt.SequenceNumber
		s.maxSeq = pkt.SequenceNumber
		s.timeInitialized = true
		s.lastTimeRTP = pkt.Timestamp
		s.lastTimeSystem = now
		return
	}

	diff := int32(pkt.SequenceNumber) - int32(s.maxSeq)

	switch {
	// overflow
	case diff < -0x0FFF:
		s.cycles++
		s.maxSeq = pkt.SequenceNumber

	case diff > 0:
		s.maxSeq = pkt.SequenceNumber
	}

	if s.timeInitialized && clockRate != 0 {
		// update jitter
		// https://tools.ietf.org/html/rfc3550#page-39
		D := now.Sub(s.lastTimeSystem).Seconds()*float64(clockRate) -
			float64(int32(pkt.Timestamp-s.lastTimeRTP))
		if D < 0 {
			D = -D
		}
		s.jitter += (D - s.jitter) / 16
	}

	s.lastTimeRTP = pkt.Timestamp
	s.lastTimeSystem = now
}

func (s *receptionStats) processSenderReport(sr *rtcp.SenderReport, now time.Time) {
	s.prevSRNTP = s.lastSRNTP
	s.prevSRRTP = s.lastSRRTP
	s.lastSRNTP = sr.NTPTime
	s.lastSRRTP = sr.RTPTime
	s.lastSRSystem = now
	s.srCount++
}

func (s *receptionStats) extendedMax() uint32 {
	return uint32(s.cycles)<<16 | uint32(s.maxSeq)
}

func (s *receptionStats) expected() uint32 {
	if !s.initialized {
		return 0
	}
	return s.extendedMax() - uint32(s.baseSeq) + 1
}

func (s *receptionStats) cumulativeLost() uint32 {
	lost := int64(s.expected()) - int64(s.received)

	// allow up to 24 bits
	switch {
	case lost < 0:
		return 0
	case lost > 0xFFFFFF:
		return 0xFFFFFF
	}

	return uint32(lost)
}

func (s *receptionStats) report(ssrc uint32, now time.Time) (rtcp.ReceptionReport, bool) {
	if !s.initialized {
		return rtcp.ReceptionReport{}, false
	}

	expected := s.expected()

	expectedInterval := int64(expected) - int64(s.expectedPrior)
	if expectedInterval < 0 {
		expectedInterval = 0
	}
	lostInterval := expectedInterval - int64(s.receivedSinceReport)

	var fraction uint8
	if expectedInterval != 0 && lostInterval > 0 {
		// integer part of the loss fraction multiplied by 256
		v := lostInterval * 256 / expectedInterval
		if v > 255 {
			v = 255
		}
		fraction = uint8(v)
	}

	rr := rtcp.ReceptionReport{
		SSRC:               ssrc,
		FractionLost:       fraction,
		TotalLost:          s.cumulativeLost(),
		LastSequenceNumber: s.extendedMax(),
		Jitter:             uint32(s.jitter),
	}

	if s.srCount != 0 {
		rr.LastSenderReport = ntp.Compact(s.lastSRNTP)
		rr.Delay = ntp.EncodeDuration(now.Sub(s.lastSRSystem))
	}

	s.expectedPrior = expected
	s.receivedSinceReport = 0

	return rr, true
}

func (s *receptionStats) wallClock(ts uint32) (time.Time, bool) {
	if s.srCount < 2 {
		return time.Time{}, false
	}

	rtpDiff := int64(int32(s.lastSRRTP - s.prevSRRTP))
	last := ntp.Decode(s.lastSRNTP)
	ntpDiff := last.Sub(ntp.Decode(s.prevSRNTP))

	if rtpDiff <= 0 || ntpDiff <= 0 {
		return time.Time{}, false
	}

	offset := int64(int32(ts - s.lastSRRTP))

	return last.Add(time.Duration(float64(ntpDiff) * float64(offset) / float64(rtpDiff))), true
}
