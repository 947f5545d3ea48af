// Package participant contains the representation of a peer of a RTP session.
package participant

import (
	"net"
	"sync"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"

	"github.com/bluenviron/gortp/pkg/framebuffer"
)

// SDES contains the source description of a participant.
type SDES struct {
	CNAME    string
	Name     string
	Email    string
	Phone    string
	Location string
	Tool     string
	Note     string
	Priv     string
}

// Items returns the non-empty fields as SDES items.
func (s SDES) Items() []rtcp.SourceDescriptionItem {
	var items []rtcp.SourceDescriptionItem

	add := func(typ rtcp.SDESType, v string) {
		if v != "" {
			items = append(items, rtcp.SourceDescriptionItem{Type: typ, Text: v})
		}
	}

	add(rtcp.SDESCNAME, s.CNAME)
	add(rtcp.SDESName, s.Name)
	add(rtcp.SDESEmail, s.Email)
	add(rtcp.SDESPhone, s.Phone)
	add(rtcp.SDESLocation, s.Location)
	add(rtcp.SDESTool, s.Tool)
	add(rtcp.SDESNote, s.Note)
	add(rtcp.SDESPrivate, s.Priv)

	return items
}

// Participant is a peer of a RTP session.
// It can be declared by the application or learned from received traffic.
type Participant struct {
	mutex sync.RWMutex

	ssrc       uint32
	ssrcKnown  bool
	unexpected bool

	rtpAddr          *net.UDPAddr
	rtcpAddr         *net.UDPAddr
	rtpReceivedFrom  *net.UDPAddr
	rtcpReceivedFrom *net.UDPAddr

	sdes      SDES
	bye       bool
	byeReason string

	stats  receptionStats
	buffer *framebuffer.Buffer
}

// New allocates a participant declared by the application.
// When rtcpAddr is nil, it is derived from rtpAddr by incrementing the port.
// ssrc can be nil when the SSRC of the peer is not known yet.
func New(rtpAddr *net.UDPAddr, rtcpAddr *net.UDPAddr, ssrc *uint32) *Participant {
	if rtcpAddr == nil && rtpAddr != nil {
		rtcpAddr = &net.UDPAddr{
			IP:   rtpAddr.IP,
			Port: rtpAddr.Port + 1,
			Zone: rtpAddr.Zone,
		}
	}

	p := &Participant{
		rtpAddr:  rtpAddr,
		rtcpAddr: rtcpAddr,
	}

	if ssrc != nil {
		p.ssrc = *ssrc
		p.ssrcKnown = true
	}

	return p
}

// NewUnexpected allocates a participant learned from a RTP or RTCP packet.
func NewUnexpected(ssrc uint32, from *net.UDPAddr, viaRTCP bool) *Participant {
	p := &Participant{
		ssrc:       ssrc,
		ssrcKnown:  true,
		unexpected: true,
	}

	if viaRTCP {
		p.rtcpReceivedFrom = from
	} else {
		p.rtpReceivedFrom = from
	}

	return p
}

// SSRC returns the SSRC of the participant and whether it is known.
func (p *Participant) SSRC() (uint32, bool) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.ssrc, p.ssrcKnown
}

// SetSSRC sets the SSRC of the participant.
func (p *Participant) SetSSRC(ssrc uint32) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.ssrc = ssrc
	p.ssrcKnown = true
}

// Unexpected returns whether the participant was learned from traffic
// and has not been matched with a declared participant yet.
func (p *Participant) Unexpected() bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.unexpected
}

// RTPAddress returns the address RTP packets are sent to.
func (p *Participant) RTPAddress() *net.UDPAddr {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.rtpAddr
}

// RTCPAddress returns the address RTCP packets are sent to.
func (p *Participant) RTCPAddress() *net.UDPAddr {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.rtcpAddr
}

// RTPReceivedFrom returns the address RTP packets were last received from.
func (p *Participant) RTPReceivedFrom() *net.UDPAddr {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.rtpReceivedFrom
}

// RTCPReceivedFrom returns the address RTCP packets were last received from.
func (p *Participant) RTCPReceivedFrom() *net.UDPAddr {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.rtcpReceivedFrom
}

// SetRTPReceivedFrom sets the address RTP packets were received from.
func (p *Participant) SetRTPReceivedFrom(addr *net.UDPAddr) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.rtpReceivedFrom = addr
}

// SetRTCPReceivedFrom sets the address RTCP packets were received from.
func (p *Participant) SetRTCPReceivedFrom(addr *net.UDPAddr) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.rtcpReceivedFrom = addr
}

// SDES returns the source description of the participant.
func (p *Participant) SDES() SDES {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.sdes
}

// CNAME returns the canonical name of the participant.
func (p *Participant) CNAME() string {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.sdes.CNAME
}

// SetSDES applies SDES items and returns whether something changed.
func (p *Participant) SetSDES(items []rtcp.SourceDescriptionItem) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	changed := false

	set := func(dest *string, v string) {
		if *dest != v {
			*dest = v
			changed = true
		}
	}

	for _, item := range items {
		switch item.Type {
		case rtcp.SDESCNAME:
			set(&p.sdes.CNAME, item.Text)
		case rtcp.SDESName:
			set(&p.sdes.Name, item.Text)
		case rtcp.SDESEmail:
			set(&p.sdes.Email, item.Text)
		case rtcp.SDESPhone:
			set(&p.sdes.Phone, item.Text)
		case rtcp.SDESLocation:
			set(&p.sdes.Location, item.Text)
		case rtcp.SDESTool:
			set(&p.sdes.Tool, item.Text)
		case rtcp.SDESNote:
			set(&p.sdes.Note, item.Text)
		case rtcp.SDESPrivate:
			set(&p.sdes.Priv, item.Text)
		}
	}

	return changed
}

// MarkBye marks the participant as departed.
func (p *Participant) MarkBye(reason string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.bye = true
	p.byeReason = reason
}

// Bye returns whether the participant sent a BYE packet, and its reason.
func (p *Participant) Bye() (bool, string) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.bye, p.byeReason
}

// Buffer returns the frame buffer of the participant.
func (p *Participant) Buffer() *framebuffer.Buffer {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.buffer
}

// SetBuffer sets the frame buffer of the participant.
func (p *Participant) SetBuffer(b *framebuffer.Buffer) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.buffer = b
}

// Merge moves the state learned from traffic by an unexpected participant
// into p, which becomes bound to the SSRC of other.
// Addresses declared by the application are preserved.
func (p *Participant) Merge(other *Participant) {
	other.mutex.RLock()
	ssrc := other.ssrc
	ssrcKnown := other.ssrcKnown
	rtpFrom := other.rtpReceivedFrom
	rtcpFrom := other.rtcpReceivedFrom
	sdes := other.sdes
	stats := other.stats
	buffer := other.buffer
	other.mutex.RUnlock()

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if ssrcKnown {
		p.ssrc = ssrc
		p.ssrcKnown = true
	}

	if rtpFrom != nil {
		p.rtpReceivedFrom = rtpFrom
	}
	if rtcpFrom != nil {
		p.rtcpReceivedFrom = rtcpFrom
	}

	mergeString := func(dest *string, v string) {
		if v != "" {
			*dest = v
		}
	}
	mergeString(&p.sdes.CNAME, sdes.CNAME)
	mergeString(&p.sdes.Name, sdes.Name)
	mergeString(&p.sdes.Email, sdes.Email)
	mergeString(&p.sdes.Phone, sdes.Phone)
	mergeString(&p.sdes.Location, sdes.Location)
	mergeString(&p.sdes.Tool, sdes.Tool)
	mergeString(&p.sdes.Note, sdes.Note)
	mergeString(&p.sdes.Priv, sdes.Priv)

	if stats.initialized || stats.srCount != 0 {
		p.stats = stats
	}

	if buffer != nil && p.buffer == nil {
		p.buffer = buffer
	}

	p.unexpected = false
}

// ProcessPacketRTP updates reception statistics with a RTP packet.
func (p *Participant) ProcessPacketRTP(pkt *rtp.Packet, now time.Time, clockRate int) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.stats.processRTP(pkt, now, clockRate)
}

// ProcessSenderReport updates reception statistics with a RTCP sender report.
func (p *Participant) ProcessSenderReport(sr *rtcp.SenderReport, now time.Time) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.stats.processSenderReport(sr, now)
}

// ReceptionReport generates a reception report block about the participant
// and resets the counters of packets received since the last report.
// It returns false when no RTP packet has ever been received from the participant.
func (p *Participant) ReceptionReport(now time.Time) (rtcp.ReceptionReport, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.ssrcKnown {
		return rtcp.ReceptionReport{}, false
	}

	return p.stats.report(p.ssrc, now)
}

// WallClock returns the absolute time of a RTP timestamp.
// It is available after two sender reports have been received.
func (p *Participant) WallClock(ts uint32) (time.Time, bool) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.stats.wallClock(ts)
}

// Stats returns reception statistics.
func (p *Participant) Stats() Stats {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return Stats{
		SSRC:                    p.ssrc,
		ReceivedPackets:         p.stats.received,
		ReceivedOctets:          p.stats.receivedOctets,
		ReceivedSinceReport:     p.stats.receivedSinceReport,
		ExtendedHighestSequence: p.stats.extendedMax(),
		CumulativeLost:          p.stats.cumulativeLost(),
		Jitter:                  p.stats.jitter,
		SenderReports:           p.stats.srCount,
		LastSenderReport:        p.stats.lastSRSystem,
	}
}
