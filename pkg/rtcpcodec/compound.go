package rtcpcodec

import (
	"github.com/pion/rtcp"

	"github.com/bluenviron/gortp/pkg/liberrors"
)

// Compound is a RTCP compound packet.
// The first packet must be a SenderReport or a ReceiverReport.
// Specification: RFC3550, section 6.1
type Compound []rtcp.Packet

func isReport(pkt rtcp.Packet) bool {
	switch pkt.(type) {
	case *rtcp.SenderReport, *rtcp.ReceiverReport:
		return true
	}
	return false
}

// Marshal encodes the compound packet.
func (c Compound) Marshal() ([]byte, error) {
	if len(c) == 0 {
		return nil, liberrors.ErrCompoundEmpty
	}

	if !isReport(c[0]) {
		return nil, liberrors.ErrCompoundFirstNotReport
	}

	return rtcp.Marshal(c)
}

// MarshalSize returns the size of the compound packet once marshaled.
func (c Compound) MarshalSize() int {
	n := 0
	for _, pkt := range c {
		n += pkt.MarshalSize()
	}
	return n
}

// Unmarshal decodes a compound packet.
// Decoding stops at the first malformed packet that follows a valid one,
// and the packets decoded until then are kept.
// Packets of unknown type are returned as *rtcp.RawPacket.
func (c *Compound) Unmarshal(buf []byte) error {
	if len(buf) == 0 {
		return liberrors.ErrCompoundEmpty
	}

	var h rtcp.Header
	err := h.Unmarshal(buf)
	if err != nil {
		return err
	}

	if h.Type != rtcp.TypeSenderReport && h.Type != rtcp.TypeReceiverReport {
		return liberrors.ErrCompoundFirstNotReport
	}

	if h.Padding {
		return liberrors.ErrCompoundFirstPadded
	}

	var pkts Compound

	for len(buf) != 0 {
		pkt, n, err := unmarshalPacket(buf)
		if err != nil {
			if len(pkts) == 0 {
				return err
			}
			break
		}

		pkts = append(pkts, pkt)
		buf = buf[n:]
	}

	*c = pkts
	return nil
}
