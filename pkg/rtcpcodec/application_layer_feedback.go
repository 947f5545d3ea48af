package rtcpcodec

import (
	"encoding/binary"

	"github.com/pion/rtcp"
)

// ApplicationLayerFeedback is a payload-specific feedback message
// carrying opaque application data.
// Specification: RFC4585, section 6.4
type ApplicationLayerFeedback struct {
	SenderSSRC uint32
	MediaSSRC  uint32

	// zero-padded to a multiple of 4 bytes when marshaled.
	Data []byte
}

var _ rtcp.Packet = (*ApplicationLayerFeedback)(nil)

func afbPaddedLen(n int) int {
	return (n + 3) &^ 3
}

// Header returns the packet header.
func (p *ApplicationLayerFeedback) Header() rtcp.Header {
	return rtcp.Header{
		Count:  formatAFB,
		Type:   rtcp.TypePayloadSpecificFeedback,
		Length: uint16(p.MarshalSize()/4 - 1),
	}
}

// MarshalSize returns the size of the packet once marshaled.
func (p *ApplicationLayerFeedback) MarshalSize() int {
	return headerLength + 2*ssrcLength + afbPaddedLen(len(p.Data))
}

// Marshal encodes the packet.
func (p ApplicationLayerFeedback) Marshal() ([]byte, error) {
	buf := feedbackHeader(formatAFB, p.MarshalSize())
	binary.BigEndian.PutUint32(buf[4:], p.SenderSSRC)
	binary.BigEndian.PutUint32(buf[8:], p.MediaSSRC)
	copy(buf[12:], p.Data)
	return buf, nil
}

// Unmarshal decodes the packet.
func (p *ApplicationLayerFeedback) Unmarshal(buf []byte) error {
	_, err := unmarshalFeedbackHeader(buf, formatAFB)
	if err != nil {
		return err
	}

	p.SenderSSRC = binary.BigEndian.Uint32(buf[4:])
	p.MediaSSRC = binary.BigEndian.Uint32(buf[8:])
	p.Data = buf[12:]

	return nil
}

// DestinationSSRC returns the SSRCs this packet refers to.
func (p *ApplicationLayerFeedback) DestinationSSRC() []uint32 {
	return []uint32{p.MediaSSRC}
}
