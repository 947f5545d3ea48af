package rtcpcodec

import (
	"encoding/binary"
	"fmt"

	"github.com/pion/rtcp"

	"github.com/bluenviron/gortp/pkg/bits"
	"github.com/bluenviron/gortp/pkg/liberrors"
)

const sliEntryLength = 4

// SliceLossIndication is a payload-specific feedback message
// that signals the loss of one or more slices.
// Entries reuse the pion type, while the packet is encoded as a
// payload-specific feedback message, as required by RFC4585.
// Specification: RFC4585, section 6.3.2
type SliceLossIndication struct {
	SenderSSRC uint32
	MediaSSRC  uint32

	Entries []rtcp.SLIEntry
}

var _ rtcp.Packet = (*SliceLossIndication)(nil)

// Header returns the packet header.
func (p *SliceLossIndication) Header() rtcp.Header {
	return rtcp.Header{
		Count:  rtcp.FormatSLI,
		Type:   rtcp.TypePayloadSpecificFeedback,
		Length: uint16(p.MarshalSize()/4 - 1),
	}
}

// MarshalSize returns the size of the packet once marshaled.
func (p *SliceLossIndication) MarshalSize() int {
	return headerLength + 2*ssrcLength + len(p.Entries)*sliEntryLength
}

// Marshal encodes the packet.
func (p SliceLossIndication) Marshal() ([]byte, error) {
	if len(p.Entries) == 0 {
		return nil, liberrors.ErrRTCPInvalidFCI{Reason: "no entries"}
	}

	buf := feedbackHeader(rtcp.FormatSLI, p.MarshalSize())
	binary.BigEndian.PutUint32(buf[4:], p.SenderSSRC)
	binary.BigEndian.PutUint32(buf[8:], p.MediaSSRC)

	pos := 12 * 8

	for _, e := range p.Entries {
		if e.First >= 1<<13 || e.Number >= 1<<13 || e.Picture >= 1<<6 {
			return nil, liberrors.ErrRTCPInvalidFCI{Reason: fmt.Sprintf("invalid entry %+v", e)}
		}

		bits.WriteBits(buf, &pos, uint64(e.First), 13)
		bits.WriteBits(buf, &pos, uint64(e.Number), 13)
		bits.WriteBits(buf, &pos, uint64(e.Picture), 6)
	}

	return buf, nil
}

// Unmarshal decodes the packet.
func (p *SliceLossIndication) Unmarshal(buf []byte) error {
	_, err := unmarshalFeedbackHeader(buf, rtcp.FormatSLI)
	if err != nil {
		return err
	}

	fci := len(buf) - headerLength - 2*ssrcLength
	if fci == 0 {
		return liberrors.ErrRTCPInvalidFCI{Reason: "no entries"}
	}

	p.SenderSSRC = binary.BigEndian.Uint32(buf[4:])
	p.MediaSSRC = binary.BigEndian.Uint32(buf[8:])
	p.Entries = make([]rtcp.SLIEntry, fci/sliEntryLength)

	pos := 12 * 8

	for i := range p.Entries {
		first, _ := bits.ReadBits(buf, &pos, 13)
		number, _ := bits.ReadBits(buf, &pos, 13)
		picture, _ := bits.ReadBits(buf, &pos, 6)

		p.Entries[i] = rtcp.SLIEntry{
			First:   uint16(first),
			Number:  uint16(number),
			Picture: uint8(picture),
		}
	}

	return nil
}

// DestinationSSRC returns the SSRCs this packet refers to.
func (p *SliceLossIndication) DestinationSSRC() []uint32 {
	return []uint32{p.MediaSSRC}
}
