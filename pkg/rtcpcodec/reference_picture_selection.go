package rtcpcodec

import (
	"encoding/binary"
	"fmt"

	"github.com/pion/rtcp"

	"github.com/bluenviron/gortp/pkg/bits"
	"github.com/bluenviron/gortp/pkg/liberrors"
)

// ReferencePictureSelection is a payload-specific feedback message
// that signals a reference picture to the encoder.
// Specification: RFC4585, section 6.3.3
type ReferencePictureSelection struct {
	SenderSSRC  uint32
	MediaSSRC   uint32
	PayloadType uint8

	// native RPSI bit string, defined per codec.
	BitString []byte
}

var _ rtcp.Packet = (*ReferencePictureSelection)(nil)

func rpsiPaddingBytes(bitStringLen int) int {
	return (4 - (2+bitStringLen)%4) % 4
}

// Header returns the packet header.
func (p *ReferencePictureSelection) Header() rtcp.Header {
	return rtcp.Header{
		Count:  formatRPSI,
		Type:   rtcp.TypePayloadSpecificFeedback,
		Length: uint16(p.MarshalSize()/4 - 1),
	}
}

// MarshalSize returns the size of the packet once marshaled.
func (p *ReferencePictureSelection) MarshalSize() int {
	return headerLength + 2*ssrcLength + 2 + len(p.BitString) + rpsiPaddingBytes(len(p.BitString))
}

// Marshal encodes the packet.
func (p ReferencePictureSelection) Marshal() ([]byte, error) {
	if p.PayloadType > 127 {
		return nil, liberrors.ErrRTCPInvalidFCI{Reason: fmt.Sprintf("invalid payload type %d", p.PayloadType)}
	}

	padding := rpsiPaddingBytes(len(p.BitString))
	buf := feedbackHeader(formatRPSI, p.MarshalSize())

	binary.BigEndian.PutUint32(buf[4:], p.SenderSSRC)
	binary.BigEndian.PutUint32(buf[8:], p.MediaSSRC)

	pos := 12 * 8
	bits.WriteUint8(buf, &pos, uint8(padding*8))
	bits.WriteFlag(buf, &pos, false)
	bits.WriteBits(buf, &pos, uint64(p.PayloadType), 7)
	bits.WriteBytes(buf, &pos, p.BitString)

	return buf, nil
}

// Unmarshal decodes the packet.
func (p *ReferencePictureSelection) Unmarshal(buf []byte) error {
	_, err := unmarshalFeedbackHeader(buf, formatRPSI)
	if err != nil {
		return err
	}

	pos := 4 * 8

	p.SenderSSRC, err = bits.ReadUint32(buf, &pos)
	if err != nil {
		return err
	}

	p.MediaSSRC, err = bits.ReadUint32(buf, &pos)
	if err != nil {
		return err
	}

	pb, err := bits.ReadUint8(buf, &pos)
	if err != nil {
		return liberrors.ErrRTCPInvalidFCI{Reason: err.Error()}
	}

	pos++ // zero bit

	pt, err := bits.ReadBits(buf, &pos, 7)
	if err != nil {
		return liberrors.ErrRTCPInvalidFCI{Reason: err.Error()}
	}
	p.PayloadType = uint8(pt)

	n := len(buf) - pos/8 - int(pb)/8
	if n < 0 {
		return liberrors.ErrRTCPInvalidFCI{Reason: fmt.Sprintf("padding (%d bits) exceeds FCI", pb)}
	}

	bs, err := bits.ReadBytes(buf, &pos, n)
	if err != nil {
		return liberrors.ErrRTCPInvalidFCI{Reason: err.Error()}
	}
	p.BitString = bs

	return nil
}

// DestinationSSRC returns the SSRCs this packet refers to.
func (p *ReferencePictureSelection) DestinationSSRC() []uint32 {
	return []uint32{p.MediaSSRC}
}
