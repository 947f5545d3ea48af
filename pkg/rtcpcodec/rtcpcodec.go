// Package rtcpcodec contains RTCP packet variants and a compound packet codec.
package rtcpcodec

import (
	"encoding/binary"

	"github.com/pion/rtcp"
)

const (
	headerLength = 4
	ssrcLength   = 4

	// feedback message types of payload-specific feedback packets.
	formatRPSI uint8 = 3
	formatAFB  uint8 = 15
)

func feedbackHeader(format uint8, size int) []byte {
	buf := make([]byte, size)
	buf[0] = 2<<6 | format
	buf[1] = byte(rtcp.TypePayloadSpecificFeedback)
	binary.BigEndian.PutUint16(buf[2:], uint16(size/4-1))
	return buf
}

func unmarshalFeedbackHeader(buf []byte, format uint8) (rtcp.Header, error) {
	var h rtcp.Header
	err := h.Unmarshal(buf)
	if err != nil {
		return h, err
	}

	if h.Type != rtcp.TypePayloadSpecificFeedback || h.Count != format {
		return h, errWrongType
	}

	if len(buf) < headerLength+2*ssrcLength || len(buf) != int(h.Length+1)*4 {
		return h, errPacketLength
	}

	return h, nil
}

// unmarshalPacket decodes the first packet in buf and returns it,
// together with the number of bytes it occupies.
func unmarshalPacket(buf []byte) (rtcp.Packet, int, error) {
	var h rtcp.Header
	err := h.Unmarshal(buf)
	if err != nil {
		return nil, 0, err
	}

	n := int(h.Length+1) * 4
	if n > len(buf) {
		return nil, 0, errPacketLength
	}

	var pkt rtcp.Packet

	switch h.Type {
	case rtcp.TypeSenderReport:
		pkt = &rtcp.SenderReport{}

	case rtcp.TypeReceiverReport:
		pkt = &rtcp.ReceiverReport{}

	case rtcp.TypeSourceDescription:
		pkt = &rtcp.SourceDescription{}

	case rtcp.TypeGoodbye:
		pkt = &rtcp.Goodbye{}

	case rtcp.TypeApplicationDefined:
		pkt = &rtcp.ApplicationDefined{}

	case rtcp.TypeTransportSpecificFeedback:
		switch h.Count {
		case rtcp.FormatTLN:
			pkt = &rtcp.TransportLayerNack{}

		default:
			pkt = &rtcp.RawPacket{}
		}

	case rtcp.TypePayloadSpecificFeedback:
		switch h.Count {
		case rtcp.FormatPLI:
			pkt = &rtcp.PictureLossIndication{}

		case rtcp.FormatSLI:
			pkt = &SliceLossIndication{}

		case formatRPSI:
			pkt = &ReferencePictureSelection{}

		case rtcp.FormatFIR:
			pkt = &rtcp.FullIntraRequest{}

		case formatAFB:
			pkt = &ApplicationLayerFeedback{}

		default:
			pkt = &rtcp.RawPacket{}
		}

	default:
		pkt = &rtcp.RawPacket{}
	}

	err = pkt.Unmarshal(buf[:n])
	if err != nil {
		return nil, 0, err
	}

	return pkt, n, nil
}
