// Package rtpcodec contains functions to encode and decode RTP packets.
package rtpcodec

import (
	"github.com/pion/rtp"

	"github.com/bluenviron/gortp/pkg/liberrors"
)

const (
	// Version is the only RTP version supported.
	Version = 2

	// HeaderSize is the size of the fixed RTP header.
	HeaderSize = 12

	// MaxCSRC is the maximum number of contributing sources in a packet.
	MaxCSRC = 15

	udpMaxPayloadSize = 1472 // 1500 (UDP MTU) - 20 (IP header) - 8 (UDP header)

	// MaxPayloadSize is the maximum size of a payload that fits into a single UDP datagram
	// together with a RTP header without CSRCs or extensions.
	MaxPayloadSize = udpMaxPayloadSize - HeaderSize
)

// Encode encodes a RTP packet.
// The version is always set to 2.
func Encode(pkt *rtp.Packet) ([]byte, error) {
	if len(pkt.CSRC) > MaxCSRC {
		return nil, liberrors.ErrRTPTooManyCSRC{Count: len(pkt.CSRC)}
	}

	if len(pkt.Payload) > MaxPayloadSize {
		return nil, liberrors.ErrRTPPayloadTooBig{Size: len(pkt.Payload), Max: MaxPayloadSize}
	}

	pkt.Version = Version

	return pkt.Marshal()
}

// Decode decodes a RTP packet.
// The returned packet references buf.
func Decode(buf []byte) (*rtp.Packet, error) {
	if len(buf) < HeaderSize {
		return nil, liberrors.ErrRTPPacketTooShort{Len: len(buf)}
	}

	if v := buf[0] >> 6; v != Version {
		return nil, liberrors.ErrRTPInvalidVersion{Version: v}
	}

	var pkt rtp.Packet
	err := pkt.Unmarshal(buf)
	if err != nil {
		return nil, err
	}

	return &pkt, nil
}
