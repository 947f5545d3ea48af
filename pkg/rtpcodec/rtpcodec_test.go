package rtpcodec

import (
	"bytes"
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"

	"github.com/bluenviron/gortp/pkg/liberrors"
)

func TestEncodeDecode(t *testing.T) {
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Marker:         true,
			PayloadType:    96,
			SequenceNumber: 946,
			Timestamp:      1287987768,
			SSRC:           0x38F27A2F,
			CSRC:           []uint32{1, 2},
		},
		Payload: []byte{1, 2, 3, 4},
	}

	buf, err := Encode(pkt)
	require.NoError(t, err)
	require.Equal(t, []byte{
		0x82, 0xe0, 0x03, 0xb2, 0x4c, 0xc5, 0x22, 0x38,
		0x38, 0xf2, 0x7a, 0x2f, 0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x02, 0x01, 0x02, 0x03, 0x04,
	}, buf)

	dec, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, uint8(2), dec.Version)
	require.Equal(t, true, dec.Marker)
	require.Equal(t, uint8(96), dec.PayloadType)
	require.Equal(t, uint16(946), dec.SequenceNumber)
	require.Equal(t, uint32(1287987768), dec.Timestamp)
	require.Equal(t, uint32(0x38F27A2F), dec.SSRC)
	require.Equal(t, []uint32{1, 2}, dec.CSRC)
	require.Equal(t, []byte{1, 2, 3, 4}, dec.Payload)
}

func TestEncodeErrors(t *testing.T) {
	_, err := Encode(&rtp.Packet{
		Header: rtp.Header{
			CSRC: make([]uint32, 16),
		},
	})
	require.Equal(t, liberrors.ErrRTPTooManyCSRC{Count: 16}, err)

	_, err = Encode(&rtp.Packet{
		Payload: bytes.Repeat([]byte{1}, MaxPayloadSize+1),
	})
	require.Equal(t, liberrors.ErrRTPPayloadTooBig{Size: MaxPayloadSize + 1, Max: MaxPayloadSize}, err)
}

func TestDecodeErrors(t *testing.T) {
	for _, ca := range []struct {
		name string
		byts []byte
		err  error
	}{
		{
			"too short",
			[]byte{0x80, 0x60, 0x00},
			liberrors.ErrRTPPacketTooShort{Len: 3},
		},
		{
			"bad version",
			[]byte{
				0x40, 0x60, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x01,
			},
			liberrors.ErrRTPInvalidVersion{Version: 1},
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			_, err := Decode(ca.byts)
			require.Equal(t, ca.err, err)
		})
	}
}
