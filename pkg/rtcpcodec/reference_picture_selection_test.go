package rtcpcodec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReferencePictureSelection(t *testing.T) {
	byts := []byte{
		0x83, 0xce, 0x00, 0x04, 0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x02, 0x18, 0x60, 0xaa, 0xbb,
		0xcc, 0x00, 0x00, 0x00,
	}

	pkt := ReferencePictureSelection{
		SenderSSRC:  1,
		MediaSSRC:   2,
		PayloadType: 96,
		BitString:   []byte{0xaa, 0xbb, 0xcc},
	}

	buf, err := pkt.Marshal()
	require.NoError(t, err)
	require.Equal(t, byts, buf)

	var dec ReferencePictureSelection
	err = dec.Unmarshal(byts)
	require.NoError(t, err)
	require.Equal(t, pkt, dec)
	require.Equal(t, []uint32{2}, dec.DestinationSSRC())
}

func TestReferencePictureSelectionInvalidPayloadType(t *testing.T) {
	_, err := ReferencePictureSelection{PayloadType: 200}.Marshal()
	require.EqualError(t, err, "invalid feedback control information: invalid payload type 200")
}

func TestApplicationLayerFeedback(t *testing.T) {
	byts := []byte{
		0x8f, 0xce, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x02, 0x01, 0x02, 0x03, 0x00,
	}

	buf, err := ApplicationLayerFeedback{
		SenderSSRC: 1,
		MediaSSRC:  2,
		Data:       []byte{1, 2, 3},
	}.Marshal()
	require.NoError(t, err)
	require.Equal(t, byts, buf)

	var dec ApplicationLayerFeedback
	err = dec.Unmarshal(byts)
	require.NoError(t, err)
	require.Equal(t, ApplicationLayerFeedback{
		SenderSSRC: 1,
		MediaSSRC:  2,
		Data:       []byte{1, 2, 3, 0},
	}, dec)
}
