package rtcpcodec

import (
	"testing"

	"github.com/pion/rtcp"
	"github.com/stretchr/testify/require"
)

func TestSliceLossIndication(t *testing.T) {
	byts := []byte{
		0x82, 0xce, 0x00, 0x04, 0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x02, 0x00, 0x08, 0x00, 0x83,
		0xff, 0xff, 0xff, 0xff,
	}

	pkt := SliceLossIndication{
		SenderSSRC: 1,
		MediaSSRC:  2,
		Entries: []rtcp.SLIEntry{
			{First: 1, Number: 2, Picture: 3},
			{First: 8191, Number: 8191, Picture: 63},
		},
	}

	buf, err := pkt.Marshal()
	require.NoError(t, err)
	require.Equal(t, byts, buf)

	var dec SliceLossIndication
	err = dec.Unmarshal(byts)
	require.NoError(t, err)
	require.Equal(t, pkt, dec)
	require.Equal(t, []uint32{2}, dec.DestinationSSRC())
}

func TestSliceLossIndicationErrors(t *testing.T) {
	_, err := SliceLossIndication{}.Marshal()
	require.EqualError(t, err, "invalid feedback control information: no entries")

	_, err = SliceLossIndication{Entries: []rtcp.SLIEntry{{First: 8192}}}.Marshal()
	require.Error(t, err)

	// transport-layer feedback with the same format is not a SLI.
	var dec SliceLossIndication
	err = dec.Unmarshal([]byte{
		0x82, 0xcd, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x02, 0x00, 0x08, 0x00, 0x83,
	})
	require.Error(t, err)
}

func TestCompoundSliceLossIndication(t *testing.T) {
	// RR + SLI + BYE
	byts := []byte{
		0x80, 0xc9, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x82, 0xce, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x02, 0x00, 0x08, 0x00, 0x83,
		0x81, 0xcb, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	}

	var c Compound
	err := c.Unmarshal(byts)
	require.NoError(t, err)
	require.Equal(t, Compound{
		&rtcp.ReceiverReport{SSRC: 1, ProfileExtensions: []byte{}},
		&SliceLossIndication{
			SenderSSRC: 1,
			MediaSSRC:  2,
			Entries:    []rtcp.SLIEntry{{First: 1, Number: 2, Picture: 3}},
		},
		&rtcp.Goodbye{Sources: []uint32{1}},
	}, c)
}
