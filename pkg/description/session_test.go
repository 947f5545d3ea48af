package description

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func uint32Ptr(v uint32) *uint32 {
	return &v
}

var casesSession = []struct {
	name string
	in   string
	out  string
	desc Session
}{
	{
		"avpf video",
		"v=0\r\n" +
			"o=- 0 0 IN IP4 192.168.1.10\r\n" +
			"s=peer\r\n" +
			"c=IN IP4 192.168.1.10\r\n" +
			"t=0 0\r\n" +
			"m=video 5004 RTP/AVPF 96\r\n" +
			"a=rtcp:5010\r\n" +
			"a=rtpmap:96 H264/90000\r\n" +
			"a=rtcp-fb:96 nack\r\n" +
			"a=rtcp-fb:96 nack pli\r\n" +
			"a=ssrc:12345 cname:peer@host\r\n",
		"v=0\r\n" +
			"o=- 0 0 IN IP4 192.168.1.10\r\n" +
			"s=peer\r\n" +
			"c=IN IP4 192.168.1.10\r\n" +
			"t=0 0\r\n" +
			"m=video 5004 RTP/AVPF 96\r\n" +
			"a=rtcp:5010\r\n" +
			"a=rtpmap:96 H264/90000\r\n" +
			"a=rtcp-fb:96 nack\r\n" +
			"a=rtcp-fb:96 nack pli\r\n" +
			"a=ssrc:12345 cname:peer@host\r\n",
		Session{
			Title:   "peer",
			Address: "192.168.1.10",
			Medias: []*Media{{
				Type:             MediaTypeVideo,
				Port:             5004,
				RTCPPort:         5010,
				AVPF:             true,
				PayloadType:      96,
				EncodingName:     "H264",
				ClockRate:        90000,
				FeedbackMessages: []string{"nack", "nack pli"},
				SSRC:             uint32Ptr(12345),
				CNAME:            "peer@host",
			}},
		},
	},
	{
		"avp audio with wildcard feedback",
		"v=0\r\n" +
			"o=- 0 0 IN IP4 10.0.0.1\r\n" +
			"s= \r\n" +
			"t=0 0\r\n" +
			"m=audio 6000 RTP/AVP 0 8\r\n" +
			"c=IN IP4 10.0.0.2\r\n" +
			"a=rtpmap:0 PCMU/8000\r\n" +
			"a=rtpmap:8 PCMA/8000\r\n" +
			"a=rtcp-fb:* nack\r\n",
		"v=0\r\n" +
			"o=- 0 0 IN IP4 0.0.0.0\r\n" +
			"s= \r\n" +
			"c=IN IP4 0.0.0.0\r\n" +
			"t=0 0\r\n" +
			"m=audio 6000 RTP/AVP 0\r\n" +
			"c=IN IP4 10.0.0.2\r\n" +
			"a=rtpmap:0 PCMU/8000\r\n" +
			"a=rtcp-fb:0 nack\r\n",
		Session{
			Medias: []*Media{{
				Type:             MediaTypeAudio,
				Address:          "10.0.0.2",
				Port:             6000,
				RTCPPort:         6001,
				EncodingName:     "PCMU",
				ClockRate:        8000,
				FeedbackMessages: []string{"nack"},
			}},
		},
	},
}

func TestSessionUnmarshal(t *testing.T) {
	for _, ca := range casesSession {
		t.Run(ca.name, func(t *testing.T) {
			var desc Session
			err := desc.Unmarshal([]byte(ca.in))
			require.NoError(t, err)
			require.Equal(t, ca.desc, desc)
		})
	}
}

func TestSessionMarshal(t *testing.T) {
	for _, ca := range casesSession {
		t.Run(ca.name, func(t *testing.T) {
			byts, err := ca.desc.Marshal()
			require.NoError(t, err)
			require.Equal(t, ca.out, string(byts))
		})
	}
}

func TestSessionUnmarshalErrors(t *testing.T) {
	for _, ca := range []struct {
		name string
		in   string
		err  string
	}{
		{
			"no address",
			"v=0\r\n" +
				"o=- 0 0 IN IP4 10.0.0.1\r\n" +
				"s= \r\n" +
				"t=0 0\r\n" +
				"m=video 5004 RTP/AVP 96\r\n",
			"media 1 has no connection address",
		},
		{
			"invalid payload type",
			"v=0\r\n" +
				"o=- 0 0 IN IP4 10.0.0.1\r\n" +
				"s= \r\n" +
				"c=IN IP4 10.0.0.1\r\n" +
				"t=0 0\r\n" +
				"m=video 5004 RTP/AVP 200\r\n",
			"media 1 is invalid: invalid payload type: 200",
		},
		{
			"invalid rtcp",
			"v=0\r\n" +
				"o=- 0 0 IN IP4 10.0.0.1\r\n" +
				"s= \r\n" +
				"c=IN IP4 10.0.0.1\r\n" +
				"t=0 0\r\n" +
				"m=video 5004 RTP/AVP 96\r\n" +
				"a=rtcp:abc\r\n",
			"media 1 is invalid: invalid rtcp attribute: abc",
		},
		{
			"invalid ssrc",
			"v=0\r\n" +
				"o=- 0 0 IN IP4 10.0.0.1\r\n" +
				"s= \r\n" +
				"c=IN IP4 10.0.0.1\r\n" +
				"t=0 0\r\n" +
				"m=video 5004 RTP/AVP 96\r\n" +
				"a=ssrc:xyz cname:a\r\n",
			"media 1 is invalid: invalid ssrc: xyz",
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			var desc Session
			err := desc.Unmarshal([]byte(ca.in))
			require.EqualError(t, err, ca.err)
		})
	}
}

func TestSessionParticipant(t *testing.T) {
	desc := casesSession[0].desc

	p, err := desc.Participant(desc.Medias[0])
	require.NoError(t, err)

	require.Equal(t, "192.168.1.10:5004", p.RTPAddress().String())
	require.Equal(t, "192.168.1.10:5010", p.RTCPAddress().String())

	ssrc, ok := p.SSRC()
	require.True(t, ok)
	require.Equal(t, uint32(12345), ssrc)
	require.Equal(t, "peer@host", p.CNAME())
}
