package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateFrame(t *testing.T) {
	payloads, err := generateFrame(SendConfig{
		FrameSize:       10,
		PacketsPerFrame: 3,
	})
	require.NoError(t, err)
	require.Len(t, payloads, 3)
	require.Len(t, payloads[0], 3)
	require.Len(t, payloads[1], 3)
	require.Len(t, payloads[2], 4)
}

func TestRemoteParticipants(t *testing.T) {
	dir := t.TempDir()
	sdpPath := filepath.Join(dir, "remote.sdp")

	err := os.WriteFile(sdpPath, []byte("v=0\r\n"+
		"o=- 0 0 IN IP4 10.0.0.5\r\n"+
		"s= \r\n"+
		"c=IN IP4 10.0.0.5\r\n"+
		"t=0 0\r\n"+
		"m=video 7000 RTP/AVPF 96\r\n"+
		"a=rtcp:7002\r\n"), 0o644)
	require.NoError(t, err)

	ps, err := remoteParticipants(&Config{
		Peers:     []string{"127.0.0.1:6000"},
		RemoteSDP: sdpPath,
	})
	require.NoError(t, err)
	require.Len(t, ps, 2)

	require.Equal(t, "127.0.0.1:6000", ps[0].RTPAddress().String())
	require.Equal(t, "127.0.0.1:6001", ps[0].RTCPAddress().String())
	require.Equal(t, "10.0.0.5:7000", ps[1].RTPAddress().String())
	require.Equal(t, "10.0.0.5:7002", ps[1].RTCPAddress().String())
}

func TestRemoteParticipantsInvalidPeer(t *testing.T) {
	_, err := remoteParticipants(&Config{
		Peers: []string{"invalid"},
	})
	require.Error(t, err)
}

func TestPeerHandlerFrameSize(t *testing.T) {
	h := &peerHandler{packetsPerFrame: 4}
	require.Equal(t, 4, h.FrameSize(96))

	h = &peerHandler{}
	require.Equal(t, -1, h.FrameSize(96))
}
