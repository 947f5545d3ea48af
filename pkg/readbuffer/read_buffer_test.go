package readbuffer

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSet(t *testing.T) {
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close() //nolint:errcheck

	err = Set(pc.(*net.UDPConn), 10000)
	require.NoError(t, err)
}

func TestErrSizeNotApplied(t *testing.T) {
	require.EqualError(t, ErrSizeNotApplied{Requested: 1000, Applied: 200},
		"unable to set read buffer size to 1000 (got 200), check that the operating system allows that")
}
