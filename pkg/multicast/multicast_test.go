package multicast

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListenNotMulticast(t *testing.T) {
	_, err := Listen(nil, "127.0.0.1:5004", net.ListenPacket)
	require.EqualError(t, err, "address 127.0.0.1:5004: not a multicast address")
}

func TestListenInvalidAddress(t *testing.T) {
	_, err := Listen(nil, "invalid", net.ListenPacket)
	require.Error(t, err)
}
