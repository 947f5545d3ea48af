package rtcpcodec

import (
	"errors"
)

var (
	errWrongType    = errors.New("wrong packet type")
	errPacketLength = errors.New("invalid packet length")
)
