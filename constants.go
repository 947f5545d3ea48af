package gortp

import "time"

const (
	// same size as GStreamer's rtspsrc
	udpKernelReadBufferSize = 0x80000

	// 1500 (UDP MTU) - 20 (IP header) - 8 (UDP header)
	udpMaxPayloadSize = 1472

	defaultRTPAddress       = ":5004"
	defaultClockRate        = 90000
	defaultBufferBehavior   = 3
	defaultWriteTimeout     = 10 * time.Second
	defaultMaxConflicts     = 5
	defaultRolloverTol      = 10
	defaultLateSeqTolerance = 3

	// reason of BYE packets sent when the session is closed.
	byeReason = "session ended"
)
