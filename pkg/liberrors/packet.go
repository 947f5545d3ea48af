package liberrors

import (
	"errors"
	"fmt"
)

// ErrRTPPacketTooShort is returned when a RTP datagram is shorter than the fixed header.
type ErrRTPPacketTooShort struct {
	Len int
}

// Error implements the error interface.
func (e ErrRTPPacketTooShort) Error() string {
	return fmt.Sprintf("RTP packet is too short: %d bytes", e.Len)
}

// ErrRTPInvalidVersion is returned when a RTP packet has a version different than 2.
type ErrRTPInvalidVersion struct {
	Version uint8
}

// Error implements the error interface.
func (e ErrRTPInvalidVersion) Error() string {
	return fmt.Sprintf("invalid RTP version: %d", e.Version)
}

// ErrRTPPayloadTooBig is returned when a payload exceeds the maximum size.
type ErrRTPPayloadTooBig struct {
	Size int
	Max  int
}

// Error implements the error interface.
func (e ErrRTPPayloadTooBig) Error() string {
	return fmt.Sprintf("payload size (%d) is greater than maximum allowed (%d)", e.Size, e.Max)
}

// ErrRTPTooManyCSRC is returned when more than 15 contributing sources are provided.
type ErrRTPTooManyCSRC struct {
	Count int
}

// Error implements the error interface.
func (e ErrRTPTooManyCSRC) Error() string {
	return fmt.Sprintf("too many contributing sources: %d", e.Count)
}

// RTCP compound problems.
var (
	ErrCompoundEmpty          = errors.New("RTCP compound packet is empty")
	ErrCompoundFirstNotReport = errors.New("first packet of a RTCP compound must be a SR or a RR")
	ErrCompoundFirstPadded    = errors.New("first packet of a RTCP compound must not be padded")
)

// ErrRTCPInvalidFCI is returned when the FCI of a feedback packet is malformed.
type ErrRTCPInvalidFCI struct {
	Reason string
}

// Error implements the error interface.
func (e ErrRTCPInvalidFCI) Error() string {
	return "invalid feedback control information: " + e.Reason
}

// Frame buffer drops.
var (
	ErrFrameBufferDuplicate = errors.New("duplicate packet")
	ErrFrameBufferLate      = errors.New("packet arrived too late")
	ErrFrameBufferOld       = errors.New("packet is older than the newest packet")
)
