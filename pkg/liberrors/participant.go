package liberrors

import (
	"fmt"
	"net"
)

// ErrRegistryDuplicateSSRC is returned when a participant with the same SSRC is already registered.
type ErrRegistryDuplicateSSRC struct {
	SSRC uint32
}

// Error implements the error interface.
func (e ErrRegistryDuplicateSSRC) Error() string {
	return fmt.Sprintf("a participant with SSRC %d is already registered", e.SSRC)
}

// ErrRegistryDuplicateAddress is returned when a participant with the same address is already declared.
type ErrRegistryDuplicateAddress struct {
	Address net.Addr
}

// Error implements the error interface.
func (e ErrRegistryDuplicateAddress) Error() string {
	return fmt.Sprintf("a participant with address %v is already declared", e.Address)
}

// ErrRegistryMissingSSRC is returned when a multicast participant has no SSRC.
type ErrRegistryMissingSSRC struct{}

// Error implements the error interface.
func (e ErrRegistryMissingSSRC) Error() string {
	return "multicast participants must have a SSRC"
}

// ErrRegistryMissingAddress is returned when a unicast participant is declared without a RTP address.
type ErrRegistryMissingAddress struct{}

// Error implements the error interface.
func (e ErrRegistryMissingAddress) Error() string {
	return "unicast participants must have a RTP address"
}

// ErrRegistryParticipantNotFound is returned when removing an unknown participant.
type ErrRegistryParticipantNotFound struct{}

// Error implements the error interface.
func (e ErrRegistryParticipantNotFound) Error() string {
	return "participant not found"
}
