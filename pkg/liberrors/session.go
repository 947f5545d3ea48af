// Package liberrors contains errors returned by the library.
package liberrors

import (
	"fmt"
)

// ErrSessionTerminated is returned when the session has been closed.
type ErrSessionTerminated struct{}

// Error implements the error interface.
func (e ErrSessionTerminated) Error() string {
	return "terminated"
}

// ErrSessionAlreadyRegistered is returned when Register() is called twice.
type ErrSessionAlreadyRegistered struct{}

// Error implements the error interface.
func (e ErrSessionAlreadyRegistered) Error() string {
	return "a handler is already registered"
}

// ErrSessionNotRegistered is returned when an operation requires a registered handler.
type ErrSessionNotRegistered struct{}

// Error implements the error interface.
func (e ErrSessionNotRegistered) Error() string {
	return "no handler registered"
}

// ErrSessionConflictInProgress is returned while a SSRC conflict is being resolved.
type ErrSessionConflictInProgress struct{}

// Error implements the error interface.
func (e ErrSessionConflictInProgress) Error() string {
	return "SSRC conflict resolution in progress"
}

// ErrSessionTooManyConflicts is reported when the session is terminated
// because of repeated SSRC conflicts.
type ErrSessionTooManyConflicts struct {
	Count int
}

// Error implements the error interface.
func (e ErrSessionTooManyConflicts) Error() string {
	return fmt.Sprintf("detected %d SSRC conflicts, assuming a network loop", e.Count)
}

// ErrSessionInvalidBandwidth is returned when a bandwidth is less than 1.
type ErrSessionInvalidBandwidth struct {
	Value int
}

// Error implements the error interface.
func (e ErrSessionInvalidBandwidth) Error() string {
	return fmt.Sprintf("invalid bandwidth: %d", e.Value)
}

// ErrSessionNoPayloads is returned when Send() is called without payloads.
type ErrSessionNoPayloads struct{}

// Error implements the error interface.
func (e ErrSessionNoPayloads) Error() string {
	return "no payloads provided"
}

// ErrSessionInvalidOptions is returned when send options do not match the payloads.
type ErrSessionInvalidOptions struct {
	Reason string
}

// Error implements the error interface.
func (e ErrSessionInvalidOptions) Error() string {
	return "invalid send options: " + e.Reason
}

// ErrSessionAppInvalidSubtype is returned when an APP subtype does not fit in 5 bits.
type ErrSessionAppInvalidSubtype struct {
	Subtype uint8
}

// Error implements the error interface.
func (e ErrSessionAppInvalidSubtype) Error() string {
	return fmt.Sprintf("invalid APP subtype: %d", e.Subtype)
}

// ErrSessionAppInvalidName is returned when an APP name is not 4 bytes long.
type ErrSessionAppInvalidName struct {
	Name string
}

// Error implements the error interface.
func (e ErrSessionAppInvalidName) Error() string {
	return fmt.Sprintf("invalid APP name '%s': must be 4 bytes long", e.Name)
}

// ErrSessionAppInvalidData is returned when APP data is not a multiple of 4 bytes.
type ErrSessionAppInvalidData struct {
	Len int
}

// Error implements the error interface.
func (e ErrSessionAppInvalidData) Error() string {
	return fmt.Sprintf("invalid APP data length %d: must be a multiple of 4", e.Len)
}

// ErrSessionInvalidAddress is returned when a local address cannot be used.
type ErrSessionInvalidAddress struct {
	Address string
	Err     error
}

// Error implements the error interface.
func (e ErrSessionInvalidAddress) Error() string {
	return fmt.Sprintf("invalid address '%s': %v", e.Address, e.Err)
}

// Unwrap returns the underlying error.
func (e ErrSessionInvalidAddress) Unwrap() error {
	return e.Err
}
