// Package readbuffer contains a function to set the read buffer size of a UDP socket.
package readbuffer

import (
	"net"
	"strconv"
	"syscall"
)

// PacketConn is a packet connection that exposes its file descriptor.
type PacketConn interface {
	net.PacketConn
	SyscallConn() (syscall.RawConn, error)
}

// ErrSizeNotApplied is returned when the operating system refuses the requested size.
type ErrSizeNotApplied struct {
	Requested int
	Applied   int
}

// Error implements the error interface.
func (e ErrSizeNotApplied) Error() string {
	return "unable to set read buffer size to " + strconv.Itoa(e.Requested) +
		" (got " + strconv.Itoa(e.Applied) + "), check that the operating system allows that"
}

// Set sets the read buffer size of the connection and checks that it was applied.
func Set(pc PacketConn, size int) error {
	rawConn, err := pc.SyscallConn()
	if err != nil {
		return err
	}

	var applied int
	var err2 error

	err = rawConn.Control(func(fd uintptr) {
		applied, err2 = setAndGet(fd, size)
	})
	if err != nil {
		return err
	}
	if err2 != nil {
		return err2
	}

	// Linux doubles the requested value to account for bookkeeping overhead.
	if applied < size {
		return ErrSizeNotApplied{Requested: size, Applied: applied}
	}

	return nil
}
