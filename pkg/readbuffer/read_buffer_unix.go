//go:build !windows

package readbuffer

import "syscall"

func setAndGet(fd uintptr, size int) (int, error) {
	err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_RCVBUF, size)
	if err != nil {
		return 0, err
	}

	return syscall.GetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_RCVBUF)
}
