package gortp

import (
	"net"
	"strconv"
	"time"

	"github.com/bluenviron/gortp/pkg/multicast"
	"github.com/bluenviron/gortp/pkg/readbuffer"
)

func ptrOf[T any](v T) *T {
	return &v
}

// readFunc processes a datagram. It returns true when the buffer
// has been retained and a new one must be allocated.
type readFunc func(buf []byte, from *net.UDPAddr) bool

type packetConn interface {
	readbuffer.PacketConn
	SetReadBuffer(bytes int) error
}

type sessionUDPListener struct {
	s                  *Session
	multicast          bool
	multicastInterface *net.Interface
	address            string
	readFunc           readFunc

	pc        packetConn
	groupAddr *net.UDPAddr
	running   bool

	done chan struct{}
}

func (u *sessionUDPListener) initialize() error {
	if u.multicast {
		c, err := multicast.Listen(u.multicastInterface, u.address, u.s.ListenPacket)
		if err != nil {
			return err
		}
		u.pc = c
		u.groupAddr = c.GroupAddr()
	} else {
		tmp, err := u.s.ListenPacket("udp", u.address)
		if err != nil {
			return err
		}
		u.pc = tmp.(*net.UDPConn)
	}

	if u.s.UDPReadBufferSize != 0 {
		err := readbuffer.Set(u.pc, u.s.UDPReadBufferSize)
		if err != nil {
			u.pc.Close() //nolint:errcheck
			return err
		}
	} else {
		err := u.pc.SetReadBuffer(udpKernelReadBufferSize)
		if err != nil {
			u.pc.Close() //nolint:errcheck
			return err
		}
	}

	return nil
}

func (u *sessionUDPListener) close() {
	if u.running {
		u.stop()
	}
	u.pc.Close() //nolint:errcheck
}

func (u *sessionUDPListener) localAddr() *net.UDPAddr {
	return u.pc.LocalAddr().(*net.UDPAddr)
}

func (u *sessionUDPListener) port() int {
	return u.localAddr().Port
}

// isOwnAddress returns whether a datagram was sent by this listener.
func (u *sessionUDPListener) isOwnAddress(addr *net.UDPAddr) bool {
	local := u.localAddr()
	if addr.Port != local.Port {
		return false
	}
	if local.IP.IsUnspecified() {
		return addr.IP.IsLoopback()
	}
	return local.IP.Equal(addr.IP)
}

func (u *sessionUDPListener) start() {
	u.running = true
	u.pc.SetReadDeadline(time.Time{}) //nolint:errcheck
	u.done = make(chan struct{})
	go u.run()
}

func (u *sessionUDPListener) stop() {
	if u.running {
		u.pc.SetReadDeadline(time.Now()) //nolint:errcheck
		<-u.done
		u.running = false
	}
}

func (u *sessionUDPListener) run() {
	defer close(u.done)

	var buf []byte

	createNewBuffer := func() {
		buf = make([]byte, udpMaxPayloadSize+1)
	}

	createNewBuffer()

	for {
		n, addr, err := u.pc.ReadFrom(buf)
		if err != nil {
			if !u.s.ended.Load() {
				u.s.log.Debugf("read error on %v: %v", u.localAddr(), err)
			}
			return
		}

		uaddr := addr.(*net.UDPAddr)

		if u.isOwnAddress(uaddr) {
			continue
		}

		if u.readFunc(buf[:n], uaddr) {
			createNewBuffer()
		}
	}
}

func (u *sessionUDPListener) write(payload []byte, addr *net.UDPAddr) error {
	// no mutex is needed here since Write() has an internal lock.
	// https://github.com/golang/go/issues/27203#issuecomment-534386117
	u.pc.SetWriteDeadline(time.Now().Add(u.s.WriteTimeout)) //nolint:errcheck
	_, err := u.pc.WriteTo(payload, addr)
	return err
}

// rtcpAddressFor returns the default RTCP address that corresponds to a RTP address.
func rtcpAddressFor(rtpAddress string) (string, error) {
	host, portStr, err := net.SplitHostPort(rtpAddress)
	if err != nil {
		return "", err
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", err
	}

	if port == 0 {
		return net.JoinHostPort(host, "0"), nil
	}

	return net.JoinHostPort(host, strconv.Itoa(port+1)), nil
}
