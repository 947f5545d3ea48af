// Package multicast contains multicast connections.
package multicast

import (
	"net"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/net/ipv4"
)

const (
	// same TTL as most RTP tools
	multicastTTL = 16
)

// Conn is a multicast connection that works on a single interface.
// Packets sent by the connection are not looped back to it.
type Conn struct {
	addr   *net.UDPAddr
	conn   *net.UDPConn
	connIP *ipv4.PacketConn
}

// Listen allocates a multicast connection, bound to the port of address
// and joined to its group.
// If intf is nil, the interface is chosen by the system.
func Listen(
	intf *net.Interface,
	address string,
	listenPacket func(network, address string) (net.PacketConn, error),
) (*Conn, error) {
	addr, err := net.ResolveUDPAddr("udp4", address)
	if err != nil {
		return nil, err
	}

	if !addr.IP.IsMulticast() {
		return nil, &net.AddrError{Err: "not a multicast address", Addr: address}
	}

	// binding to the group address filters out other traffic, but is not supported everywhere.
	tmp, err := listenPacket("udp4", addr.String())
	if err != nil {
		tmp, err = listenPacket("udp4", "0.0.0.0:"+strconv.FormatInt(int64(addr.Port), 10))
		if err != nil {
			return nil, err
		}
	}
	conn := tmp.(*net.UDPConn)

	connIP := ipv4.NewPacketConn(conn)

	err = connIP.JoinGroup(intf, &net.UDPAddr{IP: addr.IP})
	if err != nil {
		conn.Close() //nolint:errcheck
		return nil, err
	}

	if intf != nil {
		err = connIP.SetMulticastInterface(intf)
		if err != nil {
			conn.Close() //nolint:errcheck
			return nil, err
		}
	}

	err = connIP.SetMulticastTTL(multicastTTL)
	if err != nil {
		conn.Close() //nolint:errcheck
		return nil, err
	}

	err = connIP.SetMulticastLoopback(false)
	if err != nil {
		conn.Close() //nolint:errcheck
		return nil, err
	}

	return &Conn{
		addr:   addr,
		conn:   conn,
		connIP: connIP,
	}, nil
}

// GroupAddr returns the address of the multicast group.
func (c *Conn) GroupAddr() *net.UDPAddr {
	return c.addr
}

// Close implements net.PacketConn.
func (c *Conn) Close() error {
	c.connIP.LeaveGroup(nil, &net.UDPAddr{IP: c.addr.IP}) //nolint:errcheck
	return c.conn.Close()
}

// SetReadBuffer sets the size of the operating system's receive buffer.
func (c *Conn) SetReadBuffer(bytes int) error {
	return c.conn.SetReadBuffer(bytes)
}

// LocalAddr implements net.PacketConn.
func (c *Conn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// SetDeadline implements net.PacketConn.
func (c *Conn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// SetReadDeadline implements net.PacketConn.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline implements net.PacketConn.
func (c *Conn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

// WriteTo implements net.PacketConn.
func (c *Conn) WriteTo(b []byte, addr net.Addr) (int, error) {
	return c.conn.WriteTo(b, addr)
}

// ReadFrom implements net.PacketConn.
func (c *Conn) ReadFrom(b []byte) (int, net.Addr, error) {
	return c.conn.ReadFrom(b)
}

// SyscallConn returns a raw network connection.
func (c *Conn) SyscallConn() (syscall.RawConn, error) {
	return c.conn.SyscallConn()
}
