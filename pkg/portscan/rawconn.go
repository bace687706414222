package portscan

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/mdlayher/socket"
	"golang.org/x/sys/unix"
)

// tcpRecvBufferSize matches the TCP raw socket buffer size the resource
// model calls for.
const tcpRecvBufferSize = 65535

// senderConn is a raw IPPROTO_TCP socket with IP_HDRINCL set, so fully
// self-constructed IPv4+TCP packets (built with gopacket/layers) are sent
// as-is without the kernel rewriting the IP header.
type senderConn struct {
	c *socket.Conn
}

func newSenderConn() (*senderConn, error) {
	c, err := socket.Socket(unix.AF_INET, unix.SOCK_RAW, unix.IPPROTO_TCP, "netrecon-tcp-send", nil)
	if err != nil {
		return nil, fmt.Errorf("portscan: open raw TCP send socket: %w", err)
	}
	if err := c.SetsockoptInt(unix.IPPROTO_IP, unix.IP_HDRINCL, 1); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("portscan: set IP_HDRINCL: %w", err)
	}
	return &senderConn{c: c}, nil
}

func (s *senderConn) Close() error { return s.c.Close() }

func (s *senderConn) sendTo(ctx context.Context, packet []byte, dst netip.Addr) error {
	a4 := dst.As4()
	return s.c.Sendto(ctx, packet, 0, &unix.SockaddrInet4{Addr: a4})
}

// listenerConn is a second, read-only raw IPPROTO_TCP socket: the port
// core's listener opens its own packet source independent of the sender,
// per spec.md §4.4.
type listenerConn struct {
	c *socket.Conn
	b []byte
}

func newListenerConn() (*listenerConn, error) {
	c, err := socket.Socket(unix.AF_INET, unix.SOCK_RAW, unix.IPPROTO_TCP, "netrecon-tcp-listen", nil)
	if err != nil {
		return nil, fmt.Errorf("portscan: open raw TCP listen socket: %w", err)
	}
	return &listenerConn{c: c, b: make([]byte, tcpRecvBufferSize)}, nil
}

func (l *listenerConn) Close() error { return l.c.Close() }

// recv reads one IPv4 datagram (header included) off the wire.
func (l *listenerConn) recv(ctx context.Context) ([]byte, error) {
	n, _, err := l.c.Recvfrom(ctx, l.b, 0)
	if err != nil {
		return nil, err
	}
	return l.b[:n], nil
}
