package pingscan

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/mdlayher/socket"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"
)

// rawConn wraps a raw IPPROTO_ICMP socket, mirroring the style
// mdlayher-icmpx's listenIPv4/IPv4Conn uses: a single
// github.com/mdlayher/socket.Conn carrying raw bytes, with ICMPv4 framing
// handled a layer up by golang.org/x/net/icmp.
type rawConn struct {
	c *socket.Conn
	b []byte
}

const icmpRecvBufferSize = 1024

func newRawConn() (*rawConn, error) {
	c, err := socket.Socket(unix.AF_INET, unix.SOCK_RAW, unix.IPPROTO_ICMP, "netrecon-icmp", nil)
	if err != nil {
		return nil, fmt.Errorf("pingscan: open raw ICMP socket: %w", err)
	}
	return &rawConn{c: c, b: make([]byte, icmpRecvBufferSize)}, nil
}

func (r *rawConn) Close() error {
	return r.c.Close()
}

func (r *rawConn) sendTo(ctx context.Context, b []byte, dst netip.Addr) error {
	return r.c.Sendto(ctx, b, 0, toSockaddr(dst))
}

// recvFrom reads one datagram, stripping the IPv4 header the kernel
// prepends to raw ICMP reads, and returns the parsed ICMP message.
func (r *rawConn) recvFrom(ctx context.Context) (*icmp.Message, error) {
	n, _, err := r.c.Recvfrom(ctx, r.b, 0)
	if err != nil {
		return nil, err
	}

	h, err := ipv4.ParseHeader(r.b[:n])
	if err != nil {
		return nil, fmt.Errorf("pingscan: parse IPv4 header: %w", err)
	}
	if h.Len > n {
		return nil, fmt.Errorf("pingscan: truncated IPv4 header")
	}

	return icmp.ParseMessage(unix.IPPROTO_ICMP, r.b[h.Len:n])
}

func toSockaddr(addr netip.Addr) unix.Sockaddr {
	a4 := addr.As4()
	return &unix.SockaddrInet4{Addr: a4}
}
