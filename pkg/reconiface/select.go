// Package reconiface selects the local datalink interface the port core
// sends SYN probes from, and resolves its source IPv4 address.
//
// The "not dormant" predicate has no exposure via the standard net package
// (net.Interface.Flags exposes up/broadcast/loopback/point-to-point/
// multicast/running, not dormant), so the dormant flag is read over netlink, in the style
// mdlayher-icmpx uses to talk to the kernel for link-level details.
package reconiface

import (
	"errors"
	"fmt"
	"net"

	"github.com/jsimonetti/rtnetlink"
)

// ifLinkDormant is IFF_DORMANT from Linux's if_link.h (0x20000), not part
// of net.Interface.Flags.
const ifLinkDormant = 0x20000

// ErrNoInterface is returned when no local interface satisfies the
// selection predicate, or the winning interface carries no IPv4 address.
var ErrNoInterface = errors.New("reconiface: no suitable interface found")

// Select picks the first local datalink interface that is up, not
// loopback, not dormant, running, point-to-point, and has at least one
// address, then returns its first IPv4 address as the scan's source IP.
// Failure to find either is fatal, per the port core's contract.
func Select() (net.Interface, net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return net.Interface{}, nil, fmt.Errorf("reconiface: list interfaces: %w", err)
	}

	dormant, err := dormantSet()
	if err != nil {
		return net.Interface{}, nil, fmt.Errorf("reconiface: query link state: %w", err)
	}

	for _, ifi := range ifaces {
		if !qualifies(ifi, dormant) {
			continue
		}

		addrs, err := ifi.Addrs()
		if err != nil || len(addrs) == 0 {
			continue
		}

		if ip, ok := firstIPv4(addrs); ok {
			return ifi, ip, nil
		}
	}

	return net.Interface{}, nil, ErrNoInterface
}

func qualifies(ifi net.Interface, dormant map[int]bool) bool {
	if ifi.Flags&net.FlagUp == 0 {
		return false
	}
	if ifi.Flags&net.FlagLoopback != 0 {
		return false
	}
	if ifi.Flags&net.FlagRunning == 0 {
		return false
	}
	if ifi.Flags&net.FlagPointToPoint == 0 {
		return false
	}
	if dormant[ifi.Index] {
		return false
	}
	return true
}

func firstIPv4(addrs []net.Addr) (net.IP, bool) {
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, true
		}
	}
	return nil, false
}

// dormantSet returns the set of interface indexes currently carrying
// IFF_DORMANT, as reported by the kernel over netlink.
func dormantSet() (map[int]bool, error) {
	conn, err := rtnetlink.Dial(nil)
	if err != nil {
		return nil, fmt.Errorf("dial rtnetlink: %w", err)
	}
	defer conn.Close()

	links, err := conn.Link.List()
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	dormant := make(map[int]bool, len(links))
	for _, l := range links {
		if l.Flags&ifLinkDormant != 0 {
			dormant[int(l.Index)] = true
		}
	}
	return dormant, nil
}
