package reconiface

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualifiesAppliesFullPredicate(t *testing.T) {
	base := net.Interface{Index: 1, Flags: net.FlagUp | net.FlagRunning | net.FlagPointToPoint}

	assert.True(t, qualifies(base, nil))

	loopback := base
	loopback.Flags |= net.FlagLoopback
	assert.False(t, qualifies(loopback, nil))

	down := base
	down.Flags &^= net.FlagUp
	assert.False(t, qualifies(down, nil))

	notRunning := base
	notRunning.Flags &^= net.FlagRunning
	assert.False(t, qualifies(notRunning, nil))

	notP2P := base
	notP2P.Flags &^= net.FlagPointToPoint
	assert.False(t, qualifies(notP2P, nil))

	dormant := map[int]bool{1: true}
	assert.False(t, qualifies(base, dormant))
}

func TestFirstIPv4SkipsIPv6(t *testing.T) {
	addrs := []net.Addr{
		&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)},
		&net.IPNet{IP: net.ParseIP("10.0.0.5"), Mask: net.CIDRMask(24, 32)},
	}

	ip, ok := firstIPv4(addrs)
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.5", ip.String())
}

func TestFirstIPv4NoneFound(t *testing.T) {
	addrs := []net.Addr{
		&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)},
	}

	_, ok := firstIPv4(addrs)
	assert.False(t, ok)
}
