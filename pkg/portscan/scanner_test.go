package portscan

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func requireRawTCP(t *testing.T) {
	t.Helper()
	conn, err := newSenderConn()
	if err != nil {
		t.Skipf("skipping, raw TCP socket unavailable: %v", err)
	}
	_ = conn.Close()
}

func TestScanEmptyTargets(t *testing.T) {
	results, err := Scan(context.Background(), nil, []int32{80}, time.Second, netip.MustParseAddr("0.0.0.0"), zap.NewNop(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestScanEmptyPortsYieldsOneEmptyRecordPerTarget(t *testing.T) {
	targets := []netip.Addr{netip.MustParseAddr("10.0.0.5"), netip.MustParseAddr("10.0.0.6")}
	results, err := Scan(context.Background(), targets, nil, time.Second, netip.MustParseAddr("0.0.0.0"), zap.NewNop(), nil)
	require.NoError(t, err)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Empty(t, r.OpenPorts)
	}
}

func TestDedupSorted(t *testing.T) {
	assert.Equal(t, []int32{22, 80, 443}, dedupSorted([]int32{22, 22, 80, 443, 443}))
	assert.Equal(t, []int32{}, dedupSorted([]int32{}))
	assert.Equal(t, []int32{80}, dedupSorted([]int32{80, 80}))
}

func TestBuildSYNProducesValidIPv4TCPHeader(t *testing.T) {
	packet, err := buildSYN(
		netip.MustParseAddr("10.0.0.1"),
		netip.MustParseAddr("10.0.0.5"),
		12345,
		80,
	)
	require.NoError(t, err)
	assert.Len(t, packet, 40) // 20-byte IPv4 header + 20-byte TCP header, no options

	srcIP, srcPort, ok := parseSYNACKForTest(t, packet)
	_ = srcIP
	_ = srcPort
	// A bare SYN (not SYN|ACK) must never classify as an open-port signal.
	assert.False(t, ok)
}

// parseSYNACKForTest exercises the unexported parser directly from within
// the package; kept as a helper so the intent reads clearly at call sites.
func parseSYNACKForTest(t *testing.T, raw []byte) (string, uint16, bool) {
	t.Helper()
	return parseSYNACK(raw)
}

func TestRawSocketsRequirePrivilege(t *testing.T) {
	requireRawTCP(t)
}
