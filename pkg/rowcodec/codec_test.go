package rowcodec

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netrecon/netrecon/pkg/recontypes"
)

func TestRoundTrip(t *testing.T) {
	cases := []recontypes.HostRecord{
		{HostID: "1.1.1.1", Ports: []int32{80, 443, 80}, Services: "http"},
		{HostID: "::1", Ports: nil, Services: ""},
		{HostID: "10.0.0.5", Ports: []int32{22}, Services: "22/ssh"},
	}

	for _, c := range cases {
		enc := Encode(c)
		got, ok := Decode(c.HostID, enc)
		require.True(t, ok)
		if diff := cmp.Diff(c, got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestDecodeAbsentCases(t *testing.T) {
	_, ok := Decode("x", nil)
	assert.False(t, ok)

	_, ok = Decode("x", []byte{0x02, 0x00})
	assert.False(t, ok)

	// field count says 2 but only one length-prefixed field follows, and
	// that prefix overruns the remaining buffer.
	short := []byte{0x02, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x7f}
	_, ok = Decode("x", short)
	assert.False(t, ok)
}

func TestDecodeLossyUTF8(t *testing.T) {
	enc := Encode(recontypes.HostRecord{HostID: "h", Ports: []int32{80}, Services: "ok"})
	// Corrupt the services field payload with an invalid UTF-8 byte.
	enc[len(enc)-1] = 0xff

	got, ok := Decode("h", enc)
	require.True(t, ok)
	assert.Equal(t, []int32{80}, got.Ports)
	assert.Contains(t, got.Services, "�")
}
