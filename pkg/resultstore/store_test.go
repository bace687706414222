package resultstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/netrecon/netrecon/pkg/recontypes"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "netrecon.db")
	s, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRowExistenceInvariant(t *testing.T) {
	s := openTestStore(t)

	rows := []recontypes.HostRecord{
		{HostID: "1.1.1.1", Ports: []int32{80, 443, 80}, Services: "http"},
	}
	_, err := s.SaveRows(rows)
	require.NoError(t, err)

	got, ok := s.GetRowByHost("1.1.1.1")
	require.True(t, ok)
	assert.Equal(t, rows[0], got)
}

func TestSubstringScanCompleteness(t *testing.T) {
	s := openTestStore(t)

	_, err := s.SaveRows([]recontypes.HostRecord{
		{HostID: "a", Ports: []int32{22, 80}, Services: ""},
		{HostID: "b", Ports: []int32{443}, Services: ""},
	})
	require.NoError(t, err)

	byPort80 := s.GetRowsByPort("80")
	require.Len(t, byPort80, 1)
	assert.Equal(t, "a", byPort80[0].HostID)

	byPort4 := s.GetRowsByPort("4")
	require.Len(t, byPort4, 1)
	assert.Equal(t, "b", byPort4[0].HostID)
}

func TestSubstringMatchesAcrossTokens(t *testing.T) {
	s := openTestStore(t)

	_, err := s.SaveRows([]recontypes.HostRecord{
		{HostID: "h", Ports: []int32{80, 8080}, Services: ""},
	})
	require.NoError(t, err)

	rows := s.GetRowsByPort("80")
	require.Len(t, rows, 1)
	assert.Equal(t, []int32{80, 8080}, rows[0].Ports)
}

func TestEmptySubstringMatchesEverything(t *testing.T) {
	s := openTestStore(t)

	_, err := s.SaveRows([]recontypes.HostRecord{
		{HostID: "a", Services: "http"},
		{HostID: "b", Services: "ssh"},
	})
	require.NoError(t, err)

	rows := s.GetRowsByService("")
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].HostID)
	assert.Equal(t, "b", rows[1].HostID)
}

func TestIdempotentPersistence(t *testing.T) {
	s := openTestStore(t)

	rows := []recontypes.HostRecord{
		{HostID: "a", Ports: []int32{22}, Services: "ssh"},
	}
	_, err := s.SaveRows(rows)
	require.NoError(t, err)
	_, err = s.SaveRows(rows)
	require.NoError(t, err)

	got, ok := s.GetRowByHost("a")
	require.True(t, ok)
	assert.Equal(t, rows[0], got)

	all := s.GetRowsByPort("")
	assert.Len(t, all, 1)
}

func TestGetRowByHostAbsent(t *testing.T) {
	s := openTestStore(t)
	_, ok := s.GetRowByHost("missing")
	assert.False(t, ok)
}

func TestAddPingResultsOnlyPersistsUpHosts(t *testing.T) {
	s := openTestStore(t)

	err := s.AddPingResults([]recontypes.PingResult{
		{Host: "up", IsUp: true},
		{Host: "down", IsUp: false},
	})
	require.NoError(t, err)

	_, ok := s.GetRowByHost("up")
	assert.True(t, ok)
	_, ok = s.GetRowByHost("down")
	assert.False(t, ok)
}
