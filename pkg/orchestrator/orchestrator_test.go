package orchestrator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/netrecon/netrecon/pkg/resultstore"
)

func TestRunWithNoTargetsIsANoop(t *testing.T) {
	store, err := resultstore.Open(filepath.Join(t.TempDir(), "netrecon.db"), zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	err = Run(context.Background(), Config{}, store, zap.NewNop(), nil)
	require.NoError(t, err)

	rows := store.GetRowsByPort("")
	require.Empty(t, rows)
}
