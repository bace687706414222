package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestObservePortProbesSentReportsDelta(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.ObservePortProbesSent(3)
	r.ObservePortProbesSent(10)

	m := &dto.Metric{}
	require.NoError(t, r.portProbesSent.Write(m))
	require.Equal(t, float64(10), m.GetCounter().GetValue())
}

func TestObserveStoreSaveRecordsHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.ObserveStoreSave(50 * time.Millisecond)

	m := &dto.Metric{}
	require.NoError(t, r.storeSaveSecs.Write(m))
	require.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
}
