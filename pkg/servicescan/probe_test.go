package servicescan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/netrecon/netrecon/pkg/recontypes"
)

func TestProbeKnownAndUnknownPorts(t *testing.T) {
	got := Probe(recontypes.ScanResult{IP: "10.0.0.5", OpenPorts: []int32{443, 22, 9999}})

	assert.Equal(t, "10.0.0.5", got.IP)
	assert.Equal(t, []int32{22, 443, 9999}, got.Ports)
	assert.Equal(t, "22/ssh;443/https;9999/unknown", got.Services)
}

func TestProbeNoOpenPorts(t *testing.T) {
	got := Probe(recontypes.ScanResult{IP: "10.0.0.6"})
	assert.Empty(t, got.Ports)
	assert.Equal(t, "", got.Services)
}
