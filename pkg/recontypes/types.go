// Package recontypes holds the transient and persisted data shapes shared
// across the ping, port, service, and store stages of a recon run.
package recontypes

import "time"

// HostRecord is the only entity the result store persists. Ports are
// expected to arrive deduplicated and sorted ascending by the producing
// stage; the store itself does not enforce that.
type HostRecord struct {
	HostID   string
	Ports    []int32
	Services string
}

// PingResult is the sparse, transient output of one ping sweep. Hosts with
// no reply and no send error never appear.
type PingResult struct {
	Host         string
	IsUp         bool
	ResponseTime time.Duration
}

// ScanResult is the transient output of one port-scan invocation, one per
// input target, always present regardless of whether any port was open.
type ScanResult struct {
	IP        string
	OpenPorts []int32
}

// ToDatabase projects a ScanResult into a HostRecord with an empty services
// column, per the port-scan collaborator contract.
func (r ScanResult) ToDatabase() HostRecord {
	return HostRecord{
		HostID:   r.IP,
		Ports:    append([]int32(nil), r.OpenPorts...),
		Services: "",
	}
}

// ServiceScanResult is the transient output of the service-probing
// collaborator: whatever ports it measured, plus the services blob it
// derived for them.
type ServiceScanResult struct {
	IP       string
	Ports    []int32
	Services string
}

// ToDatabase projects a ServiceScanResult into a HostRecord, per the
// service-scan collaborator contract.
func (r ServiceScanResult) ToDatabase() HostRecord {
	return HostRecord{
		HostID:   r.IP,
		Ports:    append([]int32(nil), r.Ports...),
		Services: r.Services,
	}
}
