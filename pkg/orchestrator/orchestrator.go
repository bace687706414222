// Package orchestrator sequences the ping, port, and service stages and
// persists each stage's output, keyed by host. Every stage's failure is
// fatal to the run; there is no partial-success recovery.
package orchestrator

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"go.uber.org/zap"

	"github.com/netrecon/netrecon/pkg/pingscan"
	"github.com/netrecon/netrecon/pkg/portscan"
	"github.com/netrecon/netrecon/pkg/reconiface"
	"github.com/netrecon/netrecon/pkg/recontypes"
	"github.com/netrecon/netrecon/pkg/resultstore"
	"github.com/netrecon/netrecon/pkg/servicescan"
)

// Metrics is the subset of internal/metrics the orchestrator reports
// through, kept as an interface so pkg/orchestrator has no import-time
// dependency on the concrete Prometheus registry.
type Metrics interface {
	ObservePingReplies(n int)
	ObserveOpenPorts(n int)
	ObserveStoreSave(d time.Duration)
	ObservePortProbesSent(n uint64)
}

type noopMetrics struct{}

func (noopMetrics) ObservePingReplies(int)          {}
func (noopMetrics) ObserveOpenPorts(int)             {}
func (noopMetrics) ObserveStoreSave(time.Duration)   {}
func (noopMetrics) ObservePortProbesSent(uint64)     {}

// Config bounds one run: the target set, the port list for the port core,
// and the caller-supplied port-scan timeout (the ping drain window is
// fixed at 3s per pingscan's own contract).
type Config struct {
	Targets       []netip.Addr
	Ports         []int32
	PortScanTimeout time.Duration
}

// Run executes ping -> filter-up -> port scan -> service scan -> persist
// against store, logging and reporting metrics at each stage.
func Run(ctx context.Context, cfg Config, store *resultstore.Store, log *zap.Logger, metrics Metrics) error {
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	store.OnSave(metrics.ObserveStoreSave)

	log.Info("starting ping sweep", zap.Int("targets", len(cfg.Targets)))
	pingResults, err := pingscan.Scan(ctx, cfg.Targets, log)
	if err != nil {
		return fmt.Errorf("orchestrator: ping stage: %w", err)
	}
	metrics.ObservePingReplies(len(pingResults))

	if err := store.AddPingResults(pingResults); err != nil {
		return fmt.Errorf("orchestrator: persist ping results: %w", err)
	}

	upTargets := upHosts(pingResults)
	log.Info("ping sweep complete", zap.Int("up", len(upTargets)))
	if len(upTargets) == 0 {
		return nil
	}

	iface, srcIP, err := reconiface.Select()
	if err != nil {
		return fmt.Errorf("orchestrator: interface selection: %w", err)
	}
	srcAddr, ok := netip.AddrFromSlice(srcIP)
	if !ok {
		return fmt.Errorf("orchestrator: invalid source IP from interface %s", iface.Name)
	}
	srcAddr = srcAddr.Unmap()

	log.Info("starting port scan", zap.String("interface", iface.Name), zap.Stringer("source_ip", srcAddr))
	portResults, err := portscan.Scan(ctx, upTargets, cfg.Ports, cfg.PortScanTimeout, srcAddr, log, func(sent uint64) {
		metrics.ObservePortProbesSent(sent)
	})
	if err != nil {
		return fmt.Errorf("orchestrator: port scan stage: %w", err)
	}

	openTotal := 0
	for _, r := range portResults {
		openTotal += len(r.OpenPorts)
	}
	metrics.ObserveOpenPorts(openTotal)

	if err := store.AddTCPResults(portResults); err != nil {
		return fmt.Errorf("orchestrator: persist port scan results: %w", err)
	}

	log.Info("starting service scan", zap.Int("hosts", len(portResults)))
	serviceResults := make([]recontypes.ServiceScanResult, len(portResults))
	for i, r := range portResults {
		serviceResults[i] = servicescan.Probe(r)
	}

	if err := store.AddServiceResults(serviceResults); err != nil {
		return fmt.Errorf("orchestrator: persist service scan results: %w", err)
	}

	log.Info("recon run complete", zap.Int("hosts_persisted", len(portResults)))
	return nil
}

func upHosts(results []recontypes.PingResult) []netip.Addr {
	out := make([]netip.Addr, 0, len(results))
	for _, r := range results {
		if !r.IsUp {
			continue
		}
		addr, err := netip.ParseAddr(r.Host)
		if err != nil {
			continue
		}
		out = append(out, addr)
	}
	return out
}
