package command

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/netrecon/netrecon/internal/logger"
	"github.com/netrecon/netrecon/internal/metrics"
	"github.com/netrecon/netrecon/pkg/orchestrator"
	"github.com/netrecon/netrecon/pkg/resultstore"
)

func newScanCommand(flags *pflag.FlagSet) *cobra.Command {
	var targets string
	var ports string
	var portTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Ping-sweep, SYN-scan, and persist a target set",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if portTimeout > 0 {
				cfg.PortScanTimeout = portTimeout
			}

			log, err := logger.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			addrs, err := parseTargets(targets)
			if err != nil {
				return err
			}
			portList, err := parsePorts(ports)
			if err != nil {
				return err
			}

			store, err := resultstore.Open(cfg.StorePath, log)
			if err != nil {
				return err
			}
			defer store.Close()

			reg := prometheus.NewRegistry()
			m := metrics.New(reg)

			return orchestrator.Run(cmd.Context(), orchestrator.Config{
				Targets:         addrs,
				Ports:           portList,
				PortScanTimeout: cfg.PortScanTimeout,
			}, store, log, m)
		},
	}

	cmd.Flags().StringVar(&targets, "targets", "", "comma-separated list of IPv4 targets")
	cmd.Flags().StringVar(&ports, "ports", "", "comma-separated list of TCP ports")
	cmd.Flags().DurationVar(&portTimeout, "port-timeout", 0, "port-scan listener timeout (overrides config)")
	_ = cmd.MarkFlagRequired("targets")
	_ = cmd.MarkFlagRequired("ports")

	return cmd
}

func parseTargets(raw string) ([]netip.Addr, error) {
	parts := strings.Split(raw, ",")
	addrs := make([]netip.Addr, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		addr, err := netip.ParseAddr(p)
		if err != nil {
			return nil, fmt.Errorf("invalid target %q: %w", p, err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

func parsePorts(raw string) ([]int32, error) {
	parts := strings.Split(raw, ",")
	ports := make([]int32, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q: %w", p, err)
		}
		if n < 1 || n > 65535 {
			return nil, fmt.Errorf("port %d out of range [1, 65535]", n)
		}
		ports = append(ports, int32(n))
	}
	return ports, nil
}
