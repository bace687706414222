// Package portscan implements the stateless TCP SYN scanner ("port
// core"): a raw-packet SYN-flood-style probe with a parallel listener
// classifying SYN+ACK responses per target.
//
// Packet construction is grounded in the teacher's own gopacket dependency:
// a full IPv4+TCP packet is built with gopacket/layers and serialized with
// checksums computed over the IPv4 pseudo-header, then sent through a raw
// IP_HDRINCL socket (see rawconn.go).
package portscan

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/netrecon/netrecon/pkg/recontypes"
)

const (
	// sendDelay paces probes; a progress counter advances by 1 per send.
	sendDelay = 100 * time.Microsecond

	// noBufferSpaceBackoff is how long the sender waits before retrying a
	// send that failed with ENOBUFS (errno 105), matching the original
	// implementation's unconditional recursive retry (see spec.md §9 —
	// a bounded retry is a documented future redesign target, not
	// implemented here).
	noBufferSpaceBackoff = 500 * time.Millisecond
)

// ProgressFunc is invoked once per probe sent, carrying the cumulative
// count; wired to internal/metrics' send counter by the orchestrator.
type ProgressFunc func(sent uint64)

// Scan probes the Cartesian product of targets x ports with a raw TCP SYN
// per pair, and returns one ScanResult per target (including targets with
// no open ports), deduplicated and ascending-sorted.
func Scan(ctx context.Context, targets []netip.Addr, ports []int32, timeout time.Duration, srcIP netip.Addr, log *zap.Logger, onProgress ProgressFunc) ([]recontypes.ScanResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if onProgress == nil {
		onProgress = func(uint64) {}
	}

	out := make([]recontypes.ScanResult, len(targets))
	for i, t := range targets {
		out[i] = recontypes.ScanResult{IP: t.String()}
	}
	if len(targets) == 0 || len(ports) == 0 {
		return out, nil
	}

	sender, err := newSenderConn()
	if err != nil {
		return nil, err
	}
	defer sender.Close()

	listener, err := newListenerConn()
	if err != nil {
		return nil, err
	}
	defer listener.Close()

	results := make(map[string][]int32, len(targets))
	var resMu sync.Mutex

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		listen(ctx, listener, timeout, &resMu, results, log)
	}()

	send(ctx, sender, targets, ports, srcIP, log, onProgress)

	wg.Wait()

	resMu.Lock()
	defer resMu.Unlock()
	for i, t := range targets {
		open := append([]int32(nil), results[t.String()]...)
		sort.Slice(open, func(a, b int) bool { return open[a] < open[b] })
		open = dedupSorted(open)
		out[i].OpenPorts = open
	}
	return out, nil
}

func send(ctx context.Context, sender *senderConn, targets []netip.Addr, ports []int32, srcIP netip.Addr, log *zap.Logger, onProgress ProgressFunc) {
	var sent uint64

	for _, target := range targets {
		if !target.Is4() {
			// This port core speaks IPv4 only, matching the scope of the
			// implementation it is grounded on.
			continue
		}

		for _, port := range ports {
			packet, err := buildSYN(srcIP, target, uint16(rand.Intn(65535)+1), uint16(port))
			if err != nil {
				log.Debug("failed to build SYN packet", zap.Error(err))
				continue
			}

			sendWithRetry(ctx, sender, packet, target, log)

			sent++
			onProgress(sent)
			time.Sleep(sendDelay)
		}
	}
}

// sendWithRetry mirrors the original implementation's handling of ENOBUFS:
// an unconditional, uncapped retry after a fixed backoff, written here as a
// loop rather than recursion. All other send errors are logged and the
// pair is skipped.
func sendWithRetry(ctx context.Context, sender *senderConn, packet []byte, target netip.Addr, log *zap.Logger) {
	for {
		err := sender.sendTo(ctx, packet, target)
		if err == nil {
			return
		}

		if errors.Is(err, unix.ENOBUFS) {
			time.Sleep(noBufferSpaceBackoff)
			continue
		}

		log.Debug("failed to send SYN packet", zap.Stringer("target", target), zap.Error(err))
		return
	}
}

func buildSYN(src, dst netip.Addr, srcPort, dstPort uint16) ([]byte, error) {
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    src.AsSlice(),
		DstIP:    dst.AsSlice(),
	}
	tcp := &layers.TCP{
		SrcPort:    layers.TCPPort(srcPort),
		DstPort:    layers.TCPPort(dstPort),
		Seq:        rand.Uint32(),
		Ack:        0,
		DataOffset: 5,
		SYN:        true,
		Window:     64240,
		Urgent:     0,
	}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, fmt.Errorf("portscan: set checksum network layer: %w", err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ip, tcp); err != nil {
		return nil, fmt.Errorf("portscan: serialize SYN packet: %w", err)
	}
	return buf.Bytes(), nil
}

func listen(ctx context.Context, l *listenerConn, timeout time.Duration, mu *sync.Mutex, results map[string][]int32, log *zap.Logger) {
	deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		raw, err := l.recv(deadlineCtx)
		if err != nil {
			return
		}

		srcIP, srcPort, ok := parseSYNACK(raw)
		if !ok {
			continue
		}

		mu.Lock()
		results[srcIP] = append(results[srcIP], int32(srcPort))
		mu.Unlock()
	}
}

// parseSYNACK parses a raw IPv4 datagram and returns the responding host's
// address and the port it replied from, only when the TCP flags are
// exactly SYN|ACK (any other combination, including SYN|ACK|ECE etc., is
// ignored per spec.md §4.4).
func parseSYNACK(raw []byte) (string, uint16, bool) {
	packet := gopacket.NewPacket(raw, layers.LayerTypeIPv4, gopacket.NoCopy)

	ipLayer := packet.Layer(layers.LayerTypeIPv4)
	tcpLayer := packet.Layer(layers.LayerTypeTCP)
	if ipLayer == nil || tcpLayer == nil {
		return "", 0, false
	}

	ip, _ := ipLayer.(*layers.IPv4)
	tcp, _ := tcpLayer.(*layers.TCP)

	if !tcp.SYN || !tcp.ACK {
		return "", 0, false
	}
	if tcp.FIN || tcp.RST || tcp.PSH || tcp.URG || tcp.ECE || tcp.CWR || tcp.NS {
		return "", 0, false
	}

	return ip.SrcIP.String(), uint16(tcp.SrcPort), true
}

func dedupSorted(sorted []int32) []int32 {
	if len(sorted) == 0 {
		return sorted
	}
	out := sorted[:1]
	for _, p := range sorted[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}
