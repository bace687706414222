// Package pingscan implements the asynchronous ICMP echo scanner ("ping
// core"): concurrent send/receive on a single raw ICMP socket with
// identifier-based response correlation and a bounded drain phase.
//
// Raw-socket style is grounded in mdlayher-icmpx's conn_linux.go: a raw
// IPPROTO_ICMP socket opened via github.com/mdlayher/socket, with message
// framing handled by golang.org/x/net/icmp.
package pingscan

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/netrecon/netrecon/pkg/recontypes"
)

var errNotIPv4 = errors.New("pingscan: only IPv4 targets are supported")

const (
	// drainWindow is the only timeout lever: once sending finishes, the
	// receiver keeps polling for this long before giving up on further
	// replies.
	drainWindow = 3 * time.Second

	// sendDelay is a coarse pacing throttle between probes; there is no
	// per-second rate target.
	sendDelay = 500 * time.Nanosecond

	// recvPollTimeout bounds each individual receive attempt so the
	// receiver loop can re-check the drain deadline regularly.
	recvPollTimeout = time.Millisecond
)

// phase models the sender/receiver handoff as an explicit two-phase state
// machine (sending -> draining(until) -> done) rather than a bare boolean,
// per the redesign note in spec.md §9: the latched-deadline idiom is
// preserved (the sender stores the drain deadline once, just before it
// moves the state out of sending; the receiver only reads it).
type phase uint32

const (
	phaseSending phase = iota
	phaseDraining
	phaseDone
)

// Scan runs one ping sweep over targets and returns every reply collected
// within the drain window, in arrival order. Targets must not exceed
// 65536 entries (the identifier space); larger inputs are a caller
// validation concern outside this scanner.
func Scan(ctx context.Context, targets []netip.Addr, log *zap.Logger) ([]recontypes.PingResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(targets) == 0 {
		return nil, nil
	}

	conn, err := newRawConn()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	s := &sweep{
		conn:    conn,
		targets: targets,
		ids:     make(map[uint16]netip.Addr, len(targets)),
		seenUp:  make(map[string]bool, len(targets)),
		log:     log,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.send() }()
	go func() { defer wg.Done(); s.receive(ctx) }()
	wg.Wait()

	return s.results, nil
}

type sweep struct {
	conn    *rawConn
	targets []netip.Addr

	idMu sync.Mutex
	ids  map[uint16]netip.Addr

	resMu   sync.Mutex
	results []recontypes.PingResult
	seenUp  map[string]bool

	state        atomic.Uint32 // phase
	drainUntilNS atomic.Int64

	log *zap.Logger
}

func (s *sweep) send() {
	start := time.Now()
	ctx := context.Background()

	for i, target := range s.targets {
		id := uint16(i)

		s.idMu.Lock()
		s.ids[id] = target
		s.idMu.Unlock()

		var err error
		if !target.Is4() {
			// This ping core speaks ICMPv4 over a single raw socket only,
			// matching the scope of the implementation it is grounded on.
			err = errNotIPv4
		} else {
			msg := icmp.Message{
				Type: ipv4.ICMPTypeEcho,
				Code: 0,
				Body: &icmp.Echo{ID: 0, Seq: int(id), Data: nil},
			}
			b, marshalErr := msg.Marshal(nil)
			err = marshalErr
			if err == nil {
				err = s.conn.sendTo(ctx, b, target)
			}
		}
		if err != nil {
			s.log.Debug("ping send failed", zap.Stringer("host", target), zap.Error(err))
			s.appendResult(recontypes.PingResult{Host: target.String(), IsUp: false})
		}

		time.Sleep(sendDelay)
	}

	s.log.Debug("ping sweep finished sending", zap.Duration("elapsed", time.Since(start)))
	s.drainUntilNS.Store(time.Now().Add(drainWindow).UnixNano())
	s.state.Store(uint32(phaseDraining))
}

func (s *sweep) receive(ctx context.Context) {
	start := time.Now()

	for {
		if phase(s.state.Load()) == phaseDraining && time.Now().UnixNano() >= s.drainUntilNS.Load() {
			return
		}

		recvCtx, cancel := context.WithTimeout(ctx, recvPollTimeout)
		msg, err := s.conn.recvFrom(recvCtx)
		cancel()
		if err != nil {
			continue
		}

		echo, ok := msg.Body.(*icmp.Echo)
		if msg.Type != ipv4.ICMPTypeEchoReply || !ok {
			continue
		}

		id := uint16(echo.Seq)
		s.idMu.Lock()
		host, known := s.ids[id]
		s.idMu.Unlock()
		if !known {
			// Discarded: a reply whose identifier hasn't been registered
			// yet can only happen under sender/receiver lock contention;
			// any physical reply implies the send already happened.
			continue
		}

		s.appendUpResult(host, time.Since(start))
	}
}

func (s *sweep) appendResult(r recontypes.PingResult) {
	s.resMu.Lock()
	defer s.resMu.Unlock()
	s.results = append(s.results, r)
}

// appendUpResult enforces "first reply wins": a host that has already been
// recorded as up is not appended again.
func (s *sweep) appendUpResult(host netip.Addr, rtt time.Duration) {
	key := host.String()

	s.resMu.Lock()
	defer s.resMu.Unlock()
	if s.seenUp[key] {
		return
	}
	s.seenUp[key] = true
	s.results = append(s.results, recontypes.PingResult{Host: key, IsUp: true, ResponseTime: rtt})
}
