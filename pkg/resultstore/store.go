// Package resultstore persists HostRecords into a single embedded, ordered
// key-value file (bbolt), with three buckets mirroring the column-family
// layout the tuning contract describes: "default" (a presence set), and
// "ports"/"services" (column-scoped textual payloads). See SPEC_FULL.md §4.2
// for the mapping from the original LSM tuning contract onto bbolt.
package resultstore

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/netrecon/netrecon/pkg/recontypes"
)

const (
	bucketDefault  = "default"
	bucketPorts    = "ports"
	bucketServices = "services"

	// batchSize bounds how many rows go into a single bbolt transaction
	// (write batch) per the save_rows backbone contract.
	batchSize = 1000

	// initialMmapSize nudges bbolt to pre-grow its mmap instead of
	// incrementally remapping, the nearest analogue to the 512 MiB block
	// cache the original LSM tuning contract specifies.
	initialMmapSize = 512 << 20
)

// Store is a façade over one long-lived *bbolt.DB handle. Unlike the
// original discipline of opening the engine fresh per call, Store opens
// once (see Open) and every operation borrows that handle — opening bbolt
// per call is both expensive and, for a writer, exclusive at the process
// level.
type Store struct {
	db  *bbolt.DB
	log *zap.Logger

	// onSave, if set, is notified with the elapsed time of every
	// SaveRows commit — the save_rows observability contract, wired to
	// internal/metrics by the orchestrator without resultstore importing it.
	onSave func(time.Duration)
}

// Open opens (creating if necessary) the bbolt file at path and ensures the
// three buckets exist.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{
		Timeout:         time.Second,
		InitialMmapSize: initialMmapSize,
	})
	if err != nil {
		return nil, fmt.Errorf("resultstore: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{bucketDefault, bucketPorts, bucketServices} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("resultstore: init buckets: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// OnSave registers a callback invoked with the elapsed time of every
// SaveRows commit, for observability wiring.
func (s *Store) OnSave(fn func(time.Duration)) {
	s.onSave = fn
}

// Close releases the underlying file handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddPingResults upserts one empty-columns row per reachable host.
func (s *Store) AddPingResults(results []recontypes.PingResult) error {
	rows := make([]recontypes.HostRecord, 0, len(results))
	for _, r := range results {
		if !r.IsUp {
			continue
		}
		rows = append(rows, recontypes.HostRecord{HostID: r.Host})
	}
	_, err := s.SaveRows(rows)
	return err
}

// AddTCPResults upserts a full row per host from port-scan output: the
// ports column takes the open ports and the services column is reset to
// empty.
func (s *Store) AddTCPResults(results []recontypes.ScanResult) error {
	rows := make([]recontypes.HostRecord, len(results))
	for i, r := range results {
		rows[i] = r.ToDatabase()
	}
	_, err := s.SaveRows(rows)
	return err
}

// AddServiceResults upserts a full row per host from service-scan output:
// both the ports and the services columns take the prober's values.
func (s *Store) AddServiceResults(results []recontypes.ServiceScanResult) error {
	rows := make([]recontypes.HostRecord, len(results))
	for i, r := range results {
		rows[i] = r.ToDatabase()
	}
	_, err := s.SaveRows(rows)
	return err
}

// SaveRows is the shared persistence backbone: rows are chunked into
// batches of batchSize, one bbolt transaction (write batch) per chunk,
// committed sequentially in input order. Because bbolt's Tx.Commit fsyncs
// by default, the last commit already satisfies the "explicit flush
// before return" contract. Returns the elapsed wall time for observability.
func (s *Store) SaveRows(rows []recontypes.HostRecord) (time.Duration, error) {
	start := time.Now()

	for chunkStart := 0; chunkStart < len(rows); chunkStart += batchSize {
		end := chunkStart + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[chunkStart:end]

		err := s.db.Update(func(tx *bbolt.Tx) error {
			def := tx.Bucket([]byte(bucketDefault))
			ports := tx.Bucket([]byte(bucketPorts))
			services := tx.Bucket([]byte(bucketServices))

			for _, row := range chunk {
				key := []byte(row.HostID)
				if err := def.Put(key, []byte{}); err != nil {
					return err
				}
				if err := ports.Put(key, []byte(joinPorts(row.Ports))); err != nil {
					return err
				}
				if err := services.Put(key, []byte(row.Services)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return time.Since(start), fmt.Errorf("resultstore: save_rows commit: %w", err)
		}
	}

	elapsed := time.Since(start)
	s.log.Debug("saved rows", zap.Int("count", len(rows)), zap.Duration("elapsed", elapsed))
	if s.onSave != nil {
		s.onSave(elapsed)
	}
	return elapsed, nil
}

// GetRowByHost returns the row for key, or false if the key is absent from
// the default (presence) bucket.
func (s *Store) GetRowByHost(key string) (recontypes.HostRecord, bool) {
	var out recontypes.HostRecord
	found := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		row, ok := s.fetchRow(tx, key)
		if !ok {
			return nil
		}
		out, found = row, true
		return nil
	})
	if err != nil {
		s.log.Debug("get_row_by_host failed, collapsing to absent", zap.Error(err))
		return recontypes.HostRecord{}, false
	}

	return out, found
}

// GetRowsByPort returns every row whose ports column contains substring,
// in store (lexicographic key) order. An empty substring matches every row.
func (s *Store) GetRowsByPort(substring string) []recontypes.HostRecord {
	return s.scanColumn(bucketPorts, substring)
}

// GetRowsByService returns every row whose services column contains
// substring, in store (lexicographic key) order. An empty substring
// matches every row.
func (s *Store) GetRowsByService(substring string) []recontypes.HostRecord {
	return s.scanColumn(bucketServices, substring)
}

func (s *Store) scanColumn(bucket, substring string) []recontypes.HostRecord {
	var out []recontypes.HostRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucket)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if !bytes.Contains(v, []byte(substring)) {
				continue
			}
			if row, ok := s.fetchRow(tx, string(k)); ok {
				out = append(out, row)
			}
		}
		return nil
	})
	if err != nil {
		s.log.Debug("scan failed, collapsing to empty", zap.String("bucket", bucket), zap.Error(err))
		return nil
	}

	return out
}

// fetchRow materializes a HostRecord from the three buckets, bound to an
// already-open transaction. It returns false if key is missing from the
// default (presence) bucket.
func (s *Store) fetchRow(tx *bbolt.Tx, key string) (recontypes.HostRecord, bool) {
	def := tx.Bucket([]byte(bucketDefault))
	if def.Get([]byte(key)) == nil {
		return recontypes.HostRecord{}, false
	}

	ports := tx.Bucket([]byte(bucketPorts)).Get([]byte(key))
	services := tx.Bucket([]byte(bucketServices)).Get([]byte(key))

	return recontypes.HostRecord{
		HostID:   key,
		Ports:    splitPorts(lossyUTF8(ports)),
		Services: lossyUTF8(services),
	}, true
}

func joinPorts(ports []int32) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.FormatInt(int64(p), 10)
	}
	return strings.Join(parts, ",")
}

// splitPorts parses the stored comma-joined ports column back into a slice,
// preserving stored order verbatim. Deduplication and sorting are the port
// core's responsibility (see SPEC_FULL.md §4.2 / spec.md §8 scenario 4);
// the store round-trips exactly what it was given.
func splitPorts(s string) []int32 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]int32, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			n = 0
		}
		out = append(out, int32(n))
	}
	return out
}

func lossyUTF8(b []byte) string {
	if b == nil {
		return ""
	}
	return strings.ToValidUTF8(string(b), "�")
}
