// Package rowcodec implements the whole-row binary encoding used for
// external serialization of a HostRecord. The result store's own write
// path uses raw per-column bytes (see pkg/resultstore); this codec exists
// for callers that want a single self-contained blob.
package rowcodec

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/netrecon/netrecon/pkg/recontypes"
)

// field count is fixed at exactly two: ports, then services. There is no
// dynamic field count in this format.
const fieldCount = 2

// Encode serializes a HostRecord as:
//
//	u32 n                 // always 2
//	for each field:
//	  u32 len
//	  len bytes of UTF-8 payload
//
// Field order is [0] = comma-joined ports, [1] = services blob.
func Encode(r recontypes.HostRecord) []byte {
	ports := joinPorts(r.Ports)
	fields := [fieldCount]string{ports, r.Services}

	size := 4
	for _, f := range fields {
		size += 4 + len(f)
	}

	buf := make([]byte, 0, size)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(fieldCount))
	for _, f := range fields {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(f)))
		buf = append(buf, f...)
	}
	return buf
}

// Decode parses a whole-row blob back into a HostRecord keyed by key. It
// returns false when the buffer is too short, a length prefix would
// overrun the buffer, or the field count is smaller than the two fields
// this format requires.
func Decode(key string, data []byte) (recontypes.HostRecord, bool) {
	if len(data) < 4 {
		return recontypes.HostRecord{}, false
	}

	pos := 0
	n := binary.LittleEndian.Uint32(data[pos : pos+4])
	pos += 4
	if n < fieldCount {
		return recontypes.HostRecord{}, false
	}

	values := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		if pos+4 > len(data) {
			return recontypes.HostRecord{}, false
		}
		l := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
		pos += 4

		if pos+l > len(data) {
			return recontypes.HostRecord{}, false
		}
		values = append(values, strings.ToValidUTF8(string(data[pos:pos+l]), "�"))
		pos += l
	}

	return recontypes.HostRecord{
		HostID:   key,
		Ports:    splitPorts(values[0]),
		Services: values[1],
	}, true
}

func joinPorts(ports []int32) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.FormatInt(int64(p), 10)
	}
	return strings.Join(parts, ",")
}

func splitPorts(s string) []int32 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]int32, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			n = 0
		}
		out[i] = int32(n)
	}
	return out
}
