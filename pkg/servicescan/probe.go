// Package servicescan is a minimal, static stand-in for the
// service-probing collaborator spec.md treats as an external module,
// consumed only via its ServiceScanResult shape. It deliberately does not
// open new TCP connections or grab banners — spec.md's Non-goals exclude
// banner-grab/handshake work, and this prober runs after the port core has
// already determined which ports are open.
package servicescan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/netrecon/netrecon/pkg/recontypes"
)

// wellKnown maps a handful of IANA-assigned ports to service names. Ports
// outside this table are reported as "unknown".
var wellKnown = map[int32]string{
	21:   "ftp",
	22:   "ssh",
	23:   "telnet",
	25:   "smtp",
	53:   "dns",
	80:   "http",
	110:  "pop3",
	143:  "imap",
	443:  "https",
	445:  "smb",
	3306: "mysql",
	3389: "rdp",
	5432: "postgresql",
	6379: "redis",
	8080: "http-alt",
	8443: "https-alt",
	9200: "elasticsearch",
	27017: "mongodb",
}

// Probe derives a ServiceScanResult for one target's open ports, joining
// "<port>/<name>" pairs with ";" in ascending port order.
func Probe(target recontypes.ScanResult) recontypes.ServiceScanResult {
	ports := append([]int32(nil), target.OpenPorts...)
	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })

	parts := make([]string, len(ports))
	for i, p := range ports {
		name, ok := wellKnown[p]
		if !ok {
			name = "unknown"
		}
		parts[i] = fmt.Sprintf("%d/%s", p, name)
	}

	return recontypes.ServiceScanResult{
		IP:       target.IP,
		Ports:    ports,
		Services: strings.Join(parts, ";"),
	}
}
