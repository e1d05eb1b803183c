package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Candidate is an HTTP service on the local network that looks like FHEMWEB
type Candidate struct {
	// Instance is the advertised service instance name (e.g., "FHEM")
	Instance string

	// Hostname is the mDNS hostname (e.g., "fhem.local.")
	Hostname string

	// IP is the service address, IPv4 preferred
	IP string

	// Port is the HTTP port (FHEMWEB defaults to 8083)
	Port int

	// Metadata contains the mDNS TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the service was seen
	DiscoveredAt time.Time
}

// String returns a human-readable representation of the candidate
func (c *Candidate) String() string {
	return fmt.Sprintf("%s (%s) at %s", c.Instance, c.Hostname, c.BaseURL())
}

// BaseURL returns the address to configure, without the /fhem suffix
func (c *Candidate) BaseURL() string {
	return "http://" + net.JoinHostPort(c.IP, strconv.Itoa(c.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (c *Candidate) GetMetadata(key string) string {
	if c.Metadata == nil {
		return ""
	}
	return c.Metadata[key]
}
