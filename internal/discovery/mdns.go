package discovery

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type FHEMWEB is announced under
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the FHEMWEB default port
	DefaultPort = 8083
)

// fhemPattern matches FHEM instance names, hostnames and TXT paths
var fhemPattern = regexp.MustCompile(`(?i)fhem`)

// Scanner handles mDNS discovery
type Scanner struct {
	// Timeout is the maximum time to wait for announcements
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan collects FHEM candidates until the timeout or ctx expires.
// Services announced on several interfaces are reported once.
func (s *Scanner) Scan(ctx context.Context) ([]*Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	var (
		mu         sync.Mutex
		candidates []*Candidate
		seen       = make(map[string]bool)
		done       = make(chan struct{})
	)
	go func() {
		defer close(done)
		for entry := range entries {
			c := parseServiceEntry(entry)
			if c == nil {
				continue
			}
			mu.Lock()
			if !seen[c.BaseURL()] {
				seen[c.BaseURL()] = true
				candidates = append(candidates, c)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	// zeroconf closes entries once the browse context ends
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	return candidates, nil
}

// FindFirst returns the first FHEM candidate announced before the timeout
func (s *Scanner) FindFirst(ctx context.Context) (*Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Candidate, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			if c := parseServiceEntry(entry); c != nil {
				select {
				case found <- c:
				default:
				}
				cancel()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case c := <-found:
		return c, nil
	case <-ctx.Done():
		select {
		case c := <-found:
			return c, nil
		default:
		}
		return nil, fmt.Errorf("no FHEM server found within %s", s.Timeout)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Candidate.
// Returns nil if nothing about the entry mentions FHEM.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Candidate {
	if entry == nil {
		return nil
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		// TXT records are in "key=value" format
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	if !fhemPattern.MatchString(entry.Instance) &&
		!fhemPattern.MatchString(entry.HostName) &&
		!fhemPattern.MatchString(metadata["path"]) {
		return nil
	}

	// Prefer IPv4
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	return &Candidate{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// QuickScan performs a scan with the default timeout
func QuickScan(ctx context.Context) ([]*Candidate, error) {
	return NewScanner().Scan(ctx)
}
