// Package discovery finds FHEM servers on the local network over mDNS.
//
// FHEMWEB instances are usually announced as "_http._tcp" services, either
// by FHEM's own bonjour module or by avahi. The scanner browses that service
// type and keeps entries whose instance name, hostname or TXT "path" record
// mention FHEM.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	candidates, err := scanner.Scan(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, c := range candidates {
//	    fmt.Printf("%s -> %s\n", c.Instance, c.BaseURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - The FHEM host must be on the same network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
