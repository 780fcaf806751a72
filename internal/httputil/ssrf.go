package httputil

import (
	"fmt"
	"net"
)

// blockedRanges are the address classes a redirect may not lead to.
var blockedRanges = []struct {
	label string
	match func(net.IP) bool
}{
	{"private IP", net.IP.IsPrivate},
	{"loopback IP", net.IP.IsLoopback},
	{"link-local IP", net.IP.IsLinkLocalUnicast},
	{"link-local multicast", net.IP.IsLinkLocalMulticast},
	{"multicast IP", net.IP.IsMulticast},
	{"unspecified IP", net.IP.IsUnspecified},
}

// ValidateIP returns an error when ip is private (RFC 1918), loopback,
// link-local (which includes cloud metadata endpoints), multicast or
// unspecified. host is only used in the error message.
func ValidateIP(ip net.IP, host string) error {
	for _, r := range blockedRanges {
		if r.match(ip) {
			return fmt.Errorf("refusing redirect to %s: %s (%s)", r.label, host, ip)
		}
	}
	return nil
}
