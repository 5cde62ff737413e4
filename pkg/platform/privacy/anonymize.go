// Package privacy reduces personal data to forms that are safe to write to logs and audit events.
package privacy

import (
	"net/netip"
	"strings"
)

// AnonymizeIP masks an address to its /24 (IPv4) or /48 (IPv6) network.
// Returns "unknown" for empty input and "invalid" when the value does not parse.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap()

	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}

// MaskEmail keeps the first character of the local part and the full domain,
// e.g. "jane.doe@acme.test" becomes "j***@acme.test".
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || local == "" || domain == "" {
		return "***"
	}
	return local[:1] + "***@" + domain
}
