package validation

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidateProductURL checks that a user-supplied product URL is safe to
// fetch. Only http and https schemes are accepted, a hostname is required,
// and hosts in loopback or private address space are rejected unless
// allowPrivateHosts is set.
func ValidateProductURL(rawURL string, allowPrivateHosts bool) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q: only http and https are allowed", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("URL has no hostname")
	}

	if !allowPrivateHosts && isPrivateHost(host) {
		return fmt.Errorf("host %q is not publicly reachable", host)
	}

	return nil
}

// isPrivateHost flags literal addresses and well-known names that point
// inside the local network. Hostnames are not resolved; a DNS lookup per
// request would block the handler.
func isPrivateHost(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
	}

	lower := strings.ToLower(host)
	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") {
		return true
	}
	return strings.HasSuffix(lower, ".local") || strings.HasSuffix(lower, ".internal")
}
