package security

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP resolves the client address used for rate limiting and audit
// logging. With trustProxy unset the connection's RemoteAddr is used as-is.
// With trustProxy set, X-Forwarded-For is consulted first and X-Real-IP
// second; trustedProxyCount says how many rightmost X-Forwarded-For hops
// were appended by proxies we control, so everything left of them is
// client-supplied and cannot be trusted beyond the first untrusted entry.
func GetClientIP(r *http.Request, trustProxy bool, trustedProxyCount int) string {
	if trustProxy {
		if ip := forwardedForClient(r.Header.Get("X-Forwarded-For"), trustedProxyCount); ip != "" {
			return ip
		}
		if ip := validIP(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	return remoteIP(r.RemoteAddr)
}

// forwardedForClient picks the client entry out of an X-Forwarded-For list.
// The list reads "client, hop1, hop2, ..." with our own proxies rightmost,
// so the client sits trustedProxyCount entries from the end. A count of 0
// is treated as 1; a list too short for the count falls back to the
// leftmost entry.
func forwardedForClient(xff string, trustedProxyCount int) string {
	if xff == "" {
		return ""
	}

	hops := strings.Split(xff, ",")

	proxies := trustedProxyCount
	if proxies == 0 {
		proxies = 1
	}
	idx := len(hops) - proxies - 1
	if idx < 0 {
		idx = 0
	}

	return validIP(strings.TrimSpace(hops[idx]))
}

// validIP returns s if it parses as an IP address, "" otherwise. Header
// values are attacker-controlled, so anything unparseable is discarded
// rather than logged verbatim.
func validIP(s string) string {
	if s == "" || net.ParseIP(s) == nil {
		return ""
	}
	return s
}

// remoteIP strips the port from a RemoteAddr host:port pair.
func remoteIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
