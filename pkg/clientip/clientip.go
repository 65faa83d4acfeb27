package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Resolver extracts the caller address from a request. Forwarding headers are
// consulted only when listed in Headers, in order; deployments not behind a
// proxy should leave it empty so clients cannot spoof their address.
type Resolver struct {
	Headers []string
}

// Config is the env form of Resolver.
type Config struct {
	TrustedHeaders []string `env:"CLIENT_IP_HEADERS" envSeparator:","` // e.g. CF-Connecting-IP,X-Forwarded-For
}

func NewResolver(cfg Config) Resolver {
	return Resolver{Headers: cfg.TrustedHeaders}
}

// GetIP returns the normalized client IP, or "" when none can be parsed.
// For X-Forwarded-For the first valid entry wins.
func (r Resolver) GetIP(req *http.Request) string {
	for _, h := range r.Headers {
		v := req.Header.Get(h)
		if v == "" {
			continue
		}
		for part := range strings.SplitSeq(v, ",") {
			if ip := parseIP(part); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return parseIP(req.RemoteAddr)
	}
	return parseIP(host)
}

func parseIP(s string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return addr.Unmap().WithZone("").String()
}
