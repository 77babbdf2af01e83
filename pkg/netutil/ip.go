package netutil

import (
	"net"
	"net/http"
	"strings"
)

const (
	clientIPHeader = "X-Forwarded-For"
)

// GetClientIP gets the originating client's IP address for an HTTP request.
// The first X-Forwarded-For entry wins when the request came through a proxy,
// otherwise the host part of the remote address is used.
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get(clientIPHeader); len(forwarded) > 0 {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if len(first) > 0 {
			return first
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
