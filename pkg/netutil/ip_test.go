package netutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:54321"
	assert.Equal(t, "10.0.0.1", GetClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.2")
	assert.Equal(t, "203.0.113.7", GetClientIP(r))

	r.Header.Set("X-Forwarded-For", " ")
	assert.Equal(t, "10.0.0.1", GetClientIP(r))

	r.Header.Del("X-Forwarded-For")
	r.RemoteAddr = "not-a-host-port"
	assert.Equal(t, "not-a-host-port", GetClientIP(r))
}
