package heartbeat

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"
)

// NewHTTPClient builds the outbound client. insecure skips TLS certificate
// validation; localAddr binds outgoing connections to a specific local IP,
// which is how IPv4 vs IPv6 egress is chosen. The client timeout is a
// backstop; the per-tick context is the primary cancellation path.
func NewHTTPClient(insecure bool, localAddr string, timeout time.Duration) (*http.Client, error) {
	dialer := &net.Dialer{Timeout: 30 * time.Second}
	if localAddr != "" {
		ip := net.ParseIP(localAddr)
		if ip == nil {
			return nil, fmt.Errorf("local address %q is not an IP address", localAddr)
		}
		dialer.LocalAddr = &net.TCPAddr{IP: ip}
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,
	}
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &http.Client{Transport: transport, Timeout: timeout}, nil
}
