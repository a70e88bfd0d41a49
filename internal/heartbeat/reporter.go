// Package heartbeat builds and sends liveness pings and drives the interval
// loop around them.
package heartbeat

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pushmon/pushmon/internal/config"
	"github.com/pushmon/pushmon/internal/models"
	"github.com/pushmon/pushmon/pkg/uptime"
	"github.com/rs/zerolog"
)

// Doer abstracts the HTTP client so tests can substitute the transport.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Reporter sends exactly one heartbeat per Report call, measures the round
// trip and remembers the latest successful latency so the next heartbeat can
// carry it in the ping parameter. Calls are strictly sequential; Reporter is
// not safe for concurrent use and never retries; retrying is the
// scheduler's business.
type Reporter struct {
	client  Doer
	target  *url.URL
	method  string
	tracker *uptime.Tracker
	logger  zerolog.Logger

	// latency of the last acknowledged heartbeat; zero until one succeeds,
	// which makes the very first ping parameter "0ms"
	lastRTT time.Duration
}

// NewReporter builds a reporter for the configured target.
func NewReporter(cfg *config.Config, client Doer, tracker *uptime.Tracker, logger zerolog.Logger) (*Reporter, error) {
	target, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse target url: %w", err)
	}
	return &Reporter{
		client:  client,
		target:  target,
		method:  cfg.Method,
		tracker: tracker,
		logger:  logger,
	}, nil
}

// Report performs one heartbeat round trip. Every failure comes back inside
// the result as a TransportError; Report itself never fails the caller.
func (r *Reporter) Report(ctx context.Context) models.HeartbeatResult {
	result := models.HeartbeatResult{
		Timestamp: time.Now(),
		Uptime:    r.tracker.Humanize(),
		Ping:      formatPing(r.lastRTT),
	}

	target := *r.target
	query := target.Query() // pre-existing query parameters are preserved
	query.Set("status", "up")
	query.Set("msg", result.Uptime)
	query.Set("ping", result.Ping)
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, r.method, target.String(), nil)
	if err != nil {
		result.Err = &models.TransportError{Kind: models.TransportErrorRequest, Msg: err.Error()}
		return result
	}

	r.logger.Debug().Str("method", r.method).Str("url", target.String()).Msg("sending heartbeat")

	start := time.Now()
	resp, err := r.client.Do(req)
	result.RTT = time.Since(start)
	if err != nil {
		result.Err = classifyTransportError(err)
		return result
	}
	defer resp.Body.Close()

	// The body content is irrelevant; drain it so the connection is reusable.
	io.Copy(io.Discard, resp.Body)

	result.StatusCode = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result.Err = &models.TransportError{
			Kind: models.TransportErrorStatus,
			Msg:  fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, r.target.Host),
		}
		return result
	}

	r.lastRTT = result.RTT
	return result
}

// formatPing renders a latency in whole milliseconds, matching the "0ms"
// placeholder convention used before the first acknowledged heartbeat.
func formatPing(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
}

// classifyTransportError maps a client error onto the transport taxonomy so
// log records can be filtered by failure kind.
func classifyTransportError(err error) *models.TransportError {
	kind := models.TransportErrorConnect

	var dnsErr *net.DNSError
	var certErr x509.CertificateInvalidError
	var unknownAuthErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	switch {
	case errors.As(err, &dnsErr):
		kind = models.TransportErrorDNS
	case errors.As(err, &certErr), errors.As(err, &unknownAuthErr), errors.As(err, &hostErr):
		kind = models.TransportErrorTLS
	case errors.Is(err, context.DeadlineExceeded):
		kind = models.TransportErrorTimeout
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			kind = models.TransportErrorTimeout
		}
	}

	return &models.TransportError{Kind: kind, Msg: err.Error()}
}
