package models

import "fmt"

// TransportErrorKind classifies why a heartbeat failed to get through.
type TransportErrorKind string

const (
	// TransportErrorDNS indicates the target host could not be resolved.
	TransportErrorDNS TransportErrorKind = "dns"
	// TransportErrorConnect indicates the connection could not be established.
	TransportErrorConnect TransportErrorKind = "connect"
	// TransportErrorTLS indicates certificate or handshake problems.
	TransportErrorTLS TransportErrorKind = "tls"
	// TransportErrorTimeout indicates the request exceeded its deadline.
	TransportErrorTimeout TransportErrorKind = "timeout"
	// TransportErrorStatus indicates the endpoint answered with a non-2xx code.
	TransportErrorStatus TransportErrorKind = "status"
	// TransportErrorRequest indicates the request could not be built at all.
	TransportErrorRequest TransportErrorKind = "request"
)

// TransportError is a per-tick delivery failure. It is never fatal: the
// scheduler logs it and tries again on the next interval.
type TransportError struct {
	Kind TransportErrorKind
	Msg  string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}
