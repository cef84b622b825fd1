package remote

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

type FaultKind string

const (
	FaultRefused      FaultKind = "refused"
	FaultHostNotFound FaultKind = "host_not_found"
	FaultTimeout      FaultKind = "timeout"
	FaultCanceled     FaultKind = "canceled"
	FaultTLS          FaultKind = "tls"
	FaultProxy        FaultKind = "proxy"
	FaultHTTPStatus   FaultKind = "http_status"
	FaultNetwork      FaultKind = "network"
)

// Fault is a transport-level failure. Every Fault forces the link Offline.
type Fault struct {
	Kind   FaultKind
	Status int
	Reason string
	Err    error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Reason, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Reason)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// classifyError maps an http.Client error to a Fault with a user-facing reason.
func classifyError(err error) *Fault {
	f := &Fault{Kind: FaultNetwork, Reason: "Unknown network error.", Err: err}

	var (
		dnsErr   *net.DNSError
		opErr    *net.OpError
		netErr   net.Error
		certErr  *tls.CertificateVerificationError
		authErr  x509.UnknownAuthorityError
		hostErr  x509.HostnameError
		recErr   tls.RecordHeaderError
		invalErr x509.CertificateInvalidError
	)

	switch {
	case errors.As(err, &opErr) && opErr.Op == "proxyconnect":
		f.Kind, f.Reason = FaultProxy, "The proxy refused the connection."
	case errors.Is(err, context.Canceled):
		f.Kind, f.Reason = FaultCanceled, "Operation canceled."
	case errors.As(err, &dnsErr):
		f.Kind, f.Reason = FaultHostNotFound, "Invalid server, check the network settings."
	case errors.Is(err, syscall.ECONNREFUSED):
		f.Kind, f.Reason = FaultRefused, "The server refused the connection, please try again later."
	case errors.As(err, &certErr), errors.As(err, &authErr), errors.As(err, &hostErr),
		errors.As(err, &recErr), errors.As(err, &invalErr):
		f.Kind, f.Reason = FaultTLS, "Secure connection (SSL) unavailable. Check the network settings."
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		f.Kind, f.Reason = FaultTimeout, "Server unavailable, please try again later."
	case errors.Is(err, syscall.ECONNRESET):
		f.Reason = "Temporary network error, please try again later."
	case errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.EHOSTUNREACH):
		f.Reason = "No connection found, please check your network connection."
	}
	return f
}

// classifyStatus maps a non-2xx HTTP status to a Fault.
func classifyStatus(code int) *Fault {
	f := &Fault{Kind: FaultHTTPStatus, Status: code}

	switch {
	case code == http.StatusUnauthorized:
		f.Reason = "The server denied the access (401)."
	case code == http.StatusForbidden:
		f.Reason = "Operation not permitted."
	case code == http.StatusNotFound:
		f.Reason = "Content not found (404). Check network settings."
	case code == http.StatusProxyAuthRequired:
		f.Kind, f.Reason = FaultProxy, "The proxy needs authentication."
	case code == http.StatusConflict:
		f.Reason = "Content conflict."
	case code == http.StatusGone:
		f.Reason = "The requested resource is no longer available."
	case code == http.StatusInternalServerError:
		f.Reason = "Internal server error."
	case code == http.StatusNotImplemented:
		f.Reason = "The server cannot reply (operation not implemented)."
	case code == http.StatusServiceUnavailable:
		f.Reason = "Service unavailable. Please try again later."
	case code >= 500:
		f.Reason = "Unknown server error."
	default:
		f.Reason = "The request failed. Please try again later."
	}
	return f
}
