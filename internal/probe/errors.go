package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/nao1215/httpdoom/internal/model"
)

// ErrScreenshot marks a screenshot failure. It is only ever recorded as a
// warning on the result.
var ErrScreenshot = errors.New("screenshot capture failed")

// FailureKind classifies why a probe failed.
type FailureKind string

// Failure kinds.
const (
	FailureTimeout  FailureKind = "timeout"
	FailureDNS      FailureKind = "dns"
	FailureRefused  FailureKind = "refused"
	FailureTLS      FailureKind = "tls"
	FailureProtocol FailureKind = "protocol"
	FailureCanceled FailureKind = "canceled"
	FailureOther    FailureKind = "other"
)

// Failure is returned when a target could not be fetched.
type Failure struct {
	Target model.Target
	Kind   FailureKind
	Err    error
}

// Error implements error.
func (f *Failure) Error() string {
	return fmt.Sprintf("probe %s failed (%s): %v", f.Target.URL(), f.Kind, f.Err)
}

// Unwrap returns the underlying error.
func (f *Failure) Unwrap() error {
	return f.Err
}

// newFailure classifies err for target.
func newFailure(target model.Target, err error) *Failure {
	return &Failure{Target: target, Kind: Classify(err), Err: err}
}

// Classify maps a fetch error to a FailureKind.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureOther
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	if errors.Is(err, context.Canceled) {
		return FailureCanceled
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return FailureTimeout
		}
		return FailureDNS
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return FailureRefused
	}

	var (
		recordErr  tls.RecordHeaderError
		alertErr   tls.AlertError
		certErr    *tls.CertificateVerificationError
		unknownErr x509.UnknownAuthorityError
	)
	if errors.As(err, &recordErr) || errors.As(err, &alertErr) ||
		errors.As(err, &certErr) || errors.As(err, &unknownErr) {
		return FailureTLS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return FailureOther
	}

	return FailureProtocol
}

// KindOf returns the FailureKind of err when it is a *Failure, and
// FailureOther otherwise.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	if errors.Is(err, context.Canceled) {
		return FailureCanceled
	}
	return FailureOther
}
