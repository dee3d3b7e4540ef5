package engine

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
)

// Error taxonomy for the secure networking layer. Every error returned
// by the engine wraps exactly one of these sentinels, so callers can
// branch with errors.Is without string matching.
var (
	// ErrInvalidParameter indicates a null or out-of-range input (caller bug).
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNotInitialized indicates an operation before required setup.
	ErrNotInitialized = errors.New("engine not initialized")

	// ErrCertificate indicates a missing, unreadable or malformed
	// certificate, a key mismatch, or a failed peer verification.
	ErrCertificate = errors.New("certificate error")

	// ErrHandshake indicates a protocol negotiation failure distinct
	// from certificate problems.
	ErrHandshake = errors.New("handshake error")

	// ErrWouldBlock indicates non-blocking I/O has no data or cannot
	// write yet. Expected and retryable; never logged as a failure.
	ErrWouldBlock = errors.New("operation would block")

	// ErrConnectionClosed indicates the peer closed the connection.
	// Terminal, not retryable. Never conflated with ErrWouldBlock.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrAuthenticationFailed indicates an AEAD tag or record MAC
	// mismatch. Surfaced distinctly because it indicates tampering.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrGeneral is the catch-all for backend failures without a
	// specific mapping.
	ErrGeneral = errors.New("general TLS error")
)

// classifyIO translates a backend read/write error into the taxonomy.
func classifyIO(err error) error {
	if err == nil {
		return nil
	}
	switch classifyRaw(err) {
	case rawWantRetry, rawTimeout:
		return fmt.Errorf("%w: %v", ErrWouldBlock, err)
	case rawClosed:
		return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}

	var alert tls.AlertError
	if errors.As(err, &alert) {
		if alertIndicatesTampering(alert) {
			return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
		}
		if alertIndicatesCertificate(alert) {
			return fmt.Errorf("%w: %v", ErrCertificate, err)
		}
	}

	return fmt.Errorf("%w: %v", ErrGeneral, err)
}

// classifyHandshake translates a handshake failure into the taxonomy.
// Certificate problems are reported as ErrCertificate; everything else
// that is not a transport condition becomes ErrHandshake.
func classifyHandshake(err error) error {
	if err == nil {
		return nil
	}

	var certVerify *tls.CertificateVerificationError
	if errors.As(err, &certVerify) {
		return fmt.Errorf("%w: %v", ErrCertificate, err)
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return fmt.Errorf("%w: %v", ErrCertificate, err)
	}
	var certInvalid x509.CertificateInvalidError
	if errors.As(err, &certInvalid) {
		return fmt.Errorf("%w: %v", ErrCertificate, err)
	}
	var hostname x509.HostnameError
	if errors.As(err, &hostname) {
		return fmt.Errorf("%w: %v", ErrCertificate, err)
	}

	var alert tls.AlertError
	if errors.As(err, &alert) && alertIndicatesCertificate(alert) {
		return fmt.Errorf("%w: %v", ErrCertificate, err)
	}

	switch classifyRaw(err) {
	case rawTimeout, rawWantRetry:
		return fmt.Errorf("%w: %v", ErrWouldBlock, err)
	case rawClosed:
		return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}

	return fmt.Errorf("%w: %v", ErrHandshake, err)
}

// TLS alert codes that matter for classification. Values are defined by
// RFC 8446 section 6.
const (
	alertBadRecordMAC        = 20
	alertDecryptionFailed    = 21
	alertBadCertificate      = 42
	alertUnsupportedCert     = 43
	alertCertificateRevoked  = 44
	alertCertificateExpired  = 45
	alertCertificateUnknown  = 46
	alertUnknownCA           = 48
	alertDecryptError        = 51
	alertCertificateRequired = 116
)

func alertIndicatesTampering(a tls.AlertError) bool {
	return uint8(a) == alertBadRecordMAC || uint8(a) == alertDecryptionFailed
}

func alertIndicatesCertificate(a tls.AlertError) bool {
	switch uint8(a) {
	case alertBadCertificate, alertUnsupportedCert, alertCertificateRevoked,
		alertCertificateExpired, alertCertificateUnknown, alertUnknownCA,
		alertDecryptError, alertCertificateRequired:
		return true
	}
	return false
}

// rawResult is the outcome of classifying a raw socket error, mirroring
// the sentinel codes the read/write callbacks hand to the TLS backend.
type rawResult int

const (
	rawOK rawResult = iota

	// rawWantRetry: transient, retry later (EAGAIN and friends).
	rawWantRetry

	// rawClosed: orderly shutdown or reset by peer.
	rawClosed

	// rawTimeout: a configured socket deadline expired.
	rawTimeout

	// rawError: anything else.
	rawError
)

// classifyRaw maps a raw socket error onto the sentinel results the TLS
// backend expects. Getting this table wrong makes the backend treat
// transient gaps as fatal, so it is kept as a separate, tested unit.
func classifyRaw(err error) rawResult {
	if err == nil {
		return rawOK
	}

	if errors.Is(err, os.ErrDeadlineExceeded) {
		return rawTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return rawTimeout
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return rawClosed
	}

	if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) ||
		errors.Is(err, syscall.EINTR) {
		return rawWantRetry
	}

	return rawError
}
