package engine

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"sync"

	"github.com/xnet-project/xnet-go/pkg/cert"
	"github.com/xnet-project/xnet-go/pkg/config"
)

// Ownership tags who owns an engine's cryptographic context. An engine
// created by AcceptFrom borrows the listening engine's context and must
// never release it; only the listener does. The tag makes that
// asymmetry explicit instead of inferring it from nil checks.
type Ownership uint8

const (
	// OwnershipOwned: the engine created the context and releases it.
	OwnershipOwned Ownership = 0

	// OwnershipBorrowed: the context belongs to a listening engine that
	// must outlive this one.
	OwnershipBorrowed Ownership = 1
)

// String returns the ownership tag name.
func (o Ownership) String() string {
	if o == OwnershipBorrowed {
		return "borrowed"
	}
	return "owned"
}

// Context holds the backend TLS configuration for one endpoint. It is
// built once, is immutable afterwards, and may be shared read-only by
// every engine accepted against it.
type Context struct {
	conf *tls.Config
	role config.Role
}

// Role returns the handshake role the context was built for.
func (c *Context) Role() config.Role {
	return c.role
}

// NewContext builds a backend TLS configuration from a validated
// endpoint configuration. All certificate material is loaded here, so a
// misconfigured endpoint fails before any network resource exists.
func NewContext(cfg *config.Config) (*Context, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidParameter)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}

	minV, maxV := cfg.MinMaxVersion()
	conf := &tls.Config{
		MinVersion:             minV,
		MaxVersion:             maxV,
		CurvePreferences:       cfg.CurvePreferences(),
		CipherSuites:           cfg.CipherSuiteIDs(),
		SessionTicketsDisabled: !cfg.SessionReuse,
	}

	if cfg.Role == config.RoleServer && cfg.CertFile == "" {
		return nil, fmt.Errorf("%w: server certificate is required", ErrCertificate)
	}

	if cfg.CertFile != "" {
		pair, err := cert.LoadKeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCertificate, err)
		}
		conf.Certificates = []tls.Certificate{pair}
	}

	if cfg.CAFile != "" {
		pool, err := cert.LoadCAPool(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCertificate, err)
		}
		switch cfg.Role {
		case config.RoleClient:
			conf.RootCAs = pool
		case config.RoleServer:
			conf.ClientCAs = pool
		}
	}

	switch cfg.Role {
	case config.RoleClient:
		conf.InsecureSkipVerify = !cfg.VerifyPeer
		conf.ServerName = cfg.ServerName
		if cfg.SessionReuse {
			conf.ClientSessionCache = tls.NewLRUClientSessionCache(0)
		}
	case config.RoleServer:
		if cfg.VerifyPeer {
			conf.ClientAuth = tls.RequireAndVerifyClientCert
		} else {
			conf.ClientAuth = tls.NoClientCert
		}
	}

	if cfg.VerifyPeer && cfg.VerifyDepth > 0 {
		conf.VerifyPeerCertificate = verifyDepthCheck(cfg.VerifyDepth)
	}

	return &Context{conf: conf, role: cfg.Role}, nil
}

// verifyDepthCheck bounds the verified chain length. Depth counts the
// certificates between the leaf and the trust anchor, matching the
// verification-depth semantics of common TLS backends.
func verifyDepthCheck(depth int) func([][]byte, [][]*x509.Certificate) error {
	return func(_ [][]byte, verifiedChains [][]*x509.Certificate) error {
		for _, chain := range verifiedChains {
			// Leaf and anchor do not count against the depth bound.
			if len(chain) <= depth+2 {
				return nil
			}
		}
		return fmt.Errorf("%w: certificate chain exceeds verify depth %d",
			ErrCertificate, depth)
	}
}

// mutex guarding process-wide backend initialization.
var (
	libMu          sync.Mutex
	libInitialized bool
)

// Initialize prepares the process-wide TLS backend. Idempotent; safe to
// call from multiple goroutines. Engines call it lazily, applications
// may call it eagerly at startup.
func Initialize() error {
	libMu.Lock()
	defer libMu.Unlock()
	if libInitialized {
		return nil
	}
	libInitialized = true
	return nil
}

// Shutdown releases process-wide backend state. After Shutdown, a
// subsequent Initialize starts a fresh lifecycle.
func Shutdown() {
	libMu.Lock()
	defer libMu.Unlock()
	libInitialized = false
}

// LibraryInitialized reports whether Initialize has been called.
func LibraryInitialized() bool {
	libMu.Lock()
	defer libMu.Unlock()
	return libInitialized
}
