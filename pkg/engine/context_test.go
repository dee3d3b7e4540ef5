package engine

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"testing"

	"github.com/xnet-project/xnet-go/pkg/config"
)

func TestInitializeIdempotent(t *testing.T) {
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if !LibraryInitialized() {
		t.Fatal("library should be initialized")
	}
	if err := Initialize(); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}

	Shutdown()
	if LibraryInitialized() {
		t.Fatal("library should not be initialized after Shutdown")
	}
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize after Shutdown failed: %v", err)
	}
}

func TestNewContextNilConfig(t *testing.T) {
	if _, err := NewContext(nil); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("NewContext(nil) = %v, want ErrInvalidParameter", err)
	}
}

func TestNewContextInvalidConfig(t *testing.T) {
	// Missing role fails validation before anything is loaded.
	if _, err := NewContext(&config.Config{}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("NewContext without role = %v, want ErrInvalidParameter", err)
	}
}

func TestNewContextServerNeedsCert(t *testing.T) {
	_, err := NewContext(&config.Config{Role: config.RoleServer})
	if !errors.Is(err, ErrCertificate) {
		t.Errorf("server context without cert = %v, want ErrCertificate", err)
	}
}

func TestNewContextMissingCertFile(t *testing.T) {
	cfg := &config.Config{
		Role:     config.RoleServer,
		CertFile: "/nonexistent/server.crt",
		KeyFile:  "/nonexistent/server.key",
	}
	if _, err := NewContext(cfg); !errors.Is(err, ErrCertificate) {
		t.Errorf("unreadable cert = %v, want ErrCertificate", err)
	}
}

func TestNewContextClientDefaults(t *testing.T) {
	ctx, err := NewContext(&config.Config{Role: config.RoleClient})
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	if ctx.Role() != config.RoleClient {
		t.Errorf("Role = %v, want client", ctx.Role())
	}
	if ctx.conf.MinVersion != tls.VersionTLS13 {
		t.Errorf("MinVersion = %#x, want TLS 1.3", ctx.conf.MinVersion)
	}
	// Without verify_peer the client skips verification entirely.
	if !ctx.conf.InsecureSkipVerify {
		t.Error("InsecureSkipVerify should be set when verify_peer is off")
	}
}

func TestNewContextVersionPolicy(t *testing.T) {
	ctx, err := NewContext(&config.Config{
		Role:    config.RoleClient,
		Version: config.VersionTLS12Compat,
	})
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	if ctx.conf.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %#x, want TLS 1.2", ctx.conf.MinVersion)
	}
	if ctx.conf.MaxVersion != tls.VersionTLS13 {
		t.Errorf("MaxVersion = %#x, want TLS 1.3", ctx.conf.MaxVersion)
	}
}

func TestNewContextKeyExchangePolicy(t *testing.T) {
	ctx, err := NewContext(&config.Config{
		Role:        config.RoleClient,
		KeyExchange: config.KeyExchangeHybrid,
	})
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	if len(ctx.conf.CurvePreferences) == 0 ||
		ctx.conf.CurvePreferences[0] != tls.X25519MLKEM768 {
		t.Errorf("CurvePreferences = %v, want X25519MLKEM768 first", ctx.conf.CurvePreferences)
	}
}

func TestVerifyDepthCheck(t *testing.T) {
	check := verifyDepthCheck(1)

	// Leaf + intermediate + anchor: within depth 1.
	if err := check(nil, chainOfLength(3)); err != nil {
		t.Errorf("chain of 3 with depth 1 = %v, want nil", err)
	}
	// Two intermediates exceed depth 1.
	if err := check(nil, chainOfLength(4)); !errors.Is(err, ErrCertificate) {
		t.Errorf("chain of 4 with depth 1 = %v, want ErrCertificate", err)
	}
}

func chainOfLength(n int) [][]*x509.Certificate {
	chain := make([]*x509.Certificate, n)
	return [][]*x509.Certificate{chain}
}
