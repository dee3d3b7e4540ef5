package cert

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCheckFileReadable(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "exists.pem")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := CheckFileReadable(path); err != nil {
		t.Errorf("CheckFileReadable(existing) = %v, want nil", err)
	}

	err := CheckFileReadable(filepath.Join(dir, "missing.pem"))
	if !errors.Is(err, ErrFileMissing) {
		t.Errorf("CheckFileReadable(missing) = %v, want ErrFileMissing", err)
	}

	// A directory is not a usable certificate file.
	err = CheckFileReadable(dir)
	if !errors.Is(err, ErrFileUnusable) {
		t.Errorf("CheckFileReadable(dir) = %v, want ErrFileUnusable", err)
	}
}

func TestGenerateSelfSigned(t *testing.T) {
	ss, err := GenerateSelfSigned(SelfSignedOptions{
		CommonName:  "unit-test",
		DNSNames:    []string{"localhost"},
		IPAddresses: []net.IP{net.ParseIP("127.0.0.1")},
		Validity:    time.Hour,
	})
	if err != nil {
		t.Fatalf("GenerateSelfSigned failed: %v", err)
	}

	c := ss.Certificate
	if c.Subject.CommonName != "unit-test" {
		t.Errorf("CommonName = %q, want unit-test", c.Subject.CommonName)
	}
	if len(c.DNSNames) != 1 || c.DNSNames[0] != "localhost" {
		t.Errorf("DNSNames = %v, want [localhost]", c.DNSNames)
	}
	if len(c.IPAddresses) != 1 {
		t.Errorf("IPAddresses = %v, want one entry", c.IPAddresses)
	}
	if c.IsCA {
		t.Error("certificate should not be a CA unless requested")
	}
	if time.Until(c.NotAfter) > 2*time.Hour {
		t.Errorf("NotAfter = %v, want about one hour out", c.NotAfter)
	}

	ca, err := GenerateSelfSigned(SelfSignedOptions{CommonName: "ca", IsCA: true})
	if err != nil {
		t.Fatalf("GenerateSelfSigned(CA) failed: %v", err)
	}
	if !ca.Certificate.IsCA {
		t.Error("IsCA option should mark the certificate as a CA")
	}
}

func TestWriteFilesAndLoadKeyPair(t *testing.T) {
	ss, err := GenerateSelfSigned(SelfSignedOptions{CommonName: "pair-test"})
	if err != nil {
		t.Fatalf("GenerateSelfSigned failed: %v", err)
	}

	certFile, keyFile, err := ss.WriteFiles(t.TempDir(), "pair")
	if err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}

	// The written pair loads as a usable TLS certificate.
	pair, err := LoadKeyPair(certFile, keyFile)
	if err != nil {
		t.Fatalf("LoadKeyPair failed: %v", err)
	}
	if len(pair.Certificate) == 0 {
		t.Error("loaded pair has no certificate")
	}

	// Key files carry restricted permissions.
	info, err := os.Stat(keyFile)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("key file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestCertPEMRoundTrip(t *testing.T) {
	ss, err := GenerateSelfSigned(SelfSignedOptions{CommonName: "pem-test"})
	if err != nil {
		t.Fatalf("GenerateSelfSigned failed: %v", err)
	}

	pemData := EncodeCertPEM(ss.Certificate)
	decoded, err := DecodeCertPEM(pemData)
	if err != nil {
		t.Fatalf("DecodeCertPEM failed: %v", err)
	}
	if !decoded.Equal(ss.Certificate) {
		t.Error("certificate changed across PEM round trip")
	}

	if _, err := DecodeCertPEM([]byte("not pem")); !errors.Is(err, ErrInvalidPEM) {
		t.Errorf("DecodeCertPEM(garbage) = %v, want ErrInvalidPEM", err)
	}
}

func TestKeyPEMRoundTrip(t *testing.T) {
	ss, err := GenerateSelfSigned(SelfSignedOptions{CommonName: "key-test"})
	if err != nil {
		t.Fatalf("GenerateSelfSigned failed: %v", err)
	}

	pemData, err := EncodeKeyPEM(ss.Key)
	if err != nil {
		t.Fatalf("EncodeKeyPEM failed: %v", err)
	}
	decoded, err := DecodeKeyPEM(pemData)
	if err != nil {
		t.Fatalf("DecodeKeyPEM failed: %v", err)
	}
	if !decoded.Equal(ss.Key) {
		t.Error("key changed across PEM round trip")
	}

	if _, err := DecodeKeyPEM([]byte("not pem")); !errors.Is(err, ErrInvalidPEM) {
		t.Errorf("DecodeKeyPEM(garbage) = %v, want ErrInvalidPEM", err)
	}
}

func TestLoadCAPool(t *testing.T) {
	ss, err := GenerateSelfSigned(SelfSignedOptions{CommonName: "ca-test", IsCA: true})
	if err != nil {
		t.Fatalf("GenerateSelfSigned failed: %v", err)
	}

	dir := t.TempDir()
	caFile := filepath.Join(dir, "ca.pem")
	if err := WriteCertFile(caFile, ss.Certificate); err != nil {
		t.Fatalf("WriteCertFile failed: %v", err)
	}

	pool, err := LoadCAPool(caFile)
	if err != nil {
		t.Fatalf("LoadCAPool failed: %v", err)
	}
	if pool == nil {
		t.Fatal("LoadCAPool returned nil pool")
	}

	// A file with no certificates is rejected, not silently empty.
	empty := filepath.Join(dir, "empty.pem")
	if err := os.WriteFile(empty, []byte("no certs here"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := LoadCAPool(empty); !errors.Is(err, ErrEmptyCAPool) {
		t.Errorf("LoadCAPool(empty) = %v, want ErrEmptyCAPool", err)
	}
}

func TestReadWriteCertFile(t *testing.T) {
	ss, err := GenerateSelfSigned(SelfSignedOptions{CommonName: "file-test"})
	if err != nil {
		t.Fatalf("GenerateSelfSigned failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "cert.pem")
	if err := WriteCertFile(path, ss.Certificate); err != nil {
		t.Fatalf("WriteCertFile failed: %v", err)
	}
	read, err := ReadCertFile(path)
	if err != nil {
		t.Fatalf("ReadCertFile failed: %v", err)
	}
	if !read.Equal(ss.Certificate) {
		t.Error("certificate changed across file round trip")
	}
}
