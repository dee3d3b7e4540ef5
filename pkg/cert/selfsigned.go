package cert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"path/filepath"
	"time"
)

// SelfSignedOptions configures GenerateSelfSigned.
type SelfSignedOptions struct {
	// CommonName is the certificate subject CN.
	CommonName string

	// DNSNames are optional subject alternative names.
	DNSNames []string

	// IPAddresses are optional IP subject alternative names.
	IPAddresses []net.IP

	// Validity is the certificate lifetime. Default: 24h.
	Validity time.Duration

	// IsCA marks the certificate as a CA, allowing it to sign others.
	IsCA bool
}

// SelfSigned is a generated certificate and its private key.
type SelfSigned struct {
	Certificate *x509.Certificate
	Key         *ecdsa.PrivateKey
}

// GenerateSelfSigned creates a self-signed ECDSA P-256 certificate.
// Used by the demo programs and tests; production deployments provision
// certificates externally.
func GenerateSelfSigned(opts SelfSignedOptions) (*SelfSigned, error) {
	if opts.Validity == 0 {
		opts.Validity = 24 * time.Hour
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName: opts.CommonName,
		},
		DNSNames:              opts.DNSNames,
		IPAddresses:           opts.IPAddresses,
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(opts.Validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}
	if opts.IsCA {
		template.IsCA = true
		template.KeyUsage |= x509.KeyUsageCertSign
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	parsed, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	return &SelfSigned{Certificate: parsed, Key: key}, nil
}

// WriteFiles writes the certificate and key as PEM files into dir and
// returns their paths.
func (s *SelfSigned) WriteFiles(dir, name string) (certFile, keyFile string, err error) {
	certFile = filepath.Join(dir, name+".crt")
	keyFile = filepath.Join(dir, name+".key")
	if err = WriteCertFile(certFile, s.Certificate); err != nil {
		return "", "", err
	}
	if err = WriteKeyFile(keyFile, s.Key); err != nil {
		return "", "", err
	}
	return certFile, keyFile, nil
}
