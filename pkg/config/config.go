package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrRoleRequired      = errors.New("role is required")
	ErrUnknownRole       = errors.New("unknown role")
	ErrUnknownVersion    = errors.New("unknown TLS version")
	ErrUnknownExchange   = errors.New("unknown key exchange mode")
	ErrIncompleteKeyPair = errors.New("certificate and key must be configured together")
	ErrVerifyNeedsCA     = errors.New("verify_peer requires a CA file")
	ErrUnknownCipher     = errors.New("unknown cipher suite name")
	ErrCipherListTLS13   = errors.New("cipher_list is not configurable for TLS 1.3")
)

// Config describes one secure endpoint. It is pure data: it is validated
// once and then copied into the TLS engine at init time.
type Config struct {
	// Role selects the handshake role. Required; never inferred from
	// certificate paths or other heuristics.
	Role Role `yaml:"role"`

	// Version selects the protocol version policy.
	Version Version `yaml:"version"`

	// KeyExchange selects the key exchange family for TLS 1.3.
	KeyExchange KeyExchange `yaml:"key_exchange"`

	// VerifyPeer enables peer certificate verification.
	VerifyPeer bool `yaml:"verify_peer"`

	// VerifyDepth bounds the certificate chain length (intermediates
	// between leaf and root). 0 means no explicit bound.
	VerifyDepth int `yaml:"verify_depth"`

	// CertFile and KeyFile are the endpoint's PEM certificate and key.
	// Both or neither must be set.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// CAFile is the PEM bundle of trusted CAs. Required when VerifyPeer
	// is set.
	CAFile string `yaml:"ca_file"`

	// ServerName is the expected peer name for client-side verification.
	// When empty it is derived from the address being connected to.
	ServerName string `yaml:"server_name"`

	// CipherList restricts TLS 1.2 cipher suites by name. Only valid
	// with VersionTLS12Compat; TLS 1.3 suites are fixed by the protocol.
	CipherList []string `yaml:"cipher_list"`

	// SessionReuse enables session resumption.
	SessionReuse   bool          `yaml:"session_reuse"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
}

// Default returns a configuration with the default policies: TLS 1.3
// only, standard key exchange, no peer verification. The role must
// still be set before use.
func Default() *Config {
	return &Config{
		Version:     VersionTLS13Only,
		KeyExchange: KeyExchangeStandard,
	}
}

// Load reads a YAML configuration file and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for misconfiguration before any
// network or file resource is touched. A config that fails here must
// never reach the engine.
func (c *Config) Validate() error {
	switch c.Role {
	case RoleUnspecified:
		return ErrRoleRequired
	case RoleClient, RoleServer:
	default:
		return fmt.Errorf("%w: %d", ErrUnknownRole, c.Role)
	}

	switch c.Version {
	case VersionTLS12Compat, VersionTLS13Only, VersionTLS13PQ:
	default:
		return fmt.Errorf("%w: %d", ErrUnknownVersion, c.Version)
	}

	switch c.KeyExchange {
	case KeyExchangeStandard, KeyExchangePQ, KeyExchangeHybrid:
	default:
		return fmt.Errorf("%w: %d", ErrUnknownExchange, c.KeyExchange)
	}

	// A certificate without its key (or the reverse) is a caller bug,
	// not something to skip silently.
	if (c.CertFile == "") != (c.KeyFile == "") {
		return ErrIncompleteKeyPair
	}

	if c.VerifyPeer && c.CAFile == "" {
		return ErrVerifyNeedsCA
	}

	if len(c.CipherList) > 0 {
		if c.Version != VersionTLS12Compat {
			return ErrCipherListTLS13
		}
		for _, name := range c.CipherList {
			if _, ok := cipherSuiteID(name); !ok {
				return fmt.Errorf("%w: %q", ErrUnknownCipher, name)
			}
		}
	}

	return nil
}

// CipherSuiteIDs resolves the configured cipher list to TLS suite IDs.
// Validate must have succeeded first.
func (c *Config) CipherSuiteIDs() []uint16 {
	if len(c.CipherList) == 0 {
		return nil
	}
	ids := make([]uint16, 0, len(c.CipherList))
	for _, name := range c.CipherList {
		if id, ok := cipherSuiteID(name); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// CurvePreferences returns the key exchange preference list for the
// configured mode.
func (c *Config) CurvePreferences() []tls.CurveID {
	switch c.KeyExchange {
	case KeyExchangePQ:
		return []tls.CurveID{tls.X25519MLKEM768}
	case KeyExchangeHybrid:
		return []tls.CurveID{tls.X25519MLKEM768, tls.X25519, tls.CurveP256}
	default:
		return []tls.CurveID{tls.X25519, tls.CurveP256}
	}
}

// MinMaxVersion returns the TLS version bounds for the configured policy.
func (c *Config) MinMaxVersion() (uint16, uint16) {
	if c.Version == VersionTLS12Compat {
		return tls.VersionTLS12, tls.VersionTLS13
	}
	return tls.VersionTLS13, tls.VersionTLS13
}

// cipherSuiteID looks up a standard cipher suite by name.
func cipherSuiteID(name string) (uint16, bool) {
	for _, cs := range tls.CipherSuites() {
		if cs.Name == name {
			return cs.ID, true
		}
	}
	return 0, false
}
