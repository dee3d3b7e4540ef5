package config

import "fmt"

// Role selects the handshake role of an endpoint.
type Role uint8

const (
	// RoleUnspecified is the zero value; it never validates.
	RoleUnspecified Role = 0
	// RoleClient initiates handshakes.
	RoleClient Role = 1
	// RoleServer responds to handshakes.
	RoleServer Role = 2
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleServer:
		return "server"
	default:
		return "unspecified"
	}
}

// UnmarshalYAML parses a role from its string form.
func (r *Role) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	switch s {
	case "client":
		*r = RoleClient
	case "server":
		*r = RoleServer
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return nil
}

// MarshalYAML encodes the role as a string.
func (r Role) MarshalYAML() (any, error) {
	return r.String(), nil
}

// Version selects the protocol version policy.
type Version uint8

const (
	// VersionTLS13Only is the default: TLS 1.3 with no fallback.
	VersionTLS13Only Version = 0
	// VersionTLS12Compat allows TLS 1.2 for legacy peers.
	VersionTLS12Compat Version = 1
	// VersionTLS13PQ is TLS 1.3 with post-quantum key exchange required.
	VersionTLS13PQ Version = 2
)

// String returns the version policy name.
func (v Version) String() string {
	switch v {
	case VersionTLS13Only:
		return "tls13"
	case VersionTLS12Compat:
		return "tls12-compat"
	case VersionTLS13PQ:
		return "tls13-pq"
	default:
		return "unknown"
	}
}

// UnmarshalYAML parses a version policy from its string form.
func (v *Version) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	switch s {
	case "tls13", "":
		*v = VersionTLS13Only
	case "tls12-compat":
		*v = VersionTLS12Compat
	case "tls13-pq":
		*v = VersionTLS13PQ
	default:
		return fmt.Errorf("%w: %q", ErrUnknownVersion, s)
	}
	return nil
}

// MarshalYAML encodes the version policy as a string.
func (v Version) MarshalYAML() (any, error) {
	return v.String(), nil
}

// KeyExchange selects the key exchange family for TLS 1.3.
type KeyExchange uint8

const (
	// KeyExchangeStandard uses classical curves (X25519, P-256).
	KeyExchangeStandard KeyExchange = 0
	// KeyExchangePQ requires post-quantum key exchange (X25519MLKEM768).
	KeyExchangePQ KeyExchange = 1
	// KeyExchangeHybrid prefers post-quantum but allows classical.
	KeyExchangeHybrid KeyExchange = 2
)

// String returns the key exchange mode name.
func (k KeyExchange) String() string {
	switch k {
	case KeyExchangeStandard:
		return "standard"
	case KeyExchangePQ:
		return "pq"
	case KeyExchangeHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// UnmarshalYAML parses a key exchange mode from its string form.
func (k *KeyExchange) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	switch s {
	case "standard", "":
		*k = KeyExchangeStandard
	case "pq":
		*k = KeyExchangePQ
	case "hybrid":
		*k = KeyExchangeHybrid
	default:
		return fmt.Errorf("%w: %q", ErrUnknownExchange, s)
	}
	return nil
}

// MarshalYAML encodes the key exchange mode as a string.
func (k KeyExchange) MarshalYAML() (any, error) {
	return k.String(), nil
}
