package config

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "missing role",
			cfg:     Config{},
			wantErr: ErrRoleRequired,
		},
		{
			name: "client minimal",
			cfg:  Config{Role: RoleClient},
		},
		{
			name: "server minimal",
			cfg:  Config{Role: RoleServer},
		},
		{
			name:    "cert without key",
			cfg:     Config{Role: RoleClient, CertFile: "c.pem"},
			wantErr: ErrIncompleteKeyPair,
		},
		{
			name:    "key without cert",
			cfg:     Config{Role: RoleClient, KeyFile: "k.pem"},
			wantErr: ErrIncompleteKeyPair,
		},
		{
			name:    "verify without ca",
			cfg:     Config{Role: RoleClient, VerifyPeer: true},
			wantErr: ErrVerifyNeedsCA,
		},
		{
			name: "verify with ca",
			cfg:  Config{Role: RoleClient, VerifyPeer: true, CAFile: "ca.pem"},
		},
		{
			name: "cipher list with tls13",
			cfg: Config{
				Role:       RoleClient,
				CipherList: []string{"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256"},
			},
			wantErr: ErrCipherListTLS13,
		},
		{
			name: "cipher list with tls12 compat",
			cfg: Config{
				Role:       RoleClient,
				Version:    VersionTLS12Compat,
				CipherList: []string{"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256"},
			},
		},
		{
			name: "unknown cipher name",
			cfg: Config{
				Role:       RoleClient,
				Version:    VersionTLS12Compat,
				CipherList: []string{"NOT_A_CIPHER"},
			},
			wantErr: ErrUnknownCipher,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, VersionTLS13Only, cfg.Version)
	assert.Equal(t, KeyExchangeStandard, cfg.KeyExchange)
	// The role is deliberately left unset; a default role would invite
	// path-based guessing.
	assert.ErrorIs(t, cfg.Validate(), ErrRoleRequired)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "endpoint.yaml")
	content := `
role: server
version: tls12-compat
key_exchange: hybrid
verify_peer: true
verify_depth: 3
cert_file: /etc/xnet/server.crt
key_file: /etc/xnet/server.key
ca_file: /etc/xnet/ca.pem
session_reuse: true
session_timeout: 5m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, RoleServer, cfg.Role)
	assert.Equal(t, VersionTLS12Compat, cfg.Version)
	assert.Equal(t, KeyExchangeHybrid, cfg.KeyExchange)
	assert.True(t, cfg.VerifyPeer)
	assert.Equal(t, 3, cfg.VerifyDepth)
	assert.Equal(t, "/etc/xnet/server.crt", cfg.CertFile)
	assert.True(t, cfg.SessionReuse)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	// Unknown role value.
	badRole := filepath.Join(dir, "role.yaml")
	require.NoError(t, os.WriteFile(badRole, []byte("role: proxy\n"), 0644))
	_, err := Load(badRole)
	assert.ErrorIs(t, err, ErrUnknownRole)

	// Valid YAML, fails validation.
	noCA := filepath.Join(dir, "noca.yaml")
	require.NoError(t, os.WriteFile(noCA, []byte("role: client\nverify_peer: true\n"), 0644))
	_, err = Load(noCA)
	assert.ErrorIs(t, err, ErrVerifyNeedsCA)

	// Missing file.
	_, err = Load(filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}

func TestMinMaxVersion(t *testing.T) {
	cfg := Config{Role: RoleClient}
	minV, maxV := cfg.MinMaxVersion()
	assert.Equal(t, uint16(tls.VersionTLS13), minV)
	assert.Equal(t, uint16(tls.VersionTLS13), maxV)

	cfg.Version = VersionTLS12Compat
	minV, maxV = cfg.MinMaxVersion()
	assert.Equal(t, uint16(tls.VersionTLS12), minV)
	assert.Equal(t, uint16(tls.VersionTLS13), maxV)
}

func TestCurvePreferences(t *testing.T) {
	standard := Config{Role: RoleClient}
	assert.Equal(t, []tls.CurveID{tls.X25519, tls.CurveP256}, standard.CurvePreferences())

	pq := Config{Role: RoleClient, KeyExchange: KeyExchangePQ}
	assert.Equal(t, []tls.CurveID{tls.X25519MLKEM768}, pq.CurvePreferences())

	hybrid := Config{Role: RoleClient, KeyExchange: KeyExchangeHybrid}
	prefs := hybrid.CurvePreferences()
	require.NotEmpty(t, prefs)
	assert.Equal(t, tls.X25519MLKEM768, prefs[0])
}

func TestCipherSuiteIDs(t *testing.T) {
	cfg := Config{
		Role:       RoleClient,
		Version:    VersionTLS12Compat,
		CipherList: []string{"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256"},
	}
	require.NoError(t, cfg.Validate())

	ids := cfg.CipherSuiteIDs()
	require.Len(t, ids, 1)
	assert.Equal(t, uint16(tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256), ids[0])

	empty := Config{Role: RoleClient}
	assert.Nil(t, empty.CipherSuiteIDs())
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "client", RoleClient.String())
	assert.Equal(t, "server", RoleServer.String())
	assert.Equal(t, "unspecified", RoleUnspecified.String())

	assert.Equal(t, "tls13", VersionTLS13Only.String())
	assert.Equal(t, "tls12-compat", VersionTLS12Compat.String())
	assert.Equal(t, "tls13-pq", VersionTLS13PQ.String())

	assert.Equal(t, "standard", KeyExchangeStandard.String())
	assert.Equal(t, "pq", KeyExchangePQ.String())
	assert.Equal(t, "hybrid", KeyExchangeHybrid.String())
}
