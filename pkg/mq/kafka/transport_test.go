package kafka

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDialer(t *testing.T) {
	d, err := newDialer(&Config{Brokers: []string{"k:9092"}})
	require.NoError(t, err)
	assert.Nil(t, d.TLS)
	assert.Nil(t, d.SASLMechanism)

	d, err = newDialer(&Config{
		Brokers: []string{"k:9092"},
		TLS:     &TLSConfig{Enable: true, InsecureSkipVerify: true},
		SASL:    &SASLConfig{Username: "u", Password: "p"},
	})
	require.NoError(t, err)
	require.NotNil(t, d.TLS)
	assert.True(t, d.TLS.InsecureSkipVerify)
	assert.Equal(t, plain.Mechanism{Username: "u", Password: "p"}, d.SASLMechanism)
}

func TestNewTransport(t *testing.T) {
	tr, err := newTransport(&Config{
		TLS:  &TLSConfig{Enable: false},
		SASL: &SASLConfig{Mechanism: "SCRAM-SHA-512", Username: "u", Password: "p"},
	})
	require.NoError(t, err)
	assert.Nil(t, tr.TLS)
	require.NotNil(t, tr.SASL)
	assert.Equal(t, "SCRAM-SHA-512", tr.SASL.Name())
}

func TestNewSASLMechanism(t *testing.T) {
	tests := []struct {
		mechanism string
		name      string
		wantErr   bool
	}{
		{"", "PLAIN", false},
		{"plain", "PLAIN", false},
		{"SCRAM-SHA-256", "SCRAM-SHA-256", false},
		{"scram-sha-512", "SCRAM-SHA-512", false},
		{"GSSAPI", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.mechanism, func(t *testing.T) {
			m, err := newSASLMechanism(&SASLConfig{Mechanism: tt.mechanism, Username: "u", Password: "p"})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, m.Name())
		})
	}
}

func TestNewTLSConfigErrors(t *testing.T) {
	_, err := newTLSConfig(&TLSConfig{Enable: true, CAFile: filepath.Join(t.TempDir(), "missing.pem")})
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(bad, []byte("not a cert"), 0o600))
	_, err = newTLSConfig(&TLSConfig{Enable: true, CAFile: bad})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = newTLSConfig(&TLSConfig{Enable: true, CertFile: bad, KeyFile: bad})
	assert.Error(t, err)
}
