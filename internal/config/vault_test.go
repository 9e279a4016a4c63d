package config

import (
	"os"
	"path/filepath"
	"testing"

	"cvcraft/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *errors.Logger {
	logger, _ := errors.New("debug")
	return logger
}

// Test parseVersionValue function
func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       interface{}
		path        string
		expected    int64
		expectError bool
	}{
		{
			name:     "int64 value",
			input:    int64(42),
			path:     "test/path",
			expected: 42,
		},
		{
			name:     "float64 value",
			input:    float64(42.0),
			path:     "test/path",
			expected: 42,
		},
		{
			name:     "string value",
			input:    "42",
			path:     "test/path",
			expected: 42,
		},
		{
			name:        "invalid string value",
			input:       "not-a-number",
			path:        "test/path",
			expectError: true,
		},
		{
			name:        "unsupported type",
			input:       []string{"42"},
			path:        "test/path",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersionValue(tt.input, tt.path)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

// Test loadSingleCertificate function
func TestLoadSingleCertificate(t *testing.T) {
	logger := newTestLogger()

	tests := []struct {
		name          string
		tlsData       *VaultSecret
		key           string
		expectedCount int
		expectedValue string
	}{
		{
			name: "certificate present",
			tlsData: &VaultSecret{
				Data: map[string]any{"cert": "-----BEGIN CERTIFICATE-----"},
			},
			key:           "cert",
			expectedCount: 1,
			expectedValue: "-----BEGIN CERTIFICATE-----",
		},
		{
			name: "certificate missing",
			tlsData: &VaultSecret{
				Data: map[string]any{},
			},
			key:           "cert",
			expectedCount: 0,
		},
		{
			name: "certificate empty",
			tlsData: &VaultSecret{
				Data: map[string]any{"cert": ""},
			},
			key:           "cert",
			expectedCount: 0,
		},
		{
			name: "certificate wrong type",
			tlsData: &VaultSecret{
				Data: map[string]any{"cert": 42},
			},
			key:           "cert",
			expectedCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var target string
			count := loadSingleCertificate(tt.tlsData, tt.key, &target, "test certificate", logger)

			assert.Equal(t, tt.expectedCount, count)
			assert.Equal(t, tt.expectedValue, target)
		})
	}
}

// Test loadTLSCertificateContent function
func TestLoadTLSCertificateContent(t *testing.T) {
	logger := newTestLogger()
	config := &Config{}

	tlsData := &VaultSecret{
		Data: map[string]any{
			"cert": "cert-content",
			"key":  "key-content",
			"ca":   "ca-content",
		},
	}

	count := loadTLSCertificateContent(config, tlsData, logger)

	assert.Equal(t, 3, count)
	assert.Equal(t, "cert-content", config.Server.TLS.CertContent)
	assert.Equal(t, "key-content", config.Server.TLS.KeyContent)
	assert.Equal(t, "ca-content", config.Server.TLS.CAContent)
}

// Test resolveVaultToken function
func TestResolveVaultToken(t *testing.T) {
	logger := newTestLogger()

	t.Run("token from config", func(t *testing.T) {
		token, err := resolveVaultToken(VaultConfig{Token: "direct-token"}, logger)
		require.NoError(t, err)
		assert.Equal(t, "direct-token", token)
	})

	t.Run("token from file", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "token")
		require.NoError(t, os.WriteFile(tokenFile, []byte("  file-token\n"), 0600))

		token, err := resolveVaultToken(VaultConfig{TokenFile: tokenFile}, logger)
		require.NoError(t, err)
		assert.Equal(t, "file-token", token)
	})

	t.Run("missing token file", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{TokenFile: "/nonexistent/token"}, logger)
		assert.Error(t, err)
	})

	t.Run("no token at all", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{}, logger)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "vault token is required")
	})
}

// Test NewVaultClient when disabled
func TestNewVaultClientDisabled(t *testing.T) {
	client, err := NewVaultClient(VaultConfig{Enabled: false}, newTestLogger())
	assert.NoError(t, err)
	assert.Nil(t, client)
}

// Test GetSecretV2 with nil client
func TestGetSecretV2NilClient(t *testing.T) {
	var vc *VaultClient
	_, err := vc.GetSecretV2("secret/data/test")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

// Test ApplyVaultSecrets with Vault disabled
func TestApplyVaultSecretsDisabled(t *testing.T) {
	config := &Config{
		Assistant: AssistantConfig{APIKey: "existing-key"},
	}

	err := ApplyVaultSecrets(config, newTestLogger())

	assert.NoError(t, err)
	assert.Equal(t, "existing-key", config.Assistant.APIKey)
}
