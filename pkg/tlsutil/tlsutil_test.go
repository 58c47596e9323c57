package tlsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerOption_DisabledWithoutFiles(t *testing.T) {
	opt, err := ServerOption("", "")
	require.NoError(t, err)
	assert.Nil(t, opt)
}

func TestServerOption_MissingFiles(t *testing.T) {
	_, err := ServerOption("/nonexistent/cert.pem", "/nonexistent/key.pem")
	assert.Error(t, err)
}

func TestClientCredentials(t *testing.T) {
	creds, err := ClientCredentials("", true)
	require.NoError(t, err)
	assert.Equal(t, "insecure", creds.Info().SecurityProtocol)

	creds, err = ClientCredentials("", false)
	require.NoError(t, err)
	assert.Equal(t, "tls", creds.Info().SecurityProtocol)

	_, err = ClientCredentials("/nonexistent/ca.pem", false)
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(bad, []byte("not a certificate"), 0o600))
	_, err = ClientCredentials(bad, false)
	assert.Error(t, err)
}
