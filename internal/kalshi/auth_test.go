package kalshi

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestCredentials_Sign(t *testing.T) {
	key := testKey(t)
	creds := &Credentials{KeyID: "key-1", PrivateKey: key}
	now := time.UnixMilli(1_700_000_000_123)

	headers, err := creds.Sign(now, "GET", "/trade-api/v2/portfolio/balance")
	require.NoError(t, err)

	assert.Equal(t, "key-1", headers[HeaderAccessKey])
	assert.Equal(t, "1700000000123", headers[HeaderAccessTimestamp])

	sig, err := base64.StdEncoding.DecodeString(headers[HeaderAccessSignature])
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("1700000000123GET/trade-api/v2/portfolio/balance"))
	err = rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, digest[:], sig,
		&rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
	assert.NoError(t, err)
}

func TestLoadCredentials(t *testing.T) {
	key := testKey(t)
	dir := t.TempDir()

	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pkcs8Path := filepath.Join(dir, "pkcs8.pem")
	require.NoError(t, os.WriteFile(pkcs8Path, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8}), 0o600))

	pkcs1Path := filepath.Join(dir, "pkcs1.pem")
	require.NoError(t, os.WriteFile(pkcs1Path,
		pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}), 0o600))

	for _, path := range []string{pkcs8Path, pkcs1Path} {
		creds, err := LoadCredentials("kid", path)
		require.NoError(t, err, path)
		assert.True(t, key.Equal(creds.PrivateKey), path)
	}

	_, err = LoadCredentials("", pkcs8Path)
	assert.Error(t, err)
	_, err = LoadCredentials("kid", "")
	assert.Error(t, err)
	_, err = LoadCredentials("kid", filepath.Join(dir, "missing.pem"))
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a pem"), 0o600))
	_, err = LoadCredentials("kid", garbage)
	assert.Error(t, err)
}
