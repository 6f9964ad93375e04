package kalshi

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Signed request headers.
const (
	HeaderAccessKey       = "KALSHI-ACCESS-KEY"
	HeaderAccessTimestamp = "KALSHI-ACCESS-TIMESTAMP"
	HeaderAccessSignature = "KALSHI-ACCESS-SIGNATURE"
)

// Credentials sign requests with the account's RSA key.
type Credentials struct {
	KeyID      string
	PrivateKey *rsa.PrivateKey
}

// LoadCredentials reads the PEM private key at path.
func LoadCredentials(keyID, path string) (*Credentials, error) {
	if keyID == "" {
		return nil, errors.New("kalshi key id is required")
	}
	if path == "" {
		return nil, errors.New("kalshi private key path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	key, err := ParsePrivateKey(data)
	if err != nil {
		return nil, err
	}

	return &Credentials{KeyID: keyID, PrivateKey: key}, nil
}

// ParsePrivateKey decodes a PKCS#8 or PKCS#1 PEM encoded RSA key.
func ParsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("no PEM block in private key")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("private key is not RSA")
		}
		return rsaKey, nil
	}

	rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return rsaKey, nil
}

// Sign returns the auth headers for method and path at time now.
// path is the full URL path without the query string.
func (c *Credentials) Sign(now time.Time, method, path string) (map[string]string, error) {
	ts := now.UnixMilli()
	msg := strconv.FormatInt(ts, 10) + method + path
	digest := sha256.Sum256([]byte(msg))

	sig, err := rsa.SignPSS(rand.Reader, c.PrivateKey, crypto.SHA256, digest[:],
		&rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}

	return map[string]string{
		HeaderAccessKey:       c.KeyID,
		HeaderAccessTimestamp: strconv.FormatInt(ts, 10),
		HeaderAccessSignature: base64.StdEncoding.EncodeToString(sig),
	}, nil
}
