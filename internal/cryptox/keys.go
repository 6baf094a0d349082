// Package cryptox holds the cryptographic primitives of the directory:
// public-key parsing, signature verification, GUID derivation and password
// hashing.
package cryptox

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/MobilityFirst/GNS-sub011/internal/common"
)

// ParsePublicKey decodes a base64 X.509 (PKIX) public key. RSA and Ed25519
// keys are accepted.
func ParsePublicKey(encoded string) (crypto.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorBadPublicKey, err)
	}
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorBadPublicKey, err)
	}
	switch pub.(type) {
	case *rsa.PublicKey, ed25519.PublicKey:
		return pub, nil
	default:
		return nil, fmt.Errorf("%w: unsupported key type %T", common.ErrorBadPublicKey, pub)
	}
}

// EncodePublicKey is the inverse of ParsePublicKey.
func EncodePublicKey(pub crypto.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorBadPublicKey, err)
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// Verify checks a hex-encoded signature over message. RSA keys use PKCS#1
// v1.5 with SHA-256.
func Verify(pub crypto.PublicKey, hexSignature string, message []byte) error {
	sig, err := hex.DecodeString(hexSignature)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorBadSignature, err)
	}
	switch key := pub.(type) {
	case *rsa.PublicKey:
		digest := sha256.Sum256(message)
		if err := rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sig); err != nil {
			return fmt.Errorf("%w: %v", common.ErrorBadSignature, err)
		}
		return nil
	case ed25519.PublicKey:
		if !ed25519.Verify(key, message, sig) {
			return common.ErrorBadSignature
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported key type %T", common.ErrorBadPublicKey, pub)
	}
}

// Sign produces the hex signature Verify accepts. Clients and tests use it.
func Sign(priv crypto.Signer, message []byte) (string, error) {
	var (
		sig []byte
		err error
	)
	switch key := priv.(type) {
	case *rsa.PrivateKey:
		digest := sha256.Sum256(message)
		sig, err = rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	case ed25519.PrivateKey:
		sig = ed25519.Sign(key, message)
	default:
		return "", fmt.Errorf("%w: unsupported key type %T", common.ErrorBadPublicKey, priv)
	}
	if err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(sig)), nil
}

// GuidFromPublicKey derives the GUID of a base64 public key: the uppercase
// hex SHA-1 of the decoded key bytes.
func GuidFromPublicKey(encoded string) (string, error) {
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorBadPublicKey, err)
	}
	sum := sha1.Sum(der)
	return strings.ToUpper(hex.EncodeToString(sum[:])), nil
}
