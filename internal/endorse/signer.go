package endorse

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"github.com/remedykit/bill-endorser/internal/apperrors"
)

// Signer signs endorsement payloads with an RSA private key using PKCS#1
// v1.5 padding over a SHA-256 digest. The scheme is deterministic: the same
// payload and key always produce the same signature.
type Signer struct {
	key *rsa.PrivateKey
}

// NewSigner parses PEM key material (PKCS#1 or PKCS#8) and returns a ready
// signer. Supplying no material at all is a precondition failure.
func NewSigner(pemData []byte) (*Signer, error) {
	if len(pemData) == 0 {
		return nil, fmt.Errorf("%w: no private key material supplied", apperrors.ErrConfiguration)
	}

	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found in key material", apperrors.ErrKeyLoad)
	}

	key, err := parsePrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrKeyLoad, err)
	}

	return &Signer{key: key}, nil
}

// NewSignerFromKey wraps an already loaded RSA private key.
func NewSignerFromKey(key *rsa.PrivateKey) (*Signer, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: no private key material supplied", apperrors.ErrConfiguration)
	}
	return &Signer{key: key}, nil
}

func parsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("not a PKCS#1 or PKCS#8 private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("PKCS#8 key is %T, not an RSA private key", parsed)
	}
	return key, nil
}

// Sign computes the signature over the payload's canonical serialization and
// returns a new SignedPayload; the input payload is not modified.
func (s *Signer) Sign(p Payload) (SignedPayload, error) {
	digest := sha256.Sum256(p.CanonicalBytes())
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
	if err != nil {
		return SignedPayload{}, fmt.Errorf("%w: %v", apperrors.ErrSigning, err)
	}

	return SignedPayload{
		Payload:   p,
		Signature: base64.StdEncoding.EncodeToString(sig),
	}, nil
}

// Verify checks a base64 signature against the payload's canonical
// serialization using the signer's public key.
func (s *Signer) Verify(p Payload, signature string) error {
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("invalid base64 signature: %w", err)
	}
	digest := sha256.Sum256(p.CanonicalBytes())
	if err := rsa.VerifyPKCS1v15(&s.key.PublicKey, crypto.SHA256, digest[:], sig); err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}
	return nil
}

// PublicKey exposes the verification key.
func (s *Signer) PublicKey() *rsa.PublicKey {
	return &s.key.PublicKey
}
