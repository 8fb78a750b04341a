package ap2

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	ucp "github.com/ucp-foundation/ucp/go"
)

// Signer produces the raw signature over a JWS signing input. The
// strategy is configuration-selected: MockSigner for demos and tests,
// EcdsaSigner when a real key is provisioned. There is no implicit
// runtime fallback between them.
type Signer interface {
	// Sign returns the signature bytes over the signing input.
	Sign(signingInput []byte) ([]byte, error)
	// Algorithm is the JWS alg header value.
	Algorithm() string
	// KeyID is the JWS kid header value.
	KeyID() string
}

// MockSigner substitutes a SHA-256 digest for a signature. Suitable
// only for demos; verification against it proves determinism, not
// authenticity.
type MockSigner struct {
	Kid string
}

func (m MockSigner) Sign(signingInput []byte) ([]byte, error) {
	sum := sha256.Sum256(signingInput)
	return sum[:], nil
}

func (m MockSigner) Algorithm() string { return "ES256" }

func (m MockSigner) KeyID() string {
	if m.Kid == "" {
		return "merchant_key_1"
	}
	return m.Kid
}

// EcdsaSigner signs with a P-256 key, producing the raw r||s form JWS
// requires (not ASN.1).
type EcdsaSigner struct {
	key *ecdsa.PrivateKey
	kid string
}

// NewEcdsaSigner wraps a P-256 private key.
func NewEcdsaSigner(key *ecdsa.PrivateKey, kid string) (*EcdsaSigner, error) {
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("ap2: ES256 requires a P-256 key, got %s", key.Curve.Params().Name)
	}
	return &EcdsaSigner{key: key, kid: kid}, nil
}

// GenerateEcdsaSigner creates a signer over a fresh P-256 key.
func GenerateEcdsaSigner(kid string) (*EcdsaSigner, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &EcdsaSigner{key: key, kid: kid}, nil
}

func (e *EcdsaSigner) Sign(signingInput []byte) ([]byte, error) {
	digest := sha256.Sum256(signingInput)
	r, s, err := ecdsa.Sign(rand.Reader, e.key, digest[:])
	if err != nil {
		return nil, err
	}
	sig := make([]byte, 64)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	return sig, nil
}

func (e *EcdsaSigner) Algorithm() string { return "ES256" }
func (e *EcdsaSigner) KeyID() string     { return e.kid }

// PublicKey exposes the verification key.
func (e *EcdsaSigner) PublicKey() *ecdsa.PublicKey { return &e.key.PublicKey }

// Authorizer builds merchant_authorization values: a detached JWS
// (header..signature, empty payload segment) over the canonical JSON of
// the checkout with its own ap2 field removed.
type Authorizer struct {
	signer Signer
}

// NewAuthorizer creates an authorizer over the given signer strategy.
func NewAuthorizer(signer Signer) *Authorizer {
	return &Authorizer{signer: signer}
}

// SignCheckout computes the detached signature for a checkout response.
func (a *Authorizer) SignCheckout(checkout *ucp.Checkout) (string, error) {
	input, header, err := a.signingInput(checkout)
	if err != nil {
		return "", err
	}
	sig, err := a.signer.Sign(input)
	if err != nil {
		return "", err
	}
	return header + ".." + b64url(sig), nil
}

// SigningInput exposes the exact bytes signed for a checkout, for
// verifiers and tests.
func (a *Authorizer) SigningInput(checkout *ucp.Checkout) ([]byte, error) {
	input, _, err := a.signingInput(checkout)
	return input, err
}

func (a *Authorizer) signingInput(checkout *ucp.Checkout) (input []byte, encodedHeader string, err error) {
	body := checkout.Clone()
	body.Ap2 = nil

	payload, err := Canonicalize(body)
	if err != nil {
		return nil, "", err
	}
	headerJSON, err := json.Marshal(map[string]string{
		"alg": a.signer.Algorithm(),
		"kid": a.signer.KeyID(),
	})
	if err != nil {
		return nil, "", err
	}
	encodedHeader = b64url(headerJSON)
	input = []byte(encodedHeader + "." + b64url(payload))
	return input, encodedHeader, nil
}

func b64url(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

func b64urlDecode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}
