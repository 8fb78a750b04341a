package ap2

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	ucp "github.com/ucp-foundation/ucp/go"
)

func sampleCheckout() *ucp.Checkout {
	return &ucp.Checkout{
		ID:       "checkout_test",
		Status:   ucp.StatusReadyForComplete,
		Currency: "USD",
		LineItems: []ucp.LineItem{{
			ID:       "li_1",
			Item:     ucp.Item{ID: "prod_mug", Title: "Mug", Price: 1500},
			Quantity: 2,
		}},
		Buyer:  &ucp.Buyer{Email: "buyer@example.com"},
		Totals: []ucp.Total{{Type: "total", DisplayText: "Total", Amount: 3000}},
	}
}

func TestCanonicalizeDeterministic(t *testing.T) {
	c := sampleCheckout()
	a, err := Canonicalize(c)
	if err != nil {
		t.Fatalf("Canonicalize failed: %v", err)
	}
	b, err := Canonicalize(c.Clone())
	if err != nil {
		t.Fatalf("Canonicalize failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("canonical forms differ:\n%s\n%s", a, b)
	}
	if bytes.ContainsAny(a, "\n\t ") {
		t.Error("canonical JSON must carry no insignificant whitespace")
	}
}

func TestCanonicalizeSortsKeys(t *testing.T) {
	out, err := Canonicalize(map[string]int{"zeta": 1, "alpha": 2, "mid": 3})
	if err != nil {
		t.Fatalf("Canonicalize failed: %v", err)
	}
	want := `{"alpha":2,"mid":3,"zeta":1}`
	if string(out) != want {
		t.Fatalf("expected %s, got %s", want, out)
	}
}

// Mock signer under test: the signature is a SHA-256 digest of the
// signing input, so the round trip is fully deterministic.
func TestMockSignerRoundTrip(t *testing.T) {
	auth := NewAuthorizer(MockSigner{Kid: "merchant_key_1"})
	checkout := sampleCheckout()

	sig, err := auth.SignCheckout(checkout)
	if err != nil {
		t.Fatalf("SignCheckout failed: %v", err)
	}

	parts := strings.Split(sig, ".")
	if len(parts) != 3 || parts[1] != "" {
		t.Fatalf("expected detached form header..signature, got %q", sig)
	}

	headerRaw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		t.Fatalf("header is not base64url: %v", err)
	}
	var header map[string]string
	if err := json.Unmarshal(headerRaw, &header); err != nil {
		t.Fatalf("header is not JSON: %v", err)
	}
	if header["alg"] != "ES256" || header["kid"] != "merchant_key_1" {
		t.Fatalf("unexpected header %v", header)
	}

	// Independently recompute the signature over the same input.
	input, err := auth.SigningInput(checkout)
	if err != nil {
		t.Fatalf("SigningInput failed: %v", err)
	}
	digest := sha256.Sum256(input)
	want := base64.RawURLEncoding.EncodeToString(digest[:])
	if parts[2] != want {
		t.Fatalf("signature not reproducible: got %s want %s", parts[2], want)
	}
}

func TestSigningExcludesAp2Field(t *testing.T) {
	auth := NewAuthorizer(MockSigner{})
	plain := sampleCheckout()
	signed := sampleCheckout()
	signed.Ap2 = &ucp.Ap2{MerchantAuthorization: "prior-signature"}

	a, err := auth.SignCheckout(plain)
	if err != nil {
		t.Fatalf("SignCheckout failed: %v", err)
	}
	b, err := auth.SignCheckout(signed)
	if err != nil {
		t.Fatalf("SignCheckout failed: %v", err)
	}
	if a != b {
		t.Fatal("signature must cover the checkout with its ap2 field removed")
	}
}

// Ecdsa signer under test: signatures are randomized, so verify against
// the public key instead of comparing bytes.
func TestEcdsaSignerProducesVerifiableSignature(t *testing.T) {
	signer, err := GenerateEcdsaSigner("merchant_key_2")
	if err != nil {
		t.Fatalf("GenerateEcdsaSigner failed: %v", err)
	}
	auth := NewAuthorizer(signer)
	checkout := sampleCheckout()

	sig, err := auth.SignCheckout(checkout)
	if err != nil {
		t.Fatalf("SignCheckout failed: %v", err)
	}
	parts := strings.Split(sig, ".")
	raw, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		t.Fatalf("signature is not base64url: %v", err)
	}
	if len(raw) != 64 {
		t.Fatalf("ES256 signature must be 64 bytes r||s, got %d", len(raw))
	}

	input, err := auth.SigningInput(checkout)
	if err != nil {
		t.Fatalf("SigningInput failed: %v", err)
	}
	digest := sha256.Sum256(input)
	r := new(big.Int).SetBytes(raw[:32])
	s := new(big.Int).SetBytes(raw[32:])
	if !ecdsa.Verify(signer.PublicKey(), digest[:], r, s) {
		t.Fatal("signature does not verify against the public key")
	}
}

func TestResponseSignerAttachesAuthorization(t *testing.T) {
	ext := NewResponseSigner(MockSigner{})
	checkout := sampleCheckout()

	if _, err := ext.Apply(context.Background(), &ucp.Request{Op: ucp.OpGet}, checkout); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if checkout.Ap2 == nil || checkout.Ap2.MerchantAuthorization == "" {
		t.Fatal("expected merchant authorization on the response")
	}
	if !strings.Contains(checkout.Ap2.MerchantAuthorization, "..") {
		t.Errorf("expected detached form, got %s", checkout.Ap2.MerchantAuthorization)
	}
}

func validMandate() string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"ES256","typ":"vc+sd-jwt"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"iss":"https://platform.example"}`))
	sig := base64.RawURLEncoding.EncodeToString([]byte("signature-bytes"))
	return header + "." + payload + "." + sig + "~disclosure~"
}

func TestMandateVerifierRequiresMandateOnComplete(t *testing.T) {
	ext := NewMandateVerifier()
	req := &ucp.Request{Op: ucp.OpComplete, IdempotencyKey: "key-1"}

	_, err := ext.Apply(context.Background(), req, sampleCheckout())
	ce := ucp.AsError(err)
	if ce.Code != ucp.ErrCodeMandateRequired {
		t.Fatalf("expected mandate_required, got %v", err)
	}
}

func TestMandateVerifierIgnoresOtherOperations(t *testing.T) {
	ext := NewMandateVerifier()
	req := &ucp.Request{Op: ucp.OpUpdate}
	if _, err := ext.Apply(context.Background(), req, sampleCheckout()); err != nil {
		t.Fatalf("non-complete operations must pass without a mandate: %v", err)
	}
}

func TestMandateVerifierAcceptsWellFormedMandate(t *testing.T) {
	ext := NewMandateVerifier()
	req := &ucp.Request{
		Op:  ucp.OpComplete,
		Ap2: &ucp.Ap2{CheckoutMandate: validMandate()},
	}
	if _, err := ext.Apply(context.Background(), req, sampleCheckout()); err != nil {
		t.Fatalf("expected well-formed mandate to pass, got %v", err)
	}
}

func TestMandateVerifierRejectsMalformedMandates(t *testing.T) {
	cases := []struct {
		name    string
		mandate string
	}{
		{"not a jwt", "just-a-string"},
		{"two segments", "aGVhZGVy.cGF5bG9hZA"},
		{"bad base64", "!!!.cGF5bG9hZA.c2ln"},
		{"header not json", base64.RawURLEncoding.EncodeToString([]byte("nope")) + ".cGF5bG9hZA.c2ln"},
		{"empty issuer token", "~disclosure~"},
	}
	ext := NewMandateVerifier()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := &ucp.Request{
				Op:  ucp.OpComplete,
				Ap2: &ucp.Ap2{CheckoutMandate: tc.mandate},
			}
			_, err := ext.Apply(context.Background(), req, sampleCheckout())
			if ucp.AsError(err).Code != ucp.ErrCodeMandateInvalidSignature {
				t.Fatalf("expected mandate_invalid_signature, got %v", err)
			}
		})
	}
}
