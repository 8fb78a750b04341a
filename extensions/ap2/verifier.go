package ap2

import (
	"encoding/json"
	"strings"

	ucp "github.com/ucp-foundation/ucp/go"
)

// Verifier checks checkout_mandate values submitted on complete. A
// mandate arrives as an SD-JWT style compound: a JWT followed by
// tilde-separated disclosure segments. Structural validation covers
// segment shape and header decodability; deep credential verification
// is delegated to the issuing platform's trust framework.
type Verifier struct{}

// NewVerifier returns a structural mandate verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// VerifyMandate validates the mandate presented for the given checkout.
// It returns a mandate_invalid_signature error when the token is
// structurally unusable.
func (v *Verifier) VerifyMandate(mandate string, checkout *ucp.Checkout) error {
	if strings.TrimSpace(mandate) == "" {
		return invalidMandate("checkout mandate is empty")
	}

	segments := strings.Split(mandate, "~")
	jwt := segments[0]
	if jwt == "" {
		return invalidMandate("checkout mandate has no issuer token")
	}

	parts := strings.Split(jwt, ".")
	if len(parts) != 3 {
		return invalidMandate("checkout mandate token is not a compact JWT")
	}
	for i, part := range parts[:2] {
		if part == "" {
			return invalidMandate("checkout mandate token has an empty segment")
		}
		raw, err := b64urlDecode(part)
		if err != nil {
			return invalidMandate("checkout mandate token is not base64url encoded")
		}
		var decoded map[string]interface{}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return invalidMandate("checkout mandate token carries malformed JSON")
		}
		if i == 0 {
			if alg, ok := decoded["alg"].(string); !ok || alg == "" {
				return invalidMandate("checkout mandate token header is missing alg")
			}
		}
	}
	if _, err := b64urlDecode(parts[2]); err != nil {
		return invalidMandate("checkout mandate signature is not base64url encoded")
	}
	return nil
}

func invalidMandate(message string) *ucp.Error {
	return ucp.NewError(ucp.ErrCodeMandateInvalidSignature, message, ucp.SeverityRequiresBuyerInput)
}
