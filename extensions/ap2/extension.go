// Package ap2 implements the dev.ucp.shopping.ap2_mandate capability:
// merchant authorization signing of checkout responses and structural
// verification of buyer-presented checkout mandates.
package ap2

import (
	"context"

	ucp "github.com/ucp-foundation/ucp/go"
)

// ResponseSigner is a post-mutation extension that attaches a detached
// merchant_authorization JWS to every outgoing checkout. The signature
// never enters the store; it is recomputed on each response so it
// always covers the current canonical body.
type ResponseSigner struct {
	authorizer *Authorizer
}

var _ ucp.Extension = (*ResponseSigner)(nil)

// NewResponseSigner creates the signing extension over the given signer
// strategy.
func NewResponseSigner(signer Signer) *ResponseSigner {
	return &ResponseSigner{authorizer: NewAuthorizer(signer)}
}

func (s *ResponseSigner) Key() string { return ucp.CapabilityAp2Mandate }
func (s *ResponseSigner) Hook() ucp.Hook { return ucp.HookPostMutation }

func (s *ResponseSigner) Apply(ctx context.Context, req *ucp.Request, checkout *ucp.Checkout) ([]ucp.Message, error) {
	if checkout == nil {
		return nil, nil
	}
	sig, err := s.authorizer.SignCheckout(checkout)
	if err != nil {
		return nil, err
	}
	mandate := ""
	if checkout.Ap2 != nil {
		mandate = checkout.Ap2.CheckoutMandate
	} else if req != nil && req.Ap2 != nil {
		mandate = req.Ap2.CheckoutMandate
	}
	checkout.Ap2 = &ucp.Ap2{
		MerchantAuthorization: sig,
		CheckoutMandate:       mandate,
	}
	return nil, nil
}

// MandateVerifier is a pre-mutation extension that gates complete: when
// the capability is active, completing without a structurally valid
// checkout_mandate is rejected before any payment processing runs.
type MandateVerifier struct {
	verifier *Verifier
}

var _ ucp.Extension = (*MandateVerifier)(nil)

// NewMandateVerifier creates the mandate gate.
func NewMandateVerifier() *MandateVerifier {
	return &MandateVerifier{verifier: NewVerifier()}
}

func (m *MandateVerifier) Key() string { return ucp.CapabilityAp2Mandate }
func (m *MandateVerifier) Hook() ucp.Hook { return ucp.HookPreMutation }

func (m *MandateVerifier) Apply(ctx context.Context, req *ucp.Request, checkout *ucp.Checkout) ([]ucp.Message, error) {
	if req == nil || req.Op != ucp.OpComplete {
		return nil, nil
	}
	if req.Ap2 == nil || req.Ap2.CheckoutMandate == "" {
		return nil, ucp.NewError(ucp.ErrCodeMandateRequired,
			"completing this checkout requires a signed checkout mandate",
			ucp.SeverityRequiresBuyerInput)
	}
	if err := m.verifier.VerifyMandate(req.Ap2.CheckoutMandate, checkout); err != nil {
		return nil, err
	}
	return nil, nil
}
