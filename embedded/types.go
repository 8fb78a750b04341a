// Package embedded implements the embedded-checkout binding: a
// JSON-RPC 2.0 session layer between an embedded checkout surface and
// its host application. The session drives the same store mutations as
// the tool-call binding and forwards delegated requests (payment
// credentials, address changes) to the host over a bidirectional
// message channel.
package embedded

import "encoding/json"

// Version is the JSON-RPC protocol version on every message.
const Version = "2.0"

// Methods the embedded checkout sends to its host. ec.ready is the only
// server-originated request in the handshake; the rest are
// notifications or host-bound delegation requests.
const (
	MethodReady          = "ec.ready"
	MethodStart          = "ec.start"
	MethodComplete       = "ec.complete"
	MethodLineItems      = "ec.line_items.change"
	MethodBuyer          = "ec.buyer.change"
	MethodPayment        = "ec.payment.change"
	MethodFulfillment    = "ec.fulfillment.change"
	MethodMessages       = "ec.messages.change"
	MethodInstrumentsReq = "ec.payment.instruments_change_request"
	MethodCredentialReq  = "ec.payment.credential_request"
	MethodAddressReq     = "ec.fulfillment.address_change_request"
)

// Delegation identifiers a host may grant the embedding.
const (
	DelegatePaymentInstruments = "payment.instruments_change"
	DelegatePaymentCredential  = "payment.credential"
	DelegateFulfillmentAddress = "fulfillment.address_change"
)

// SupportedDelegations is the full set of delegations this server
// implements. Requested delegations outside this set are silently
// dropped during negotiation.
var SupportedDelegations = []string{
	DelegatePaymentInstruments,
	DelegatePaymentCredential,
	DelegateFulfillmentAddress,
}

// Reserved application error codes, below the JSON-RPC reserved range.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeUserCancelled    = -32001
	CodeDelegationFailed = -32002
	CodeCheckoutNotFound = -32003
	CodeInvalidState     = -32004
)

// Request is a JSON-RPC 2.0 request. Notifications are Requests with no
// ID and are never answered. Ids are kept raw because hosts may use
// either strings or numbers; responses echo the id byte for byte.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the message expects no response.
func (r *Request) IsNotification() bool { return len(r.ID) == 0 }

// Response is a JSON-RPC 2.0 response, success or error.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject is the JSON-RPC error member.
type ErrorObject struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewNotification builds a notification message.
func NewNotification(method string, params interface{}) (*Request, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return &Request{JSONRPC: Version, Method: method, Params: raw}, nil
}

// NewRequest builds a request message carrying a string id.
func NewRequest(id, method string, params interface{}) (*Request, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	rawID, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	return &Request{JSONRPC: Version, ID: rawID, Method: method, Params: raw}, nil
}

// idKey normalizes a raw id for map lookups: string ids lose their
// quotes so responses match the plain ids requests were registered
// under, and any other form keys by its raw bytes.
func idKey(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func marshalParams(params interface{}) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// ReadyParams is what the host sends on ec.ready.
type ReadyParams struct {
	Delegate []string `json:"delegate,omitempty"`
}

// ReadyResult answers ec.ready.
type ReadyResult struct {
	Upgrade  bool        `json:"upgrade,omitempty"`
	Checkout interface{} `json:"checkout,omitempty"`
}

// CheckoutParams carries the full checkout on every notification and
// delegation request.
type CheckoutParams struct {
	Checkout interface{} `json:"checkout"`
}
