package mcp

import (
	"encoding/json"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	ucp "github.com/ucp-foundation/ucp/go"
)

// successResult wraps a checkout under the fixed response key and adds
// the active capability names so callers can see what was negotiated.
func successResult(checkout *ucp.Checkout, profile *ucp.Profile) (*mcpsdk.CallToolResult, error) {
	envelope := map[string]interface{}{
		"status":    "success",
		CheckoutKey: checkout,
	}
	if profile != nil {
		envelope["capabilities"] = profile.Names()
	}
	return jsonResult(envelope, false)
}

// dataResult wraps a non-checkout payload (product reads).
func dataResult(payload interface{}) (*mcpsdk.CallToolResult, error) {
	return jsonResult(map[string]interface{}{
		"status": "success",
		"data":   payload,
	}, false)
}

// errorResult translates any error into the shared envelope. The
// JSON-RPC layer never sees internal errors; the tool result carries
// the taxonomy and IsError.
func errorResult(err error) (*mcpsdk.CallToolResult, error) {
	ce := ucp.AsError(err)
	return jsonResult(map[string]interface{}{
		"status": "error",
		"errors": []*ucp.Error{ce},
	}, true)
}

func jsonResult(payload interface{}, isError bool) (*mcpsdk.CallToolResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &mcpsdk.CallToolResult{
		IsError: isError,
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(raw)},
		},
		StructuredContent: payload,
	}, nil
}

// profileURI reads the negotiated UCP profile URI from the request
// metadata envelope, if the caller sent one.
func profileURI(req *mcpsdk.CallToolRequest) string {
	if req == nil || req.Params.Meta == nil {
		return ""
	}
	meta := req.Params.Meta.GetMeta()
	if meta == nil {
		return ""
	}
	uri, _ := meta[metaProfileKey].(string)
	return uri
}

// decodeArgs unmarshals the raw tool arguments into the typed args
// struct.
func decodeArgs(req *mcpsdk.CallToolRequest, out interface{}) error {
	if req.Params.Arguments == nil {
		return ucp.NewError(ucp.ErrCodeInvalidRequest, "missing tool arguments", ucp.SeverityRecoverable)
	}
	if err := json.Unmarshal(req.Params.Arguments, out); err != nil {
		return ucp.NewError(ucp.ErrCodeInvalidRequest, "malformed tool arguments", ucp.SeverityRecoverable)
	}
	return nil
}
