// Package mcp is the tool-call binding: each checkout operation is
// exposed as one tool, mapping one call to one store mutation plus
// extension pass. The binding is stateless; negotiation state lives in
// the capability registry and the checkout store.
package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	ucp "github.com/ucp-foundation/ucp/go"
)

// Server registers the checkout tools on an MCP server.
type Server struct {
	service *ucp.Service
	catalog ucp.Catalog
	logger  *slog.Logger
}

// ServerOption configures the tool-call binding.
type ServerOption func(*Server)

// WithServerLogger sets the binding logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates the binding over the shared service and catalog.
func NewServer(service *ucp.Service, catalog ucp.Catalog, opts ...ServerOption) *Server {
	s := &Server{service: service, catalog: catalog, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds every checkout tool to the MCP server.
func (s *Server) Register(server *mcpsdk.Server) {
	server.AddTool(&mcpsdk.Tool{
		Name:        "create_checkout",
		Description: "Create a checkout from a list of line items. Buyer, payment, and discount codes may be provided up front.",
		InputSchema: objectSchema(map[string]interface{}{
			"line_items": map[string]interface{}{"type": "array"},
			"buyer":      map[string]interface{}{"type": "object"},
			"payment":    map[string]interface{}{"type": "object"},
			"discounts":  map[string]interface{}{"type": "object"},
		}, "line_items"),
	}, s.createCheckout)

	server.AddTool(&mcpsdk.Tool{
		Name:        "get_checkout",
		Description: "Fetch the current state of a checkout.",
		InputSchema: objectSchema(map[string]interface{}{
			"checkout_id": map[string]interface{}{"type": "string"},
		}, "checkout_id"),
	}, s.getCheckout)

	server.AddTool(&mcpsdk.Tool{
		Name:        "update_checkout",
		Description: "Apply a partial update to a checkout. Present sections replace; absent sections are untouched.",
		InputSchema: objectSchema(map[string]interface{}{
			"checkout_id": map[string]interface{}{"type": "string"},
			"line_items":  map[string]interface{}{"type": "array"},
			"buyer":       map[string]interface{}{"type": "object"},
			"fulfillment": map[string]interface{}{"type": "object"},
			"payment":     map[string]interface{}{"type": "object"},
			"discounts":   map[string]interface{}{"type": "object"},
		}, "checkout_id"),
	}, s.updateCheckout)

	server.AddTool(&mcpsdk.Tool{
		Name:        "complete_checkout",
		Description: "Finalize a ready checkout and place the order. Requires an idempotency key; safe to retry with the same key.",
		InputSchema: objectSchema(map[string]interface{}{
			"checkout_id":     map[string]interface{}{"type": "string"},
			"idempotency_key": map[string]interface{}{"type": "string"},
			"buyer":           map[string]interface{}{"type": "object"},
			"payment":         map[string]interface{}{"type": "object"},
			"ap2":             map[string]interface{}{"type": "object"},
		}, "checkout_id", "idempotency_key"),
	}, s.completeCheckout)

	server.AddTool(&mcpsdk.Tool{
		Name:        "cancel_checkout",
		Description: "Cancel a checkout that has not completed. Canceled checkouts are terminal.",
		InputSchema: objectSchema(map[string]interface{}{
			"checkout_id": map[string]interface{}{"type": "string"},
		}, "checkout_id"),
	}, s.cancelCheckout)

	server.AddTool(&mcpsdk.Tool{
		Name:        "search_products",
		Description: "Search the product catalog by title or description.",
		InputSchema: objectSchema(map[string]interface{}{
			"query": map[string]interface{}{"type": "string"},
		}),
	}, s.searchProducts)

	server.AddTool(&mcpsdk.Tool{
		Name:        "get_product",
		Description: "Fetch one product by id.",
		InputSchema: objectSchema(map[string]interface{}{
			"product_id": map[string]interface{}{"type": "string"},
		}, "product_id"),
	}, s.getProduct)
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// profile resolves the capability profile for a call. The tool-call
// binding treats the caller's profile URI as implying the full business
// capability set; the URI is kept for logging.
func (s *Server) profile(req *mcpsdk.CallToolRequest) *ucp.Profile {
	if uri := profileURI(req); uri != "" {
		s.logger.Debug("tool call carries profile", "profile", uri)
	}
	return s.service.Registry().AllActive()
}

func (s *Server) createCheckout(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var args CreateCheckoutArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err)
	}
	profile := s.profile(req)
	mutation := &ucp.Request{
		LineItems: args.LineItems,
		Buyer:     args.Buyer,
		Payment:   args.Payment,
	}
	if args.Discounts != nil {
		mutation.DiscountCodes = args.Discounts.Codes
	}
	checkout, err := s.service.Create(ctx, profile, mutation)
	if err != nil {
		return errorResult(err)
	}
	return successResult(checkout, profile)
}

func (s *Server) getCheckout(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var args GetCheckoutArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err)
	}
	profile := s.profile(req)
	checkout, err := s.service.Get(ctx, profile, args.CheckoutID)
	if err != nil {
		return errorResult(err)
	}
	return successResult(checkout, profile)
}

func (s *Server) updateCheckout(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var args UpdateCheckoutArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err)
	}
	profile := s.profile(req)
	mutation := &ucp.Request{
		LineItems:   args.LineItems,
		Buyer:       args.Buyer,
		Fulfillment: args.Fulfillment,
		Payment:     args.Payment,
	}
	if args.Discounts != nil {
		mutation.DiscountCodes = args.Discounts.Codes
	}
	checkout, err := s.service.Update(ctx, profile, args.CheckoutID, mutation)
	if err != nil {
		return errorResult(err)
	}
	return successResult(checkout, profile)
}

func (s *Server) completeCheckout(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var args CompleteCheckoutArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err)
	}
	if args.IdempotencyKey == "" {
		return errorResult(ucp.NewError(ucp.ErrCodeInvalidRequest,
			"complete_checkout requires an idempotency_key", ucp.SeverityRecoverable))
	}
	profile := s.profile(req)
	mutation := &ucp.Request{
		Buyer:          args.Buyer,
		Payment:        args.Payment,
		Ap2:            args.Ap2,
		IdempotencyKey: args.IdempotencyKey,
	}
	checkout, err := s.service.Complete(ctx, profile, args.CheckoutID, mutation)
	if err != nil {
		return errorResult(err)
	}
	return successResult(checkout, profile)
}

func (s *Server) cancelCheckout(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var args CancelCheckoutArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err)
	}
	profile := s.profile(req)
	checkout, err := s.service.Cancel(ctx, profile, args.CheckoutID)
	if err != nil {
		return errorResult(err)
	}
	return successResult(checkout, profile)
}

func (s *Server) searchProducts(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var args SearchProductsArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err)
	}
	return dataResult(s.catalog.Search(args.Query))
}

func (s *Server) getProduct(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var args GetProductArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err)
	}
	product, ok := s.catalog.Get(args.ProductID)
	if !ok {
		return errorResult(ucp.NewError(ucp.ErrCodeProductNotFound,
			"no product with that id", ucp.SeverityRecoverable))
	}
	return dataResult(product)
}
