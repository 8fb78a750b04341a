// ucpd is the merchant server: it serves the tool-call binding over
// MCP, the embedded checkout binding over HTTP + WebSocket, and the
// service discovery document.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	ucp "github.com/ucp-foundation/ucp/go"
	"github.com/ucp-foundation/ucp/go/embedded"
	"github.com/ucp-foundation/ucp/go/extensions/ap2"
	"github.com/ucp-foundation/ucp/go/extensions/consent"
	"github.com/ucp-foundation/ucp/go/extensions/discount"
	ucphttp "github.com/ucp-foundation/ucp/go/http"
	ucpmcp "github.com/ucp-foundation/ucp/go/mcp"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	host := envOr("UCP_HOST", "localhost")
	port := envOr("UCP_PORT", "10999")
	baseURL := fmt.Sprintf("http://%s:%s", host, port)

	signer, err := buildSigner(logger)
	if err != nil {
		return err
	}

	catalog := ucp.DemoCatalog()
	store := ucp.NewStore(catalog,
		ucp.WithStoreLogger(logger),
		ucp.WithOrderPermalinkBase(baseURL+"/orders"),
		ucp.WithInstruments(demoInstruments()),
		ucp.WithFulfillmentGroups(demoFulfillmentGroups()),
	)

	registry := ucp.NewRegistry()
	registry.Register(ucp.Capability{
		Name:    ucp.CapabilityDiscount,
		Version: ucp.ProtocolVersion,
		Spec:    "https://ucp.dev/specification/discounts",
		Schema:  "https://ucp.dev/schemas/shopping/discount.json",
		Extends: ucp.CapabilityCheckout,
	})
	registry.Register(ucp.Capability{
		Name:    ucp.CapabilityBuyerConsent,
		Version: ucp.ProtocolVersion,
		Spec:    "https://ucp.dev/specification/buyer-consent",
		Schema:  "https://ucp.dev/schemas/shopping/buyer_consent.json",
		Extends: ucp.CapabilityCheckout,
	})
	registry.Register(ucp.Capability{
		Name:    ucp.CapabilityAp2Mandate,
		Version: ucp.ProtocolVersion,
		Spec:    "https://ucp.dev/specification/ap2-mandates",
		Schema:  "https://ucp.dev/schemas/shopping/ap2_mandate.json",
		Extends: ucp.CapabilityCheckout,
		Config: map[string]interface{}{
			"vp_formats_supported": map[string]interface{}{
				"dc+sd-jwt": map[string]interface{}{},
			},
		},
	})

	service := ucp.NewService(store,
		ucp.WithRegistry(registry),
		ucp.WithLogger(logger),
		ucp.WithExtensions(
			consent.New(),
			discount.New(discount.SampleCodes(), discount.WithAutomatic("Loyalty reward", 200)),
			ap2.NewMandateVerifier(),
			ap2.NewResponseSigner(signer),
		),
	)

	mcpServer := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "UCP Merchant Server",
		Version: ucp.ProtocolVersion,
	}, nil)
	ucpmcp.NewServer(service, catalog, ucpmcp.WithServerLogger(logger)).Register(mcpServer)

	sseHandler := mcpsdk.NewSSEHandler(func(req *http.Request) *mcpsdk.Server {
		return mcpServer
	}, nil)

	router := ucphttp.NewRouter(ucphttp.RouterConfig{
		Service:     service,
		Sessions:    embedded.NewManager(service),
		MCPEndpoint: baseURL + "/mcp",
		Logger:      logger,
	})
	router.GET("/mcp", gin.WrapH(sseHandler))
	router.POST("/mcp", gin.WrapH(sseHandler))

	addr := host + ":" + port
	logger.Info("starting server",
		"addr", addr,
		"capabilities", registry.Capabilities(),
	)
	return router.Run(addr)
}

// buildSigner selects the merchant authorization signer strategy from
// configuration. There is no implicit fallback: mock signing must be
// asked for.
func buildSigner(logger *slog.Logger) (ap2.Signer, error) {
	kid := envOr("UCP_SIGNING_KEY_ID", "merchant_key_1")
	switch mode := envOr("UCP_SIGNER", "mock"); mode {
	case "mock":
		logger.Warn("using mock signer; merchant authorizations are not verifiable")
		return ap2.MockSigner{Kid: kid}, nil
	case "ecdsa":
		signer, err := ap2.GenerateEcdsaSigner(kid)
		if err != nil {
			return nil, fmt.Errorf("generating signing key: %w", err)
		}
		return signer, nil
	default:
		return nil, fmt.Errorf("unknown UCP_SIGNER value %q", mode)
	}
}

func demoInstruments() []ucp.PaymentInstrument {
	return []ucp.PaymentInstrument{
		{ID: "pi_visa_1234", Type: "card", DisplayText: "Visa ending in 1234"},
		{ID: "pi_amex_0005", Type: "card", DisplayText: "Amex ending in 0005"},
	}
}

func demoFulfillmentGroups() []ucp.FulfillmentGroup {
	return []ucp.FulfillmentGroup{
		{
			ID: "fg_shipping_speed",
			Options: []ucp.FulfillmentOption{
				{ID: "fo_standard", Title: "Standard shipping", Subtitle: "5-7 business days", Amount: 500},
				{ID: "fo_express", Title: "Express shipping", Subtitle: "1-2 business days", Amount: 1500},
			},
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func logLevel() slog.Level {
	switch os.Getenv("UCP_LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
