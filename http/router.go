// Package http is the HTTP surface: service discovery, health, and the
// embedded checkout routes, including the WebSocket endpoint that
// carries the embedded binding's JSON-RPC channel.
package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	ucp "github.com/ucp-foundation/ucp/go"
	"github.com/ucp-foundation/ucp/go/embedded"
)

// RouterConfig carries what the routes need beyond the service itself.
type RouterConfig struct {
	Service     *ucp.Service
	Sessions    *embedded.Manager
	ServiceName string
	MCPEndpoint string
	Logger      *slog.Logger
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Embedded checkouts are opened cross-origin by host applications.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "UCP Merchant Server"
	}
	s := &server{cfg: cfg}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.health)
	router.GET("/.well-known/ucp", s.discovery)

	ec := router.Group("/embedded-checkout")
	ec.GET("/:checkout_id", s.bootstrap)
	ec.GET("/:checkout_id/channel", s.channel)
	ec.POST("/:checkout_id/update", s.update)
	ec.POST("/:checkout_id/complete", s.complete)

	return router
}

type server struct {
	cfg RouterConfig
}

func (s *server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": s.cfg.ServiceName,
	})
}

// discovery publishes the service document: transport endpoints plus
// the declared capability set.
func (s *server) discovery(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"services": gin.H{
			"dev.ucp.shopping": gin.H{
				"version": ucp.ProtocolVersion,
				"mcp": gin.H{
					"schema":   "https://ucp.dev/services/shopping/mcp.openrpc.json",
					"endpoint": s.cfg.MCPEndpoint,
				},
				"embedded": gin.H{
					"schema": "https://ucp.dev/services/shopping/embedded.openrpc.json",
				},
				"capabilities": s.cfg.Service.Registry().Capabilities(),
			},
		},
	})
}

// bootstrap answers the embedding-open request: it validates the query
// contract and returns the checkout plus the delegation set that
// survived filtering. UI rendering is the embedder's concern; the
// response is JSON only.
func (s *server) bootstrap(c *gin.Context) {
	checkoutID := c.Param("checkout_id")
	cfg, err := embedded.ParseQuery(checkoutID, c.Request.URL.Query())
	if err != nil {
		writeError(c, ucp.NewError(ucp.ErrCodeInvalidRequest, err.Error(), ucp.SeverityRecoverable))
		return
	}

	profile := s.cfg.Service.Registry().AllActive()
	checkout, getErr := s.cfg.Service.Get(c.Request.Context(), profile, checkoutID)
	if getErr != nil {
		writeError(c, getErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"checkout_id": checkoutID,
		"version":     cfg.Version,
		"delegations": cfg.Delegates,
		"checkout":    checkout,
	})
}

// channel upgrades to a WebSocket and binds an embedded session to it.
// The connection carries JSON-RPC both ways: the host's ec.ready and
// delegation responses inbound, notifications and delegation requests
// outbound.
func (s *server) channel(c *gin.Context) {
	checkoutID := c.Param("checkout_id")
	cfg, err := embedded.ParseQuery(checkoutID, c.Request.URL.Query())
	if err != nil {
		writeError(c, ucp.NewError(ucp.ErrCodeInvalidRequest, err.Error(), ucp.SeverityRecoverable))
		return
	}
	if _, getErr := s.cfg.Service.Get(c.Request.Context(), nil, checkoutID); getErr != nil {
		writeError(c, getErr)
		return
	}

	conn, upErr := upgrader.Upgrade(c.Writer, c.Request, nil)
	if upErr != nil {
		s.cfg.Logger.Error("websocket upgrade failed", "checkout_id", checkoutID, "error", upErr)
		return
	}

	channel := embedded.NewWebsocketChannel(conn)
	handler := s.cfg.Sessions.Open(cfg, channel, embedded.WithHandlerLogger(s.cfg.Logger))
	s.cfg.Logger.Info("embedded session opened",
		"checkout_id", checkoutID,
		"session_id", handler.Session().ID,
		"delegations", cfg.Delegates)

	go func() {
		defer func() {
			s.cfg.Sessions.Close(handler)
			channel.Close()
		}()
		err := channel.ReadLoop(func(message []byte) error {
			return handler.HandleMessage(context.Background(), message)
		})
		if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			s.cfg.Logger.Info("embedded session closed", "checkout_id", checkoutID, "error", err)
		}
	}()
}

type updateBody struct {
	LineItems   []ucp.LineItem   `json:"line_items,omitempty"`
	Buyer       *ucp.Buyer       `json:"buyer,omitempty"`
	Fulfillment *ucp.Fulfillment `json:"fulfillment,omitempty"`
	Payment     *ucp.Payment     `json:"payment,omitempty"`
	Discounts   *struct {
		Codes []string `json:"codes"`
	} `json:"discounts,omitempty"`
}

type completeBody struct {
	IdempotencyKey string       `json:"idempotency_key"`
	Buyer          *ucp.Buyer   `json:"buyer,omitempty"`
	Payment        *ucp.Payment `json:"payment,omitempty"`
	Ap2            *ucp.Ap2     `json:"ap2,omitempty"`
}

func (s *server) update(c *gin.Context) {
	checkoutID := c.Param("checkout_id")
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, ucp.NewError(ucp.ErrCodeInvalidRequest, "could not read request body", ucp.SeverityRecoverable))
		return
	}
	if verr := validateBody(updateValidator, raw); verr != nil {
		writeError(c, verr)
		return
	}
	var body updateBody
	if err := json.Unmarshal(raw, &body); err != nil {
		writeError(c, ucp.NewError(ucp.ErrCodeInvalidRequest, "malformed request body", ucp.SeverityRecoverable))
		return
	}

	req := &ucp.Request{
		LineItems:   body.LineItems,
		Buyer:       body.Buyer,
		Fulfillment: body.Fulfillment,
		Payment:     body.Payment,
	}
	if body.Discounts != nil {
		req.DiscountCodes = body.Discounts.Codes
	}

	checkout, uerr := s.mutate(c, checkoutID, req, false)
	if uerr != nil {
		writeError(c, uerr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "checkout": checkout})
}

func (s *server) complete(c *gin.Context) {
	checkoutID := c.Param("checkout_id")
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, ucp.NewError(ucp.ErrCodeInvalidRequest, "could not read request body", ucp.SeverityRecoverable))
		return
	}
	if verr := validateBody(completeValidator, raw); verr != nil {
		writeError(c, verr)
		return
	}
	var body completeBody
	if err := json.Unmarshal(raw, &body); err != nil {
		writeError(c, ucp.NewError(ucp.ErrCodeInvalidRequest, "malformed request body", ucp.SeverityRecoverable))
		return
	}

	req := &ucp.Request{
		Buyer:          body.Buyer,
		Payment:        body.Payment,
		Ap2:            body.Ap2,
		IdempotencyKey: body.IdempotencyKey,
	}
	checkout, cerr := s.mutate(c, checkoutID, req, true)
	if cerr != nil {
		writeError(c, cerr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "checkout": checkout})
}

// mutate routes a mutation through the live embedded session when one
// exists so change notifications fire; otherwise straight through the
// service.
func (s *server) mutate(c *gin.Context, checkoutID string, req *ucp.Request, complete bool) (*ucp.Checkout, error) {
	ctx := c.Request.Context()
	if handler, ok := s.cfg.Sessions.Lookup(checkoutID); ok {
		if complete {
			return handler.Complete(ctx, req)
		}
		return handler.Update(ctx, req)
	}
	profile := s.cfg.Service.Registry().AllActive()
	if complete {
		return s.cfg.Service.Complete(ctx, profile, checkoutID, req)
	}
	return s.cfg.Service.Update(ctx, profile, checkoutID, req)
}

// writeError maps the shared taxonomy onto HTTP statuses and writes the
// error envelope.
func writeError(c *gin.Context, err error) {
	ce := ucp.AsError(err)
	status := http.StatusBadRequest
	switch ce.Code {
	case ucp.ErrCodeNotFound, ucp.ErrCodeProductNotFound:
		status = http.StatusNotFound
	case ucp.ErrCodeAlreadyCompleted, ucp.ErrCodeCanceled, ucp.ErrCodeInvalidMutation:
		status = http.StatusConflict
	case ucp.ErrCodeInternal:
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"status": "error", "errors": []*ucp.Error{ce}})
}
