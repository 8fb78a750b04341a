package http

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	ucp "github.com/ucp-foundation/ucp/go"
)

// Request-shape schemas for the embedded checkout routes. Shape errors
// are rejected before any mutation is attempted.

const updateBodySchema = `{
	"type": "object",
	"properties": {
		"line_items": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"item": {
						"type": "object",
						"properties": {"id": {"type": "string", "minLength": 1}},
						"required": ["id"]
					},
					"quantity": {"type": "integer", "minimum": 1}
				},
				"required": ["item", "quantity"]
			}
		},
		"buyer": {
			"type": "object",
			"properties": {
				"email": {"type": "string"},
				"first_name": {"type": "string"},
				"last_name": {"type": "string"},
				"phone_number": {"type": "string"},
				"consent": {"type": "object"}
			}
		},
		"fulfillment": {"type": "object"},
		"payment": {"type": "object"},
		"discounts": {
			"type": "object",
			"properties": {
				"codes": {"type": "array", "items": {"type": "string"}}
			}
		}
	},
	"additionalProperties": false
}`

const completeBodySchema = `{
	"type": "object",
	"properties": {
		"idempotency_key": {"type": "string", "minLength": 1},
		"buyer": {"type": "object"},
		"payment": {"type": "object"},
		"ap2": {
			"type": "object",
			"properties": {
				"checkout_mandate": {"type": "string"}
			}
		}
	},
	"required": ["idempotency_key"],
	"additionalProperties": false
}`

var (
	updateValidator   = mustCompileSchema(updateBodySchema)
	completeValidator = mustCompileSchema(completeBodySchema)
)

func mustCompileSchema(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("http: invalid request schema: %v", err))
	}
	return schema
}

// validateBody checks a raw request body against a compiled schema and
// translates failures to the shared taxonomy.
func validateBody(schema *gojsonschema.Schema, body []byte) *ucp.Error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return ucp.NewError(ucp.ErrCodeInvalidRequest, "request body is not valid JSON", ucp.SeverityRecoverable)
	}
	if result.Valid() {
		return nil
	}
	details := make([]map[string]interface{}, 0, len(result.Errors()))
	for _, issue := range result.Errors() {
		details = append(details, map[string]interface{}{
			"field":       issue.Field(),
			"description": issue.Description(),
		})
	}
	return ucp.NewError(ucp.ErrCodeInvalidRequest, "request body failed validation", ucp.SeverityRecoverable).
		WithDetails(map[string]interface{}{"violations": details})
}
