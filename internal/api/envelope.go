package api

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/reelhouse/reelhouse-server/internal/http/response"
)

// EnvelopeTransformer wraps every huma response body in response.Envelope.
// Errors arrive as *APIError and become failure envelopes.
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	switch body := v.(type) {
	case response.Envelope:
		return body, nil
	case *APIError:
		return response.Fail(body.Code, body.Message, body.Details), nil
	case *huma.ErrorModel:
		return response.Fail(statusToCode(body.Status), body.Detail, body.Errors), nil
	default:
		return response.Ok(v), nil
	}
}
