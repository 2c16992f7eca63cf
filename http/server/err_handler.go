package server

import (
	"errors"

	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"

	"github.com/datakit-io/datakit/meta"
)

// WriteErrorResponse writes a standardized error response to the fiber
// context. The HTTP status is derived from the errx error type; when
// hideDetails is true the trace and details are omitted from the payload.
func WriteErrorResponse(c *fiber.Ctx, err error, hideDetails bool) error {
	e := toErrorX(err)

	c.Status(statusCode(e.Type()))
	_ = c.JSON(map[string]any{
		"trace_id": meta.Get(c.UserContext(), meta.TraceID),
		"error":    buildErrorSchema(e, hideDetails),
	})

	return e
}

// errorSchema is the structure of error responses returned to clients.
type errorSchema struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Trace   string            `json:"trace,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Details map[string]any    `json:"details,omitempty"`
}

func buildErrorSchema(e errx.ErrorX, hideDetails bool) errorSchema {
	resp := errorSchema{
		Code:    e.Code(),
		Message: e.Error(),
		Fields:  e.Fields(),
	}
	if !hideDetails {
		resp.Trace = e.Trace()
		resp.Details = e.Details()
	}
	return resp
}

// statusCode converts an errx.Type to the matching HTTP status code.
func statusCode(t errx.Type) int {
	switch t {
	case errx.T_Authentication:
		return fiber.StatusUnauthorized
	case errx.T_Forbidden:
		return fiber.StatusForbidden
	case errx.T_NotFound:
		return fiber.StatusNotFound
	case errx.T_Validation:
		return fiber.StatusBadRequest
	case errx.T_Conflict:
		return fiber.StatusConflict
	case errx.T_Throttling:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

// toErrorX converts any error to errx.ErrorX, mapping fiber's own errors
// (unknown route, method not allowed, body too large) to matching types.
func toErrorX(err error) errx.ErrorX {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		var t errx.Type
		switch fiberErr.Code {
		case fiber.StatusUnauthorized:
			t = errx.T_Authentication
		case fiber.StatusForbidden:
			t = errx.T_Forbidden
		case fiber.StatusNotFound:
			t = errx.T_NotFound
		case fiber.StatusBadRequest:
			t = errx.T_Validation
		case fiber.StatusConflict:
			t = errx.T_Conflict
		case fiber.StatusTooManyRequests:
			t = errx.T_Throttling
		default:
			t = errx.T_Internal
		}

		return errx.AsErrorX(errx.New(fiberErr.Message, errx.WithType(t)))
	}

	return errx.AsErrorX(err)
}
