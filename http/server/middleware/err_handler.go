package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/datakit-io/datakit/http/server"
)

// NewErrorHandlerMW creates a middleware that converts errors from the
// handler chain into standardized JSON responses. Responses that already
// carry an error status are left untouched.
func NewErrorHandlerMW(hideDetails bool) server.Middleware {
	return server.Middleware{
		Priority: 400,
		Handler: func(c *fiber.Ctx) error {
			err := c.Next()
			if err == nil {
				return nil
			}

			if c.Response() != nil && c.Response().StatusCode() >= fiber.StatusBadRequest {
				return err
			}

			return server.WriteErrorResponse(c, err, hideDetails)
		},
	}
}
