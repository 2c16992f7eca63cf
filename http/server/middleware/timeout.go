package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/datakit-io/datakit/http/server"
)

// NewTimeoutMW creates a middleware that applies a timeout to the request
// context, so downstream operations that respect context cancellation abort
// after the given duration.
func NewTimeoutMW(duration time.Duration) server.Middleware {
	return server.Middleware{
		Priority: 800,
		Handler: func(c *fiber.Ctx) error {
			ctx, cancel := context.WithTimeout(c.UserContext(), duration)
			defer cancel()

			c.SetUserContext(ctx)

			return c.Next()
		},
	}
}
