package server

import (
	"cmp"
	"slices"

	"github.com/gofiber/fiber/v2"
)

// Middleware is an HTTP middleware with a priority for ordering.
// Higher priority values run earlier in the request pipeline.
type Middleware struct {
	Priority int
	Handler  fiber.Handler
}

// applyMiddlewares registers the middlewares on the fiber app in descending
// priority order. Nil handlers are skipped.
func applyMiddlewares(app *fiber.App, middlewares []Middleware) {
	slices.SortStableFunc(middlewares, func(a, b Middleware) int {
		return cmp.Compare(b.Priority, a.Priority)
	})

	for _, mw := range middlewares {
		if mw.Handler == nil {
			continue
		}
		app.Use(mw.Handler)
	}
}
