package middleware

import (
	"github.com/datakit-io/datakit/http/server"
	"github.com/datakit-io/datakit/tenant"
)

// NewTenantMW creates a middleware that resolves the request tenant and
// injects it, together with trace and client metadata, into the request
// context. See tenant.NewMiddleware for the resolution rules.
func NewTenantMW() server.Middleware {
	return server.Middleware{
		Priority: 700,
		Handler:  tenant.NewMiddleware(),
	}
}
