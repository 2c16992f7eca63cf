// Package middleware provides fiber middleware components for HTTP servers
// built with the server package.
//
// Each middleware declares a Priority that determines its execution order;
// higher values run earlier in the request pipeline:
//
//   - Recovery (1000): catches panics in the middleware chain
//   - Timeout (800): applies a timeout to the request context
//   - Tenant (700): resolves the tenant and injects request metadata
//   - Logger (500): logs request and response details
//   - ErrorHandler (400): converts errors to standardized responses
package middleware
