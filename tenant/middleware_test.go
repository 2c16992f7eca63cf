package tenant_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datakit-io/datakit/meta"
	"github.com/datakit-io/datakit/tenant"
)

func newTestApp(captured *map[meta.ContextKey]string) *fiber.App {
	app := fiber.New()
	app.Use(tenant.NewMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		*captured = meta.Extract(c.UserContext())
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestMiddlewareTenantHeader(t *testing.T) {
	var captured map[meta.ContextKey]string
	app := newTestApp(&captured)

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set(tenant.HeaderTenantID, "42")
	req.Header.Set(fiber.HeaderUserAgent, "datakit-test/1.0")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, "42", captured[meta.TenantID])
	assert.Equal(t, "datakit-test/1.0", captured[meta.UserAgent])
	assert.NotEmpty(t, captured[meta.TraceID])
	assert.NotEmpty(t, captured[meta.IPAddress])
}

func TestMiddlewareMissingHeaderUsesDefaultTenant(t *testing.T) {
	var captured map[meta.ContextKey]string
	app := newTestApp(&captured)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, "0", captured[meta.TenantID])
}

func TestMiddlewareMalformedHeaderUsesDefaultTenant(t *testing.T) {
	var captured map[meta.ContextKey]string
	app := newTestApp(&captured)

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set(tenant.HeaderTenantID, "not-a-number")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, "0", captured[meta.TenantID])
}

func TestMiddlewareKeepsExistingTraceID(t *testing.T) {
	app := fiber.New()

	var captured string
	app.Use(func(c *fiber.Ctx) error {
		c.SetUserContext(meta.Set(c.UserContext(), meta.TraceID, "trace-abc"))
		return c.Next()
	})
	app.Use(tenant.NewMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		captured = meta.Get(c.UserContext(), meta.TraceID)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "trace-abc", captured)
}

func TestWithTenant(t *testing.T) {
	ctx := tenant.WithTenant(context.Background(), 7)
	assert.Equal(t, int64(7), tenant.FromContext(ctx))

	assert.Equal(t, tenant.DefaultTenantID, tenant.FromContext(context.Background()))
}
