package tenant

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/datakit-io/datakit/logger"
	"github.com/datakit-io/datakit/meta"
)

// NewMiddleware creates a fiber middleware that resolves the tenant for the
// request and injects it, together with a trace id, into the request context
// metadata.
//
// A missing or malformed tenant header is not an error: the request proceeds
// under the default tenant, which keeps the middleware compatible with
// non-multi-tenant deployments.
func NewMiddleware() fiber.Handler {
	log := logger.Named("tenant")

	return func(c *fiber.Ctx) error {
		tenantID := DefaultTenantID

		if raw := c.Get(HeaderTenantID); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				log.With("header", raw).Warn("malformed tenant header, using default tenant")
			} else {
				tenantID = parsed
			}
		} else {
			log.Infof("no tenant in request, using default tenant %d", DefaultTenantID)
		}

		traceID := meta.Get(c.UserContext(), meta.TraceID)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := meta.Inject(c.UserContext(), map[meta.ContextKey]string{
			meta.TenantID:  strconv.FormatInt(tenantID, 10),
			meta.TraceID:   traceID,
			meta.IPAddress: c.IP(),
			meta.UserAgent: c.Get(fiber.HeaderUserAgent),
		})
		c.SetUserContext(ctx)

		return c.Next()
	}
}
