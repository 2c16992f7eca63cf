// Package tenant propagates multi-tenancy information from incoming
// requests into the context.
//
// The middleware reads the tenant header and stores the tenant id in the
// request metadata. When no header is present the default tenant is used so
// single-tenant deployments keep working without any configuration.
package tenant

import (
	"context"
	"strconv"

	"github.com/datakit-io/datakit/meta"
	"github.com/datakit-io/datakit/pg"
)

// HeaderTenantID is the HTTP header carrying the tenant id.
const HeaderTenantID = "X-Tenant-Id"

// DefaultTenantID is used when the request carries no tenant information.
const DefaultTenantID = pg.DefaultTenantID

// WithTenant stores the tenant id in the context metadata.
func WithTenant(ctx context.Context, id int64) context.Context {
	return meta.Set(ctx, meta.TenantID, strconv.FormatInt(id, 10))
}

// FromContext returns the tenant id carried in the context, falling back to
// DefaultTenantID when absent or unparsable.
func FromContext(ctx context.Context) int64 {
	return pg.TenantFromContext(ctx)
}
