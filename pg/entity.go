package pg

import (
	"context"
	"time"

	"github.com/spf13/cast"
	"github.com/uptrace/bun"

	"github.com/datakit-io/datakit/meta"
)

// DefaultTenantID is stamped onto new rows when the context carries no
// tenant. Kept at 0 so single-tenant deployments work without middleware.
const DefaultTenantID int64 = 0

// BaseEntity provides the common columns shared by all persistent entities:
// a numeric primary key, create/update timestamps, audit fields, a free-form
// remark, and the owning tenant. Embed it in concrete bun models.
type BaseEntity struct {
	// ID is the numeric primary key.
	ID int64 `bun:"id,pk,autoincrement" json:"id"`
	// CreatedAt stores the timestamp when the record was created.
	CreatedAt time.Time `bun:"created_at,nullzero" json:"created_at"`
	// UpdatedAt stores the timestamp when the record was last updated.
	UpdatedAt time.Time `bun:"updated_at,nullzero" json:"updated_at"`
	// CreatedBy records the user who created the record.
	CreatedBy string `bun:"created_by,nullzero" json:"created_by,omitempty"`
	// UpdatedBy records the user who last updated the record.
	UpdatedBy string `bun:"updated_by,nullzero" json:"updated_by,omitempty"`
	// Remark holds a free-form note attached to the record.
	Remark string `bun:"remark,nullzero" json:"remark,omitempty"`
	// TenantID identifies the tenant owning the record.
	TenantID int64 `bun:"tenant_id" json:"tenant_id"`
}

// GetID returns the primary key value.
func (m *BaseEntity) GetID() int64 { return m.ID }

// Verify that BaseEntity implements bun.BeforeAppendModelHook.
var _ bun.BeforeAppendModelHook = (*BaseEntity)(nil)

// BeforeAppendModel implements bun.BeforeAppendModelHook to stamp timestamps,
// audit fields, and the tenant id before inserts and updates.
func (m *BaseEntity) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now()
	user := meta.Get(ctx, meta.UserID)

	switch query.(type) {
	case *bun.InsertQuery:
		m.CreatedAt = now
		m.UpdatedAt = now
		if m.CreatedBy == "" {
			m.CreatedBy = user
		}
		if m.TenantID == 0 {
			m.TenantID = TenantFromContext(ctx)
		}
	case *bun.UpdateQuery:
		m.UpdatedAt = now
		if user != "" {
			m.UpdatedBy = user
		}
	}
	return nil
}

// TenantFromContext returns the tenant id carried in the context metadata,
// or DefaultTenantID when absent or unparsable.
func TenantFromContext(ctx context.Context) int64 {
	v := meta.Get(ctx, meta.TenantID)
	if v == "" {
		return DefaultTenantID
	}
	id, err := cast.ToInt64E(v)
	if err != nil {
		return DefaultTenantID
	}
	return id
}
