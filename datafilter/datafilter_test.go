package datafilter_test

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/datakit-io/datakit/datafilter"
	"github.com/datakit-io/datakit/meta"
	"github.com/datakit-io/datakit/tenant"
)

type document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID        int64  `bun:"id,pk,autoincrement"`
	Title     string `bun:"title"`
	TenantID  int64  `bun:"tenant_id"`
	CreatedBy string `bun:"created_by"`
	DeptID    string `bun:"dept_id"`
}

func newBunDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })
	return bun.NewDB(sqldb, pgdialect.New())
}

func render(t *testing.T, ctx context.Context, f datafilter.Filter) string {
	t.Helper()
	db := newBunDB(t)
	q := db.NewSelect().Model((*document)(nil))
	return f.Apply(ctx, q).String()
}

func TestFilterApply(t *testing.T) {
	t.Run("all scope adds nothing", func(t *testing.T) {
		rendered := render(t, context.Background(), datafilter.Filter{Scope: datafilter.ScopeAll})
		assert.NotContains(t, rendered, "WHERE")
	})

	t.Run("tenant scope uses the context tenant", func(t *testing.T) {
		ctx := tenant.WithTenant(context.Background(), 42)
		rendered := render(t, ctx, datafilter.Tenant())
		assert.Contains(t, rendered, `"tenant_id" = 42`)
	})

	t.Run("tenant scope falls back to the default tenant", func(t *testing.T) {
		rendered := render(t, context.Background(), datafilter.Tenant())
		assert.Contains(t, rendered, `"tenant_id" = 0`)
	})

	t.Run("self scope uses the context user", func(t *testing.T) {
		ctx := meta.Set(context.Background(), meta.UserID, "u-17")
		rendered := render(t, ctx, datafilter.Self())
		assert.Contains(t, rendered, `"created_by" = 'u-17'`)
	})

	t.Run("dept scope restricts to the department set", func(t *testing.T) {
		rendered := render(t, context.Background(), datafilter.Departments("d1", "d2", "d1"))
		assert.Contains(t, rendered, `"dept_id" IN ('d1', 'd2')`)
	})

	t.Run("custom scope restricts to column in values", func(t *testing.T) {
		rendered := render(t, context.Background(), datafilter.Custom("region", "eu", "us"))
		assert.Contains(t, rendered, `"region" IN ('eu', 'us')`)
	})

	t.Run("empty dept set matches nothing", func(t *testing.T) {
		rendered := render(t, context.Background(), datafilter.Departments())
		assert.Contains(t, rendered, "FALSE")
	})

	t.Run("column override", func(t *testing.T) {
		f := datafilter.Self()
		f.Column = "owner"
		ctx := meta.Set(context.Background(), meta.UserID, "u-17")
		rendered := render(t, ctx, f)
		assert.Contains(t, rendered, `"owner" = 'u-17'`)
	})
}

func TestFilterContext(t *testing.T) {
	_, ok := datafilter.FromContext(context.Background())
	assert.False(t, ok)

	ctx := datafilter.WithContext(context.Background(), datafilter.Departments("d1"))
	f, ok := datafilter.FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, datafilter.ScopeDept, f.Scope)
	assert.Equal(t, []string{"d1"}, f.Values)
}
