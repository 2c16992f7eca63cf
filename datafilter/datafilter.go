// Package datafilter restricts queries to an authorized data scope.
//
// A Filter narrows result sets to the rows a caller is allowed to see: their
// tenant, their own records, their department set, or an explicit
// column/value list. Filters travel in the context so the repository layer
// can apply them to every scoped finder without the call sites threading
// them through.
package datafilter

import (
	"context"

	"github.com/samber/lo"
	"github.com/uptrace/bun"

	"github.com/datakit-io/datakit/meta"
	"github.com/datakit-io/datakit/pg"
	"github.com/datakit-io/datakit/query"
)

// Scope enumerates the supported visibility scopes.
type Scope int

const (
	// ScopeAll applies no restriction.
	ScopeAll Scope = iota
	// ScopeTenant restricts rows to the tenant carried in the context.
	ScopeTenant
	// ScopeSelf restricts rows to those created by the requesting user.
	ScopeSelf
	// ScopeDept restricts rows to a department set carried in Values.
	ScopeDept
	// ScopeCustom restricts rows to Column IN Values.
	ScopeCustom
)

// Default columns the scopes filter on. Override with Filter.Column.
const (
	defaultTenantColumn = "tenant_id"
	defaultSelfColumn   = "created_by"
	defaultDeptColumn   = "dept_id"
)

// Filter describes a data-scope restriction.
type Filter struct {
	// Scope selects the restriction kind.
	Scope Scope
	// Column overrides the default column for the scope.
	Column string
	// Values holds the allowed values for ScopeDept and ScopeCustom.
	Values []string
}

// Tenant returns a filter restricting rows to the context tenant.
func Tenant() Filter {
	return Filter{Scope: ScopeTenant}
}

// Self returns a filter restricting rows to those created by the
// requesting user.
func Self() Filter {
	return Filter{Scope: ScopeSelf}
}

// Departments returns a filter restricting rows to the given department ids.
func Departments(deptIDs ...string) Filter {
	return Filter{Scope: ScopeDept, Values: deptIDs}
}

// Custom returns a filter restricting rows to column IN values.
func Custom(column string, values ...string) Filter {
	return Filter{Scope: ScopeCustom, Column: column, Values: values}
}

// Spec converts the filter into a query.Spec bound to the given context.
// Scope values (tenant, user) are resolved when the spec is applied.
func (f Filter) Spec(ctx context.Context) query.Spec {
	return query.SpecFunc(func(q *bun.SelectQuery) *bun.SelectQuery {
		return f.Apply(ctx, q)
	})
}

// Apply adds the filter's restriction to the select query.
func (f Filter) Apply(ctx context.Context, q *bun.SelectQuery) *bun.SelectQuery {
	switch f.Scope {
	case ScopeTenant:
		return query.Eq(f.column(defaultTenantColumn), pg.TenantFromContext(ctx)).Apply(q)
	case ScopeSelf:
		return query.Eq(f.column(defaultSelfColumn), meta.Get(ctx, meta.UserID)).Apply(q)
	case ScopeDept:
		return query.In(f.column(defaultDeptColumn), lo.Uniq(f.Values)).Apply(q)
	case ScopeCustom:
		return query.In(f.Column, lo.Uniq(f.Values)).Apply(q)
	default:
		return q
	}
}

func (f Filter) column(fallback string) string {
	if f.Column != "" {
		return f.Column
	}
	return fallback
}

type contextKey struct{}

// WithContext stores the filter in the context for downstream repositories.
func WithContext(ctx context.Context, f Filter) context.Context {
	return context.WithValue(ctx, contextKey{}, f)
}

// FromContext retrieves the filter stored in the context, if any.
func FromContext(ctx context.Context) (Filter, bool) {
	f, ok := ctx.Value(contextKey{}).(Filter)
	return f, ok
}
