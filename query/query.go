// Package query provides composable criteria for building dynamic SQL
// queries on top of the bun ORM.
//
// A Spec describes a restriction that can be applied to a *bun.SelectQuery.
// Specs are built from field predicates (Eq, In, Contains, ...), combined
// with And/Or/Not, derived from a probe entity with ByExample, or parsed
// from a sort string with ParseSort. Repositories accept Specs wherever the
// caller needs dynamic conditions.
package query

import (
	"regexp"

	"github.com/code19m/errx"
	"github.com/uptrace/bun"
)

// Spec describes a restriction applied to a select query.
type Spec interface {
	Apply(q *bun.SelectQuery) *bun.SelectQuery
}

// SpecFunc adapts a plain function to the Spec interface.
type SpecFunc func(q *bun.SelectQuery) *bun.SelectQuery

// Apply implements Spec.
func (f SpecFunc) Apply(q *bun.SelectQuery) *bun.SelectQuery { return f(q) }

// All combines the given specs so every one of them is applied in order.
// Applying no specs leaves the query unchanged.
func All(specs ...Spec) Spec {
	return SpecFunc(func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, s := range specs {
			if s != nil {
				q = s.Apply(q)
			}
		}
		return q
	})
}

// And groups the given specs into a parenthesized conjunction.
func And(specs ...Spec) Spec {
	return group(" AND ", specs)
}

// Or groups the given specs into a parenthesized disjunction.
func Or(specs ...Spec) Spec {
	return group(" OR ", specs)
}

// Not negates the conjunction of the given specs.
//
// bun renders a group's separator only after a preceding condition, so the
// negated group is anchored behind an always-true guard; without it the NOT
// would be dropped whenever the group opens the WHERE clause.
func Not(specs ...Spec) Spec {
	return SpecFunc(func(q *bun.SelectQuery) *bun.SelectQuery {
		specs := nonNil(specs)
		if len(specs) == 0 {
			return q
		}
		return q.WhereGroup(" AND ", func(sub *bun.SelectQuery) *bun.SelectQuery {
			sub = sub.Where("TRUE")
			return sub.WhereGroup(" AND NOT ", func(neg *bun.SelectQuery) *bun.SelectQuery {
				for _, s := range specs {
					neg = s.Apply(neg)
				}
				return neg
			})
		})
	})
}

// group joins the specs with sep inside a parenthesized group. Each spec is
// wrapped in a sub-group of its own: conditions a spec adds via Where are
// always AND-joined by bun, so the sep has to attach the sub-groups to each
// other rather than the individual conditions.
func group(sep string, specs []Spec) Spec {
	return SpecFunc(func(q *bun.SelectQuery) *bun.SelectQuery {
		specs := nonNil(specs)
		if len(specs) == 0 {
			return q
		}
		return q.WhereGroup(" AND ", func(sub *bun.SelectQuery) *bun.SelectQuery {
			for _, s := range specs {
				sub = sub.WhereGroup(sep, s.Apply)
			}
			return sub
		})
	})
}

func nonNil(specs []Spec) []Spec {
	out := specs[:0:0]
	for _, s := range specs {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

const codeInvalidProperty = "INVALID_PROPERTY"

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateIdent reports whether name is usable as a bare SQL identifier.
// Callers that accept property names from the outside (ExistsByProperty,
// SearchProperty) must validate them before query building.
func ValidateIdent(name string) error {
	if !identPattern.MatchString(name) {
		return errx.New(
			"invalid property name",
			errx.WithCode(codeInvalidProperty),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"property": name}),
		)
	}
	return nil
}
