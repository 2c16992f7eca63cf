package query

import (
	"strings"

	"github.com/uptrace/bun"
)

// Eq restricts the query to rows where column equals value.
func Eq(column string, value any) Spec {
	return SpecFunc(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? = ?", bun.Ident(column), value)
	})
}

// NotEq restricts the query to rows where column does not equal value.
func NotEq(column string, value any) Spec {
	return SpecFunc(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? != ?", bun.Ident(column), value)
	})
}

// Gt restricts the query to rows where column is greater than value.
func Gt(column string, value any) Spec {
	return SpecFunc(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? > ?", bun.Ident(column), value)
	})
}

// Gte restricts the query to rows where column is greater than or equal to value.
func Gte(column string, value any) Spec {
	return SpecFunc(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? >= ?", bun.Ident(column), value)
	})
}

// Lt restricts the query to rows where column is less than value.
func Lt(column string, value any) Spec {
	return SpecFunc(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? < ?", bun.Ident(column), value)
	})
}

// Lte restricts the query to rows where column is less than or equal to value.
func Lte(column string, value any) Spec {
	return SpecFunc(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? <= ?", bun.Ident(column), value)
	})
}

// In restricts the query to rows where column is one of values.
// An empty values slice yields a condition that matches nothing.
func In[T any](column string, values []T) Spec {
	return SpecFunc(func(q *bun.SelectQuery) *bun.SelectQuery {
		if len(values) == 0 {
			return q.Where("FALSE")
		}
		return q.Where("? IN (?)", bun.Ident(column), bun.In(values))
	})
}

// NotIn restricts the query to rows where column is not one of values.
func NotIn[T any](column string, values []T) Spec {
	return SpecFunc(func(q *bun.SelectQuery) *bun.SelectQuery {
		if len(values) == 0 {
			return q
		}
		return q.Where("? NOT IN (?)", bun.Ident(column), bun.In(values))
	})
}

// Between restricts the query to rows where column lies in [low, high].
func Between(column string, low, high any) Spec {
	return SpecFunc(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? BETWEEN ? AND ?", bun.Ident(column), low, high)
	})
}

// IsNull restricts the query to rows where column is NULL.
func IsNull(column string) Spec {
	return SpecFunc(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? IS NULL", bun.Ident(column))
	})
}

// NotNull restricts the query to rows where column is not NULL.
func NotNull(column string) Spec {
	return SpecFunc(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? IS NOT NULL", bun.Ident(column))
	})
}

// Contains restricts the query to rows where column contains the substring.
func Contains(column, substring string) Spec {
	return like(column, "%"+EscapeLike(substring)+"%", false)
}

// ContainsFold is a case-insensitive Contains.
func ContainsFold(column, substring string) Spec {
	return like(column, "%"+EscapeLike(substring)+"%", true)
}

// HasPrefix restricts the query to rows where column starts with the prefix.
func HasPrefix(column, prefix string) Spec {
	return like(column, EscapeLike(prefix)+"%", false)
}

// HasSuffix restricts the query to rows where column ends with the suffix.
func HasSuffix(column, suffix string) Spec {
	return like(column, "%"+EscapeLike(suffix), false)
}

// Raw applies an arbitrary where clause with bun placeholders.
func Raw(clause string, args ...any) Spec {
	return SpecFunc(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where(clause, args...)
	})
}

func like(column, pattern string, fold bool) Spec {
	op := "LIKE"
	if fold {
		op = "ILIKE"
	}
	return SpecFunc(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? ? ?", bun.Ident(column), bun.Safe(op), pattern)
	})
}

// EscapeLike escapes LIKE wildcard characters in a user-provided fragment so
// it matches literally inside a pattern.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
