package query

import (
	"slices"
	"strings"

	"github.com/uptrace/bun"
)

// Direction is a sort direction.
type Direction string

const (
	// Asc sorts ascending.
	Asc Direction = "asc"
	// Desc sorts descending.
	Desc Direction = "desc"
)

// Order is a single ordering term: a column and a direction.
type Order struct {
	Column string
	Dir    Direction
}

// Sort is an ordered list of ordering terms. It implements Spec so it can be
// passed to repository finders alongside predicates.
type Sort []Order

// Apply adds ORDER BY clauses to the query in term order.
func (s Sort) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	for _, o := range s {
		q = q.OrderExpr("? ?", bun.Ident(o.Column), bun.Safe(strings.ToUpper(string(o.Dir))))
	}
	return q
}

// OrderBy builds a Sort from the given terms.
func OrderBy(orders ...Order) Sort {
	return orders
}

// ParseSort parses a sorting string such as "name:asc,created_at:desc" into
// a Sort. Terms with unknown columns, disallowed columns, or invalid
// directions are dropped. allowedColumns is the allow-list of sortable
// columns; with an empty allow-list every term is dropped.
func ParseSort(sortString string, allowedColumns ...string) Sort {
	if sortString == "" {
		return nil
	}

	var sort Sort
	for pair := range strings.SplitSeq(sortString, ",") {
		column, dir, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}

		column = strings.TrimSpace(column)
		if !slices.Contains(allowedColumns, column) {
			continue
		}

		direction := Direction(strings.ToLower(strings.TrimSpace(dir)))
		if direction != Asc && direction != Desc {
			continue
		}

		sort = append(sort, Order{Column: column, Dir: direction})
	}

	return sort
}
