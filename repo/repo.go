// Package repo provides the generic base repository for persistent entities.
//
// BaseRepository is the contract application repositories embed; PgRepo is
// its PostgreSQL implementation over the bun ORM. Finders accept optional
// query.Spec restrictions and automatically honor a datafilter.Filter when
// one travels in the context, so data-scope rules apply uniformly.
package repo

import (
	"context"

	"github.com/datakit-io/datakit/pagination"
	"github.com/datakit-io/datakit/query"
)

// DefaultLatestLimit is the number of rows FindLatest returns when callers
// pass a non-positive limit.
const DefaultLatestLimit = 25

// Error codes shared by repository implementations.
const (
	CodeNotFound           = "OBJECT_NOT_FOUND"
	CodeMultipleRowsFound  = "MULTIPLE_ROWS_FOUND"
	CodeIncorrectAffection = "INCORRECT_ROWS_AFFECTION"
)

// ReadOnlyRepository defines the read side of the generic repository for
// entities of type E with primary keys of type ID.
type ReadOnlyRepository[E any, ID any] interface {
	// FindByID retrieves an entity by its primary key.
	// Returns a CodeNotFound error when no row matches.
	FindByID(ctx context.Context, id ID) (*E, error)
	// FindAllByIDs returns the entities with the given ids. Missing ids are
	// skipped; the order of results is unspecified.
	FindAllByIDs(ctx context.Context, ids []ID) ([]E, error)
	// FindAll returns all entities matching the given specs.
	FindAll(ctx context.Context, specs ...query.Spec) ([]E, error)
	// FindOne returns the single entity matching the given specs.
	// Returns CodeNotFound when none matches and CodeMultipleRowsFound when
	// more than one does.
	FindOne(ctx context.Context, specs ...query.Spec) (*E, error)
	// FirstOrNil returns the first entity matching the specs, or nil when
	// none matches.
	FirstOrNil(ctx context.Context, specs ...query.Spec) (*E, error)
	// FindLatest returns the most recently created entities, newest first.
	// A non-positive limit falls back to DefaultLatestLimit.
	FindLatest(ctx context.Context, limit int) ([]E, error)
	// FindPage returns one page of entities matching the specs together with
	// pagination metadata.
	FindPage(ctx context.Context, req pagination.Request, specs ...query.Spec) (pagination.Page[E], error)
	// Count returns the number of entities matching the specs.
	Count(ctx context.Context, specs ...query.Spec) (int64, error)
	// Exists checks whether any entity matches the specs.
	Exists(ctx context.Context, specs ...query.Spec) (bool, error)
	// ExistsByID checks whether an entity with the given id exists.
	ExistsByID(ctx context.Context, id ID) (bool, error)
	// ExistsByProperty checks whether any entity has the given value in the
	// named column. The property name is validated before query building.
	ExistsByProperty(ctx context.Context, property, value string) (bool, error)
	// SearchProperty returns the distinct values of the named column that
	// contain the given pattern, sorted ascending.
	SearchProperty(ctx context.Context, property, pattern string) ([]string, error)
}

// BaseRepository adds the write side to ReadOnlyRepository.
type BaseRepository[E any, ID any] interface {
	ReadOnlyRepository[E, ID]

	// Save inserts a new entity and returns it with database-assigned fields
	// populated.
	Save(ctx context.Context, entity *E) (*E, error)
	// SaveAll inserts multiple entities in a single statement.
	SaveAll(ctx context.Context, entities []E) error
	// Update modifies an existing entity by primary key and returns it.
	// Returns a CodeIncorrectAffection error when no row was updated.
	Update(ctx context.Context, entity *E) (*E, error)
	// Delete removes an entity by its primary key fields.
	Delete(ctx context.Context, entity *E) error
	// DeleteByID removes the entity with the given id.
	DeleteByID(ctx context.Context, id ID) error
	// DeleteAllByIDs removes the entities with the given ids and returns the
	// number of rows actually deleted.
	DeleteAllByIDs(ctx context.Context, ids []ID) (int64, error)
	// DeleteAll removes every entity of the type and returns the number of
	// rows deleted.
	DeleteAll(ctx context.Context) (int64, error)
}
