package repo

import (
	"context"
	"fmt"
	"reflect"

	"github.com/code19m/errx"
	"github.com/uptrace/bun"

	"github.com/datakit-io/datakit/datafilter"
	"github.com/datakit-io/datakit/pagination"
	"github.com/datakit-io/datakit/pg"
	"github.com/datakit-io/datakit/query"
)

// Verify that PgRepo implements BaseRepository at compile time.
var _ BaseRepository[struct{}, int64] = (*PgRepo[struct{}, int64])(nil)

// PgRepo implements BaseRepository for a PostgreSQL database using bun.
type PgRepo[E any, ID any] struct {
	idb bun.IDB

	entityName       string
	schemaName       string
	idColumn         string
	notFoundCode     string
	conflictCodesMap map[string]string
}

// NewPgRepo creates a repository for entity E keyed by ID over the given
// bun database handle (a *bun.DB or a transaction).
func NewPgRepo[E any, ID any](idb bun.IDB, opts ...Option) *PgRepo[E, ID] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.entityName == "" {
		o.entityName = nameOf(new(E))
	}

	return &PgRepo[E, ID]{
		idb:              idb,
		entityName:       o.entityName,
		schemaName:       o.schemaName,
		idColumn:         o.idColumn,
		notFoundCode:     o.notFoundCode,
		conflictCodesMap: o.conflictCodesMap,
	}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *PgRepo[E, ID]) WithTx(tx bun.Tx) *PgRepo[E, ID] {
	clone := *r
	clone.idb = tx
	return &clone
}

func (r *PgRepo[E, ID]) FindByID(ctx context.Context, id ID) (*E, error) {
	return r.FindOne(ctx, query.Eq(r.idColumn, id))
}

func (r *PgRepo[E, ID]) FindAllByIDs(ctx context.Context, ids []ID) ([]E, error) {
	if len(ids) == 0 {
		return []E{}, nil
	}
	return r.FindAll(ctx, query.In(r.idColumn, ids))
}

func (r *PgRepo[E, ID]) FindAll(ctx context.Context, specs ...query.Spec) ([]E, error) {
	entities := make([]E, 0)
	q := r.selectQuery(ctx, &entities, specs)

	if err := q.Scan(ctx); err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(pg.ErrorDetails(err, q)))
	}

	return entities, nil
}

func (r *PgRepo[E, ID]) FindOne(ctx context.Context, specs ...query.Spec) (*E, error) {
	entities := make([]E, 0)
	q := r.selectQuery(ctx, &entities, specs).Limit(2) //nolint:mnd // limit 2 to detect multiple rows

	if err := q.Scan(ctx); err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(pg.ErrorDetails(err, q)))
	}

	if len(entities) == 0 {
		return nil, errx.New(
			fmt.Sprintf("no %s found", r.entityName),
			errx.WithCode(r.notFoundCode),
			errx.WithType(errx.T_NotFound),
		)
	}

	if len(entities) > 1 {
		return nil, errx.New(
			fmt.Sprintf("multiple %s found", r.entityName),
			errx.WithCode(CodeMultipleRowsFound),
		)
	}

	return &entities[0], nil
}

func (r *PgRepo[E, ID]) FirstOrNil(ctx context.Context, specs ...query.Spec) (*E, error) {
	entities := make([]E, 0)
	q := r.selectQuery(ctx, &entities, specs).Limit(1)

	if err := q.Scan(ctx); err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(pg.ErrorDetails(err, q)))
	}

	if len(entities) == 0 {
		return nil, nil //nolint:nilnil // nil result is the documented contract
	}

	return &entities[0], nil
}

func (r *PgRepo[E, ID]) FindLatest(ctx context.Context, limit int) ([]E, error) {
	if limit <= 0 {
		limit = DefaultLatestLimit
	}

	entities := make([]E, 0, limit)
	q := r.selectQuery(ctx, &entities, nil).
		OrderExpr("? DESC", bun.Ident(r.idColumn)).
		Limit(limit)

	if err := q.Scan(ctx); err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(pg.ErrorDetails(err, q)))
	}

	return entities, nil
}

func (r *PgRepo[E, ID]) FindPage(
	ctx context.Context,
	req pagination.Request,
	specs ...query.Spec,
) (pagination.Page[E], error) {
	req.Normalize()

	entities := make([]E, 0, req.Size)
	q := r.selectQuery(ctx, &entities, specs).
		Limit(req.Limit()).
		Offset(req.Offset())

	if err := q.Scan(ctx); err != nil {
		return pagination.Page[E]{}, errx.Wrap(err, errx.WithDetails(pg.ErrorDetails(err, q)))
	}

	count, err := q.Offset(0).Limit(0).Count(ctx)
	if err != nil {
		return pagination.Page[E]{}, errx.Wrap(err, errx.WithDetails(pg.ErrorDetails(err, q)))
	}

	return pagination.NewPage(entities, int64(count), req), nil
}

func (r *PgRepo[E, ID]) Count(ctx context.Context, specs ...query.Spec) (int64, error) {
	q := r.selectQuery(ctx, (*E)(nil), specs)

	count, err := q.Count(ctx)
	if err != nil {
		return 0, errx.Wrap(err, errx.WithDetails(pg.ErrorDetails(err, q)))
	}

	return int64(count), nil
}

func (r *PgRepo[E, ID]) Exists(ctx context.Context, specs ...query.Spec) (bool, error) {
	q := r.selectQuery(ctx, (*E)(nil), specs)

	exists, err := q.Exists(ctx)
	if err != nil {
		return false, errx.Wrap(err, errx.WithDetails(pg.ErrorDetails(err, q)))
	}

	return exists, nil
}

func (r *PgRepo[E, ID]) ExistsByID(ctx context.Context, id ID) (bool, error) {
	return r.Exists(ctx, query.Eq(r.idColumn, id))
}

func (r *PgRepo[E, ID]) ExistsByProperty(ctx context.Context, property, value string) (bool, error) {
	if err := query.ValidateIdent(property); err != nil {
		return false, err
	}
	return r.Exists(ctx, query.Eq(property, value))
}

func (r *PgRepo[E, ID]) SearchProperty(ctx context.Context, property, pattern string) ([]string, error) {
	if err := query.ValidateIdent(property); err != nil {
		return nil, err
	}

	values := make([]string, 0)
	q := r.idb.NewSelect().Model((*E)(nil))
	q = r.applyModelTableExpr(q)
	q = r.applyScope(ctx, q)
	q = q.ColumnExpr("DISTINCT ?", bun.Ident(property)).
		OrderExpr("? ASC", bun.Ident(property))
	if pattern != "" {
		q = query.Contains(property, pattern).Apply(q)
	}

	if err := q.Scan(ctx, &values); err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(pg.ErrorDetails(err, q)))
	}

	return values, nil
}

func (r *PgRepo[E, ID]) Save(ctx context.Context, entity *E) (*E, error) {
	q := r.idb.NewInsert().Model(entity).Returning("*")
	q = r.applyInsertModelTableExpr(q)

	if _, err := q.Exec(ctx); err != nil {
		if code, exists := r.conflictCodesMap[pg.ConstraintName(err)]; exists {
			return nil, errx.New(
				fmt.Sprintf("conflict while saving %s", r.entityName),
				errx.WithCode(code),
				errx.WithType(errx.T_Conflict),
				errx.WithDetails(pg.ErrorDetails(err, q)),
			)
		}
		return nil, errx.Wrap(err, errx.WithDetails(pg.ErrorDetails(err, q)))
	}

	return entity, nil
}

func (r *PgRepo[E, ID]) SaveAll(ctx context.Context, entities []E) error {
	if len(entities) == 0 {
		return nil
	}

	q := r.idb.NewInsert().Model(&entities)
	q = r.applyInsertModelTableExpr(q)

	if _, err := q.Exec(ctx); err != nil {
		if code, exists := r.conflictCodesMap[pg.ConstraintName(err)]; exists {
			return errx.New(
				fmt.Sprintf("conflict while saving %s", r.entityName),
				errx.WithCode(code),
				errx.WithType(errx.T_Conflict),
				errx.WithDetails(pg.ErrorDetails(err, q)),
			)
		}
		return errx.Wrap(err, errx.WithDetails(pg.ErrorDetails(err, q)))
	}

	return nil
}

func (r *PgRepo[E, ID]) Update(ctx context.Context, entity *E) (*E, error) {
	q := r.idb.NewUpdate().Model(entity).WherePK().Returning("*")
	q = r.applyUpdateModelTableExpr(q)

	result, err := q.Exec(ctx)
	if err != nil {
		if code, exists := r.conflictCodesMap[pg.ConstraintName(err)]; exists {
			return nil, errx.New(
				fmt.Sprintf("conflict while updating %s", r.entityName),
				errx.WithCode(code),
				errx.WithType(errx.T_Conflict),
				errx.WithDetails(pg.ErrorDetails(err, q)),
			)
		}
		return nil, errx.Wrap(err, errx.WithDetails(pg.ErrorDetails(err, q)))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, errx.Wrap(err)
	}

	if rowsAffected == 0 {
		return nil, errx.New(
			fmt.Sprintf("no %s found to update", r.entityName),
			errx.WithCode(CodeIncorrectAffection),
		)
	}

	return entity, nil
}

func (r *PgRepo[E, ID]) Delete(ctx context.Context, entity *E) error {
	q := r.idb.NewDelete().Model(entity).WherePK()
	q = r.applyDeleteModelTableExpr(q)

	result, err := q.Exec(ctx)
	if err != nil {
		return errx.Wrap(err, errx.WithDetails(pg.ErrorDetails(err, q)))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err)
	}

	if rowsAffected == 0 {
		return errx.New(
			fmt.Sprintf("no %s found to delete", r.entityName),
			errx.WithCode(CodeIncorrectAffection),
		)
	}

	return nil
}

func (r *PgRepo[E, ID]) DeleteByID(ctx context.Context, id ID) error {
	q := r.idb.NewDelete().Model((*E)(nil))
	q = r.applyDeleteModelTableExpr(q)
	q = q.Where("? = ?", bun.Ident(r.idColumn), id)

	result, err := q.Exec(ctx)
	if err != nil {
		return errx.Wrap(err, errx.WithDetails(pg.ErrorDetails(err, q)))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err)
	}

	if rowsAffected == 0 {
		return errx.New(
			fmt.Sprintf("no %s found to delete", r.entityName),
			errx.WithCode(r.notFoundCode),
			errx.WithType(errx.T_NotFound),
		)
	}

	return nil
}

func (r *PgRepo[E, ID]) DeleteAllByIDs(ctx context.Context, ids []ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	q := r.idb.NewDelete().Model((*E)(nil))
	q = r.applyDeleteModelTableExpr(q)
	q = q.Where("? IN (?)", bun.Ident(r.idColumn), bun.In(ids))

	result, err := q.Exec(ctx)
	if err != nil {
		return 0, errx.Wrap(err, errx.WithDetails(pg.ErrorDetails(err, q)))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errx.Wrap(err)
	}

	return rowsAffected, nil
}

func (r *PgRepo[E, ID]) DeleteAll(ctx context.Context) (int64, error) {
	q := r.idb.NewDelete().Model((*E)(nil))
	q = r.applyDeleteModelTableExpr(q)
	q = q.Where("TRUE")

	result, err := q.Exec(ctx)
	if err != nil {
		return 0, errx.Wrap(err, errx.WithDetails(pg.ErrorDetails(err, q)))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errx.Wrap(err)
	}

	return rowsAffected, nil
}

// selectQuery builds the base select for the given destination, applying the
// schema-qualified table expression, the context data filter, and the specs.
func (r *PgRepo[E, ID]) selectQuery(ctx context.Context, dest any, specs []query.Spec) *bun.SelectQuery {
	q := r.idb.NewSelect().Model(dest)
	q = r.applyModelTableExpr(q)
	q = r.applyScope(ctx, q)

	for _, s := range specs {
		if s != nil {
			q = s.Apply(q)
		}
	}

	return q
}

// applyScope applies the data filter carried in the context, if any.
func (r *PgRepo[E, ID]) applyScope(ctx context.Context, q *bun.SelectQuery) *bun.SelectQuery {
	if f, ok := datafilter.FromContext(ctx); ok {
		q = f.Apply(ctx, q)
	}
	return q
}

func (r *PgRepo[E, ID]) applyModelTableExpr(q *bun.SelectQuery) *bun.SelectQuery {
	table := q.GetModel().(bun.TableModel).Table() //nolint:errcheck // table name is always available
	return q.ModelTableExpr("?.? AS ?", bun.Ident(r.schemaName), bun.Ident(table.Name), bun.Ident(table.Alias))
}

func (r *PgRepo[E, ID]) applyInsertModelTableExpr(q *bun.InsertQuery) *bun.InsertQuery {
	table := q.GetModel().(bun.TableModel).Table() //nolint:errcheck // table name is always available
	return q.ModelTableExpr("?.? AS ?", bun.Ident(r.schemaName), bun.Ident(table.Name), bun.Ident(table.Alias))
}

func (r *PgRepo[E, ID]) applyUpdateModelTableExpr(q *bun.UpdateQuery) *bun.UpdateQuery {
	table := q.GetModel().(bun.TableModel).Table() //nolint:errcheck // table name is always available
	return q.ModelTableExpr("?.? AS ?", bun.Ident(r.schemaName), bun.Ident(table.Name), bun.Ident(table.Alias))
}

func (r *PgRepo[E, ID]) applyDeleteModelTableExpr(q *bun.DeleteQuery) *bun.DeleteQuery {
	table := q.GetModel().(bun.TableModel).Table() //nolint:errcheck // table name is always available
	return q.ModelTableExpr("?.? AS ?", bun.Ident(r.schemaName), bun.Ident(table.Name), bun.Ident(table.Alias))
}

// nameOf returns the name of the type of the given value.
// If the value is a pointer, it returns the name of the pointed-to type.
func nameOf(v any) string {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Pointer {
		return t.Elem().Name()
	}
	return t.Name()
}
