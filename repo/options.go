package repo

// options holds PgRepo construction settings.
type options struct {
	entityName       string
	schemaName       string
	idColumn         string
	notFoundCode     string
	conflictCodesMap map[string]string
}

// Option configures a PgRepo.
type Option func(*options)

// WithEntityName overrides the entity name used in error messages.
// Defaults to the Go type name of E.
func WithEntityName(name string) Option {
	return func(o *options) { o.entityName = name }
}

// WithSchema sets the PostgreSQL schema the entity table lives in.
// Defaults to "public".
func WithSchema(name string) Option {
	return func(o *options) { o.schemaName = name }
}

// WithIDColumn sets the primary key column. Defaults to "id".
func WithIDColumn(column string) Option {
	return func(o *options) { o.idColumn = column }
}

// WithNotFoundCode sets the error code used for not-found errors.
// Defaults to CodeNotFound.
func WithNotFoundCode(code string) Option {
	return func(o *options) { o.notFoundCode = code }
}

// WithConflictCodes maps PostgreSQL constraint names to error codes,
// e.g. map["users_email_key"] = "EMAIL_ALREADY_EXISTS".
func WithConflictCodes(codes map[string]string) Option {
	return func(o *options) { o.conflictCodesMap = codes }
}

func defaultOptions() options {
	return options{
		schemaName:       "public",
		idColumn:         "id",
		notFoundCode:     CodeNotFound,
		conflictCodesMap: map[string]string{},
	}
}
