package ports

import (
	"context"
	"encoding/json"
)

// Row is one record returned by the backend, keyed by column name
type Row map[string]any

// Filter operators understood by every backend
const (
	OpEq  = "eq"
	OpNeq = "neq"
	OpGt  = "gt"
	OpGte = "gte"
	OpLt  = "lt"
	OpLte = "lte"
)

// Filter restricts a query to rows where Column Op Value
type Filter struct {
	Column string
	Op     string
	Value  any
}

// Eq matches rows whose column equals value
func Eq(column string, value any) Filter { return Filter{Column: column, Op: OpEq, Value: value} }

// Gte matches rows whose column is >= value
func Gte(column string, value any) Filter { return Filter{Column: column, Op: OpGte, Value: value} }

// Lt matches rows whose column is < value
func Lt(column string, value any) Filter { return Filter{Column: column, Op: OpLt, Value: value} }

// QuerySpec describes a single-table read
type QuerySpec struct {
	Table      string
	Columns    []string // empty selects every known column
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Backend is the data store the insight engine reads from and writes to.
// Implementations wrap their failures with DATABASE_ERROR or
// EXTERNAL_SERVICE_ERROR codes and report a missing stored procedure with
// core.ErrProcedureUnavailable.
type Backend interface {
	// Query reads rows from a table
	Query(ctx context.Context, spec QuerySpec) ([]Row, error)

	// RPC calls a stored procedure with named parameters and returns its JSON result
	RPC(ctx context.Context, fn string, params map[string]any) (json.RawMessage, error)

	// Upsert inserts rows, updating existing rows that collide on conflictKey
	Upsert(ctx context.Context, table string, rows []Row, conflictKey []string) ([]Row, error)
}
