package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"taskquest/domain/core"
	"taskquest/internal/errors"
	"taskquest/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Dialect names match the registered database/sql driver names
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// sqliteTime sorts lexically in the same order as the instants it encodes
const sqliteTime = "2006-01-02 15:04:05.000000000"

// undefinedFunction is the Postgres error code for a missing function
const undefinedFunction = "42883"

var procedureName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

var operators = map[string]string{
	ports.OpEq:  "=",
	ports.OpNeq: "<>",
	ports.OpGt:  ">",
	ports.OpGte: ">=",
	ports.OpLt:  "<",
	ports.OpLte: "<=",
}

// Procedure is a Go implementation of a stored procedure, used where the database has none
type Procedure func(ctx context.Context, params map[string]any) (any, error)

// Store implements ports.Backend over a sqlx connection
type Store struct {
	db      *sqlx.DB
	dialect Dialect

	mu    sync.RWMutex
	procs map[string]Procedure
}

var _ ports.Backend = (*Store)(nil)

// New wraps db; the dialect follows the driver the connection was opened with
func New(db *sqlx.DB) *Store {
	dialect := DialectPostgres
	if db.DriverName() == string(DialectSQLite) {
		dialect = DialectSQLite
	}
	return &Store{db: db, dialect: dialect, procs: make(map[string]Procedure)}
}

// Dialect reports which SQL flavour the store speaks
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// DB exposes the underlying connection for migrations
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// RegisterProcedure installs a local procedure. On SQLite every RPC resolves here;
// on Postgres a registered procedure shadows the database function of the same name.
func (s *Store) RegisterProcedure(name string, fn Procedure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.procs[name] = fn
}

func (s *Store) procedure(name string) (Procedure, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn, ok := s.procs[name]
	return fn, ok
}

// Query reads rows from a whitelisted table
func (s *Store) Query(ctx context.Context, spec ports.QuerySpec) ([]ports.Row, error) {
	table, err := lookupTable(spec.Table)
	if err != nil {
		return nil, err
	}

	columns := spec.Columns
	if len(columns) == 0 {
		columns = table.Columns
	}
	for _, c := range columns {
		if !table.has(c) {
			return nil, unknownColumn(spec.Table, c)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(columns, ", "), spec.Table)

	args := make([]interface{}, 0, len(spec.Filters))
	for i, f := range spec.Filters {
		op, ok := operators[f.Op]
		if !ok {
			return nil, errors.ValidationError(fmt.Sprintf("unsupported filter operator %q", f.Op))
		}
		if !table.has(f.Column) {
			return nil, unknownColumn(spec.Table, f.Column)
		}
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		fmt.Fprintf(&b, "%s %s ?", f.Column, op)
		args = append(args, s.arg(f.Value))
	}

	if spec.OrderBy != "" {
		if !table.has(spec.OrderBy) {
			return nil, unknownColumn(spec.Table, spec.OrderBy)
		}
		dir := "ASC"
		if spec.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s", spec.OrderBy, dir)
	}
	if spec.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", spec.Limit)
	}

	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(b.String()), args...)
	if err != nil {
		return nil, errors.DatabaseError(fmt.Sprintf("failed to query %s", spec.Table), err)
	}
	defer rows.Close()

	var out []ports.Row
	for rows.Next() {
		row := make(map[string]interface{}, len(columns))
		if err := rows.MapScan(row); err != nil {
			return nil, errors.DatabaseError(fmt.Sprintf("failed to scan %s row", spec.Table), err)
		}
		out = append(out, normalize(row))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError(fmt.Sprintf("failed to read %s", spec.Table), err)
	}
	return out, nil
}

// Upsert writes rows in one transaction and returns them as stored
func (s *Store) Upsert(ctx context.Context, tableName string, rows []ports.Row, conflictKey []string) ([]ports.Row, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	table, err := lookupTable(tableName)
	if err != nil {
		return nil, err
	}
	if len(conflictKey) == 0 {
		conflictKey = table.ConflictKey
	}
	for _, c := range conflictKey {
		if !table.has(c) {
			return nil, unknownColumn(tableName, c)
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	out := make([]ports.Row, 0, len(rows))
	for _, row := range rows {
		columns := make([]string, 0, len(row))
		for c := range row {
			if !table.has(c) {
				return nil, unknownColumn(tableName, c)
			}
			columns = append(columns, c)
		}
		sort.Strings(columns)

		args := make([]interface{}, len(columns))
		for i, c := range columns {
			args[i] = s.arg(row[c])
		}

		stored := make(map[string]interface{}, len(table.Columns))
		query := s.db.Rebind(upsertStatement(tableName, columns, conflictKey, table.Columns))
		if err := tx.QueryRowxContext(ctx, query, args...).MapScan(stored); err != nil {
			return nil, errors.DatabaseError(fmt.Sprintf("failed to upsert into %s", tableName), err)
		}
		out = append(out, normalize(stored))
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.DatabaseError("failed to commit upsert", err)
	}
	return out, nil
}

func upsertStatement(table string, columns, conflictKey, returning []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = "?"
	}

	var updates []string
	for _, c := range columns {
		if !contains(conflictKey, c) && c != "id" {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}
	// RETURNING yields nothing for DO NOTHING, so rewrite the key onto itself instead
	if len(updates) == 0 {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", conflictKey[0], conflictKey[0]))
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s RETURNING %s",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(conflictKey, ", "),
		strings.Join(updates, ", "),
		strings.Join(returning, ", "))
}

// RPC calls a stored procedure. Postgres functions are called with named arguments and
// must return a single value; the result comes back as JSON.
func (s *Store) RPC(ctx context.Context, fn string, params map[string]any) (json.RawMessage, error) {
	if local, ok := s.procedure(fn); ok {
		return callLocal(ctx, fn, local, params)
	}
	if s.dialect == DialectSQLite {
		return nil, core.NewProcedureUnavailableError(fn, nil)
	}
	if !procedureName.MatchString(fn) {
		return nil, errors.ValidationError(fmt.Sprintf("invalid procedure name %q", fn))
	}

	names := make([]string, 0, len(params))
	for k := range params {
		if !procedureName.MatchString(k) {
			return nil, errors.ValidationError(fmt.Sprintf("invalid parameter name %q", k))
		}
		names = append(names, k)
	}
	sort.Strings(names)

	named := make([]string, len(names))
	args := make([]interface{}, len(names))
	for i, k := range names {
		named[i] = fmt.Sprintf("%s => $%d", k, i+1)
		args[i] = s.arg(params[k])
	}

	query := fmt.Sprintf("SELECT to_json(%s(%s))::text", fn, strings.Join(named, ", "))
	var result sql.NullString
	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&result); err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && string(pqErr.Code) == undefinedFunction {
			return nil, core.NewProcedureUnavailableError(fn, err)
		}
		return nil, errors.DatabaseError(fmt.Sprintf("failed to call %s", fn), err)
	}
	if !result.Valid {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(result.String), nil
}

func callLocal(ctx context.Context, name string, fn Procedure, params map[string]any) (json.RawMessage, error) {
	result, err := fn(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(err, "procedure %s failed", name)
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s result", name)
	}
	return raw, nil
}

// arg adapts a Go value to what the driver stores. SQLite keeps times as fixed-width UTC text.
func (s *Store) arg(v any) any {
	switch t := v.(type) {
	case time.Time:
		if s.dialect == DialectSQLite {
			return t.UTC().Format(sqliteTime)
		}
		return t.UTC()
	case *time.Time:
		if t == nil {
			return nil
		}
		return s.arg(*t)
	case map[string]any, []any:
		raw, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		return string(raw)
	}
	return v
}

func normalize(row map[string]interface{}) ports.Row {
	out := make(ports.Row, len(row))
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			out[k] = string(b)
			continue
		}
		out[k] = v
	}
	return out
}

func lookupTable(name string) (tableSchema, error) {
	table, ok := tables[name]
	if !ok {
		return tableSchema{}, errors.WithCode(errors.CodeValidationError, fmt.Errorf("%w: %s", core.ErrUnknownTable, name))
	}
	return table, nil
}

func unknownColumn(table, column string) error {
	return errors.ValidationError(fmt.Sprintf("unknown column %s.%s", table, column))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
