package testkit

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"taskquest/domain/core"
	"taskquest/ports"

	"github.com/stretchr/testify/mock"
)

// Procedure is an in-memory stand-in for a stored procedure
type Procedure func(ctx context.Context, params map[string]any) (any, error)

// InMemoryBackend implements ports.Backend over maps, evaluating filters the way SQL would
type InMemoryBackend struct {
	mu       sync.RWMutex
	tables   map[string][]ports.Row
	procs    map[string]Procedure
	failures map[string]error
}

var _ ports.Backend = (*InMemoryBackend)(nil)

// NewInMemoryBackend creates an empty backend
func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{
		tables:   make(map[string][]ports.Row),
		procs:    make(map[string]Procedure),
		failures: make(map[string]error),
	}
}

// Insert appends rows to a table without conflict handling
func (b *InMemoryBackend) Insert(table string, rows ...ports.Row) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range rows {
		b.tables[table] = append(b.tables[table], copyRow(r))
	}
}

// Rows returns a copy of everything stored in table
func (b *InMemoryBackend) Rows(table string) []ports.Row {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]ports.Row, len(b.tables[table]))
	for i, r := range b.tables[table] {
		out[i] = copyRow(r)
	}
	return out
}

// FailTable makes every Query against table return err
func (b *InMemoryBackend) FailTable(table string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[table] = err
}

// RegisterProcedure makes RPC(name) call fn; unregistered names report ErrProcedureUnavailable
func (b *InMemoryBackend) RegisterProcedure(name string, fn Procedure) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.procs[name] = fn
}

// Query filters, orders and limits the stored rows
func (b *InMemoryBackend) Query(ctx context.Context, spec ports.QuerySpec) ([]ports.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.failures[spec.Table]; err != nil {
		return nil, err
	}

	var out []ports.Row
	for _, r := range b.tables[spec.Table] {
		if matches(r, spec.Filters) {
			out = append(out, project(r, spec.Columns))
		}
	}
	if spec.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			c := compare(out[i][spec.OrderBy], out[j][spec.OrderBy])
			if spec.Descending {
				return c > 0
			}
			return c < 0
		})
	}
	if spec.Limit > 0 && len(out) > spec.Limit {
		out = out[:spec.Limit]
	}
	return out, nil
}

// RPC calls a registered procedure and JSON-encodes its result
func (b *InMemoryBackend) RPC(ctx context.Context, fn string, params map[string]any) (json.RawMessage, error) {
	b.mu.RLock()
	proc, ok := b.procs[fn]
	b.mu.RUnlock()
	if !ok {
		return nil, core.NewProcedureUnavailableError(fn, nil)
	}
	result, err := proc(ctx, params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}

// Upsert replaces rows that match on every conflict key column and appends the rest
func (b *InMemoryBackend) Upsert(ctx context.Context, table string, rows []ports.Row, conflictKey []string) ([]ports.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]ports.Row, 0, len(rows))
	for _, r := range rows {
		merged := copyRow(r)
		replaced := false
		if len(conflictKey) > 0 {
			for i, existing := range b.tables[table] {
				if sameKey(existing, r, conflictKey) {
					for k, v := range r {
						existing[k] = v
					}
					b.tables[table][i] = existing
					merged = copyRow(existing)
					replaced = true
					break
				}
			}
		}
		if !replaced {
			b.tables[table] = append(b.tables[table], copyRow(r))
		}
		out = append(out, merged)
	}
	return out, nil
}

func matches(r ports.Row, filters []ports.Filter) bool {
	for _, f := range filters {
		v, ok := r[f.Column]
		if !ok {
			return false
		}
		c := compare(v, f.Value)
		var pass bool
		switch f.Op {
		case ports.OpEq:
			pass = c == 0
		case ports.OpNeq:
			pass = c != 0
		case ports.OpGt:
			pass = c > 0
		case ports.OpGte:
			pass = c >= 0
		case ports.OpLt:
			pass = c < 0
		case ports.OpLte:
			pass = c <= 0
		}
		if !pass {
			return false
		}
	}
	return true
}

// compare orders times, numbers and strings; nil sorts first
func compare(a, b any) int {
	a, b = deref(a), deref(b)
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func deref(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		return rv.Elem().Interface()
	}
	return v
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func project(r ports.Row, columns []string) ports.Row {
	if len(columns) == 0 {
		return copyRow(r)
	}
	out := make(ports.Row, len(columns))
	for _, c := range columns {
		if v, ok := r[c]; ok {
			out[c] = v
		}
	}
	return out
}

func sameKey(a, b ports.Row, key []string) bool {
	for _, k := range key {
		if compare(a[k], b[k]) != 0 {
			return false
		}
	}
	return true
}

func copyRow(r ports.Row) ports.Row {
	out := make(ports.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ToRow flattens a struct into a row keyed by its db tags. Nil pointers become nil values.
func ToRow(v any) ports.Row {
	rv := reflect.Indirect(reflect.ValueOf(v))
	rt := rv.Type()
	row := make(ports.Row, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		tag := rt.Field(i).Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		fv := rv.Field(i)
		if fv.Kind() == reflect.Pointer && fv.IsNil() {
			row[tag] = nil
			continue
		}
		row[tag] = reflect.Indirect(fv).Interface()
	}
	return row
}

// ToRows applies ToRow to every element of a slice
func ToRows[T any](items []T) []ports.Row {
	rows := make([]ports.Row, len(items))
	for i := range items {
		rows[i] = ToRow(items[i])
	}
	return rows
}

// MockBackend is a testify mock of ports.Backend
type MockBackend struct {
	mock.Mock
}

var _ ports.Backend = (*MockBackend)(nil)

func (m *MockBackend) Query(ctx context.Context, spec ports.QuerySpec) ([]ports.Row, error) {
	args := m.Called(ctx, spec)
	rows, _ := args.Get(0).([]ports.Row)
	return rows, args.Error(1)
}

func (m *MockBackend) RPC(ctx context.Context, fn string, params map[string]any) (json.RawMessage, error) {
	args := m.Called(ctx, fn, params)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *MockBackend) Upsert(ctx context.Context, table string, rows []ports.Row, conflictKey []string) ([]ports.Row, error) {
	args := m.Called(ctx, table, rows, conflictKey)
	out, _ := args.Get(0).([]ports.Row)
	return out, args.Error(1)
}
