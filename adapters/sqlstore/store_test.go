package sqlstore

import (
	"context"
	stderrors "errors"
	"regexp"
	"testing"
	"time"

	"taskquest/domain/core"
	"taskquest/internal/errors"
	"taskquest/ports"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T, driver string) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return New(sqlx.NewDb(mockDB, driver)), mock
}

func TestNew_DialectFollowsDriver(t *testing.T) {
	pg, _ := newMockStore(t, "postgres")
	lite, _ := newMockStore(t, "sqlite")
	assert.Equal(t, DialectPostgres, pg.Dialect())
	assert.Equal(t, DialectSQLite, lite.Dialect())
}

func TestQuery_BuildsFilteredStatement(t *testing.T) {
	store, mock := newMockStore(t, "postgres")
	since := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, title FROM tasks WHERE user_id = $1 AND created_at >= $2 ORDER BY created_at DESC LIMIT 10")).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).
			AddRow("t1", []byte("Write report")).
			AddRow("t2", "Call Sam"))

	rows, err := store.Query(context.Background(), ports.QuerySpec{
		Table:      "tasks",
		Columns:    []string{"id", "title"},
		Filters:    []ports.Filter{ports.Eq("user_id", "u1"), ports.Gte("created_at", since)},
		OrderBy:    "created_at",
		Descending: true,
		Limit:      10,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Write report", rows[0]["title"])
	assert.Equal(t, "t2", rows[1]["id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_SQLiteUsesQuestionMarksAndTextTimes(t *testing.T) {
	store, mock := newMockStore(t, "sqlite")
	since := time.Date(2026, 1, 5, 9, 30, 0, 0, time.FixedZone("CET", 3600))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM wellness_entries WHERE recorded_at >= ?")).
		WithArgs("2026-01-05 08:30:00.000000000").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rows, err := store.Query(context.Background(), ports.QuerySpec{
		Table:   "wellness_entries",
		Columns: []string{"id"},
		Filters: []ports.Filter{ports.Gte("recorded_at", since)},
	})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_RejectsUnknownIdentifiers(t *testing.T) {
	store, _ := newMockStore(t, "postgres")
	ctx := context.Background()

	tests := []struct {
		name string
		spec ports.QuerySpec
	}{
		{"table", ports.QuerySpec{Table: "users; DROP TABLE tasks"}},
		{"column", ports.QuerySpec{Table: "tasks", Columns: []string{"password"}}},
		{"filter column", ports.QuerySpec{Table: "tasks", Filters: []ports.Filter{ports.Eq("1=1 OR user_id", "x")}}},
		{"operator", ports.QuerySpec{Table: "tasks", Filters: []ports.Filter{{Column: "user_id", Op: "like", Value: "%"}}}},
		{"order", ports.QuerySpec{Table: "tasks", OrderBy: "random()"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Query(ctx, tt.spec)
			require.Error(t, err)
			assert.Equal(t, errors.CodeValidationError, errors.GetCode(err))
		})
	}

	_, err := store.Query(ctx, ports.QuerySpec{Table: "secrets"})
	assert.True(t, stderrors.Is(err, core.ErrUnknownTable))
}

func TestQuery_DatabaseErrorIsWrapped(t *testing.T) {
	store, mock := newMockStore(t, "postgres")
	mock.ExpectQuery("SELECT").WillReturnError(stderrors.New("connection reset"))

	_, err := store.Query(context.Background(), ports.QuerySpec{Table: "goals"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))
}

func TestUpsert_UsesDefaultConflictKey(t *testing.T) {
	store, mock := newMockStore(t, "postgres")
	returning := tables["insights"].Columns

	const insert = `INSERT INTO insights (section, title, user_id) VALUES ($1, $2, $3) ` +
		`ON CONFLICT (user_id, section) DO UPDATE SET title = excluded.title ` +
		`RETURNING id, user_id, section, title, description, category, confidence, recommendations, generated_at`

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(insert)).
		WithArgs("wellness", "Burnout risk", "u1").
		WillReturnRows(sqlmock.NewRows(returning).
			AddRow("i1", "u1", "wellness", "Burnout risk", "", "critical", 0.5, "[]", time.Now()))
	mock.ExpectCommit()

	out, err := store.Upsert(context.Background(), "insights", []ports.Row{
		{"user_id": "u1", "section": "wellness", "title": "Burnout risk"},
	}, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "i1", out[0]["id"])
	assert.Equal(t, "critical", out[0]["category"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_RollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t, "postgres")

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO sync_mappings").WillReturnError(stderrors.New("boom"))
	mock.ExpectRollback()

	_, err := store.Upsert(context.Background(), "sync_mappings", []ports.Row{
		{"user_id": "u1", "provider": "notion", "external_id": "n1", "task_id": "t1"},
	}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_EmptyIsNoop(t *testing.T) {
	store, mock := newMockStore(t, "postgres")
	out, err := store.Upsert(context.Background(), "tasks", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertStatement_KeyOnlyRowStillReturns(t *testing.T) {
	q := upsertStatement("notification_preferences", []string{"user_id"}, []string{"user_id"}, []string{"user_id"})
	assert.Contains(t, q, "DO UPDATE SET user_id = excluded.user_id")
}

func TestRPC_PostgresNamedArguments(t *testing.T) {
	store, mock := newMockStore(t, "postgres")

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT to_json(calculate_productivity_score(p_days => $1, p_user_id => $2))::text")).
		WithArgs(30, "u1").
		WillReturnRows(sqlmock.NewRows([]string{"to_json"}).AddRow(`{"score":72.5}`))

	raw, err := store.RPC(context.Background(), "calculate_productivity_score", map[string]any{
		"p_user_id": "u1",
		"p_days":    30,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"score":72.5}`, string(raw))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRPC_MissingFunctionIsUnavailable(t *testing.T) {
	store, mock := newMockStore(t, "postgres")
	mock.ExpectQuery("predict_goal_completion").
		WillReturnError(&pq.Error{Code: "42883", Message: "function predict_goal_completion does not exist"})

	_, err := store.RPC(context.Background(), "predict_goal_completion", map[string]any{"p_goal_id": "g1"})
	require.Error(t, err)
	assert.True(t, core.IsProcedureUnavailable(err))
}

func TestRPC_OtherFailuresAreDatabaseErrors(t *testing.T) {
	store, mock := newMockStore(t, "postgres")
	mock.ExpectQuery("predict_goal_completion").WillReturnError(stderrors.New("timeout"))

	_, err := store.RPC(context.Background(), "predict_goal_completion", nil)
	require.Error(t, err)
	assert.False(t, core.IsProcedureUnavailable(err))
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))
}

func TestRPC_RejectsInjectedNames(t *testing.T) {
	store, _ := newMockStore(t, "postgres")
	_, err := store.RPC(context.Background(), "pg_sleep(10); --", nil)
	assert.Equal(t, errors.CodeValidationError, errors.GetCode(err))

	_, err = store.RPC(context.Background(), "ok_name", map[string]any{"a => 1, b": 2})
	assert.Equal(t, errors.CodeValidationError, errors.GetCode(err))
}

func TestRPC_SQLiteLocalProcedures(t *testing.T) {
	store, mock := newMockStore(t, "sqlite")
	ctx := context.Background()

	_, err := store.RPC(ctx, "generate_ai_task_suggestions", nil)
	assert.True(t, core.IsProcedureUnavailable(err))

	store.RegisterProcedure("calculate_productivity_score", func(_ context.Context, params map[string]any) (any, error) {
		return map[string]any{"score": 64, "user": params["p_user_id"]}, nil
	})
	raw, err := store.RPC(ctx, "calculate_productivity_score", map[string]any{"p_user_id": "u1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"score":64,"user":"u1"}`, string(raw))

	store.RegisterProcedure("broken", func(context.Context, map[string]any) (any, error) {
		return nil, stderrors.New("no data")
	})
	_, err = store.RPC(ctx, "broken", nil)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
