package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskquest/domain/core"
	"taskquest/internal/errors"
	"taskquest/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "anon-key", 5*time.Second)
}

func TestQuery_EncodesPostgRESTFilters(t *testing.T) {
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/tasks", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "id,title,xp_reward", q.Get("select"))
		assert.Equal(t, "eq.u1", q.Get("user_id"))
		assert.Equal(t, "gte.2026-03-01T00:00:00Z", q.Get("completed_at"))
		assert.Equal(t, "completed_at.desc", q.Get("order"))
		assert.Equal(t, "5", q.Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":"t1","title":"Ship it","xp_reward":50},{"id":"t2","title":"Plan","xp_reward":25}]`)
	})

	rows, err := client.Query(context.Background(), ports.QuerySpec{
		Table:      "tasks",
		Columns:    []string{"id", "title", "xp_reward"},
		Filters:    []ports.Filter{ports.Eq("user_id", "u1"), ports.Gte("completed_at", since)},
		OrderBy:    "completed_at",
		Descending: true,
		Limit:      5,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ship it", rows[0]["title"])
	assert.Equal(t, float64(25), rows[1]["xp_reward"])
}

func TestQuery_NullEqualityUsesIs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "is.null", r.URL.Query().Get("completed_at"))
		_, _ = io.WriteString(w, `[]`)
	})

	rows, err := client.Query(context.Background(), ports.QuerySpec{
		Table:   "tasks",
		Filters: []ports.Filter{ports.Eq("completed_at", nil)},
	})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestQuery_ErrorStatusIsExternalServiceError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"code":"PGRST301","message":"JWT expired"}`)
	})

	_, err := client.Query(context.Background(), ports.QuerySpec{Table: "goals"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeExternalService, errors.GetCode(err))
	assert.Contains(t, err.Error(), "JWT expired")
}

func TestQuery_RejectsBadTableName(t *testing.T) {
	client := NewClient("http://unused", "k", time.Second)
	_, err := client.Query(context.Background(), ports.QuerySpec{Table: "../auth/users"})
	assert.ErrorIs(t, err, core.ErrUnknownTable)
}

func TestRPC_PostsParameters(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/rpc/predict_goal_completion", r.URL.Path)

		var params map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, "g1", params["p_goal_id"])

		_, _ = io.WriteString(w, `{"predicted_date":"2026-04-01","likelihood":0.8}`)
	})

	raw, err := client.RPC(context.Background(), "predict_goal_completion", map[string]any{"p_goal_id": "g1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"predicted_date":"2026-04-01","likelihood":0.8}`, string(raw))
}

func TestRPC_MissingFunctionIsUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"code":"PGRST202","message":"Could not find the function"}`)
	})

	_, err := client.RPC(context.Background(), "generate_ai_task_suggestions", nil)
	require.Error(t, err)
	assert.True(t, core.IsProcedureUnavailable(err))
}

func TestRPC_ServerErrorIsNotUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"message":"division by zero"}`)
	})

	_, err := client.RPC(context.Background(), "calculate_productivity_score", nil)
	require.Error(t, err)
	assert.False(t, core.IsProcedureUnavailable(err))
	assert.Equal(t, errors.CodeExternalService, errors.GetCode(err))
}

func TestUpsert_MergesDuplicates(t *testing.T) {
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/insights", r.URL.Path)
		assert.Equal(t, "user_id,section", r.URL.Query().Get("on_conflict"))
		assert.Equal(t, "resolution=merge-duplicates,return=representation", r.Header.Get("Prefer"))

		var rows []map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rows))
		require.Len(t, rows, 1)
		assert.Equal(t, "2026-03-02T08:00:00Z", rows[0]["generated_at"])

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `[{"id":"i9","user_id":"u1","section":"goals"}]`)
	})

	out, err := client.Upsert(context.Background(), "insights", []ports.Row{
		{"user_id": "u1", "section": "goals", "generated_at": at},
	}, []string{"user_id", "section"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "i9", out[0]["id"])
}

func TestUpsert_EmptyIsNoop(t *testing.T) {
	client := NewClient("http://unused", "k", time.Second)
	out, err := client.Upsert(context.Background(), "insights", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}
