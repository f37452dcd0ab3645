package fetch

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"taskquest/domain/core"
	"taskquest/internal/errors"
	"taskquest/internal/testkit"
	"taskquest/models"
	"taskquest/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func loadedBackend(t *testing.T) (*testkit.InMemoryBackend, testkit.ActivityGeneratorConfig, *testkit.Activity) {
	t.Helper()
	cfg := testkit.DefaultActivityConfig()
	activity := testkit.NewActivityGenerator(cfg).Generate()
	b := testkit.NewInMemoryBackend()
	activity.Load(b)
	return b, cfg, activity
}

func TestSpec_ScopesEventTablesToRange(t *testing.T) {
	r := core.DateRange{From: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}

	tasks := Spec(SourceTasks, "u1", r)
	assert.Equal(t, []ports.Filter{ports.Eq("user_id", "u1")}, tasks.Filters)

	wellness := Spec(SourceWellness, "u1", r)
	assert.Equal(t, []ports.Filter{
		ports.Eq("user_id", "u1"),
		ports.Gte("recorded_at", r.From),
		ports.Lt("recorded_at", r.To),
	}, wellness.Filters)
	assert.Equal(t, "recorded_at", wellness.OrderBy)
}

func TestFetchAll_ReturnsEverySource(t *testing.T) {
	b, cfg, activity := loadedBackend(t)
	r := core.DateRange{From: cfg.End.AddDate(0, 0, -cfg.Days), To: cfg.End}

	results, err := New(b, WithConcurrency(2)).FetchAll(context.Background(), cfg.UserID, r)
	require.NoError(t, err)
	require.Len(t, results, len(AllSources))
	assert.Empty(t, results.Failed())

	data, failures := results.Data()
	assert.Empty(t, failures)
	assert.Len(t, data.Tasks, len(activity.Tasks))
	assert.Len(t, data.Wellness, len(activity.Wellness))
	assert.Len(t, data.Contacts, len(activity.Contacts))
	assert.Equal(t, activity.Tasks[0].ID, data.Tasks[0].ID)
	assert.Equal(t, activity.Tasks[0].CreatedAt, data.Tasks[0].CreatedAt)
}

func TestFetchAll_OneFailingSourceDoesNotBlankOthers(t *testing.T) {
	b, cfg, _ := loadedBackend(t)
	b.FailTable("contacts", stderrors.New("relation \"contacts\" does not exist"))
	r := core.DateRange{From: cfg.End.AddDate(0, 0, -cfg.Days), To: cfg.End}

	results, err := New(b).FetchAll(context.Background(), cfg.UserID, r, SourceTasks, SourceContacts, SourceWellness)
	require.NoError(t, err)

	assert.Equal(t, []Source{SourceContacts}, results.Failed())
	assert.NotEmpty(t, results[SourceTasks].Rows)
	assert.NotEmpty(t, results[SourceWellness].Rows)

	data, failures := results.Data()
	assert.Contains(t, failures, SourceContacts)
	assert.NotEmpty(t, data.Tasks)
	assert.Empty(t, data.Contacts)
}

func TestFetchAll_Unauthenticated(t *testing.T) {
	backend := new(testkit.MockBackend)
	r := core.LastNDays(time.Now(), 7)

	_, err := New(backend).FetchAll(context.Background(), "", r)
	require.Error(t, err)
	assert.True(t, core.IsUnauthenticated(err))
	backend.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
}

func TestFetchAll_InvalidRange(t *testing.T) {
	now := time.Now()
	_, err := New(testkit.NewInMemoryBackend()).FetchAll(context.Background(), "u1", core.DateRange{From: now, To: now})
	assert.Equal(t, errors.CodeValidationError, errors.GetCode(err))
}

func TestFetchAll_TimeoutAppliesPerQuery(t *testing.T) {
	backend := new(testkit.MockBackend)
	backend.On("Query", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			_, ok := ctx.Deadline()
			assert.True(t, ok)
		}).
		Return([]ports.Row{}, nil)

	_, err := New(backend, WithTimeout(time.Second)).FetchAll(context.Background(), "u1", core.LastNDays(time.Now(), 7), SourceGoals)
	require.NoError(t, err)
	backend.AssertNumberOfCalls(t, "Query", 1)
}

func TestDecodeRows_ParsesBackendSpellings(t *testing.T) {
	rows := []ports.Row{
		{"id": "t1", "status": "completed", "xp_reward": float64(50), "completed_at": "2026-02-03T10:00:00Z",
			"created_at": "2026-02-01 09:00:00+00", "estimated_minutes": int64(30)},
		{"id": "t2", "status": "todo", "xp_reward": "25", "completed_at": nil,
			"created_at": time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), "due_date": "2026-02-05"},
	}

	tasks, err := DecodeRows[models.Task](rows)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.True(t, tasks[0].IsCompleted())
	assert.Equal(t, 50, tasks[0].XPReward)
	assert.Equal(t, 30, tasks[0].Minutes)
	assert.Equal(t, time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC), tasks[0].CreatedAt.UTC())

	assert.Equal(t, 25, tasks[1].XPReward)
	assert.Nil(t, tasks[1].CompletedAt)
	require.NotNil(t, tasks[1].DueDate)
	assert.Equal(t, time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC), *tasks[1].DueDate)
}

func TestDecodeRows_BadTimestamp(t *testing.T) {
	_, err := DecodeRows[models.WellnessEntry]([]ports.Row{{"recorded_at": "last tuesday"}})
	assert.Error(t, err)
}
