package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"taskquest/app"
	"taskquest/domain/metrics"
	"taskquest/domain/rules"
	"taskquest/internal/analysis/insight"
	"taskquest/internal/config"
	"taskquest/internal/fetch"
	"taskquest/internal/integrations/oauth"
	"taskquest/internal/integrations/syncmap"
	"taskquest/internal/testkit"
	"taskquest/ports"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/oauth2"
)

const testRange = "from=2026-02-15&to=2026-02-28"

type testAPI struct {
	server    *Server
	backend   *testkit.InMemoryBackend
	analytics *app.AnalyticsService
	user      string
}

func newTestAPI(t *testing.T, integrations *app.IntegrationService) *testAPI {
	t.Helper()
	return newTestAPIIn(t, integrations, time.UTC)
}

func newTestAPIIn(t *testing.T, integrations *app.IntegrationService, loc *time.Location) *testAPI {
	t.Helper()
	cfg := testkit.DefaultActivityConfig()
	b := testkit.NewInMemoryBackend()
	testkit.NewActivityGenerator(cfg).Generate().Load(b)

	engine := insight.NewEngine(insight.StaticRules{Set: rules.Default()}, loc)
	fetcher := fetch.New(b)
	hub := NewSSEHub()
	analytics := app.NewAnalyticsService(fetcher, engine, 14, app.NewBackendInsightSink(b), hub)
	t.Cleanup(analytics.Wait)

	server := NewServer(Services{
		Analytics:     analytics,
		Suggestions:   app.NewSuggestionService(b, fetcher, engine, 14),
		Predictions:   app.NewPredictionService(b, fetcher, engine),
		Notifications: app.NewNotificationService(b, analytics),
		Integrations:  integrations,
		Hub:           hub,
	}, gin.TestMode)

	return &testAPI{server: server, backend: b, analytics: analytics, user: cfg.UserID.String()}
}

func (a *testAPI) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(UserHeader, a.user)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	a := newTestAPI(t, nil)
	w := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestServer_RequiresUser(t *testing.T) {
	a := newTestAPI(t, nil)
	w := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "UNAUTHENTICATED", body.Code)
}

func TestServer_Dashboard(t *testing.T) {
	a := newTestAPI(t, nil)
	w := a.do(http.MethodGet, "/api/v1/dashboard?"+testRange, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body app.Dashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Sections, len(insight.AllSections))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), body.Range.To.UTC())
	assert.NotNil(t, body.Profile)
}

func TestServer_DashboardRejectsBadRange(t *testing.T) {
	a := newTestAPI(t, nil)
	for _, q := range []string{"from=yesterday", "from=2026-03-01&to=2026-02-01", "days=0", "days=abc"} {
		w := a.do(http.MethodGet, "/api/v1/dashboard?"+q, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestServer_Insight(t *testing.T) {
	a := newTestAPI(t, nil)

	w := a.do(http.MethodGet, "/api/v1/insights/wellness?"+testRange, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Section string          `json:"section"`
		Insight metrics.Insight `json:"insight"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "wellness", body.Section)
	assert.NotEmpty(t, body.Insight.Title)

	w = a.do(http.MethodGet, "/api/v1/insights/horoscope", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_FeedWithoutFeedSink(t *testing.T) {
	a := newTestAPI(t, nil)
	w := a.do(http.MethodGet, "/api/v1/feed", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodGet, "/api/v1/feed?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_DailyCSV(t *testing.T) {
	a := newTestAPI(t, nil)
	w := a.do(http.MethodGet, "/api/v1/reports/daily.csv?"+testRange, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "taskquest-2026-02-15-2026-02-28.csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Equal(t, "date,tasks_completed,xp_earned,average_xp,top_category", lines[0])
	assert.Len(t, lines, 15)

	w = a.do(http.MethodGet, "/api/v1/reports/daily.csv?granularity=hourly", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_DailyXLSX(t *testing.T) {
	a := newTestAPI(t, nil)
	w := a.do(http.MethodGet, "/api/v1/reports/daily.xlsx?granularity=weekly&"+testRange, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Daily")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, "date", rows[0][0])
}

func TestServer_WeeklyReport(t *testing.T) {
	a := newTestAPI(t, nil)

	w := a.do(http.MethodGet, "/api/v1/reports/weekly?end=2026-02-28", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<h1")

	w = a.do(http.MethodGet, "/api/v1/reports/weekly?end=2026-02-28&format=md", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "# "))

	w = a.do(http.MethodGet, "/api/v1/reports/weekly?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_WeeklyReportEndUsesEngineLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	a := newTestAPIIn(t, nil, ny)

	w := a.do(http.MethodGet, "/api/v1/reports/weekly?end=2026-02-28&format=json", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Range struct {
			From time.Time `json:"from"`
			To   time.Time `json:"to"`
		} `json:"range"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, time.Date(2026, 3, 1, 0, 0, 0, 0, ny).Equal(body.Range.To), "got %s", body.Range.To)
	assert.True(t, time.Date(2026, 2, 22, 0, 0, 0, 0, ny).Equal(body.Range.From), "got %s", body.Range.From)
}

func TestServer_SuggestionsFallBackToLocal(t *testing.T) {
	a := newTestAPI(t, nil)
	w := a.do(http.MethodPost, "/api/v1/suggestions", `{"limit":2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body app.Suggestions
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, app.SourceLocal, body.Source)
	assert.LessOrEqual(t, len(body.Items), 2)

	w = a.do(http.MethodPost, "/api/v1/suggestions", `{"limit":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_GoalPredictionUnknownGoal(t *testing.T) {
	a := newTestAPI(t, nil)
	w := a.do(http.MethodGet, "/api/v1/goals/no-such-goal/prediction", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Productivity(t *testing.T) {
	a := newTestAPI(t, nil)
	w := a.do(http.MethodGet, "/api/v1/productivity?"+testRange, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body app.Productivity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, app.SourceLocal, body.Source)
	assert.GreaterOrEqual(t, body.Score, 0.0)
}

func TestServer_Preferences(t *testing.T) {
	a := newTestAPI(t, nil)

	w := a.do(http.MethodGet, "/api/v1/notifications/preferences", "")
	require.Equal(t, http.StatusOK, w.Code)
	var prefs map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prefs))
	prefs["min_priority"] = "critical"

	raw, err := json.Marshal(prefs)
	require.NoError(t, err)
	w = a.do(http.MethodPut, "/api/v1/notifications/preferences", string(raw))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	prefs["min_priority"] = "high"
	raw, err = json.Marshal(prefs)
	require.NoError(t, err)
	w = a.do(http.MethodPut, "/api/v1/notifications/preferences", string(raw))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, a.backend.Rows("notification_preferences"), 1)

	w = a.do(http.MethodGet, "/api/v1/notifications", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_DigestIsNotRepeated(t *testing.T) {
	a := newTestAPI(t, nil)

	w := a.do(http.MethodPost, "/api/v1/notifications/digest", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"due"`)

	w = a.do(http.MethodPost, "/api/v1/notifications/digest", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Due bool `json:"due"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Due)
}

func TestIntegrationsRouter_ConnectAndSync(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"at","refresh_token":"rt","expires_in":3600,"token_type":"Bearer"}`)
	}))
	defer provider.Close()

	registry := oauth.NewRegistry(
		config.OAuthConfig{Providers: map[string]config.OAuthClient{"google": {ClientID: "id", ClientSecret: "secret"}}},
		oauth.WithHTTPClient(provider.Client()),
		oauth.WithEndpoint("google", oauth2.Endpoint{AuthURL: provider.URL + "/auth", TokenURL: provider.URL + "/token", AuthStyle: oauth2.AuthStyleInParams}),
	)
	store := testkit.NewInMemoryBackend()
	svc := app.NewIntegrationService(registry, app.NewBackendTokenStore(store), syncmap.NewSyncer(store, insight.StaticRules{Set: rules.Default()}))
	a := newTestAPI(t, svc)

	w := a.do(http.MethodGet, "/integrations/providers", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"providers":["google"]}`, w.Body.String())

	w = httptest.NewRecorder()
	a.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/integrations/google/authorize", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodGet, "/integrations/google/authorize", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var auth struct {
		URL   string `json:"url"`
		State string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &auth))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.State, cookies[0].Value)

	req := httptest.NewRequest(http.MethodGet, "/integrations/google/callback?code=c1&state=forged", nil)
	req.Header.Set(UserHeader, a.user)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	a.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/integrations/google/callback?code=c1&state="+auth.State, nil)
	req.Header.Set(UserHeader, a.user)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	a.server.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/integrations/google/sync", `{"items":[{"external_id":"ev-1","title":"Dentist appointment"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res syncmap.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Len(t, res.Created, 1)

	w = a.do(http.MethodPost, "/integrations/outlook/sync", `{"items":[]}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSSEHub_SubscribeAndBroadcast(t *testing.T) {
	hub := NewSSEHub()
	events, cancel := hub.Subscribe("u1")
	_, cancelOther := hub.Subscribe("u2")
	defer cancelOther()
	assert.Equal(t, 1, hub.GetClientCount("u1"))

	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, hub.Save(t.Context(), "u1", "wellness", metrics.Insight{Title: "Rested"}, at))

	select {
	case e := <-events:
		assert.Equal(t, ports.FeedEntry{Section: "wellness", GeneratedAt: at, Insight: metrics.Insight{Title: "Rested"}}, e)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	cancel()
	cancel()
	assert.Equal(t, 0, hub.GetClientCount("u1"))
	_, open := <-events
	assert.False(t, open)
}

func TestSSEHub_FullClientDoesNotBlock(t *testing.T) {
	hub := NewSSEHub()
	_, cancel := hub.Subscribe("u1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < sseClientBuffer*3; i++ {
			hub.Broadcast("u1", ports.FeedEntry{Section: "goals"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full client")
	}
}
