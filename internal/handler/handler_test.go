package handler

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cleberrangel/pert-estimator-api/internal/estimation"
	"github.com/cleberrangel/pert-estimator-api/internal/i18n"
	"github.com/cleberrangel/pert-estimator-api/internal/metrics"
	"github.com/cleberrangel/pert-estimator-api/internal/middleware"
	"github.com/cleberrangel/pert-estimator-api/internal/model"
	"github.com/cleberrangel/pert-estimator-api/internal/preferences"
	"github.com/cleberrangel/pert-estimator-api/internal/render"
	"github.com/cleberrangel/pert-estimator-api/internal/service"
	"github.com/cleberrangel/pert-estimator-api/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVisitor = "visitor-1"

type testServer struct {
	router   *gin.Engine
	sessions *session.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	table, err := i18n.Load("")
	require.NoError(t, err)
	tr := i18n.NewTranslator(table, "ru")

	sessions := session.NewStore(time.Hour, estimation.DefaultPercentileTargets())
	t.Cleanup(sessions.Stop)

	renderer, err := render.NewRenderer(tr)
	require.NoError(t, err)

	prefs := preferences.NewFactory(nil, false)
	dispatcher := service.NewDispatcher(tr, metrics.New())
	exports := service.NewExportService(tr, metrics.New())

	page := NewPageHandler(sessions, renderer, prefs, tr, "light")
	sess := NewSessionHandler(sessions, dispatcher, renderer, exports, prefs)
	est := NewEstimateHandler(estimation.DefaultPercentileTargets())
	pref := NewPreferencesHandler(prefs, tr, "light")
	trans := NewTranslationsHandler(tr)
	health := NewHealthHandler(nil, nil, sessions, tr, "test")

	r := gin.New()
	r.Use(middleware.Visitor(false))
	r.GET("/", page.Index)
	r.GET("/health/live", health.LivenessCheck)
	r.GET("/health/ready", health.ReadinessCheck)
	r.GET("/metrics", health.GetMetrics)

	api := r.Group("/api/v1")
	api.GET("/sessions/:id", sess.GetSession)
	api.POST("/sessions/:id/events", sess.PostEvent)
	api.GET("/sessions/:id/export.csv", sess.ExportCSV)
	api.GET("/sessions/:id/export.xlsx", sess.ExportXLSX)
	api.POST("/estimate", est.Estimate)
	api.GET("/preferences", pref.GetPreferences)
	api.PUT("/preferences", pref.UpdatePreferences)
	api.GET("/translations", trans.ListLanguages)
	api.GET("/translations/:lang", trans.GetTranslations)

	return &testServer{router: r, sessions: sessions}
}

func (s *testServer) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.AddCookie(&http.Cookie{Name: middleware.VisitorCookie, Value: testVisitor})
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// stateResponse espelha model.Response com render.State em Data
type stateResponse struct {
	Success bool         `json:"success"`
	Data    render.State `json:"data"`
	Meta    *model.Meta  `json:"meta"`
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) render.State {
	t.Helper()
	var resp stateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	return resp.Data
}

func (s *testServer) newSession(t *testing.T) *session.State {
	t.Helper()
	return s.sessions.Create(testVisitor, "en", preferences.ThemeLight)
}

func eventBody(t *testing.T, ev model.Event) string {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	return string(data)
}

func TestIndexCreatesSessionPerLoad(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/", "", "Accept-Language", "en-US,en;q=0.9")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Body.String(), `lang="en"`)
	assert.Contains(t, w.Body.String(), `data-theme="light"`)

	s.do(http.MethodGet, "/", "")
	assert.Equal(t, 2, s.sessions.Count())
}

func TestIndexUsesStoredPreferences(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: preferences.KeyLanguage, Value: "ru"})
	req.AddCookie(&http.Cookie{Name: preferences.KeyTheme, Value: "dark"})
	req.Header.Set("Accept-Language", "en")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `lang="ru"`)
	assert.Contains(t, w.Body.String(), `data-theme="dark"`)
}

func TestGetSession(t *testing.T) {
	s := newTestServer(t)
	st := s.newSession(t)

	w := s.do(http.MethodGet, "/api/v1/sessions/"+st.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	state := decodeState(t, w)
	assert.Equal(t, st.ID, state.View.SessionID)
	assert.Len(t, state.View.Tasks, 1)
	assert.False(t, state.View.ShowResult)
	assert.NotEmpty(t, state.HTML.App)
}

func TestGetSessionRejectsOtherVisitor(t *testing.T) {
	s := newTestServer(t)
	st := s.sessions.Create("someone-else", "en", preferences.ThemeLight)

	w := s.do(http.MethodGet, "/api/v1/sessions/"+st.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/v1/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostEventFieldChangedComputesResult(t *testing.T) {
	s := newTestServer(t)
	st := s.newSession(t)
	taskID := st.Snapshot().Tasks[0].ID

	for field, value := range map[model.EstimateField]string{
		model.FieldOptimistic:  "1",
		model.FieldMostLikely:  "4",
		model.FieldPessimistic: "7",
	} {
		w := s.do(http.MethodPost, "/api/v1/sessions/"+st.ID+"/events", eventBody(t, model.Event{
			Action: model.ActionFieldChanged,
			TaskID: taskID,
			Field:  field,
			Value:  model.EventValue(value),
		}))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := s.do(http.MethodGet, "/api/v1/sessions/"+st.ID, "")
	state := decodeState(t, w)

	require.True(t, state.View.ShowResult)
	assert.Equal(t, "4.0", state.View.Tasks[0].Expected)
	assert.Equal(t, "4.0", state.View.TotalTime)
	require.Len(t, state.View.Percentiles, 3)
	assert.Equal(t, "4.7", state.View.Percentiles[1].Value)
	assert.Equal(t, "5.6", state.View.Percentiles[2].Value)
}

func TestPostEventAcceptsNumericValues(t *testing.T) {
	s := newTestServer(t)
	st := s.newSession(t)
	taskID := st.Snapshot().Tasks[0].ID
	path := "/api/v1/sessions/" + st.ID + "/events"

	for field, value := range map[model.EstimateField]string{
		model.FieldOptimistic:  "1",
		model.FieldMostLikely:  "4.0",
		model.FieldPessimistic: "7",
	} {
		body := fmt.Sprintf(`{"action":"field-changed","task_id":%q,"field":%q,"value":%s}`, taskID, field, value)
		w := s.do(http.MethodPost, path, body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	state := decodeState(t, s.do(http.MethodGet, "/api/v1/sessions/"+st.ID, ""))
	require.True(t, state.View.ShowResult)
	assert.Equal(t, "4.0", state.View.TotalTime)

	w := s.do(http.MethodPost, path, fmt.Sprintf(`{"action":"field-changed","task_id":%q,"field":"optimistic","value":[1]}`, taskID))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostEventAddAndRemove(t *testing.T) {
	s := newTestServer(t)
	st := s.newSession(t)

	w := s.do(http.MethodPost, "/api/v1/sessions/"+st.ID+"/events", eventBody(t, model.Event{Action: model.ActionAddTask}))
	require.Equal(t, http.StatusOK, w.Code)
	state := decodeState(t, w)
	assert.Equal(t, model.ActionAddTask, state.Action)
	require.Len(t, state.View.Tasks, 2)

	idx := 0
	w = s.do(http.MethodPost, "/api/v1/sessions/"+st.ID+"/events", eventBody(t, model.Event{Action: model.ActionRemoveTask, Index: &idx}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeState(t, w).View.Tasks, 1)
}

func TestPostEventErrors(t *testing.T) {
	s := newTestServer(t)
	st := s.newSession(t)
	path := "/api/v1/sessions/" + st.ID + "/events"

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", "{", http.StatusBadRequest},
		{"missing action", `{"value":"1"}`, http.StatusBadRequest},
		{"unknown action", `{"action":"explode"}`, http.StatusBadRequest},
		{"unknown task", `{"action":"remove-task","task_id":"nope"}`, http.StatusNotFound},
		{"unknown field", eventBody(t, model.Event{
			Action: model.ActionFieldChanged,
			TaskID: st.Snapshot().Tasks[0].ID,
			Field:  "duration",
			Value:  "3",
		}), http.StatusBadRequest},
		{"unsupported language", `{"action":"select-language","value":"xx"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())

			var resp model.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
		})
	}
}

func TestPostEventToggleThemeSetsCookie(t *testing.T) {
	s := newTestServer(t)
	st := s.newSession(t)

	w := s.do(http.MethodPost, "/api/v1/sessions/"+st.ID+"/events", eventBody(t, model.Event{Action: model.ActionToggleTheme}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, preferences.ThemeDark, decodeState(t, w).View.Theme)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "theme=dark")
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t)
	st := s.newSession(t)

	w := s.do(http.MethodGet, "/api/v1/sessions/"+st.ID+"/export.csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	rows, err := csv.NewReader(bytes.NewReader(w.Body.Bytes())).ReadAll()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(rows), 2)
}

func TestExportXLSX(t *testing.T) {
	s := newTestServer(t)
	st := s.newSession(t)

	w := s.do(http.MethodGet, "/api/v1/sessions/"+st.ID+"/export.xlsx", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ContentTypeXLSX, w.Header().Get("Content-Type"))
	// Arquivos xlsx são zip
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestEstimate(t *testing.T) {
	s := newTestServer(t)

	body := `{"tasks":[{"name":"a","optimistic":"1,0","most_likely":4,"pessimistic":7}],"percentiles":[50,90]}`
	w := s.do(http.MethodPost, "/api/v1/estimate", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Success bool                   `json:"success"`
		Data    service.EstimateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Data.Tasks, 1)
	assert.Equal(t, "0", resp.Data.Tasks[0].ID)
	assert.True(t, resp.Data.Tasks[0].IsValid)
	assert.InDelta(t, 4.0, resp.Data.Tasks[0].ExpectedTime, 1e-9)
	assert.True(t, resp.Data.Aggregate.IsValid)
	require.Len(t, resp.Data.Percentiles, 2)
	assert.Equal(t, 90, resp.Data.Percentiles[1].Percent)
}

func TestEstimateErrors(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/v1/estimate", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/estimate", `{"tasks":[{"optimistic":1,"most_likely":2,"pessimistic":3}],"percentiles":[100]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEstimateInvalidTaskLeavesAggregateInvalid(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/v1/estimate", `{"tasks":[{"optimistic":"abc","most_likely":2,"pessimistic":3}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data service.EstimateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Data.Tasks[0].IsValid)
	assert.False(t, resp.Data.Aggregate.IsValid)

	var raw struct {
		Data struct {
			Percentiles []map[string]interface{} `json:"percentiles"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	require.NotEmpty(t, raw.Data.Percentiles)
	for _, p := range raw.Data.Percentiles {
		assert.NotContains(t, p, "value", "no percentile value without a valid aggregate")
		assert.Contains(t, p, "percent")
	}
}

func TestPreferences(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/v1/preferences", "", "Accept-Language", "en")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"language":"en"`)
	assert.Contains(t, w.Body.String(), `"theme":"light"`)

	w = s.do(http.MethodPut, "/api/v1/preferences", `{"theme":"dark"}`, "Accept-Language", "en")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"language":"en"`)
	assert.Contains(t, w.Body.String(), `"theme":"dark"`)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "theme=dark")

	w = s.do(http.MethodPut, "/api/v1/preferences", `{"theme":"blue"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/v1/preferences", `{"language":"xx"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTranslations(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/v1/translations", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"default":"ru"`)

	w = s.do(http.MethodGet, "/api/v1/translations/en", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"taskName"`)

	w = s.do(http.MethodGet, "/api/v1/translations/xx", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	s.newSession(t)

	w := s.do(http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusOK, w.Code)
	var hc metrics.HealthCheck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hc))
	assert.Equal(t, "healthy", hc.Components["database"].Status)
	assert.Equal(t, "test", hc.Version)

	w = s.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap metrics.MetricsSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, 1, snap.Sessions.Active)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(model.ErrSessionNotFound))
	assert.Equal(t, http.StatusBadRequest, statusFor(model.ErrUnsupportedFormat))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
