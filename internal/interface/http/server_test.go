package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Spinelli666/tabela-gamificacao-alunos/config"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/app"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/application/query"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/reward"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/infrastructure/metrics"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/infrastructure/persistence/memory"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/logger"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/timeutil"
)

// 2025-03-10 09:00 in America/Sao_Paulo.
var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type gate map[string]bool

func (g gate) IsEnabled(name string) bool {
	enabled, ok := g[name]
	return !ok || enabled
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	apiKey  string
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	Meta      *ResponseMeta `json:"meta"`
	RequestID string        `json:"request_id"`
}

// fixedRoll always rolls the same number.
type fixedRoll int

func (f fixedRoll) Roll() int { return int(f) }

func newTestServer(t *testing.T, mutate func(*Config, *Dependencies)) *testServer {
	t.Helper()
	t.Cleanup(timeutil.SetClock(func() time.Time { return fixedNow }))

	store := memory.NewStore().WithClock(func() time.Time { return fixedNow })
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	application, err := app.New(app.Options{
		Repos: query.Repositories{
			Students:   store.Students(),
			Activities: store.Activities(),
			Grades:     store.Grades(),
			Attendance: store.Attendance(),
			Groups:     store.Groups(),
			Rewards:    store.Rewards(),
		},
		Cache:   memory.NewStandingsCache(),
		Table:   reward.DefaultTable(),
		Source:  fixedRoll(93),
		Metrics: m,
		Logger:  logger.Nop(),
	})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	deps := Dependencies{
		App:            application,
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:         logger.Nop(),
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	return &testServer{t: t, handler: NewServer(cfg, deps).Handler()}
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor", "prof.helena")
	if ts.apiKey != "" {
		req.Header.Set("X-API-Key", ts.apiKey)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

// call performs the request, checks the status and decodes data into out.
func (ts *testServer) call(method, path string, body any, wantStatus int, out any) envelope {
	ts.t.Helper()
	rec := ts.do(method, path, body)
	require.Equal(ts.t, wantStatus, rec.Code, rec.Body.String())

	var env envelope
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &env))
	if out != nil {
		require.NoError(ts.t, json.Unmarshal(env.Data, out))
	}
	return env
}

func (ts *testServer) register(name, enrollment string) query.StudentDTO {
	ts.t.Helper()
	var st query.StudentDTO
	ts.call(http.MethodPost, "/api/v1/students", map[string]string{"name": name, "enrollment": enrollment}, http.StatusCreated, &st)
	return st
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & METRICS
// ══════════════════════════════════════════════════════════════════════════════

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, path := range []string{"/health", "/healthz", "/ready", "/live", "/"} {
		env := ts.call(http.MethodGet, path, nil, http.StatusOK, nil)
		assert.True(t, env.Success, path)
		assert.NotEmpty(t, env.RequestID, path)
	}

	rec := ts.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gradebook_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, nil)

	env := ts.call(http.MethodGet, "/api/v1/nope", nil, http.StatusNotFound, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// CLASSROOM FLOW
// ══════════════════════════════════════════════════════════════════════════════

func TestClassroomFlow(t *testing.T) {
	ts := newTestServer(t, nil)

	ana := ts.register("Ana Souza", "2025001")
	bruno := ts.register("Bruno Lima", "2025002")

	var act activityResponse
	ts.call(http.MethodPost, "/api/v1/activities",
		map[string]any{"name": "Prova 1", "max_value": 10, "due_date": "2025-03-07"},
		http.StatusCreated, &act)
	assert.Equal(t, "2025-03-07", act.DueDate)

	var g gradeResponse
	ts.call(http.MethodPost, "/api/v1/activities/"+act.ID+"/grades",
		map[string]any{"student_id": ana.ID, "value": 9}, http.StatusCreated, &g)
	assert.Equal(t, "prof.helena", g.PostedBy)
	ts.call(http.MethodPost, "/api/v1/activities/"+act.ID+"/grades",
		map[string]any{"student_id": bruno.ID, "value": 8}, http.StatusCreated, nil)

	ts.call(http.MethodPost, "/api/v1/attendance",
		map[string]any{"student_id": ana.ID, "date": "2025-03-10", "present": true}, http.StatusCreated, nil)
	ts.call(http.MethodPost, "/api/v1/attendance",
		map[string]any{"student_id": bruno.ID, "date": "2025-03-10", "present": false}, http.StatusCreated, nil)

	var standings query.StandingsResult
	env := ts.call(http.MethodGet, "/api/v1/standings", nil, http.StatusOK, &standings)
	require.Len(t, standings.Standings, 2)
	assert.Equal(t, 2, env.Meta.TotalCount)

	first, second := standings.Standings[0], standings.Standings[1]
	assert.Equal(t, ana.ID, first.StudentID)
	assert.Equal(t, 1, first.Position)
	assert.InDelta(t, 10.0, first.TotalScore, 0.001)
	assert.Equal(t, bruno.ID, second.StudentID)
	assert.InDelta(t, 7.5, second.TotalScore, 0.001)

	// Regrading logs the old value.
	var upd gradeUpdateResponse
	ts.call(http.MethodPut, "/api/v1/activities/"+act.ID+"/grades/"+bruno.ID,
		map[string]any{"value": 10, "reason": "recount"}, http.StatusOK, &upd)
	require.NotNil(t, upd.Change)
	assert.InDelta(t, 8.0, upd.Change.OldValue, 0.001)

	var hist query.GradeHistoryResult
	ts.call(http.MethodGet, "/api/v1/grades/"+upd.Grade.ID+"/history", nil, http.StatusOK, &hist)
	require.Len(t, hist.Changes, 1)
	assert.Equal(t, "prof.helena", hist.Changes[0].ChangedBy)

	var mine query.StudentStandingResult
	ts.call(http.MethodGet, "/api/v1/students/"+bruno.ID+"/standing", nil, http.StatusOK, &mine)
	assert.InDelta(t, 9.5, mine.TotalScore, 0.001)
	assert.Equal(t, 2, mine.ClassSize)

	var report query.AttendanceReport
	ts.call(http.MethodGet, "/api/v1/attendance?from=2025-03-01&to=2025-03-10", nil, http.StatusOK, &report)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Present)
}

func TestGroupsOverHTTP(t *testing.T) {
	ts := newTestServer(t, nil)

	ana := ts.register("Ana Souza", "2025001")
	bruno := ts.register("Bruno Lima", "2025002")

	var grp groupResponse
	ts.call(http.MethodPost, "/api/v1/groups", map[string]string{"name": "Azul"}, http.StatusCreated, &grp)
	assert.Equal(t, "prof.helena", grp.CreatedBy)

	var members membersResponse
	ts.call(http.MethodPost, "/api/v1/groups/"+grp.ID+"/members",
		map[string]any{"student_ids": []string{ana.ID, bruno.ID}, "leader_id": ana.ID},
		http.StatusOK, &members)
	assert.Equal(t, 2, members.Added)
	assert.Equal(t, ana.ID, members.Group.LeaderID)

	var rankings []query.GroupRanking
	ts.call(http.MethodGet, "/api/v1/groups/rankings", nil, http.StatusOK, &rankings)
	require.Len(t, rankings, 1)
	assert.Equal(t, 2, rankings[0].MemberCount)
	assert.Equal(t, "Ana Souza", rankings[0].LeaderName)

	var after groupResponse
	ts.call(http.MethodDelete, "/api/v1/groups/"+grp.ID+"/members/"+ana.ID, nil, http.StatusOK, &after)
	assert.Empty(t, after.LeaderID)
}

func TestDeletesOverHTTP(t *testing.T) {
	ts := newTestServer(t, nil)

	ana := ts.register("Ana Souza", "2025001")
	bruno := ts.register("Bruno Lima", "2025002")

	var act activityResponse
	ts.call(http.MethodPost, "/api/v1/activities", map[string]any{"name": "Prova 1", "max_value": 10}, http.StatusCreated, &act)
	for _, id := range []string{ana.ID, bruno.ID} {
		ts.call(http.MethodPost, "/api/v1/activities/"+act.ID+"/grades",
			map[string]any{"student_id": id, "value": 9}, http.StatusCreated, nil)
	}

	var grp groupResponse
	ts.call(http.MethodPost, "/api/v1/groups", map[string]string{"name": "Azul"}, http.StatusCreated, &grp)
	ts.call(http.MethodPost, "/api/v1/groups/"+grp.ID+"/members",
		map[string]any{"student_ids": []string{ana.ID, bruno.ID}, "leader_id": ana.ID}, http.StatusOK, nil)

	// Warm the standings cache so the deletes have something to invalidate.
	var standings query.StandingsResult
	ts.call(http.MethodGet, "/api/v1/standings", nil, http.StatusOK, &standings)
	require.Len(t, standings.Standings, 2)

	var deleted map[string]string
	ts.call(http.MethodDelete, "/api/v1/students/"+ana.ID, nil, http.StatusOK, &deleted)
	assert.Equal(t, ana.ID, deleted["deleted"])

	ts.call(http.MethodGet, "/api/v1/standings", nil, http.StatusOK, &standings)
	require.Len(t, standings.Standings, 1)
	assert.Equal(t, bruno.ID, standings.Standings[0].StudentID)

	var rankings []query.GroupRanking
	ts.call(http.MethodGet, "/api/v1/groups/rankings", nil, http.StatusOK, &rankings)
	require.Len(t, rankings, 1)
	assert.Equal(t, 1, rankings[0].MemberCount)
	assert.Empty(t, rankings[0].LeaderName)

	ts.call(http.MethodDelete, "/api/v1/activities/"+act.ID, nil, http.StatusOK, nil)
	ts.call(http.MethodGet, "/api/v1/standings", nil, http.StatusOK, &standings)
	require.Len(t, standings.Standings, 1)
	assert.Zero(t, standings.Standings[0].AverageGrade)

	ts.call(http.MethodDelete, "/api/v1/groups/"+grp.ID, nil, http.StatusOK, nil)
	ts.call(http.MethodGet, "/api/v1/groups/rankings", nil, http.StatusOK, &rankings)
	assert.Empty(t, rankings)

	for _, path := range []string{"/api/v1/students/" + ana.ID, "/api/v1/activities/" + act.ID, "/api/v1/groups/" + grp.ID} {
		env := ts.call(http.MethodDelete, path, nil, http.StatusNotFound, nil)
		require.NotNil(t, env.Error, path)
		assert.Equal(t, "not_found", env.Error.Code, path)
	}
}

func TestRewardDrawAndRedeem(t *testing.T) {
	ts := newTestServer(t, nil)
	ana := ts.register("Ana Souza", "2025001")

	var draw struct {
		DrawID   string          `json:"draw_id"`
		Category reward.Category `json:"category"`
		Roll     int             `json:"roll"`
	}
	ts.call(http.MethodPost, "/api/v1/rewards/draws", map[string]string{"student_id": ana.ID}, http.StatusCreated, &draw)
	assert.Equal(t, reward.Voucher, draw.Category)
	assert.Equal(t, 93, draw.Roll)

	var pending query.PendingRewardsResult
	ts.call(http.MethodGet, "/api/v1/rewards/pending", nil, http.StatusOK, &pending)
	assert.Equal(t, 1, pending.Vouchers)

	var redeemed query.DrawDTO
	ts.call(http.MethodPost, "/api/v1/rewards/draws/"+draw.DrawID+"/redeem", nil, http.StatusOK, &redeemed)
	assert.True(t, redeemed.Redeemed)
	assert.Equal(t, "prof.helena", redeemed.RedeemedBy)

	env := ts.call(http.MethodPost, "/api/v1/rewards/draws/"+draw.DrawID+"/redeem", nil, http.StatusConflict, nil)
	assert.Equal(t, "conflict", env.Error.Code)

	var history query.RewardHistoryResult
	env = ts.call(http.MethodGet, "/api/v1/rewards/draws", nil, http.StatusOK, &history)
	assert.Equal(t, 1, history.Total)
	assert.Equal(t, 1, history.Redeemed)
	assert.False(t, env.Meta.HasMore)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.register("Ana Souza", "2025001")

	t.Run("validation details", func(t *testing.T) {
		env := ts.call(http.MethodPost, "/api/v1/students", map[string]string{"name": " ", "enrollment": "2025009"}, http.StatusBadRequest, nil)
		require.NotNil(t, env.Error)
		assert.Equal(t, "validation_error", env.Error.Code)
		assert.Contains(t, env.Error.Details, "name")
	})

	t.Run("malformed body", func(t *testing.T) {
		env := ts.call(http.MethodPost, "/api/v1/students", `{"name":`, http.StatusBadRequest, nil)
		assert.Equal(t, "validation_error", env.Error.Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		ts.call(http.MethodPost, "/api/v1/students", `{"name":"X","enrollment":"1","age":3}`, http.StatusBadRequest, nil)
	})

	t.Run("duplicate enrollment", func(t *testing.T) {
		env := ts.call(http.MethodPost, "/api/v1/students", map[string]string{"name": "Outra Ana", "enrollment": "2025001"}, http.StatusConflict, nil)
		assert.Equal(t, "conflict", env.Error.Code)
	})

	t.Run("unknown student", func(t *testing.T) {
		env := ts.call(http.MethodGet, "/api/v1/students/missing/standing", nil, http.StatusNotFound, nil)
		assert.Equal(t, "not_found", env.Error.Code)
	})

	t.Run("future attendance", func(t *testing.T) {
		var st []query.StudentDTO
		ts.call(http.MethodGet, "/api/v1/students", nil, http.StatusOK, &st)
		require.Len(t, st, 1)
		ts.call(http.MethodPost, "/api/v1/attendance",
			map[string]any{"student_id": st[0].ID, "date": "2025-03-11", "present": true}, http.StatusBadRequest, nil)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// GUARDS
// ══════════════════════════════════════════════════════════════════════════════

func TestAPIKeyGuard(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sala-42"), bcrypt.MinCost)
	require.NoError(t, err)

	ts := newTestServer(t, func(cfg *Config, _ *Dependencies) {
		cfg.APIKeyHash = string(hash)
	})
	body := map[string]string{"name": "Ana Souza", "enrollment": "2025001"}

	env := ts.call(http.MethodPost, "/api/v1/students", body, http.StatusUnauthorized, nil)
	assert.Equal(t, "missing_api_key", env.Error.Code)

	ts.apiKey = "wrong"
	env = ts.call(http.MethodPost, "/api/v1/students", body, http.StatusUnauthorized, nil)
	assert.Equal(t, "invalid_api_key", env.Error.Code)

	ts.apiKey = "sala-42"
	ts.call(http.MethodPost, "/api/v1/students", body, http.StatusCreated, nil)

	// Reads stay public.
	ts.apiKey = ""
	ts.call(http.MethodGet, "/api/v1/standings", nil, http.StatusOK, nil)
}

func TestFeatureGate(t *testing.T) {
	ts := newTestServer(t, func(_ *Config, deps *Dependencies) {
		deps.Features = gate{config.FeatureRewardDraws: false, config.FeatureGroupRankings: false}
	})

	env := ts.call(http.MethodPost, "/api/v1/rewards/draws", map[string]string{"student_id": "x"}, http.StatusForbidden, nil)
	assert.Equal(t, "feature_disabled", env.Error.Code)
	ts.call(http.MethodGet, "/api/v1/groups/rankings", nil, http.StatusForbidden, nil)

	// Other routes are untouched.
	ts.call(http.MethodGet, "/api/v1/rewards/pending", nil, http.StatusOK, nil)
}

func TestFeatureListing(t *testing.T) {
	flags := config.LoadFeatureFlags()
	require.NoError(t, flags.SetEnabled(config.FeatureRewardRedeem, false))
	ts := newTestServer(t, func(_ *Config, deps *Dependencies) {
		deps.Features = flags
	})

	var features map[string]bool
	ts.call(http.MethodGet, "/api/v1/features", nil, http.StatusOK, &features)
	assert.False(t, features[config.FeatureRewardRedeem])
	assert.True(t, features[config.FeatureRewardDraws])
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(cfg *Config, _ *Dependencies) {
		cfg.RateLimitPerMinute = 2
	})

	ts.call(http.MethodGet, "/live", nil, http.StatusOK, nil)
	ts.call(http.MethodGet, "/live", nil, http.StatusOK, nil)

	rec := ts.do(http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
