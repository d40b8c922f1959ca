package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/auth"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/fixtures"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/jwt"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/metrics"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/sse"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/storage"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/repository/sqlite/sqlitetest"
	authService "github.com/rakhaabhirama/leave-tracker-pro-63/internal/service/auth"
	employeeService "github.com/rakhaabhirama/leave-tracker-pro-63/internal/service/employee"
	leaveService "github.com/rakhaabhirama/leave-tracker-pro-63/internal/service/leave"
	leaveYearService "github.com/rakhaabhirama/leave-tracker-pro-63/internal/service/leaveyear"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/service/onleave"
	reportService "github.com/rakhaabhirama/leave-tracker-pro-63/internal/service/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	handlerTestAccessExp = "1h"
	handlerTestSecret    = "test-secret-key-for-jwt"
	handlerTestEmail     = "hr@example.com"
	handlerTestPassword  = "password123"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	Meta *struct {
		Page       int   `json:"page"`
		Limit      int   `json:"limit"`
		TotalItems int64 `json:"total_items"`
		TotalPages int   `json:"total_pages"`
	} `json:"meta"`
}

type testServer struct {
	handler    http.Handler
	store      *sqlitetest.Store
	jwtService *jwt.JWTService
	token      string
	adminID    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithRollover(t, leaveYearService.Config{AnnualGrant: 12})
}

func newTestServerWithRollover(t *testing.T, rolloverCfg leaveYearService.Config) *testServer {
	t.Helper()
	ctx := context.Background()

	store := sqlitetest.New(t)
	files, err := storage.NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)
	jwtService, err := jwt.NewJWTService(handlerTestSecret, handlerTestAccessExp)
	require.NoError(t, err)

	hub := sse.NewHub()
	m := metrics.New()
	resolver := onleave.NewResolver(store.History, hub, m)
	ranker := fixtures.NewPositionRanker(nil)

	authSvc := authService.NewAuthService(store.Admins, jwtService)
	employeeSvc := employeeService.NewEmployeeService(store.Employees, resolver, ranker, employeeService.Config{AnnualGrant: 12})
	leaveSvc := leaveService.NewLeaveService(store.Transactor, store.History, store.Employees, leaveService.NewLedger(12), resolver, m)
	rolloverSvc := leaveYearService.NewRolloverService(store.Transactor, store.Settings, store.Runs, store.Employees, files, hub, m, rolloverCfg)
	reportSvc := reportService.NewReportService(store.Employees, store.History, store.Settings, resolver, ranker)

	_, err = rolloverSvc.EnsureSettings(ctx, 2025)
	require.NoError(t, err)
	admin, err := authSvc.CreateAdmin(ctx, auth.CreateAdminRequest{Email: handlerTestEmail, Name: "HR", Password: handlerTestPassword})
	require.NoError(t, err)
	token, _, err := jwtService.GenerateAccessToken(admin.ID, admin.Email)
	require.NoError(t, err)

	router := NewRouter(jwtService, RouterConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		Env:            "test",
		Version:        "test",
		LogLevel:       slog.LevelError,
		Metrics:        m.Handler(),
	}, Handlers{
		Auth:      NewAuthHandler(authSvc),
		Employee:  NewEmployeeHandler(employeeSvc),
		Leave:     NewLeaveHandler(leaveSvc, resolver),
		LeaveYear: NewLeaveYearHandler(rolloverSvc),
		Report:    NewReportHandler(reportSvc),
		Event:     NewEventHandler(hub, jwtService),
	})

	return &testServer{handler: router, store: store, jwtService: jwtService, token: token, adminID: admin.ID}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

type balanceView struct {
	ID                 string `json:"id"`
	PriorYearBalance   int    `json:"prior_year_balance"`
	CurrentYearBalance int    `json:"current_year_balance"`
	TotalBalance       int    `json:"total_balance"`
	OnLeave            bool   `json:"on_leave"`
}

func (s *testServer) createEmployee(t *testing.T, number string, prior, current int) balanceView {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/v1/employees", map[string]any{
		"employee_number":      number,
		"name":                 "Employee " + number,
		"position":             "JFU",
		"prior_year_balance":   prior,
		"current_year_balance": current,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var e balanceView
	require.NoError(t, json.Unmarshal(env.Data, &e))
	return e
}

func TestRouter_Heartbeat(t *testing.T) {
	s := newTestServer(t)
	s.token = ""

	rec, _ := s.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Metrics(t *testing.T) {
	s := newTestServer(t)
	s.token = ""

	rec, _ := s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAuthHandler_Login(t *testing.T) {
	s := newTestServer(t)
	s.token = ""

	rec, env := s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": handlerTestEmail, "password": handlerTestPassword})
	require.Equal(t, http.StatusOK, rec.Code)
	var tokens auth.TokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &tokens))
	assert.NotEmpty(t, tokens.AccessToken)

	rec, env = s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": handlerTestEmail, "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "bad"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAuthHandler_MeRequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), handlerTestEmail)

	s.token = ""
	rec, _ = s.do(t, http.MethodGet, "/api/v1/employees", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	sseToken, _, err := s.jwtService.GenerateSSEToken(s.adminID)
	require.NoError(t, err)
	s.token = sseToken
	rec, _ = s.do(t, http.MethodGet, "/api/v1/employees", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLeaveHandler_TakeCancelFlow(t *testing.T) {
	s := newTestServer(t)
	e := s.createEmployee(t, "1001", 4, 12)
	base := "/api/v1/employees/" + e.ID

	rec, env := s.do(t, http.MethodPost, base+"/leave/take", map[string]string{
		"start_date": "2025-03-03",
		"end_date":   "2025-03-14",
		"reason":     "Cuti tahunan",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tx struct {
		Entry struct {
			Days    int    `json:"days"`
			AdminID string `json:"admin_id"`
		} `json:"entry"`
		PriorYearBalance   int `json:"prior_year_balance"`
		CurrentYearBalance int `json:"current_year_balance"`
		TotalBalance       int `json:"total_balance"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tx))
	assert.Equal(t, 10, tx.Entry.Days)
	assert.Equal(t, s.adminID, tx.Entry.AdminID)
	assert.Equal(t, 0, tx.PriorYearBalance)
	assert.Equal(t, 6, tx.CurrentYearBalance)

	t.Run("insufficient balance", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, base+"/leave/take", map[string]any{
			"start_date": "2025-04-01",
			"end_date":   "2025-04-09",
			"days":       7,
			"reason":     "Cuti",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "INSUFFICIENT_BALANCE", env.Error.Code)
		assert.Equal(t, "6", env.Error.Details["available"])
		assert.Equal(t, "7", env.Error.Details["requested"])
	})

	t.Run("on leave during the period", func(t *testing.T) {
		rec, env := s.do(t, http.MethodGet, base+"/on-leave?date=2025-03-05", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, string(env.Data), `"on_leave":true`)

		rec, env = s.do(t, http.MethodGet, "/api/v1/leave/on-leave?date=2025-03-05", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, string(env.Data), e.ID)
	})

	rec, env = s.do(t, http.MethodPost, base+"/leave/cancel", map[string]string{
		"start_date": "2025-03-03",
		"end_date":   "2025-03-14",
		"reason":     "Batal",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &tx))
	assert.Equal(t, 10, tx.PriorYearBalance)
	assert.Equal(t, 6, tx.CurrentYearBalance)
	assert.Equal(t, 16, tx.TotalBalance)

	t.Run("second cancel conflicts", func(t *testing.T) {
		rec, _ := s.do(t, http.MethodPost, base+"/leave/cancel", map[string]string{
			"start_date": "2025-03-03",
			"end_date":   "2025-03-14",
			"reason":     "Batal",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("history newest first", func(t *testing.T) {
		rec, env := s.do(t, http.MethodGet, base+"/history", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var entries []struct {
			Kind           string  `json:"kind"`
			CancelsEntryID *string `json:"cancels_entry_id"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &entries))
		require.Len(t, entries, 2)
		assert.Equal(t, "accrual", entries[0].Kind)
		assert.NotNil(t, entries[0].CancelsEntryID)
		assert.Equal(t, "consumption", entries[1].Kind)
	})
}

func TestLeaveHandler_Errors(t *testing.T) {
	s := newTestServer(t)
	e := s.createEmployee(t, "1001", 0, 12)

	rec, _ := s.do(t, http.MethodPost, "/api/v1/employees/not-a-uuid/leave/add", map[string]any{"days": 1, "reason": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/employees/01890000-0000-7000-8000-000000000000/leave/add", map[string]any{"days": 1, "reason": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env := s.do(t, http.MethodPost, "/api/v1/employees/"+e.ID+"/leave/take", map[string]string{
		"start_date": "2025-03-14",
		"end_date":   "2025-03-03",
		"reason":     "x",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.False(t, env.Success)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/employees/"+e.ID+"/leave/cancel", map[string]string{
		"start_date": "2025-03-03",
		"end_date":   "2025-03-03",
		"reason":     "x",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/employees/"+e.ID+"/leave/add", "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmployeeHandler_ListAndStats(t *testing.T) {
	s := newTestServer(t)
	s.createEmployee(t, "1", 0, 2)
	s.createEmployee(t, "2", 0, 12)
	s.createEmployee(t, "3", 4, 12)

	rec, env := s.do(t, http.MethodGet, "/api/v1/employees?page=1&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.Meta)
	assert.EqualValues(t, 3, env.Meta.TotalItems)
	assert.Equal(t, 2, env.Meta.TotalPages)

	rec, env = s.do(t, http.MethodGet, "/api/v1/employees/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"total_employees":3`)
	assert.Contains(t, string(env.Data), `"low_balance":1`)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/employees?status=retired", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/employees", map[string]any{"employee_number": "1", "name": "Dup", "position": "JFU"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLeaveYearHandler_Advance(t *testing.T) {
	s := newTestServer(t)
	e := s.createEmployee(t, "1", 3, 5)

	rec, env := s.do(t, http.MethodPost, "/api/v1/leave-year/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(env.Data), `"status":"completed"`)

	rec, env = s.do(t, http.MethodGet, "/api/v1/leave-year", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"current_year":2026`)
	assert.Contains(t, string(env.Data), `"can_revert":true`)

	rec, env = s.do(t, http.MethodGet, "/api/v1/employees/"+e.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got balanceView
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 5, got.PriorYearBalance)
	assert.Equal(t, 12, got.CurrentYearBalance)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/leave-year/revert-next", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, env = s.do(t, http.MethodGet, "/api/v1/leave-year/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"operation":"advance"`)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/leave-year/runs/01890000-0000-7000-8000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLeaveYearHandler_Snapshot(t *testing.T) {
	s := newTestServer(t)
	e := s.createEmployee(t, "1", 3, 5)

	rec, env := s.do(t, http.MethodPost, "/api/v1/leave-year/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var run struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &run))

	rec, _ = s.do(t, http.MethodGet, "/api/v1/leave-year/runs/"+run.ID+"/snapshot", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "rollover-advance-2025-2026.json")
	assert.Contains(t, rec.Body.String(), e.ID)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/leave-year/runs/01890000-0000-7000-8000-000000000000/snapshot", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/leave-year/runs/not-a-uuid/snapshot", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLeaveYearHandler_SnapshotRedirectsToSignedURL(t *testing.T) {
	s := newTestServerWithRollover(t, leaveYearService.Config{AnnualGrant: 12, SnapshotURLExpiry: 15 * time.Minute})
	s.createEmployee(t, "1", 3, 5)

	rec, env := s.do(t, http.MethodPost, "/api/v1/leave-year/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var run struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &run))

	rec, _ = s.do(t, http.MethodGet, "/api/v1/leave-year/runs/"+run.ID+"/snapshot", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/rollovers/"+run.ID+"/snapshot.json", rec.Header().Get("Location"))
}

func TestReportHandler_Downloads(t *testing.T) {
	s := newTestServer(t)
	e := s.createEmployee(t, "1", 0, 12)

	rec, _ := s.do(t, http.MethodGet, "/api/v1/reports/employees?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Body.String(), "Employee 1")

	rec, _ = s.do(t, http.MethodGet, "/api/v1/reports/employees/"+e.ID+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "riwayat-cuti-1.xlsx")

	rec, _ = s.do(t, http.MethodGet, "/api/v1/reports/history?format=pdf", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestEventHandler_Stream(t *testing.T) {
	s := newTestServer(t)
	e := s.createEmployee(t, "1", 0, 12)

	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	t.Run("rejects missing and access tokens", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/events")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp, err = http.Get(srv.URL + "/api/v1/events?token=" + s.token)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	rec, env := s.do(t, http.MethodGet, "/api/v1/auth/sse-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sseToken auth.SSETokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &sseToken))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events?token="+sseToken.Token, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	waitFor := func(event string) {
		t.Helper()
		for lines.Scan() {
			if lines.Text() == "event: "+event {
				return
			}
		}
		t.Fatalf("stream ended before %q: %v", event, lines.Err())
	}

	waitFor("connected")

	rec, _ = s.do(t, http.MethodPost, "/api/v1/employees/"+e.ID+"/leave/add", map[string]any{"days": 2, "reason": "Koreksi"})
	require.Equal(t, http.StatusCreated, rec.Code)

	waitFor(sse.EventHistoryChanged)
	waitFor(sse.EventBalanceChanged)
}
