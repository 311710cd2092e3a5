package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lifedash/internal/ai"
	"lifedash/internal/auth"
	"lifedash/internal/services"
	"lifedash/internal/storage/memory"
)

type testServer struct {
	*Server
	store *memory.Store
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	store := memory.New()
	loc := time.UTC
	if opts.APIRateLimit == 0 {
		opts.APIRateLimit = 1000
	}
	if opts.LoginRateLimit == 0 {
		opts.LoginRateLimit = 100
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Date(2025, 3, 13, 18, 30, 0, 0, time.UTC) }
	}
	opts.Location = loc

	svc := Services{
		Gate:     auth.NewGate(store, "test-secret", time.Hour, auth.WithBcryptCost(4)),
		Entities: services.NewEntityService(store),
		Routine:  services.NewRoutineService(store, nil),
		Transfer: services.NewTransferService(store, loc),
		AI:       ai.NewService(nil, loc),
	}
	s := NewServer(":0", store, svc, opts)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return &testServer{Server: s, store: store}
}

func (ts *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rec, req)
	return rec
}

// setup creates the account and returns its token.
func (ts *testServer) setup(t *testing.T) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/auth/setup", "", `{"password":"s3cret"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("setup: status %d body %s", rec.Code, rec.Body)
	}
	var sess auth.Session
	decode(t, rec, &sess)
	if sess.Token == "" || sess.ID == "" {
		t.Fatalf("setup: empty session %+v", sess)
	}
	return sess.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t, Options{})

	var status map[string]bool
	decode(t, ts.do(t, http.MethodGet, "/api/auth/status", "", ""), &status)
	if status["isSetup"] {
		t.Fatal("fresh server reports isSetup")
	}

	token := ts.setup(t)

	if rec := ts.do(t, http.MethodPost, "/api/auth/setup", "", `{"password":"other"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("second setup: status %d", rec.Code)
	}

	rec := ts.do(t, http.MethodPost, "/api/auth/login", "", `{"password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong login: status %d", rec.Code)
	}
	var eb errorBody
	decode(t, rec, &eb)
	if eb.Message != "Invalid password" {
		t.Fatalf("wrong login message %q", eb.Message)
	}
	if strings.Contains(rec.Body.String(), "token") {
		t.Fatalf("wrong login leaked a token: %s", rec.Body)
	}

	if rec := ts.do(t, http.MethodPost, "/api/auth/login", "", `{"password":"s3cret"}`); rec.Code != http.StatusOK {
		t.Fatalf("login: status %d", rec.Code)
	}

	decode(t, ts.do(t, http.MethodGet, "/api/auth/status", "", ""), &status)
	if !status["isSetup"] {
		t.Fatal("isSetup false after setup")
	}

	if rec := ts.do(t, http.MethodGet, "/api/tasks", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/api/tasks", "garbage", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/auth/change-password", token, `{"currentPassword":"nope","newPassword":"n3w"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("change with wrong current: status %d", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/api/auth/change-password", token, `{"currentPassword":"s3cret","newPassword":"n3w"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("change: status %d body %s", rec.Code, rec.Body)
	}
	if rec := ts.do(t, http.MethodPost, "/api/auth/login", "", `{"password":"n3w"}`); rec.Code != http.StatusOK {
		t.Fatalf("login with new password: status %d", rec.Code)
	}

	if rec := ts.do(t, http.MethodDelete, "/api/auth/delete-account", token, ""); rec.Code != http.StatusOK {
		t.Fatalf("delete account: status %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/api/tasks", token, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("token of deleted user: status %d", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/api/auth/change-password", token, `{"currentPassword":"n3w","newPassword":"again"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("change password of deleted user: status %d", rec.Code)
	}
	decode(t, ts.do(t, http.MethodGet, "/api/auth/status", "", ""), &status)
	if status["isSetup"] {
		t.Fatal("isSetup true after delete")
	}
}

func TestEntityCRUD(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.setup(t)

	rec := ts.do(t, http.MethodPost, "/api/tasks", token,
		`{"id":"ignored","text":"Write report","dueDate":"2025-03-13T09:00:00.000Z","createdAt":"2025-03-12T10:00:00.000Z"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", rec.Code, rec.Body)
	}
	var task map[string]any
	decode(t, rec, &task)
	id, _ := task["id"].(string)
	if id == "" || id == "ignored" {
		t.Fatalf("create: id %v", task["id"])
	}
	if task["completed"] != false {
		t.Fatalf("create: completed default %v", task["completed"])
	}

	var list []map[string]any
	decode(t, ts.do(t, http.MethodGet, "/api/tasks", token, ""), &list)
	if len(list) != 1 {
		t.Fatalf("list: %d tasks", len(list))
	}

	rec = ts.do(t, http.MethodPut, "/api/tasks/"+id, token, `{"completed":true,"id":"other"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d body %s", rec.Code, rec.Body)
	}
	decode(t, rec, &task)
	if task["completed"] != true || task["id"] != id || task["text"] != "Write report" {
		t.Fatalf("update: %v", task)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"get unknown", http.MethodGet, "/api/tasks/7b0c2c52-3f57-4c7b-9a51-000000000000", "", http.StatusNotFound},
		{"get malformed", http.MethodGet, "/api/tasks/not-an-id", "", http.StatusNotFound},
		{"update unknown", http.MethodPut, "/api/tasks/not-an-id", `{"completed":true}`, http.StatusNotFound},
		{"create invalid", http.MethodPost, "/api/tasks", `{"completed":"yes"}`, http.StatusBadRequest},
		{"create malformed json", http.MethodPost, "/api/tasks", `{"text":`, http.StatusBadRequest},
		{"update invalid", http.MethodPut, "/api/tasks/" + id, `{"dueDate":"tomorrow-ish"}`, http.StatusBadRequest},
		{"unknown collection", http.MethodGet, "/api/widgets", "", http.StatusNotFound},
		{"method not allowed", http.MethodPatch, "/api/tasks/" + id, `{}`, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, token, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
		})
	}

	rec = ts.do(t, http.MethodPost, "/api/tasks", token, `{"completed":"yes"}`)
	var eb errorBody
	decode(t, rec, &eb)
	for _, f := range []string{"text", "dueDate", "createdAt", "completed"} {
		if _, ok := eb.Fields[f]; !ok {
			t.Errorf("validation fields %v missing %q", eb.Fields, f)
		}
	}

	if rec := ts.do(t, http.MethodDelete, "/api/tasks/"+id, token, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodDelete, "/api/tasks/"+id, token, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: status %d", rec.Code)
	}
}

func TestRoutineEndpoints(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.setup(t)

	var body struct {
		WeeklyRoutine map[string][]map[string]any `json:"weeklyRoutine"`
	}
	decode(t, ts.do(t, http.MethodGet, "/api/routine", token, ""), &body)
	if len(body.WeeklyRoutine) != 7 {
		t.Fatalf("empty routine has %d days", len(body.WeeklyRoutine))
	}

	rec := ts.do(t, http.MethodPost, "/api/routine", token,
		`{"weeklyRoutine":{"Monday":[{"time":"18:00","text":"Gym"},{"time":"07:30","text":"Run"}]}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("save: status %d body %s", rec.Code, rec.Body)
	}
	decode(t, rec, &body)
	monday := body.WeeklyRoutine["Monday"]
	if len(monday) != 2 || monday[0]["text"] != "Run" || monday[0]["id"] == "" {
		t.Fatalf("saved monday %v", monday)
	}

	if rec := ts.do(t, http.MethodPost, "/api/routine", token, `{"weeklyRoutine":{"Funday":[]}}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown weekday: status %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodPost, "/api/routine", token, `{"weeklyRoutine":{"Monday":[{"time":"25:00","text":"x"}]}}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad time: status %d", rec.Code)
	}
}

func TestImportExport(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.setup(t)

	rec := ts.do(t, http.MethodPost, "/api/tasks", token,
		`{"text":"Keep me","dueDate":"2025-03-13T09:00:00.000Z","createdAt":"2025-03-12T10:00:00.000Z"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d", rec.Code)
	}

	bad := `{"dailyData":{"2025-03-10":{"expenses":[{"category":"Food & Drinks","amount":-5,"description":"x","createdAt":"2025-03-10T10:00:00.000Z"}]}}}`
	rec = ts.do(t, http.MethodPost, "/api/import", token, bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid import: status %d body %s", rec.Code, rec.Body)
	}
	var eb errorBody
	decode(t, rec, &eb)
	if eb.Message != "Import aborted: invalid data" || len(eb.Fields) == 0 {
		t.Fatalf("invalid import body %+v", eb)
	}
	var tasks []map[string]any
	decode(t, ts.do(t, http.MethodGet, "/api/tasks", token, ""), &tasks)
	if len(tasks) != 1 {
		t.Fatalf("aborted import changed tasks: %d", len(tasks))
	}

	if rec := ts.do(t, http.MethodPost, "/api/import", token, `not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed import: status %d", rec.Code)
	}

	good := `{
		"dailyData": {"2025-03-10": {
			"expenses": [{"id":"old","category":"Food & Drinks","amount":250,"description":"lunch","createdAt":"2025-03-10T10:00:00.000Z"}],
			"moodLog": {"mood":"Good","createdAt":"2025-03-10T20:00:00.000Z"}
		}},
		"habits": [{"name":"Read","completions":["2025-03-10"],"createdAt":"2025-03-01T08:00:00.000Z"}],
		"weeklyRoutine": {"Monday":[{"time":"07:00","text":"Run"}]}
	}`
	rec = ts.do(t, http.MethodPost, "/api/import", token, good)
	if rec.Code != http.StatusOK {
		t.Fatalf("import: status %d body %s", rec.Code, rec.Body)
	}
	var result services.ImportResult
	decode(t, rec, &result)
	if result.Imported["expenses"] != 1 || result.Imported["habits"] != 1 || result.Imported["mood-logs"] != 1 {
		t.Fatalf("import counts %v", result.Imported)
	}

	decode(t, ts.do(t, http.MethodGet, "/api/tasks", token, ""), &tasks)
	if len(tasks) != 0 {
		t.Fatalf("import kept %d old tasks", len(tasks))
	}

	rec = ts.do(t, http.MethodGet, "/api/export", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: status %d", rec.Code)
	}
	var exported struct {
		DailyData map[string]struct {
			Expenses []map[string]any `json:"expenses"`
		} `json:"dailyData"`
		Habits []map[string]any `json:"habits"`
	}
	decode(t, rec, &exported)
	exp := exported.DailyData["2025-03-10"].Expenses
	if len(exp) != 1 || exp[0]["id"] == "old" {
		t.Fatalf("exported expenses %v", exp)
	}
	if len(exported.Habits) != 1 {
		t.Fatalf("exported habits %v", exported.Habits)
	}
}

func TestLoginRateLimited(t *testing.T) {
	ts := newTestServer(t, Options{LoginRateLimit: 2})
	ts.setup(t)

	if rec := ts.do(t, http.MethodPost, "/api/auth/login", "", `{"password":"wrong"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("second attempt: status %d", rec.Code)
	}
	rec := ts.do(t, http.MethodPost, "/api/auth/login", "", `{"password":"s3cret"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third attempt: status %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
	var mb messageBody
	decode(t, rec, &mb)
	if !strings.HasPrefix(mb.Message, "Too many requests") {
		t.Fatalf("message %q", mb.Message)
	}
	// the status route is not behind the login limiter
	if rec := ts.do(t, http.MethodGet, "/api/auth/status", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestBodyTooLarge(t *testing.T) {
	ts := newTestServer(t, Options{MaxBodyBytes: 256})
	token := ts.setup(t)

	body := `{"text":"` + strings.Repeat("x", 512) + `","dueDate":"2025-03-13T09:00:00.000Z","createdAt":"2025-03-12T10:00:00.000Z"}`
	if rec := ts.do(t, http.MethodPost, "/api/tasks", token, body); rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status %d, want 413", rec.Code)
	}
}

func TestAIEndpointsFallBack(t *testing.T) {
	ts := newTestServer(t, Options{})
	token := ts.setup(t)

	var out map[string]string
	rec := ts.do(t, http.MethodPost, "/api/ai/summary", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: status %d", rec.Code)
	}
	decode(t, rec, &out)
	if out["summary"] != ai.FallbackSummary {
		t.Fatalf("summary %q", out["summary"])
	}

	decode(t, ts.do(t, http.MethodPost, "/api/ai/report", token, `{"period":"month"}`), &out)
	if out["report"] != ai.FallbackReport {
		t.Fatalf("report %q", out["report"])
	}

	decode(t, ts.do(t, http.MethodPost, "/api/ai/chat/init", token, ""), &out)
	if out["message"] != ai.FallbackChatInit {
		t.Fatalf("chat init %q", out["message"])
	}

	decode(t, ts.do(t, http.MethodPost, "/api/ai/chat/message", token, `{"history":[{"role":"user","content":"hi"}]}`), &out)
	if out["message"] != ai.FallbackChatMessage {
		t.Fatalf("chat message %q", out["message"])
	}

	tests := []struct {
		name string
		path string
		body string
	}{
		{"unknown period", "/api/ai/report", `{"period":"decade"}`},
		{"reversed dates", "/api/ai/report", `{"startDate":"2025-03-10","endDate":"2025-03-01"}`},
		{"empty history", "/api/ai/chat/message", `{"history":[]}`},
		{"bad role", "/api/ai/chat/message", `{"history":[{"role":"system","content":"x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := ts.do(t, http.MethodPost, tt.path, token, tt.body); rec.Code != http.StatusBadRequest {
				t.Fatalf("status %d, want 400 (body %s)", rec.Code, rec.Body)
			}
		})
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is locked") }

func TestHealthReadyMetrics(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(t, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing security headers: %v", rec.Header())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id")
	}

	if rec := ts.do(t, http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("readyz: %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/metrics", "", "")
	for _, want := range []string{"http_requests_total 3", `rate_limited_total{limiter="login"} 0`, "uptime_seconds"} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("metrics missing %q:\n%s", want, rec.Body)
		}
	}
}

func TestReadyWithStoreDown(t *testing.T) {
	ts := newTestServer(t, Options{})
	s := NewServer(":0", failingPinger{}, ts.svc, Options{})
	defer s.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing store: %d", rec.Code)
	}
}
