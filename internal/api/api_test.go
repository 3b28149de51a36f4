package api

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nampox/reveal/internal/flow"
	"github.com/nampox/reveal/internal/models"
	"github.com/nampox/reveal/internal/store"
)

var fixedNow = time.Date(2026, 2, 14, 20, 0, 0, 123_000_000, time.UTC)

func newTestServer(t *testing.T, opts ...Option) (*Server, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	opts = append([]Option{WithNow(func() time.Time { return fixedNow })}, opts...)
	return NewServer(st, opts...), st
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rr.Body.String(), err)
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Total   *int            `json:"total"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func TestGreetHandler(t *testing.T) {
	s, _ := newTestServer(t)
	tests := []struct {
		target string
		want   string
	}{
		{"/greet", "Xin chào, Bạn! 👋"},
		{"/greet?name=Lan", "Xin chào, Lan! 👋"},
		{"/greet?name=%20%20", "Xin chào, Bạn! 👋"},
	}
	for _, tt := range tests {
		rr := do(t, s, http.MethodGet, tt.target, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tt.target, rr.Code)
		}
		var got models.GreetResponse
		decode(t, rr, &got)
		if got.Message != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.target, tt.want, got.Message)
		}
		if got.Timestamp != "2026-02-14T20:00:00.123Z" || got.Method != http.MethodGet {
			t.Errorf("%s: unexpected timestamp/method %q %q", tt.target, got.Timestamp, got.Method)
		}
	}
}

func TestTimeHandler_Fields(t *testing.T) {
	s, _ := newTestServer(t, WithServerLabel("edge-1"))
	rr := do(t, s, http.MethodGet, "/time", "")
	var got models.TimeResponse
	decode(t, rr, &got)

	if got.UTC != "2026-02-14T20:00:00.123Z" {
		t.Errorf("unexpected utc %q", got.UTC)
	}
	if got.Local != "2026-02-15T03:00:00.123+07:00" {
		t.Errorf("unexpected local %q", got.Local)
	}
	if got.Formatted != "03:00:00 15/2/2026" {
		t.Errorf("unexpected formatted %q", got.Formatted)
	}
	if got.ServerLabel != "edge-1" {
		t.Errorf("unexpected server label %q", got.ServerLabel)
	}
}

func TestTimeHandler_UnixSecondsMatchesUTC(t *testing.T) {
	instants := []time.Time{
		fixedNow,
		time.Unix(0, 0),
		time.Unix(0, 999_999_999),
		time.Date(1969, 12, 31, 23, 59, 59, 500_000_000, time.UTC),
		time.Date(1900, 1, 1, 0, 0, 0, 1_000_000, time.UTC),
		time.Date(2099, 12, 31, 23, 59, 59, 999_000_000, time.UTC),
	}
	for _, at := range instants {
		at := at
		s := NewServer(store.NewInMemoryStore(), WithNow(func() time.Time { return at }))
		var got models.TimeResponse
		decode(t, do(t, s, http.MethodGet, "/time", ""), &got)

		parsed, err := time.Parse(isoUTCLayout, got.UTC)
		if err != nil {
			t.Fatalf("unparseable utc %q: %v", got.UTC, err)
		}
		want := int64(math.Floor(float64(parsed.UnixMilli()) / 1000))
		if got.UnixSeconds != want {
			t.Errorf("%v: unixSeconds %d, floor of utc millis %d", at, got.UnixSeconds, want)
		}
	}
}

func TestUsersHandler_List(t *testing.T) {
	s, _ := newTestServer(t)
	rr := do(t, s, http.MethodGet, "/users", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var env envelope
	decode(t, rr, &env)
	var users []models.User
	if err := json.Unmarshal(env.Data, &users); err != nil {
		t.Fatal(err)
	}
	if !env.Success || env.Total == nil || *env.Total != len(users) || len(users) != 4 {
		t.Errorf("unexpected list envelope: %+v", env)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS header on user responses")
	}
}

func TestUsersHandler_Create(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"missing email", `{"name":"Alice"}`, http.StatusBadRequest, msgMissingNameOrEmail},
		{"missing name", `{"email":"a@example.com"}`, http.StatusBadRequest, msgMissingNameOrEmail},
		{"empty name", `{"name":"","email":"a@example.com"}`, http.StatusBadRequest, msgMissingNameOrEmail},
		{"whitespace name accepted", `{"name":"  ","email":"a@example.com"}`, http.StatusCreated, ""},
		{"any email accepted", `{"name":"Alice","email":"nope"}`, http.StatusCreated, ""},
		{"address list accepted", `{"name":"Alice","email":"Bob Smith <bob@x.io>, c@d.e"}`, http.StatusCreated, ""},
		{"bad json", `{"name":`, http.StatusBadRequest, msgInvalidJSON},
		{"created", `{"name":"Alice","email":"alice@example.com"}`, http.StatusCreated, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t)
			rr := do(t, s, http.MethodPost, "/users", tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
			var env envelope
			decode(t, rr, &env)
			if tt.wantErr != "" {
				if env.Success || env.Error != tt.wantErr {
					t.Errorf("expected failure %q, got %+v", tt.wantErr, env)
				}
				return
			}
			var u models.User
			if err := json.Unmarshal(env.Data, &u); err != nil {
				t.Fatal(err)
			}
			if !env.Success || env.Message != msgUserCreated || u.ID != 5 || u.Role != models.DefaultUserRole {
				t.Errorf("unexpected created envelope: %+v user %+v", env, u)
			}
		})
	}
}

func TestUsersHandler_PreflightAndMethods(t *testing.T) {
	s, _ := newTestServer(t)
	if rr := do(t, s, http.MethodOptions, "/users", ""); rr.Code != http.StatusOK {
		t.Errorf("expected 200 for pre-flight, got %d", rr.Code)
	}
	for _, m := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		rr := do(t, s, m, "/users", "")
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: expected 405, got %d", m, rr.Code)
		}
		var env envelope
		decode(t, rr, &env)
		if env.Success || env.Error != msgMethodNotAllowed {
			t.Errorf("%s: unexpected body %+v", m, env)
		}
	}
}

func TestVisitorLifecycle(t *testing.T) {
	s, st := newTestServer(t)
	rr := do(t, s, http.MethodPost, "/visitors", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	var env envelope
	decode(t, rr, &env)
	var v models.Visitor
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatal(err)
	}
	if v.ID == "" || v.Visited {
		t.Fatalf("expected a fresh unvisited visitor, got %+v", v)
	}

	if rr := do(t, s, http.MethodGet, "/visitors/"+v.ID, ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for a known visitor, got %d", rr.Code)
	}

	var first models.Visitor
	for i := 0; i < 2; i++ {
		rr := do(t, s, http.MethodPut, "/visitors/"+v.ID+"/visited", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("mark %d: expected 200, got %d", i, rr.Code)
		}
		decode(t, rr, &env)
		var marked models.Visitor
		if err := json.Unmarshal(env.Data, &marked); err != nil {
			t.Fatal(err)
		}
		if !marked.Visited || marked.CompletedAt == nil {
			t.Fatalf("mark %d: expected visited, got %+v", i, marked)
		}
		if i == 0 {
			first = marked
		} else if !marked.CompletedAt.Equal(*first.CompletedAt) {
			t.Error("marking twice must keep the first completion time")
		}
	}

	// A returning engine session for this visitor sees the flag the API wrote
	visited, err := flow.NewStoreBasedMarker(st, v.ID).HasVisited()
	if err != nil || !visited {
		t.Errorf("expected the engine marker to report a visit, got %v err=%v", visited, err)
	}
	if !first.CompletedAt.Equal(fixedNow) {
		t.Errorf("expected completion at the server clock, got %v", first.CompletedAt)
	}
}

func TestVisitorNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/visitors/nobody"},
		{http.MethodPut, "/visitors/nobody/visited"},
	} {
		rr := do(t, s, tc.method, tc.target, "")
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tc.method, tc.target, rr.Code)
		}
	}
}

func TestChoreographyHandler(t *testing.T) {
	cfg := flow.DefaultConfig()
	cfg.Timeline.Void.Message = "custom"
	s, _ := newTestServer(t, WithChoreography(cfg))

	var env struct {
		Success bool        `json:"success"`
		Data    flow.Config `json:"data"`
	}
	decode(t, do(t, s, http.MethodGet, "/choreography", ""), &env)
	if !env.Success || env.Data.Timeline.Void.Message != "custom" || env.Data.Hold.Total != cfg.Hold.Total {
		t.Errorf("unexpected choreography %+v", env.Data.Timeline.Void)
	}
}

type brokenStore struct{ *store.InMemoryStore }

func (brokenStore) ListUsers() ([]models.User, error) { return nil, models.ErrStoreUnavailable }

func TestHealthHandler(t *testing.T) {
	s, _ := newTestServer(t)
	if rr := do(t, s, http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}

	broken := NewServer(brokenStore{store.NewInMemoryStore()})
	rr := do(t, broken, http.MethodGet, "/health", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 for a broken store, got %d", rr.Code)
	}
	if rr := do(t, broken, http.MethodGet, "/users", ""); rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 listing from a broken store, got %d", rr.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	s, _ := newTestServer(t)
	rr := do(t, s, http.MethodGet, "/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("expected a JSON 404, got %q", ct)
	}
}

func TestWriteJSONResponse_Fallback(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSONResponse(rr, http.StatusOK, map[string]interface{}{"bad": func() {}})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for an unencodable body, got %d", rr.Code)
	}
	var env envelope
	decode(t, rr, &env)
	if env.Success || env.Error != msgInternalError {
		t.Errorf("unexpected fallback %+v", env)
	}
}
