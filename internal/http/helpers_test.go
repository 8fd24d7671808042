package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	html "github.com/gofiber/template/html/v2"
	"github.com/jmoiron/sqlx"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/http/handlers"
	applog "storefront/internal/log"
	"storefront/internal/repos"
)

type testEnv struct {
	app    *fiber.App
	db     *sqlx.DB
	events *events.Recorder
}

func testConfig() config.Config {
	return config.Config{
		DBDSN:         ":memory:",
		JWTSecret:     "handlers-test-secret-0123456789abcdef",
		JWTIssuer:     "storefront-test",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		LoginAttempts: 50,
		RateLimit:     1000,
		CORSOrigins:   "*",
	}
}

// newEnv builds the real app over a seeded in-memory database.
func newEnv(t *testing.T, tweak ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := testConfig()
	for _, fn := range tweak {
		fn(&cfg)
	}
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := repos.SeedDemo(db); err != nil {
		t.Fatalf("seed demo: %v", err)
	}
	rec := &events.Recorder{}
	engine := html.New("../../web/templates", ".html")
	app := handlers.NewApp(handlers.NewDeps(db, cfg, rec), cfg, engine)
	return &testEnv{app: app, db: db, events: rec}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	return resp
}

// call sends body as JSON with an optional bearer token.
func (e *testEnv) call(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.do(t, req)
}

// expect fails the test unless resp has the wanted status, and decodes the body into out.
func expect(t *testing.T, resp *http.Response, want int, out any) {
	t.Helper()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		t.Fatalf("expected %d, got %d body=%s", want, resp.StatusCode, body)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			t.Fatalf("decode %s: %v", body, err)
		}
	}
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	var out struct {
		Token string `json:"token"`
	}
	expect(t, e.call(t, "POST", "/api/auth/login", "", map[string]string{"email": email, "password": password}), http.StatusOK, &out)
	if out.Token == "" {
		t.Fatal("empty token")
	}
	return out.Token
}

func (e *testEnv) userToken(t *testing.T) string  { return e.login(t, "user@example.com", "user123") }
func (e *testEnv) adminToken(t *testing.T) string { return e.login(t, "admin@example.com", "admin123") }

// placeOrder checks out one laptop for the token's user.
func (e *testEnv) placeOrder(t *testing.T, token, coupon string) domain.Order {
	t.Helper()
	expect(t, e.call(t, "POST", "/api/cart/add", token, map[string]any{"productId": "p-laptop", "quantity": 1}), http.StatusOK, nil)
	var addrs []domain.Address
	expect(t, e.call(t, "GET", "/api/addresses", token, nil), http.StatusOK, &addrs)
	if len(addrs) == 0 {
		expect(t, e.call(t, "POST", "/api/addresses", token, map[string]any{
			"type": "shipping", "firstName": "John", "lastName": "Doe", "addressLine1": "1 Main St",
			"city": "College Park", "state": "MD", "postalCode": "20742", "country": "US",
		}), http.StatusCreated, nil)
	}
	var o domain.Order
	expect(t, e.call(t, "POST", "/api/orders/checkout", token, map[string]string{"couponCode": coupon}), http.StatusCreated, &o)
	return o
}

func cookieValue(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// csrfToken fetches the login page and returns the issued csrf cookie.
func (e *testEnv) csrfToken(t *testing.T) string {
	t.Helper()
	resp := e.do(t, httptest.NewRequest("GET", "/login", nil))
	tok := cookieValue(resp, "csrf_")
	if tok == "" {
		t.Fatal("csrf token missing")
	}
	return tok
}

func formRequest(path, csrf, form string) *http.Request {
	if csrf != "" {
		form = "csrf=" + csrf + "&" + form
	}
	req := httptest.NewRequest("POST", path, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if csrf != "" {
		req.AddCookie(&http.Cookie{Name: "csrf_", Value: csrf})
	}
	return req
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	UserID string         `json:"user_id"`
	Err    string         `json:"err"`
	Status *int           `json:"status"`
	Fields map[string]any `json:"fields"`
}

type lockedWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

// captureLogs collects the JSON log lines written while fn runs.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	w := &lockedWriter{}
	restore := applog.SetOutput(w)
	defer restore()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(w.buf.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil && e.Action != "" {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
