package handlers_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"storefront/internal/config"
)

// Seeded accounts store bcrypt hashes, never the password.
func TestPasswordsSeededAreHashed(t *testing.T) {
	env := newEnv(t)
	rows := []struct {
		Hash string `db:"password_hash"`
		Raw  string
	}{}
	if err := env.db.Select(&rows, `SELECT password_hash, CASE user_type WHEN 'ADMIN' THEN 'admin123' ELSE 'user123' END AS raw FROM users`); err != nil {
		t.Fatalf("select hashes: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 seeded users, got %d", len(rows))
	}
	for _, r := range rows {
		if !strings.HasPrefix(r.Hash, "$2") {
			t.Fatalf("unexpected hash format: %s", r.Hash)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(r.Hash), []byte(r.Raw)); err != nil {
			t.Fatalf("seed hash does not validate known password: %v", err)
		}
	}
}

func TestAPILogin(t *testing.T) {
	env := newEnv(t)

	var ok struct {
		Token, RefreshToken, Message string
		Success                      bool
	}
	expect(t, env.call(t, "POST", "/api/auth/login", "", map[string]string{"email": "USER@example.com", "password": "user123"}), http.StatusOK, &ok)
	if ok.Token == "" || ok.RefreshToken == "" || !ok.Success {
		t.Fatalf("unexpected login body: %+v", ok)
	}

	for _, creds := range []map[string]string{
		{"email": "user@example.com", "password": "wrong"},
		{"email": "nobody@example.com", "password": "user123"},
	} {
		var fail struct{ Message string }
		expect(t, env.call(t, "POST", "/api/auth/login", "", creds), http.StatusUnauthorized, &fail)
		if fail.Message != "invalid email or password" {
			t.Fatalf("failures should look alike, got %q", fail.Message)
		}
	}
}

func TestAPIRegisterAndRefresh(t *testing.T) {
	env := newEnv(t)
	reg := map[string]string{
		"email": "alice@example.com", "password": "Str0ng!pass", "firstName": "Alice", "lastName": "Smith",
	}

	var created struct {
		Message string
		Success bool
	}
	expect(t, env.call(t, "POST", "/api/auth/register", "", reg), http.StatusCreated, &created)
	if !created.Success {
		t.Fatalf("register not successful: %+v", created)
	}
	expect(t, env.call(t, "POST", "/api/auth/register", "", reg), http.StatusConflict, nil)

	weak := map[string]string{"email": "bob@example.com", "password": "weak", "firstName": "Bob", "lastName": "B"}
	var verr struct{ Errors map[string]string }
	expect(t, env.call(t, "POST", "/api/auth/register", "", weak), http.StatusBadRequest, &verr)
	if verr.Errors["password"] == "" {
		t.Fatalf("expected a password field error, got %v", verr.Errors)
	}

	var pair struct{ Token, RefreshToken string }
	expect(t, env.call(t, "POST", "/api/auth/login", "", map[string]string{"email": reg["email"], "password": reg["password"]}), http.StatusOK, &pair)

	var refreshed struct{ Token string }
	expect(t, env.call(t, "POST", "/api/auth/refresh", "", map[string]string{"refreshToken": pair.RefreshToken}), http.StatusOK, &refreshed)
	if refreshed.Token == "" {
		t.Fatal("refresh returned no access token")
	}
	// an access token is not a refresh token
	expect(t, env.call(t, "POST", "/api/auth/refresh", "", map[string]string{"refreshToken": pair.Token}), http.StatusUnauthorized, nil)

	var profile struct{ Email, FirstName string }
	expect(t, env.call(t, "GET", "/api/users/profile", refreshed.Token, nil), http.StatusOK, &profile)
	if profile.Email != "alice@example.com" || profile.FirstName != "Alice" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

// The login form sets an HttpOnly cookie and is throttled per client.
func TestWebLoginCookieAndThrottle(t *testing.T) {
	env := newEnv(t, func(c *config.Config) { c.LoginAttempts = 3 })
	csrf := env.csrfToken(t)

	resp := env.do(t, formRequest("/login", csrf, "email=user@example.com&password=nope"))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Invalid email or password") {
		t.Fatalf("login page should show the error, body=%s", body)
	}

	resp = env.do(t, formRequest("/login", csrf, "email=user@example.com&password=user123"))
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect on success, got %d", resp.StatusCode)
	}
	var token *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "token" {
			token = c
		}
	}
	if token == nil || token.Value == "" || !token.HttpOnly {
		t.Fatalf("expected HttpOnly token cookie, got %+v", token)
	}

	home := httptest.NewRequest("GET", "/", nil)
	home.AddCookie(token)
	resp = env.do(t, home)
	body, _ = io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "user@example.com") {
		t.Fatalf("home should greet the logged in user, status=%d body=%s", resp.StatusCode, body)
	}

	env.do(t, formRequest("/login", csrf, "email=user@example.com&password=nope"))
	resp = env.do(t, formRequest("/login", csrf, "email=user@example.com&password=user123"))
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after the attempt limit, got %d", resp.StatusCode)
	}
}

func TestWebRegister(t *testing.T) {
	env := newEnv(t)
	csrf := env.csrfToken(t)

	resp := env.do(t, formRequest("/register", csrf, "email=carol@example.com&password=short&firstName=Carol&lastName=C"))
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "password") {
		t.Fatalf("expected the form back with a password error, status=%d body=%s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "carol@example.com") {
		t.Fatalf("form should keep the entered email, body=%s", body)
	}

	resp = env.do(t, formRequest("/register", csrf, "email=carol@example.com&password=Str0ng!pass&firstName=Carol&lastName=C"))
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	env.login(t, "carol@example.com", "Str0ng!pass")
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newEnv(t)
	csrf := env.csrfToken(t)
	resp := env.do(t, formRequest("/logout", csrf, ""))
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "token" && c.Value != "" {
			t.Fatalf("token cookie not cleared: %+v", c)
		}
	}
}
