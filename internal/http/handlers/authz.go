package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/apperr"
	applog "storefront/internal/log"
	"storefront/internal/services"
)

const (
	principalKey = "principal"
	tokenCookie  = "token"
)

var errAuthRequired = apperr.Unauthorized("authentication required")

// Authenticate resolves the caller from an "Authorization: Bearer" header, or
// on page routes from the token cookie set by the login form, and stores the
// Principal in locals. Requests without credentials pass through anonymously;
// a bad bearer token is rejected. API routes never read the cookie.
func Authenticate(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, fromHeader := bearer(c)
		if raw == "" && !isAPI(c) {
			raw = c.Cookies(tokenCookie)
		}
		if raw == "" {
			return c.Next()
		}
		p, err := auth.Authenticate(raw)
		if err != nil {
			if fromHeader {
				applog.Security(c, "auth.token.invalid", map[string]any{"reason": err.Error()})
				return err
			}
			// stale login cookie: browse anonymously
			clearTokenCookie(c)
			return c.Next()
		}
		c.Locals(principalKey, p)
		c.Locals(applog.UserKey, p.UserID)
		return c.Next()
	}
}

func bearer(c *fiber.Ctx) (string, bool) {
	h := c.Get(fiber.HeaderAuthorization)
	if h == "" {
		return "", false
	}
	tok, ok := strings.CutPrefix(h, "Bearer ")
	return strings.TrimSpace(tok), ok
}

// RequireRole lets the request through when the principal holds one of roles.
// Admins pass every gate.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := principal(c)
		if !ok {
			return errAuthRequired
		}
		if p.IsAdmin() {
			return c.Next()
		}
		for _, r := range roles {
			if p.HasRole(r) {
				return c.Next()
			}
		}
		applog.Security(c, "access.denied", map[string]any{"required": roles, "roles": p.Roles})
		return apperr.Forbidden("access denied")
	}
}

func principal(c *fiber.Ctx) (services.Principal, bool) {
	p, ok := c.Locals(principalKey).(services.Principal)
	return p, ok
}

// subjectUser is the user an account-scoped request acts on: the caller, or
// for admins the ?userId= they name.
func subjectUser(c *fiber.Ctx) (string, error) {
	p, ok := principal(c)
	if !ok {
		return "", errAuthRequired
	}
	uid := strings.TrimSpace(c.Query("userId"))
	if uid == "" || uid == p.UserID {
		return p.UserID, nil
	}
	if !p.IsAdmin() {
		applog.Security(c, "access.denied.user", map[string]any{"target": uid})
		return "", apperr.Forbidden("access denied")
	}
	return uid, nil
}

// actor names the caller in ledger rows and audit lines.
func actor(c *fiber.Ctx) string {
	if p, ok := principal(c); ok {
		return p.Email
	}
	return ""
}

func isAPI(c *fiber.Ctx) bool { return strings.HasPrefix(c.Path(), "/api/") }
