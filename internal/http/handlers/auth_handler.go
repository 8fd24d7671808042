package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/apperr"
	applog "storefront/internal/log"
	"storefront/internal/services"
)

type AuthHandler struct {
	Auth     *services.AuthService
	Secure   bool
	TokenTTL time.Duration
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type authResponse struct {
	Token        string `json:"token,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Message      string `json:"message"`
	Success      bool   `json:"success"`
}

// ---------- API ----------

func (h *AuthHandler) APIRegister(c *fiber.Ctx) error {
	var req services.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	u, err := h.Auth.Register(c.UserContext(), req)
	if err != nil {
		return err
	}
	applog.Audit(c, "auth.register", map[string]any{"user": u.ID})
	return c.Status(fiber.StatusCreated).JSON(authResponse{Message: "User registered successfully", Success: true})
}

func (h *AuthHandler) APILogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	u, pair, err := h.Auth.Login(strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		if apperr.Is(err, fiber.StatusUnauthorized) {
			applog.Security(c, "auth.login.fail", map[string]any{"email": req.Email})
		}
		return err
	}
	c.Locals(applog.UserKey, u.ID)
	applog.Audit(c, "auth.login.success", map[string]any{"email": u.Email})
	return c.JSON(authResponse{Token: pair.Token, RefreshToken: pair.RefreshToken, Message: "Login successful", Success: true})
}

func (h *AuthHandler) APIRefresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	pair, err := h.Auth.Refresh(req.RefreshToken)
	if err != nil {
		applog.Security(c, "auth.refresh.fail", map[string]any{"reason": err.Error()})
		return err
	}
	return c.JSON(authResponse{Token: pair.Token, RefreshToken: pair.RefreshToken, Message: "Token refreshed", Success: true})
}

// ---------- Web ----------

func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	return render(c, "login", fiber.Map{"Err": "", "Email": ""})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.FormValue("email"))
	_, pair, err := h.Auth.Login(email, c.FormValue("password"))
	if err != nil {
		if !apperr.Is(err, fiber.StatusUnauthorized) {
			return err
		}
		applog.Security(c, "auth.login.fail", map[string]any{"email": email})
		c.Status(fiber.StatusUnauthorized)
		return render(c, "login", fiber.Map{"Err": "Invalid email or password", "Email": email})
	}

	c.Cookie(&fiber.Cookie{
		Name:     tokenCookie,
		Value:    pair.Token,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.Secure,
		Expires:  time.Now().Add(h.TokenTTL),
	})
	applog.Audit(c, "auth.login.success", map[string]any{"email": email})
	return c.Redirect("/")
}

func (h *AuthHandler) RegisterForm(c *fiber.Ctx) error {
	return render(c, "register", fiber.Map{})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req services.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return errMalformed
	}
	u, err := h.Auth.Register(c.UserContext(), req)
	if err != nil {
		code := apperr.CodeOf(err)
		if code >= fiber.StatusInternalServerError {
			return err
		}
		var fields map[string]string
		var ae *apperr.Error
		if errors.As(err, &ae) {
			fields = ae.Fields
		}
		c.Status(code)
		return render(c, "register", fiber.Map{"Err": err.Error(), "Errors": fields, "Form": req})
	}
	applog.Audit(c, "auth.register", map[string]any{"user": u.ID})
	return c.Redirect("/login")
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	clearTokenCookie(c)
	applog.Audit(c, "auth.logout", nil)
	return c.Redirect("/")
}

func clearTokenCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
}
