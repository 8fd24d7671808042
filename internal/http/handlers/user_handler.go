package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/services"
)

type UserHandler struct {
	Users *services.UserService
}

// GET /api/users/profile
func (h *UserHandler) Profile(c *fiber.Ctx) error {
	p, ok := principal(c)
	if !ok {
		return errAuthRequired
	}
	u, err := h.Users.Get(p.UserID)
	if err != nil {
		return err
	}
	return c.JSON(u)
}

// PUT /api/users/profile
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	p, ok := principal(c)
	if !ok {
		return errAuthRequired
	}
	var req services.ProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	u, err := h.Users.UpdateProfile(p.UserID, req)
	if err != nil {
		return err
	}
	applog.Audit(c, "user.profile.update", nil)
	return c.JSON(u)
}
