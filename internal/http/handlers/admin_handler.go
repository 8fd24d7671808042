package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/apperr"
	applog "storefront/internal/log"
	"storefront/internal/services"
)

// AdminHandler serves the user administration endpoints under /api/users.
type AdminHandler struct {
	Users *services.UserService
}

// GET /api/users/:id
func (h *AdminHandler) User(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	u, err := h.Users.Get(id)
	if err != nil {
		return err
	}
	return c.JSON(u)
}

// GET /api/users/admin/all
func (h *AdminHandler) List(c *fiber.Ctx) error {
	us, err := h.Users.List()
	if err != nil {
		return err
	}
	return c.JSON(us)
}

// PUT /api/users/admin/:id/status?isActive=
func (h *AdminHandler) SetStatus(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	active, perr := strconv.ParseBool(c.Query("isActive"))
	if perr != nil {
		return apperr.Validation(map[string]string{"isActive": "must be true or false"})
	}
	u, err := h.Users.SetActive(id, active)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.user.status", map[string]any{"target": id, "active": active})
	return c.JSON(u)
}

// GET /api/users/admin/count
func (h *AdminHandler) Count(c *fiber.Ctx) error {
	n, err := h.Users.CountActive()
	if err != nil {
		return err
	}
	return c.JSON(n)
}
