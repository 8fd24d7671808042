package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/services"
)

type AddressHandler struct {
	Addrs *services.AddressService
}

func addressType(c *fiber.Ctx, name string) (domain.AddressType, error) {
	t, ok := domain.ParseAddressType(c.Params(name))
	if !ok {
		return "", apperr.Validation(map[string]string{name: "must be one of shipping billing"})
	}
	return t, nil
}

// GET /api/addresses
func (h *AddressHandler) List(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	as, err := h.Addrs.List(uid)
	if err != nil {
		return err
	}
	return c.JSON(as)
}

// GET /api/addresses/type/:type
func (h *AddressHandler) ByType(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	typ, err := addressType(c, "type")
	if err != nil {
		return err
	}
	as, err := h.Addrs.ByType(uid, typ)
	if err != nil {
		return err
	}
	return c.JSON(as)
}

// GET /api/addresses/default/:type
func (h *AddressHandler) Default(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	typ, err := addressType(c, "type")
	if err != nil {
		return err
	}
	a, err := h.Addrs.Default(uid, typ)
	if err != nil {
		return err
	}
	return c.JSON(a)
}

func (h *AddressHandler) Count(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	n, err := h.Addrs.Count(uid)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"count": n})
}

func (h *AddressHandler) Get(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.Addrs.Get(uid, id)
	if err != nil {
		return err
	}
	return c.JSON(a)
}

func (h *AddressHandler) Create(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	var req services.AddressRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	a, err := h.Addrs.Create(uid, req)
	if err != nil {
		return err
	}
	applog.Info(c, "address.create", map[string]any{"address": a.ID, "type": a.Type, "default": a.Default})
	return c.Status(fiber.StatusCreated).JSON(a)
}

func (h *AddressHandler) Update(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var patch services.AddressPatch
	if err := parseBody(c, &patch); err != nil {
		return err
	}
	a, err := h.Addrs.Update(uid, id, patch)
	if err != nil {
		return err
	}
	return c.JSON(a)
}

// PATCH /api/addresses/:id/default
func (h *AddressHandler) SetDefault(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.Addrs.SetDefault(uid, id)
	if err != nil {
		return err
	}
	return c.JSON(a)
}

func (h *AddressHandler) Delete(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Addrs.Delete(uid, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GET /api/addresses/:id/validate reports whether a stored address is shippable.
func (h *AddressHandler) Validate(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.Addrs.Get(uid, id)
	if err != nil {
		return err
	}
	verr := services.ValidateAddress(a)
	var ae *apperr.Error
	switch {
	case verr == nil:
		return c.JSON(fiber.Map{"valid": true})
	case errors.As(verr, &ae):
		return c.JSON(fiber.Map{"valid": false, "errors": ae.Fields})
	default:
		return verr
	}
}
