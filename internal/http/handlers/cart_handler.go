package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/apperr"
	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
}

func (h *CartHandler) Items(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	lines, err := h.Cart.Items(uid)
	if err != nil {
		return err
	}
	return c.JSON(lines)
}

// POST /api/cart/add {productId, quantity}
func (h *CartHandler) Add(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	var req services.CartRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if err := validate.Struct(req); err != nil {
		return err
	}
	if err := h.Cart.AddToCart(uid, req.ProductID, req.Quantity); err != nil {
		return err
	}
	applog.Info(c, "cart.add", map[string]any{"product": req.ProductID, "qty": req.Quantity})
	return c.JSON(fiber.Map{"message": "Item added to cart", "success": true})
}

// PUT /api/cart/update {productId, quantity}; zero or less removes the line.
func (h *CartHandler) Update(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	var req services.CartRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := validate.Struct(req); err != nil {
		return err
	}
	if err := h.Cart.UpdateQuantity(uid, req.ProductID, req.Quantity); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Cart updated", "success": true})
}

// DELETE /api/cart/remove?productId=
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	pid, ok := validate.ID(c.Query("productId"))
	if !ok {
		return apperr.Validation(map[string]string{"productId": "is required"})
	}
	if err := h.Cart.Remove(uid, pid); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CartHandler) Total(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	total, err := h.Cart.Total(uid)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"total": total})
}

func (h *CartHandler) Count(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	n, err := h.Cart.Count(uid)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"count": n})
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	if err := h.Cart.Clear(uid); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
