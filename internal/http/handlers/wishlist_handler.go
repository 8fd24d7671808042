package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/apperr"
	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type WishlistHandler struct {
	Wish *services.WishlistService
}

func queryProductID(c *fiber.Ctx) (string, error) {
	id, ok := validate.ID(c.Query("productId"))
	if !ok {
		return "", apperr.Validation(map[string]string{"productId": "is required"})
	}
	return id, nil
}

func (h *WishlistHandler) Items(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	items, err := h.Wish.Items(uid)
	if err != nil {
		return err
	}
	return c.JSON(items)
}

func (h *WishlistHandler) Products(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	ps, err := h.Wish.Products(uid)
	if err != nil {
		return err
	}
	return c.JSON(ps)
}

// POST /api/wishlist/add?productId=
func (h *WishlistHandler) Add(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	pid, err := queryProductID(c)
	if err != nil {
		return err
	}
	item, err := h.Wish.Add(uid, pid)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// DELETE /api/wishlist/remove?productId=
func (h *WishlistHandler) Remove(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	pid, err := queryProductID(c)
	if err != nil {
		return err
	}
	if err := h.Wish.Remove(uid, pid); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *WishlistHandler) RemoveByID(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Wish.RemoveByID(uid, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *WishlistHandler) Clear(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	if err := h.Wish.Clear(uid); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GET /api/wishlist/check?productId=
func (h *WishlistHandler) Check(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	pid, err := queryProductID(c)
	if err != nil {
		return err
	}
	in, err := h.Wish.Contains(uid, pid)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"productId": pid, "inWishlist": in})
}

func (h *WishlistHandler) Count(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	n, err := h.Wish.Count(uid)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"count": n})
}

// POST /api/wishlist/move-to-cart?productId=
func (h *WishlistHandler) MoveToCart(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	pid, err := queryProductID(c)
	if err != nil {
		return err
	}
	if err := h.Wish.MoveToCart(uid, pid); err != nil {
		return err
	}
	applog.Info(c, "wishlist.move_to_cart", map[string]any{"product": pid})
	return c.JSON(fiber.Map{"message": "Moved to cart", "success": true})
}

// GET /api/wishlist/product/:productId lists who wished for a product (admin).
func (h *WishlistHandler) ByProduct(c *fiber.Ctx) error {
	pid, err := pathID(c, "productId")
	if err != nil {
		return err
	}
	items, err := h.Wish.ItemsByProduct(pid)
	if err != nil {
		return err
	}
	return c.JSON(items)
}
