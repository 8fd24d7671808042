package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/services"
)

type CouponHandler struct {
	Coupons *services.CouponService
}

func (h *CouponHandler) list(fn func() ([]domain.Coupon, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cs, err := fn()
		if err != nil {
			return err
		}
		return c.JSON(cs)
	}
}

func (h *CouponHandler) List() fiber.Handler     { return h.list(h.Coupons.List) }
func (h *CouponHandler) Active() fiber.Handler   { return h.list(h.Coupons.Active) }
func (h *CouponHandler) Valid() fiber.Handler    { return h.list(h.Coupons.Valid) }
func (h *CouponHandler) Expired() fiber.Handler  { return h.list(h.Coupons.Expired) }
func (h *CouponHandler) Upcoming() fiber.Handler { return h.list(h.Coupons.Upcoming) }

func (h *CouponHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	cp, err := h.Coupons.Get(id)
	if err != nil {
		return err
	}
	return c.JSON(cp)
}

func (h *CouponHandler) ByCode(c *fiber.Ctx) error {
	code, err := pathID(c, "code")
	if err != nil {
		return err
	}
	cp, err := h.Coupons.GetByCode(code)
	if err != nil {
		return err
	}
	return c.JSON(cp)
}

func (h *CouponHandler) Create(c *fiber.Ctx) error {
	var req services.CouponRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	cp, err := h.Coupons.Create(req)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.coupon.create", map[string]any{"coupon": cp.ID, "code": cp.Code})
	return c.Status(fiber.StatusCreated).JSON(cp)
}

func (h *CouponHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req services.CouponRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	cp, err := h.Coupons.Update(id, req)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.coupon.update", map[string]any{"coupon": id})
	return c.JSON(cp)
}

func (h *CouponHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Coupons.Delete(id); err != nil {
		return err
	}
	applog.Audit(c, "admin.coupon.delete", map[string]any{"coupon": id})
	return c.SendStatus(fiber.StatusNoContent)
}

// PATCH /api/coupons/:id/activate and /deactivate
func (h *CouponHandler) SetActive(active bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		if err := h.Coupons.SetActive(id, active); err != nil {
			return err
		}
		applog.Audit(c, "admin.coupon.active", map[string]any{"coupon": id, "active": active})
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/coupons/validate/:code answers false for unknown codes.
func (h *CouponHandler) Validate(c *fiber.Ctx) error {
	code, err := pathID(c, "code")
	if err != nil {
		return err
	}
	ok, err := h.Coupons.IsValid(code)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"code": strings.ToUpper(code), "valid": ok})
}

// POST /api/coupons/calculate-discount?code=&orderAmount=
func (h *CouponHandler) CalculateDiscount(c *fiber.Ctx) error {
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		return apperr.Validation(map[string]string{"code": "is required"})
	}
	amount, err := queryDecimal(c, "orderAmount")
	if err != nil {
		return err
	}
	if amount == nil {
		return apperr.Validation(map[string]string{"orderAmount": "is required"})
	}
	d, err := h.Coupons.DiscountFor(code, *amount)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"discount": d, "finalAmount": decimal.Max(amount.Sub(d), decimal.Zero)})
}
