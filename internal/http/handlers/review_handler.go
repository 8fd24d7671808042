package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/services"
)

type ReviewHandler struct {
	Reviews *services.ReviewService
}

func (h *ReviewHandler) ForProduct(c *fiber.Ctx) error {
	pid, err := pathID(c, "productId")
	if err != nil {
		return err
	}
	rs, err := h.Reviews.ProductReviews(pid)
	if err != nil {
		return err
	}
	return c.JSON(rs)
}

func (h *ReviewHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	r, err := h.Reviews.Get(id)
	if err != nil {
		return err
	}
	return c.JSON(r)
}

// POST /api/reviews/product/:productId
func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	p, ok := principal(c)
	if !ok {
		return errAuthRequired
	}
	pid, err := pathID(c, "productId")
	if err != nil {
		return err
	}
	var req services.ReviewRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	r, err := h.Reviews.Create(p.UserID, pid, req)
	if err != nil {
		return err
	}
	applog.Info(c, "review.create", map[string]any{"review": r.ID, "product": pid, "rating": r.Rating})
	return c.Status(fiber.StatusCreated).JSON(r)
}

func (h *ReviewHandler) Update(c *fiber.Ctx) error {
	p, ok := principal(c)
	if !ok {
		return errAuthRequired
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var patch services.ReviewPatch
	if err := parseBody(c, &patch); err != nil {
		return err
	}
	r, err := h.Reviews.Update(p.UserID, id, patch)
	if err != nil {
		return err
	}
	return c.JSON(r)
}

func (h *ReviewHandler) Delete(c *fiber.Ctx) error {
	p, ok := principal(c)
	if !ok {
		return errAuthRequired
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Reviews.Delete(p.UserID, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GET /api/reviews/user lists the caller's reviews.
func (h *ReviewHandler) Mine(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	rs, err := h.Reviews.UserReviews(uid)
	if err != nil {
		return err
	}
	return c.JSON(rs)
}

// GET /api/reviews/product/:productId/rating/:rating
func (h *ReviewHandler) ByRating(c *fiber.Ctx) error {
	pid, err := pathID(c, "productId")
	if err != nil {
		return err
	}
	rating, err := c.ParamsInt("rating")
	if err != nil {
		return validationField("rating")
	}
	rs, err := h.Reviews.ByRating(pid, rating)
	if err != nil {
		return err
	}
	return c.JSON(rs)
}

// Summary backs both /average-rating and /count.
func (h *ReviewHandler) Summary(c *fiber.Ctx) error {
	pid, err := pathID(c, "productId")
	if err != nil {
		return err
	}
	s, err := h.Reviews.Summary(pid)
	if err != nil {
		return err
	}
	return c.JSON(s)
}

// GET /api/reviews/check-user-review?productId=
func (h *ReviewHandler) CheckUserReview(c *fiber.Ctx) error {
	p, ok := principal(c)
	if !ok {
		return errAuthRequired
	}
	pid, err := queryProductID(c)
	if err != nil {
		return err
	}
	has, err := h.Reviews.HasReviewed(p.UserID, pid)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"productId": pid, "hasReviewed": has})
}

func (h *ReviewHandler) Recent(c *fiber.Ctx) error {
	rs, err := h.Reviews.Recent()
	if err != nil {
		return err
	}
	return c.JSON(rs)
}
