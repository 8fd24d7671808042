package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/services"
)

type CategoryHandler struct {
	Catalog *services.CatalogService
}

// GET /api/categories?activeOnly=
func (h *CategoryHandler) List(c *fiber.Ctx) error {
	cats, err := h.Catalog.ListCategories(c.QueryBool("activeOnly", false))
	if err != nil {
		return err
	}
	return c.JSON(cats)
}

func (h *CategoryHandler) Roots(c *fiber.Ctx) error {
	cats, err := h.Catalog.RootCategories()
	if err != nil {
		return err
	}
	return c.JSON(cats)
}

func (h *CategoryHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	cat, err := h.Catalog.GetCategory(id)
	if err != nil {
		return err
	}
	return c.JSON(cat)
}

func (h *CategoryHandler) Children(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	cats, err := h.Catalog.Subcategories(id)
	if err != nil {
		return err
	}
	return c.JSON(cats)
}

func (h *CategoryHandler) Products(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ps, err := h.Catalog.CategoryProducts(id)
	if err != nil {
		return err
	}
	return c.JSON(ps)
}

func (h *CategoryHandler) ProductCount(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	n, err := h.Catalog.CategoryProductCount(id)
	if err != nil {
		return err
	}
	return c.JSON(n)
}

func (h *CategoryHandler) Create(c *fiber.Ctx) error {
	var req services.CategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	cat, err := h.Catalog.CreateCategory(req)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.category.create", map[string]any{"category": cat.ID, "name": cat.Name})
	return c.Status(fiber.StatusCreated).JSON(cat)
}

func (h *CategoryHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req services.CategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	cat, err := h.Catalog.UpdateCategory(id, req)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.category.update", map[string]any{"category": id})
	return c.JSON(cat)
}

func (h *CategoryHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Catalog.DeleteCategory(id); err != nil {
		return err
	}
	applog.Audit(c, "admin.category.delete", map[string]any{"category": id})
	return c.SendStatus(fiber.StatusNoContent)
}

// PATCH /api/categories/:id/activate and /deactivate
func (h *CategoryHandler) SetActive(active bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		if err := h.Catalog.SetCategoryActive(id, active); err != nil {
			return err
		}
		applog.Audit(c, "admin.category.active", map[string]any{"category": id, "active": active})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
