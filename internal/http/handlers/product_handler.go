package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

const defaultLowStock = 10

type ProductHandler struct {
	Catalog *services.CatalogService
}

// GET /api/products?categoryId=&page=&size=
func (h *ProductHandler) List(c *fiber.Ctx) error {
	page, size := validate.Page(c.Query("page"), c.Query("size"))
	cat := ""
	if raw := c.Query("categoryId"); raw != "" {
		id, ok := validate.ID(raw)
		if !ok {
			return validationField("categoryId")
		}
		cat = id
	}
	res, err := h.Catalog.ListProducts(cat, page, size)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// GET /api/products/:id. Admins also see soft-deleted products.
func (h *ProductHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, ok := principal(c)
	prod, err := h.Catalog.GetProduct(id, ok && p.IsAdmin())
	if err != nil {
		return err
	}
	return c.JSON(prod)
}

func (h *ProductHandler) BySKU(c *fiber.Ctx) error {
	sku, err := pathID(c, "sku")
	if err != nil {
		return err
	}
	prod, err := h.Catalog.GetProductBySKU(sku)
	if err != nil {
		return err
	}
	return c.JSON(prod)
}

func (h *ProductHandler) ByCategory(c *fiber.Ctx) error {
	id, err := pathID(c, "categoryId")
	if err != nil {
		return err
	}
	page, size := validate.Page(c.Query("page"), c.Query("size"))
	res, err := h.Catalog.ListProducts(id, page, size)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// GET /api/products/low-stock?threshold=
func (h *ProductHandler) LowStock(c *fiber.Ctx) error {
	threshold, err := queryInt(c, "threshold", defaultLowStock)
	if err != nil {
		return err
	}
	ps, err := h.Catalog.LowStockProducts(threshold)
	if err != nil {
		return err
	}
	return c.JSON(ps)
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var req services.ProductRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	prod, err := h.Catalog.CreateProduct(req, actor(c))
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.product.create", map[string]any{"product": prod.ID, "sku": prod.SKU})
	return c.Status(fiber.StatusCreated).JSON(prod)
}

func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var patch services.ProductPatch
	if err := parseBody(c, &patch); err != nil {
		return err
	}
	prod, err := h.Catalog.UpdateProduct(id, patch)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.product.update", map[string]any{"product": id})
	return c.JSON(prod)
}

// DELETE /api/products/:id is a soft delete.
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Catalog.DeleteProduct(id); err != nil {
		return err
	}
	applog.Audit(c, "admin.product.delete", map[string]any{"product": id})
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ProductHandler) Restore(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Catalog.RestoreProduct(id); err != nil {
		return err
	}
	applog.Audit(c, "admin.product.restore", map[string]any{"product": id})
	return c.SendStatus(fiber.StatusNoContent)
}
