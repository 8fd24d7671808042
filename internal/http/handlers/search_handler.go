package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type SearchHandler struct {
	Catalog *services.CatalogService
}

// GET /api/products/search?searchTerm=&categoryId=&minPrice=&maxPrice=
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	var q services.ProductSearch
	if raw := c.Query("searchTerm"); raw != "" {
		term, ok := validate.Q(raw)
		if !ok {
			applog.Security(c, "validation.fail", map[string]any{"field": "searchTerm"})
			return validationField("searchTerm")
		}
		q.Term = term
	}
	if raw := c.Query("categoryId"); raw != "" {
		id, ok := validate.ID(raw)
		if !ok {
			return validationField("categoryId")
		}
		q.CategoryID = id
	}
	var err error
	if q.MinPrice, err = queryDecimal(c, "minPrice"); err != nil {
		return err
	}
	if q.MaxPrice, err = queryDecimal(c, "maxPrice"); err != nil {
		return err
	}
	ps, err := h.Catalog.SearchProducts(q)
	if err != nil {
		return err
	}
	return c.JSON(ps)
}
