package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/services"
)

const homeProducts = 8

type WebHandler struct {
	Catalog *services.CatalogService
}

// Home lists the active root categories and the newest products.
func (h *WebHandler) Home(c *fiber.Ctx) error {
	cats, err := h.Catalog.RootCategories()
	if err != nil {
		return err
	}
	prods, err := h.Catalog.LatestProducts(homeProducts)
	if err != nil {
		return err
	}
	return render(c, "home", fiber.Map{"Categories": cats, "Products": prods})
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}
