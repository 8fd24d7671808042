package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/apperr"
	applog "storefront/internal/log"
	"storefront/internal/services"
)

const maxImportSize = 512 << 10

type InventoryHandler struct {
	Inv     *services.InventoryService
	Reports *services.ReportService
}

// PATCH /api/products/:id/stock?newStock=&reason=
func (h *InventoryHandler) UpdateStock(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if c.Query("newStock") == "" {
		return apperr.Validation(map[string]string{"newStock": "is required"})
	}
	newStock, err := queryInt(c, "newStock", 0)
	if err != nil {
		return err
	}
	reason := strings.TrimSpace(c.Query("reason"))
	tx, err := h.Inv.UpdateProductStock(c.UserContext(), id, newStock, reason, actor(c))
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.stock.adjust", map[string]any{
		"product": id, "new_stock": newStock, "delta": tx.QuantityChange, "reason": reason,
	})
	return c.JSON(tx)
}

// GET /api/products/:id/inventory
func (h *InventoryHandler) History(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	txs, err := h.Inv.History(id)
	if err != nil {
		return err
	}
	return c.JSON(txs)
}

// GET /api/products/:id/inventory/reconcile
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	r, err := h.Inv.Reconcile(id)
	if err != nil {
		return err
	}
	if !r.InSync {
		applog.Security(c, "inventory.drift", map[string]any{"product": id, "cached": r.CachedStock, "ledger": r.LedgerStock})
	}
	return c.JSON(r)
}

// POST /api/products/stock/import takes a multipart "file" holding an XLSX workbook.
func (h *InventoryHandler) Import(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apperr.Validation(map[string]string{"file": "is required"})
	}
	if fh.Size > maxImportSize {
		return apperr.Validation(map[string]string{"file": "is too large"})
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := h.Reports.ImportStock(c.UserContext(), f, actor(c))
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.stock.import", map[string]any{"file": fh.Filename, "applied": res.Applied, "skipped": res.Skipped})
	return c.JSON(res)
}
