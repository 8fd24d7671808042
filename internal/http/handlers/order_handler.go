package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type OrderHandler struct {
	Orders  *services.OrderService
	Reports *services.ReportService
}

// POST /api/orders/checkout
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	var req services.CheckoutRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	o, err := h.Orders.Checkout(c.UserContext(), uid, req)
	if err != nil {
		return err
	}
	applog.Audit(c, "order.place", map[string]any{
		"order": o.ID, "number": o.OrderNumber, "total": o.TotalAmount.StringFixed(2), "coupon": req.CouponCode,
	})
	return c.Status(fiber.StatusCreated).JSON(o)
}

// GET /api/orders lists the caller's orders.
func (h *OrderHandler) Mine(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	orders, err := h.Orders.UserOrders(uid)
	if err != nil {
		return err
	}
	return c.JSON(orders)
}

func (h *OrderHandler) Paginated(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	page, size := validate.Page(c.Query("page"), c.Query("size"))
	res, err := h.Orders.UserOrdersPaginated(uid, page, size)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *OrderHandler) ByStatus(c *fiber.Ctx) error {
	uid, err := subjectUser(c)
	if err != nil {
		return err
	}
	st, ok := domain.ParseOrderStatus(c.Params("status"))
	if !ok {
		return validationField("status")
	}
	orders, err := h.Orders.UserOrdersByStatus(uid, st)
	if err != nil {
		return err
	}
	return c.JSON(orders)
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, ok := principal(c)
	if !ok {
		return errAuthRequired
	}
	o, err := h.Orders.Order(p, id)
	return h.respondOrder(c, o, err)
}

func (h *OrderHandler) ByNumber(c *fiber.Ctx) error {
	num, err := pathID(c, "orderNumber")
	if err != nil {
		return err
	}
	p, ok := principal(c)
	if !ok {
		return errAuthRequired
	}
	o, err := h.Orders.OrderByNumber(p, num)
	return h.respondOrder(c, o, err)
}

// respondOrder hides other users' orders behind a 404 and records the attempt.
func (h *OrderHandler) respondOrder(c *fiber.Ctx, o domain.Order, err error) error {
	if err != nil {
		if errors.Is(err, services.ErrNotOwner) {
			applog.Security(c, "access.denied.order", nil)
		}
		return err
	}
	return c.JSON(o)
}

// PUT /api/orders/:id/status?status=
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	st, ok := domain.ParseOrderStatus(statusParam(c))
	if !ok {
		return validationField("status")
	}
	o, err := h.Orders.UpdateOrderStatus(c.UserContext(), id, st)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.order.status", map[string]any{"order": id, "status": st})
	return c.JSON(o)
}

// PUT /api/orders/:id/payment-status?status=
func (h *OrderHandler) UpdatePaymentStatus(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	st, ok := domain.ParsePaymentStatus(statusParam(c))
	if !ok {
		return validationField("status")
	}
	o, err := h.Orders.UpdatePaymentStatus(c.UserContext(), id, st)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.order.payment", map[string]any{"order": id, "status": st})
	return c.JSON(o)
}

// statusParam reads ?status= or a {"status": ...} body.
func statusParam(c *fiber.Ctx) string {
	if s := c.Query("status"); s != "" {
		return s
	}
	var body struct {
		Status string `json:"status"`
	}
	_ = c.BodyParser(&body)
	return body.Status
}

// GET /api/orders/date-range?startDate=&endDate=&status=
func (h *OrderHandler) DateRange(c *fiber.Ctx) error {
	from, to, err := dateRange(c)
	if err != nil {
		return err
	}
	var st domain.OrderStatus
	if raw := c.Query("status"); raw != "" {
		var ok bool
		if st, ok = domain.ParseOrderStatus(raw); !ok {
			return validationField("status")
		}
	}
	orders, err := h.Orders.OrdersByDateRange(from, to, st)
	if err != nil {
		return err
	}
	return c.JSON(orders)
}

// GET /api/orders/sales-amount?startDate=&endDate=
func (h *OrderHandler) SalesAmount(c *fiber.Ctx) error {
	from, to, err := dateRange(c)
	if err != nil {
		return err
	}
	total, err := h.Orders.TotalSales(from, to)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"totalSales": total})
}

// GET /api/orders/export?startDate=&endDate= streams an XLSX workbook.
func (h *OrderHandler) Export(c *fiber.Ctx) error {
	from, to, err := dateRange(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	n, err := h.Reports.ExportOrders(&buf, from, to)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.order.export", map[string]any{"rows": n})
	name := fmt.Sprintf("orders-%s-%s.xlsx", from.Format("20060102"), to.Format("20060102"))
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+strings.ReplaceAll(name, `"`, "")+`"`)
	return c.Send(buf.Bytes())
}
