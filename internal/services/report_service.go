package services

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"storefront/internal/apperr"
	"storefront/internal/repos"
)

const ordersSheet = "Orders"

var orderHeader = []any{"Order Number", "User", "Status", "Payment Status", "Subtotal", "Discount", "Total", "Created At"}

type ReportService struct {
	Orders *repos.OrderRepo
	Prods  *repos.ProductRepo
	Inv    *InventoryService
}

func NewReportService(orders *repos.OrderRepo, prods *repos.ProductRepo, inv *InventoryService) *ReportService {
	return &ReportService{Orders: orders, Prods: prods, Inv: inv}
}

// ExportOrders writes one row per order created in [from, to] as an XLSX workbook.
func (s *ReportService) ExportOrders(w io.Writer, from, to time.Time) (int, error) {
	if to.Before(from) {
		return 0, apperr.BadRequest("endDate must not be before startDate")
	}
	orders, err := s.Orders.List(repos.OrderFilter{From: &from, To: &to})
	if err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), ordersSheet); err != nil {
		return 0, err
	}
	if err := f.SetSheetRow(ordersSheet, "A1", &orderHeader); err != nil {
		return 0, err
	}
	for i, o := range orders {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{
			o.OrderNumber,
			o.UserID,
			string(o.Status),
			string(o.PaymentStatus),
			o.Subtotal.InexactFloat64(),
			o.DiscountAmount.InexactFloat64(),
			o.TotalAmount.InexactFloat64(),
			o.CreatedAt.Format(time.RFC3339),
		}
		if err := f.SetSheetRow(ordersSheet, cell, &row); err != nil {
			return 0, err
		}
	}
	if err := f.SetColWidth(ordersSheet, "A", "A", 44); err != nil {
		return 0, err
	}
	if err := f.SetColWidth(ordersSheet, "B", "B", 38); err != nil {
		return 0, err
	}
	if err := f.SetColWidth(ordersSheet, "H", "H", 22); err != nil {
		return 0, err
	}
	_, err = f.WriteTo(w)
	return len(orders), err
}

type ImportResult struct {
	Applied int               `json:"applied"`
	Skipped int               `json:"skipped"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// ImportStock reads "SKU | new stock | reason" rows from the first sheet and
// applies each as a stock adjustment. A header row is skipped when its stock
// cell is not a number. Bad rows are reported by row number and do not stop
// the import.
func (s *ReportService) ImportStock(ctx context.Context, r io.Reader, actor string) (ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return ImportResult{}, apperr.BadRequest("not a valid xlsx file")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ImportResult{}, apperr.BadRequest("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{Errors: map[string]string{}}
	fail := func(n int, msg string) {
		res.Skipped++
		res.Errors[strconv.Itoa(n)] = msg
	}
	for i, row := range rows {
		n := i + 1
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) < 2 {
			fail(n, "missing stock column")
			continue
		}
		stock, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil {
			if i == 0 {
				continue
			}
			fail(n, fmt.Sprintf("invalid stock %q", row[1]))
			continue
		}
		reason := "stock import"
		if len(row) > 2 && strings.TrimSpace(row[2]) != "" {
			reason = strings.TrimSpace(row[2])
		}
		p, err := s.Prods.GetBySKU(strings.TrimSpace(row[0]))
		if err != nil {
			fail(n, err.Error())
			continue
		}
		if _, err := s.Inv.UpdateProductStock(ctx, p.ID, stock, reason, actor); err != nil {
			fail(n, err.Error())
			continue
		}
		res.Applied++
	}
	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res, nil
}
