package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/validate"
)

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if p, ok := principal(c); ok {
		data["User"] = p
	}
	// The csrf middleware stores the token in locals; the cookie carries the same value.
	tok, _ := c.Locals("csrf").(string)
	if tok == "" {
		tok = c.Cookies(csrfCookie)
	}
	data["CSRFToken"] = tok
	return c.Render(tmpl, data)
}

// pathID validates the :name route parameter.
func pathID(c *fiber.Ctx, name string) (string, error) {
	id, ok := validate.ID(c.Params(name))
	if !ok {
		return "", validationField(name)
	}
	return id, nil
}

func queryInt(c *fiber.Ctx, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(map[string]string{name: "must be a whole number"})
	}
	return n, nil
}

func queryDecimal(c *fiber.Ctx, name string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperr.Validation(map[string]string{name: "must be a number"})
	}
	return &d, nil
}

const dateOnly = "2006-01-02"

// Accepted date-time layouts, most specific first.
var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", dateOnly}

// queryTime parses an ISO date-time. A bare date reports day=true.
func queryTime(c *fiber.Ctx, name string) (t time.Time, day bool, err error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return time.Time{}, false, apperr.Validation(map[string]string{name: "is required"})
	}
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, raw); err == nil {
			return t.UTC(), l == dateOnly, nil
		}
	}
	return time.Time{}, false, apperr.Validation(map[string]string{name: "must be an ISO date-time"})
}

// dateRange reads startDate and endDate. A date-only endDate covers that whole day.
func dateRange(c *fiber.Ctx) (from, to time.Time, err error) {
	if from, _, err = queryTime(c, "startDate"); err != nil {
		return
	}
	var day bool
	if to, day, err = queryTime(c, "endDate"); err != nil {
		return
	}
	if day {
		to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return
}

func validationField(name string) error {
	return apperr.Validation(map[string]string{name: "is invalid"})
}
