package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/apperr"
	applog "storefront/internal/log"
)

type errorBody struct {
	Timestamp time.Time         `json:"timestamp"`
	Message   string            `json:"message"`
	Path      string            `json:"path"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// ErrorHandler renders every error returned by a handler. API routes get a
// JSON body; pages get the notfound template. Server errors are logged and
// never echoed to the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := ""
	var fields map[string]string

	var ae *apperr.Error
	var fe *fiber.Error
	switch {
	case errors.As(err, &ae):
		code, msg, fields = ae.Code, ae.Message, ae.Fields
	case errors.As(err, &fe):
		code, msg = fe.Code, fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		applog.Error(c, "server.error", err, nil)
		msg = "internal error"
	}

	if !isAPI(c) {
		page := msg
		if code >= fiber.StatusInternalServerError {
			page = "Something went wrong. Please try again."
		}
		if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": page}); rerr != nil {
			return c.Status(code).SendString(page)
		}
		return nil
	}
	return c.Status(code).JSON(errorBody{
		Timestamp: time.Now().UTC(),
		Message:   msg,
		Path:      c.Path(),
		Errors:    fields,
	})
}

// NotFound is the catch-all for unmatched routes.
func NotFound(c *fiber.Ctx) error {
	if isAPI(c) {
		return fiber.NewError(fiber.StatusNotFound, "resource not found")
	}
	return fiber.NewError(fiber.StatusNotFound, "Page not found")
}

var errMalformed = apperr.BadRequest("malformed request body")

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return errMalformed
	}
	return nil
}
