package web

import (
	"errors"
	"strings"

	"go-netmap/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ValidationError is a rejected request, reported with the first failing field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

type errorBody struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// errorHandler maps handler errors to {message, field} bodies: validation
// and reference errors to 400, store.ErrNotFound to 404, fiber errors to
// their own code, anything else to a generic 500. Page routes get the
// message as plain text.
func errorHandler(c *fiber.Ctx, err error) error {
	var (
		verr *ValidationError
		rerr *store.ReferenceError
		ferr *fiber.Error
		body errorBody
		code int
	)
	switch {
	case errors.As(err, &verr):
		code, body = fiber.StatusBadRequest, errorBody{Message: verr.Error(), Field: verr.Field}
	case errors.As(err, &rerr):
		code, body = fiber.StatusBadRequest, errorBody{Message: rerr.Error(), Field: rerr.Field}
	case errors.Is(err, store.ErrNotFound):
		code, body = fiber.StatusNotFound, errorBody{Message: "Not found"}
	case errors.As(err, &ferr):
		code, body = ferr.Code, errorBody{Message: ferr.Message}
	default:
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("internal server error")
		code, body = fiber.StatusInternalServerError, errorBody{Message: "Internal server error"}
	}

	if !strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(code).SendString(body.Message)
	}
	return c.Status(code).JSON(body)
}

// orNotFound turns store.ErrNotFound into a 404 naming what was missing.
func orNotFound(err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, what+" not found")
	}
	return err
}
