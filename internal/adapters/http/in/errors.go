package in

import (
	"github.com/gofiber/fiber/v2"

	"github.com/LerianStudio/confdogma/internal/domain/apperr"
)

// ResponseError is the JSON body written for every non-2xx response.
type ResponseError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (r ResponseError) Error() string { return r.Message }

// WithError translates err into the HTTP status its apperr.Kind maps to
// and writes a ResponseError body.
func WithError(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)

	return c.Status(statusFor(kind)).JSON(ResponseError{
		Kind:    string(kind),
		Message: err.Error(),
	})
}

// statusFor maps an apperr.Kind to the HTTP status the wire surface
// promises for it.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindAlreadyExists, apperr.KindChangeConflict, apperr.KindRedundantChange:
		return fiber.StatusConflict
	case apperr.KindQueryFailure, apperr.KindInvalidRequest:
		return fiber.StatusBadRequest
	case apperr.KindForbidden:
		return fiber.StatusForbidden
	case apperr.KindQuotaExceeded:
		return fiber.StatusTooManyRequests
	case apperr.KindReplicationUnavailable, apperr.KindShuttingDown:
		return fiber.StatusServiceUnavailable
	case apperr.KindUnimplemented:
		return fiber.StatusNotImplemented
	default:
		return fiber.StatusInternalServerError
	}
}

// OK writes v as a 200 JSON response.
func OK(c *fiber.Ctx, v any) error {
	return c.Status(fiber.StatusOK).JSON(v)
}

// Created writes v as a 201 JSON response.
func Created(c *fiber.Ctx, v any) error {
	return c.Status(fiber.StatusCreated).JSON(v)
}

// NoContent writes an empty 204 response.
func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// NotModified writes an empty 304 response, used by the contents watch
// handler when a long-poll times out without a matching change.
func NotModified(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNotModified)
}
