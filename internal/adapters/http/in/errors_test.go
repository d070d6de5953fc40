package in

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/LerianStudio/confdogma/internal/domain/apperr"
)

func TestStatusFor(t *testing.T) {
	testCases := []struct {
		name   string
		kind   apperr.Kind
		status int
	}{
		{"not found", apperr.KindNotFound, fiber.StatusNotFound},
		{"already exists", apperr.KindAlreadyExists, fiber.StatusConflict},
		{"change conflict", apperr.KindChangeConflict, fiber.StatusConflict},
		{"redundant change", apperr.KindRedundantChange, fiber.StatusConflict},
		{"invalid request", apperr.KindInvalidRequest, fiber.StatusBadRequest},
		{"query failure", apperr.KindQueryFailure, fiber.StatusBadRequest},
		{"forbidden", apperr.KindForbidden, fiber.StatusForbidden},
		{"quota exceeded", apperr.KindQuotaExceeded, fiber.StatusTooManyRequests},
		{"replication unavailable", apperr.KindReplicationUnavailable, fiber.StatusServiceUnavailable},
		{"shutting down", apperr.KindShuttingDown, fiber.StatusServiceUnavailable},
		{"unimplemented", apperr.KindUnimplemented, fiber.StatusNotImplemented},
		{"unknown kind falls back to internal", apperr.Kind("something-else"), fiber.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, statusFor(tc.kind))
		})
	}
}

func TestResponseErrorImplementsError(t *testing.T) {
	re := ResponseError{Kind: string(apperr.KindNotFound), Message: "repository not found"}
	assert.Equal(t, "repository not found", re.Error())
}
