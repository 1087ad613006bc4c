package handlers

import (
	"errors"

	"kyokki-backend/domain"

	"github.com/gofiber/fiber/v2"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{domain.ErrReceiptNotFound, fiber.StatusNotFound},
	{domain.ErrInventoryItemNotFound, fiber.StatusNotFound},
	{domain.ErrConcurrentUpdate, fiber.StatusConflict},
	{domain.ErrInvalidReceiptState, fiber.StatusConflict},
	{domain.ErrParseUUID, fiber.StatusBadRequest},
	{domain.ErrUnsupportedContentType, fiber.StatusBadRequest},
	{domain.ErrReceiptFileMissing, fiber.StatusBadRequest},
	{domain.ErrInvalidDate, fiber.StatusBadRequest},
	{domain.ErrProductNotFound, fiber.StatusBadRequest},
	{domain.ErrInsufficientQuantity, fiber.StatusBadRequest},
	{domain.ErrInvalidQuantity, fiber.StatusBadRequest},
	{domain.ErrExternalService, fiber.StatusBadGateway},
}

// statusFor maps a service error onto an HTTP status, defaulting to 500.
func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return fiber.StatusInternalServerError
}
