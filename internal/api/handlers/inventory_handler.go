package handlers

import (
	"strconv"

	"kyokki-backend/domain"
	"kyokki-backend/internal/api/presenters"
	"kyokki-backend/pkg/inventory"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	InventoryHandler interface {
		GetInventory(c *fiber.Ctx) error
		GetInventoryItem(c *fiber.Ctx) error
		CreateInventoryItem(c *fiber.Ctx) error
		UpdateInventoryItem(c *fiber.Ctx) error
		DeleteInventoryItem(c *fiber.Ctx) error
		ConsumeInventoryItem(c *fiber.Ctx) error
	}

	inventoryHandler struct {
		inventoryService inventory.InventoryService
		validator        *validator.Validate
	}
)

func NewInventoryHandler(inventoryService inventory.InventoryService, validator *validator.Validate) InventoryHandler {
	return &inventoryHandler{
		inventoryService: inventoryService,
		validator:        validator,
	}
}

func (h *inventoryHandler) GetInventory(c *fiber.Ctx) error {
	filter := domain.InventoryFilter{
		Location: c.Query("location"),
		Status:   c.Query("status"),
	}

	if raw := c.Query("expiring_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetInventory, fiber.ErrBadRequest)
		}
		filter.ExpiringDays = &days
	}

	res, err := h.inventoryService.GetItems(c.Context(), filter)
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedGetInventory, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetInventory)
}

func (h *inventoryHandler) GetInventoryItem(c *fiber.Ctx) error {
	res, err := h.inventoryService.GetItemByID(c.Context(), c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedGetInventoryItem, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetInventoryItem)
}

func (h *inventoryHandler) CreateInventoryItem(c *fiber.Ctx) error {
	req := new(domain.CreateInventoryItemRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreateInventory, err)
	}

	res, err := h.inventoryService.CreateItem(c.Context(), *req)
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedCreateInventory, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessCreateInventory)
}

func (h *inventoryHandler) UpdateInventoryItem(c *fiber.Ctx) error {
	req := new(domain.UpdateInventoryItemRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUpdateInventory, err)
	}

	res, err := h.inventoryService.UpdateItem(c.Context(), c.Params("id"), *req)
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedUpdateInventory, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessUpdateInventory)
}

func (h *inventoryHandler) DeleteInventoryItem(c *fiber.Ctx) error {
	if err := h.inventoryService.DeleteItem(c.Context(), c.Params("id")); err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedDeleteInventory, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *inventoryHandler) ConsumeInventoryItem(c *fiber.Ctx) error {
	req := new(domain.ConsumeRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	res, err := h.inventoryService.Consume(c.Context(), c.Params("id"), req.Quantity)
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedConsume, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessConsume)
}
