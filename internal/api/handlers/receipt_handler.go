package handlers

import (
	"kyokki-backend/domain"
	"kyokki-backend/internal/api/presenters"
	"kyokki-backend/pkg/receipt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	ReceiptHandler interface {
		ScanReceipt(c *fiber.Ctx) error
		GetReceipts(c *fiber.Ctx) error
		GetReceiptDetails(c *fiber.Ctx) error
		ProcessReceipt(c *fiber.Ctx) error
		ConfirmReceipt(c *fiber.Ctx) error
	}

	receiptHandler struct {
		receiptService receipt.ReceiptService
		validator      *validator.Validate
	}
)

func NewReceiptHandler(receiptService receipt.ReceiptService, validator *validator.Validate) ReceiptHandler {
	return &receiptHandler{
		receiptService: receiptService,
		validator:      validator,
	}
}

func (h *receiptHandler) ScanReceipt(c *fiber.Ctx) error {
	req := new(domain.UploadReceiptRequest)

	file, err := c.FormFile("file")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, domain.ErrReceiptFileMissing)
	}

	req.File = file
	req.StoreChain = c.FormValue("store_chain")
	req.PurchaseDate = c.FormValue("purchase_date")
	req.BatchID = c.FormValue("batch_id")

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUploadReceipt, err)
	}

	res, err := h.receiptService.UploadReceipt(c.Context(), *req)
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedUploadReceipt, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessUploadReceipt)
}

func (h *receiptHandler) GetReceipts(c *fiber.Ctx) error {
	filter := domain.ReceiptFilter{
		Status:     c.Query("status"),
		StoreChain: c.Query("store", c.Query("store_chain")),
	}

	res, err := h.receiptService.GetReceipts(c.Context(), filter)
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedGetReceipts, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetReceipts)
}

func (h *receiptHandler) GetReceiptDetails(c *fiber.Ctx) error {
	res, err := h.receiptService.GetReceiptByID(c.Context(), c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedGetReceipt, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetReceipt)
}

// ProcessReceipt answers 200 even when the pipeline fails; the failure is in
// the body's success and error fields.
func (h *receiptHandler) ProcessReceipt(c *fiber.Ctx) error {
	res, err := h.receiptService.ProcessReceipt(c.Context(), c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedProcessReceipt, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessProcessReceipt)
}

func (h *receiptHandler) ConfirmReceipt(c *fiber.Ctx) error {
	req := new(domain.ConfirmReceiptRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedConfirmReceipt, err)
	}

	res, err := h.receiptService.ConfirmReceipt(c.Context(), c.Params("id"), *req)
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedConfirmReceipt, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessConfirmReceipt)
}
