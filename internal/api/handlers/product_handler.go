package handlers

import (
	"errors"

	"kyokki-backend/domain"
	"kyokki-backend/internal/api/presenters"
	"kyokki-backend/pkg/product"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	ProductHandler interface {
		MatchProducts(c *fiber.Ctx) error
		GetProductByBarcode(c *fiber.Ctx) error
	}

	productHandler struct {
		productService product.ProductService
		validator      *validator.Validate
	}
)

func NewProductHandler(productService product.ProductService, validator *validator.Validate) ProductHandler {
	return &productHandler{
		productService: productService,
		validator:      validator,
	}
}

func (h *productHandler) MatchProducts(c *fiber.Ctx) error {
	req := new(domain.MatchProductsRequest)

	if err := c.QueryParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedMatchProducts, err)
	}

	res, err := h.productService.MatchProducts(c.Context(), *req)
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedMatchProducts, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessMatchProducts)
}

func (h *productHandler) GetProductByBarcode(c *fiber.Ctx) error {
	res, err := h.productService.GetProductByBarcode(c.Context(), c.Params("barcode"))
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedGetProduct, err)
		}
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedGetProduct, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetProduct)
}
