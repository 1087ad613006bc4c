package receipt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"kyokki-backend/domain"
	"kyokki-backend/entities"
	"kyokki-backend/internal/utils/storage"
	"kyokki-backend/pkg/events"
	"kyokki-backend/pkg/inventory"
	"kyokki-backend/pkg/matching"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

type (
	// TextExtractor pulls raw text out of a stored receipt file.
	TextExtractor interface {
		ExtractText(ctx context.Context, filename string, data []byte) (string, error)
	}

	// StructuredExtractor turns raw receipt text into store info and products.
	StructuredExtractor interface {
		ExtractWithStoreHint(ctx context.Context, receiptText, storeHint string) (domain.ReceiptExtraction, error)
	}

	ProductMatcher interface {
		Match(ctx context.Context, name string, minScore float64) (*matching.Result, error)
	}

	ReceiptService interface {
		UploadReceipt(ctx context.Context, req domain.UploadReceiptRequest) (domain.ReceiptResponse, error)
		GetReceiptByID(ctx context.Context, id string) (domain.ReceiptResponse, error)
		GetReceipts(ctx context.Context, filter domain.ReceiptFilter) ([]domain.ReceiptResponse, error)
		ProcessReceipt(ctx context.Context, id string) (domain.ProcessReceiptResponse, error)
		ConfirmReceipt(ctx context.Context, id string, req domain.ConfirmReceiptRequest) (domain.ConfirmReceiptResponse, error)
	}

	receiptService struct {
		receiptRepository ReceiptRepository
		inventoryService  inventory.InventoryService
		files             storage.FileStorage
		textExtractor     TextExtractor
		extractor         StructuredExtractor
		matcher           ProductMatcher
		publisher         events.Publisher
	}
)

func NewReceiptService(
	receiptRepository ReceiptRepository,
	inventoryService inventory.InventoryService,
	files storage.FileStorage,
	textExtractor TextExtractor,
	extractor StructuredExtractor,
	matcher ProductMatcher,
	publisher events.Publisher,
) ReceiptService {
	return &receiptService{
		receiptRepository: receiptRepository,
		inventoryService:  inventoryService,
		files:             files,
		textExtractor:     textExtractor,
		extractor:         extractor,
		matcher:           matcher,
		publisher:         publisher,
	}
}

var extensionByContentType = map[string]string{
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

func (s *receiptService) UploadReceipt(ctx context.Context, req domain.UploadReceiptRequest) (domain.ReceiptResponse, error) {
	if req.File == nil {
		return domain.ReceiptResponse{}, domain.ErrReceiptFileMissing
	}

	contentType := strings.ToLower(req.File.Header.Get("Content-Type"))
	if !slices.Contains(domain.AllowedReceiptContentTypes, contentType) {
		return domain.ReceiptResponse{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedContentType, contentType)
	}

	receipt := &entities.Receipt{
		ID:               uuid.New(),
		ProcessingStatus: domain.ReceiptStatusUploaded,
	}

	if req.StoreChain != "" {
		chain := req.StoreChain
		receipt.StoreChain = &chain
	}
	if req.PurchaseDate != "" {
		purchaseDate, err := time.Parse(domain.DateLayout, req.PurchaseDate)
		if err != nil {
			return domain.ReceiptResponse{}, domain.ErrInvalidDate
		}
		receipt.PurchaseDate = &purchaseDate
	}
	if req.BatchID != "" {
		batchID, err := uuid.Parse(req.BatchID)
		if err != nil {
			return domain.ReceiptResponse{}, domain.ErrParseUUID
		}
		receipt.BatchID = &batchID
	}

	ext := strings.ToLower(filepath.Ext(req.File.Filename))
	if ext == "" {
		ext = extensionByContentType[contentType]
	}
	receipt.ImagePath = receipt.ID.String() + ext

	file, err := req.File.Open()
	if err != nil {
		return domain.ReceiptResponse{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}

	if err := s.files.Save(ctx, receipt.ImagePath, data, contentType); err != nil {
		return domain.ReceiptResponse{}, fmt.Errorf("store receipt file: %w", err)
	}

	if err := s.receiptRepository.CreateReceipt(ctx, receipt); err != nil {
		if delErr := s.files.Delete(ctx, receipt.ImagePath); delErr != nil {
			log.Warnw("failed to remove orphaned receipt file", "key", receipt.ImagePath, "error", delErr)
		}
		return domain.ReceiptResponse{}, err
	}

	log.Infow("receipt uploaded",
		"receipt_id", receipt.ID.String(),
		"file", receipt.ImagePath,
		"size", len(data),
		"content_type", contentType,
	)
	return toResponse(receipt), nil
}

func (s *receiptService) GetReceiptByID(ctx context.Context, id string) (domain.ReceiptResponse, error) {
	receipt, err := s.getReceipt(ctx, id)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}
	return toResponse(receipt), nil
}

func (s *receiptService) GetReceipts(ctx context.Context, filter domain.ReceiptFilter) ([]domain.ReceiptResponse, error) {
	receipts, err := s.receiptRepository.GetReceipts(ctx, filter)
	if err != nil {
		return nil, err
	}

	res := make([]domain.ReceiptResponse, 0, len(receipts))
	for i := range receipts {
		res = append(res, toResponse(&receipts[i]))
	}
	return res, nil
}

// ConfirmReceipt hands approved items to the inventory ledger. An empty item
// list succeeds without touching the receipt.
func (s *receiptService) ConfirmReceipt(ctx context.Context, id string, req domain.ConfirmReceiptRequest) (domain.ConfirmReceiptResponse, error) {
	receipt, err := s.getReceipt(ctx, id)
	if err != nil {
		return domain.ConfirmReceiptResponse{}, err
	}

	created, err := s.inventoryService.ConfirmReceipt(ctx, receipt, req.Items)
	if err != nil {
		return domain.ConfirmReceiptResponse{}, err
	}

	if created > 0 {
		receipt.ProcessingStatus = domain.ReceiptStatusConfirmed
		s.publishStatus(ctx, receipt, nil)
	}

	return domain.ConfirmReceiptResponse{Success: true, ItemsCreated: created}, nil
}

func (s *receiptService) getReceipt(ctx context.Context, id string) (*entities.Receipt, error) {
	receiptID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrParseUUID
	}
	return s.receiptRepository.GetReceiptByID(ctx, receiptID)
}

func toResponse(receipt *entities.Receipt) domain.ReceiptResponse {
	res := domain.ReceiptResponse{
		ID:               receipt.ID.String(),
		StoreChain:       receipt.StoreChain,
		ImagePath:        receipt.ImagePath,
		OcrRawText:       receipt.OcrRawText,
		ProcessingStatus: receipt.ProcessingStatus,
		ItemsExtracted:   receipt.ItemsExtracted,
		ItemsMatched:     receipt.ItemsMatched,
		CreatedAt:        receipt.CreatedAt,
	}
	if receipt.PurchaseDate != nil {
		d := receipt.PurchaseDate.Format(domain.DateLayout)
		res.PurchaseDate = &d
	}
	if receipt.BatchID != nil {
		b := receipt.BatchID.String()
		res.BatchID = &b
	}
	if len(receipt.OcrStructured) > 0 {
		var structured map[string]any
		if err := json.Unmarshal(receipt.OcrStructured, &structured); err == nil {
			res.OcrStructured = structured
		}
	}
	return res
}
