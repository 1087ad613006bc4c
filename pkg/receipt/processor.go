package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kyokki-backend/domain"
	"kyokki-backend/entities"
	"kyokki-backend/pkg/events"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"
)

// ProcessReceipt runs OCR, extraction and matching for one receipt. Pipeline
// failures are recorded on the receipt and reported in the response; only
// lookup and persistence errors are returned.
func (s *receiptService) ProcessReceipt(ctx context.Context, id string) (domain.ProcessReceiptResponse, error) {
	receipt, err := s.getReceipt(ctx, id)
	if err != nil {
		return domain.ProcessReceiptResponse{}, err
	}

	// a dropped client connection must not leave the receipt stuck in processing
	ctx = context.WithoutCancel(ctx)

	if err := s.receiptRepository.BeginProcessing(ctx, receipt.ID); err != nil {
		if errors.Is(err, domain.ErrInvalidReceiptState) {
			log.Warnw("receipt not processable", "receipt_id", receipt.ID.String(), "status", receipt.ProcessingStatus)
		}
		return domain.ProcessReceiptResponse{}, err
	}
	receipt.ProcessingStatus = domain.ReceiptStatusProcessing
	s.publishStatus(ctx, receipt, nil)

	start := time.Now()
	matches, err := s.runPipeline(ctx, receipt)
	if err != nil {
		msg := fmt.Sprintf("Receipt processing failed: %v", err)
		log.Errorw("receipt processing failed", "receipt_id", receipt.ID.String(), "error", err)

		receipt.ProcessingStatus = domain.ReceiptStatusFailed
		if updErr := s.receiptRepository.FinishProcessing(ctx, receipt); updErr != nil {
			return domain.ProcessReceiptResponse{}, updErr
		}
		s.publishStatus(ctx, receipt, &msg)

		return domain.ProcessReceiptResponse{
			Success:        false,
			ItemsExtracted: receipt.ItemsExtracted,
			ItemsMatched:   receipt.ItemsMatched,
			Error:          &msg,
			Matches:        []domain.ProductMatchResponse{},
		}, nil
	}

	receipt.ProcessingStatus = domain.ReceiptStatusCompleted
	if err := s.receiptRepository.FinishProcessing(ctx, receipt); err != nil {
		return domain.ProcessReceiptResponse{}, err
	}
	s.publishStatus(ctx, receipt, nil)

	log.Infow("receipt processed",
		"receipt_id", receipt.ID.String(),
		"items_extracted", receipt.ItemsExtracted,
		"items_matched", receipt.ItemsMatched,
		"duration", time.Since(start).String(),
	)
	return domain.ProcessReceiptResponse{
		Success:        true,
		ItemsExtracted: receipt.ItemsExtracted,
		ItemsMatched:   receipt.ItemsMatched,
		Matches:        matches,
	}, nil
}

// runPipeline fills in receipt fields as each step succeeds so partial
// progress survives a later failure. Counts and the store chain backfill are
// only set once matching has finished.
func (s *receiptService) runPipeline(ctx context.Context, receipt *entities.Receipt) ([]domain.ProductMatchResponse, error) {
	data, err := s.files.Read(ctx, receipt.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("read receipt file: %w", err)
	}

	text, err := s.textExtractor.ExtractText(ctx, receipt.ImagePath, data)
	if err != nil {
		return nil, err
	}
	receipt.OcrRawText = &text
	log.Debugw("receipt text extracted", "receipt_id", receipt.ID.String(), "chars", len(text))

	hint := ""
	if receipt.StoreChain != nil {
		hint = *receipt.StoreChain
	}
	extraction, err := s.extractor.ExtractWithStoreHint(ctx, text, hint)
	if err != nil {
		return nil, err
	}

	structured := extraction.Structured()
	payload, err := json.Marshal(structured)
	if err != nil {
		return nil, fmt.Errorf("encode extraction: %w", err)
	}
	receipt.OcrStructured = datatypes.JSON(payload)

	matches := make([]domain.ProductMatchResponse, 0, len(structured.Products))
	for _, p := range structured.Products {
		res, err := s.matcher.Match(ctx, p.Name, domain.DefaultMatchMinScore)
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", p.Name, err)
		}
		if res == nil {
			log.Debugw("no catalog match for product", "receipt_id", receipt.ID.String(), "name", p.Name)
			continue
		}
		matches = append(matches, domain.ProductMatchResponse{
			Name:          p.Name,
			ProductID:     res.Product.ID.String(),
			CanonicalName: res.Product.CanonicalName,
			Score:         res.Score,
			Confidence:    res.Confidence,
		})
	}
	receipt.ItemsExtracted = len(structured.Products)
	receipt.ItemsMatched = len(matches)
	if (receipt.StoreChain == nil || *receipt.StoreChain == "") && structured.Store.Chain != nil {
		chain := *structured.Store.Chain
		receipt.StoreChain = &chain
	}

	return matches, nil
}

func (s *receiptService) publishStatus(ctx context.Context, receipt *entities.Receipt, errMsg *string) {
	s.publisher.Publish(ctx, events.ReceiptStatus(receipt.ID, receipt.ProcessingStatus, receipt.ItemsExtracted, receipt.ItemsMatched, errMsg))
}
