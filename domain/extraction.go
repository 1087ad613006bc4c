package domain

import (
	"encoding/json"
	"errors"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrSchemaValidation    = errors.New("extraction does not match schema")
	ErrEmptyCompletion     = errors.New("model returned no choices")
)

type (
	// ExtractedProduct is one line item read off a receipt by the language model.
	// Optional numeric fields stay nil when the model did not report them.
	ExtractedProduct struct {
		Name     string   `json:"name"`
		NameEn   *string  `json:"name_en"`
		Quantity float64  `json:"quantity"`
		WeightKg *float64 `json:"weight_kg"`
		VolumeL  *float64 `json:"volume_l"`
		Unit     string   `json:"unit"`
		Price    *float64 `json:"price"`
	}

	StoreInfo struct {
		Name     *string `json:"name"`
		Chain    *string `json:"chain"`
		Country  *string `json:"country"`
		Language *string `json:"language"`
		Currency *string `json:"currency"`
	}

	// ReceiptExtraction is the decoded model output. The flat store_* fields are an
	// older response shape still produced by some models; see MergedStore.
	ReceiptExtraction struct {
		Store      StoreInfo          `json:"store"`
		Products   []ExtractedProduct `json:"products"`
		Confidence *float64           `json:"confidence"`

		StoreName  *string `json:"store_name,omitempty"`
		StoreChain *string `json:"store_chain,omitempty"`
		Country    *string `json:"country,omitempty"`
		Language   *string `json:"language,omitempty"`
		Currency   *string `json:"currency,omitempty"`
	}

	// StructuredReceipt is what gets persisted on Receipt.OcrStructured.
	StructuredReceipt struct {
		Store      StoreInfo          `json:"store"`
		Products   []ExtractedProduct `json:"products"`
		Confidence *float64           `json:"confidence"`
	}
)

func (p *ExtractedProduct) UnmarshalJSON(data []byte) error {
	type alias ExtractedProduct
	a := alias{Quantity: 1, Unit: "pcs"}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = ExtractedProduct(a)
	return nil
}

// MergedStore returns the store info with the flat fields taking precedence
// over the nested object whenever any flat field is present.
func (e ReceiptExtraction) MergedStore() StoreInfo {
	if e.StoreName == nil && e.StoreChain == nil && e.Country == nil && e.Language == nil && e.Currency == nil {
		return e.Store
	}
	return StoreInfo{
		Name:     firstNonEmpty(e.StoreName, e.Store.Name),
		Chain:    firstNonEmpty(e.StoreChain, e.Store.Chain),
		Country:  firstNonEmpty(e.Country, e.Store.Country),
		Language: firstNonEmpty(e.Language, e.Store.Language),
		Currency: firstNonEmpty(e.Currency, e.Store.Currency),
	}
}

func (e ReceiptExtraction) Structured() StructuredReceipt {
	products := e.Products
	if products == nil {
		products = []ExtractedProduct{}
	}
	return StructuredReceipt{
		Store:      e.MergedStore(),
		Products:   products,
		Confidence: e.Confidence,
	}
}

func firstNonEmpty(values ...*string) *string {
	for _, v := range values {
		if v != nil && *v != "" {
			return v
		}
	}
	return nil
}
