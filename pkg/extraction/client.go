package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"kyokki-backend/domain"

	"github.com/gofiber/fiber/v2/log"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// PartialPolicy decides what happens when only some products in a model
// response fail validation.
type PartialPolicy string

const (
	// PolicyStrict rejects the whole response.
	PolicyStrict PartialPolicy = "strict"
	// PolicyDropInvalid keeps the valid products and discards the rest.
	PolicyDropInvalid PartialPolicy = "drop_invalid"
)

const schemaName = "receipt_extraction"

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
	Policy      PartialPolicy
}

// Client turns raw receipt text into a ReceiptExtraction using an
// OpenAI-compatible chat completion endpoint.
type Client struct {
	cfg     Config
	api     *openai.Client
	limiter *rate.Limiter

	wireSchema rawSchema
	full       *jsonschema.Schema
	envelope   *jsonschema.Schema
	product    *jsonschema.Schema
}

func NewClient(cfg Config, limiter *rate.Limiter) (*Client, error) {
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyStrict
	}
	if cfg.Policy != PolicyStrict && cfg.Policy != PolicyDropInvalid {
		return nil, fmt.Errorf("unknown partial policy %q", cfg.Policy)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	wire, err := json.Marshal(ReceiptSchema(nil))
	if err != nil {
		return nil, err
	}
	full, err := compileSchema("receipt.json", ReceiptSchema(nil))
	if err != nil {
		return nil, err
	}
	envelope, err := compileSchema("receipt_envelope.json", ReceiptSchema(map[string]any{"type": "object"}))
	if err != nil {
		return nil, err
	}
	product, err := compileSchema("product.json", ProductSchema())
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:        cfg,
		api:        openai.NewClientWithConfig(clientConfig),
		limiter:    limiter,
		wireSchema: rawSchema(wire),
		full:       full,
		envelope:   envelope,
		product:    product,
	}, nil
}

func (c *Client) Extract(ctx context.Context, receiptText string) (domain.ReceiptExtraction, error) {
	return c.ExtractWithStoreHint(ctx, receiptText, "")
}

// ExtractWithStoreHint behaves like Extract but tells the model which store the
// receipt probably came from.
func (c *Client) ExtractWithStoreHint(ctx context.Context, receiptText, storeHint string) (domain.ReceiptExtraction, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.ReceiptExtraction{}, fmt.Errorf("%w: rate limiter: %v", domain.ErrExternalService, err)
		}
	}

	req := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(receiptText, storeHint)},
		},
		Temperature: c.cfg.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: c.wireSchema,
				Strict: true,
			},
		},
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		log.Errorw("llm request failed", "model", c.cfg.Model, "error", err)
		return domain.ReceiptExtraction{}, fmt.Errorf("%w: llm request: %v", domain.ErrExternalService, err)
	}
	if len(resp.Choices) == 0 {
		return domain.ReceiptExtraction{}, fmt.Errorf("%w: %w", domain.ErrExternalService, domain.ErrEmptyCompletion)
	}

	extraction, err := c.decode(resp.Choices[0].Message.Content)
	if err != nil {
		log.Warnw("llm response rejected", "model", c.cfg.Model, "error", err)
		return domain.ReceiptExtraction{}, err
	}

	log.Infow("llm extraction complete",
		"model", c.cfg.Model,
		"products", len(extraction.Products),
		"duration", time.Since(start).String(),
	)
	return extraction, nil
}

func (c *Client) decode(content string) (domain.ReceiptExtraction, error) {
	var out domain.ReceiptExtraction

	content = stripCodeFence(content)
	if content == "" {
		return out, fmt.Errorf("%w: %w: empty content", domain.ErrExternalService, domain.ErrSchemaValidation)
	}

	var doc any
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return out, fmt.Errorf("%w: %w: %v", domain.ErrExternalService, domain.ErrSchemaValidation, err)
	}

	switch c.cfg.Policy {
	case PolicyDropInvalid:
		if err := c.envelope.Validate(doc); err != nil {
			return out, fmt.Errorf("%w: %w: %v", domain.ErrExternalService, domain.ErrSchemaValidation, err)
		}
		doc = c.dropInvalidProducts(doc)
	default:
		if err := c.full.Validate(doc); err != nil {
			return out, fmt.Errorf("%w: %w: %v", domain.ErrExternalService, domain.ErrSchemaValidation, err)
		}
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("%w: %w: %v", domain.ErrExternalService, domain.ErrSchemaValidation, err)
	}
	return out, nil
}

func (c *Client) dropInvalidProducts(doc any) any {
	obj, ok := doc.(map[string]any)
	if !ok {
		return doc
	}
	products, ok := obj["products"].([]any)
	if !ok {
		return doc
	}

	kept := make([]any, 0, len(products))
	for i, p := range products {
		if err := c.product.Validate(p); err != nil {
			log.Warnw("dropping invalid product", "index", i, "error", err)
			continue
		}
		kept = append(kept, p)
	}
	obj["products"] = kept
	return obj
}

// Some models wrap JSON output in markdown fences even in structured mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSuffix(s, "```")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
