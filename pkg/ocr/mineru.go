package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"kyokki-backend/domain"

	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/time/rate"
)

type MineruOptions struct {
	BaseURL       string
	Lang          string
	EnableTable   bool
	EnableFormula bool
	// Zero means no timeout; large scans can take arbitrarily long.
	Timeout time.Duration
}

// MineruClient talks to a self-hosted MinerU /file_parse endpoint.
type MineruClient struct {
	opts       MineruOptions
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewMineruClient(opts MineruOptions, limiter *rate.Limiter) *MineruClient {
	if opts.Lang == "" {
		opts.Lang = "en"
	}
	return &MineruClient{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    limiter,
	}
}

type mineruResponse struct {
	Results map[string]struct {
		MdContent string `json:"md_content"`
	} `json:"results"`
}

func (c *MineruClient) formFields() [][2]string {
	return [][2]string{
		{"backend", "pipeline"},
		{"lang_list", c.opts.Lang},
		{"formula_enable", strconv.FormatBool(c.opts.EnableFormula)},
		{"table_enable", strconv.FormatBool(c.opts.EnableTable)},
		{"return_md", "true"},
		{"return_content_list", "false"},
		{"return_model_output", "false"},
		{"return_middle_json", "false"},
		{"return_images", "false"},
		{"response_format_zip", "false"},
		{"start_page_id", "0"},
		{"end_page_id", "99999"},
	}
}

func (c *MineruClient) Recognize(ctx context.Context, filename string, data []byte) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: ocr throttle: %v", domain.ErrExternalService, err)
		}
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, f := range c.formFields() {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return "", fmt.Errorf("write form field %s: %w", f[0], err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, filepath.Base(filename)))
	header.Set("Content-Type", contentTypeFor(filename))
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	url := strings.TrimRight(c.opts.BaseURL, "/") + "/file_parse"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", fmt.Errorf("create ocr request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	log.Debugw("sending image to ocr service", "file", filename, "url", url)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: ocr request failed: %v", domain.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("%w: ocr service returned %s: %s", domain.ErrExternalService, resp.Status, string(bodyBytes))
	}

	var parsed mineruResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decode ocr response: %v", domain.ErrExternalService, err)
	}

	if len(parsed.Results) == 0 {
		log.Warnw("ocr service returned empty results", "file", filename)
		return "", nil
	}

	text := parsed.Results[resultKey(parsed.Results, filename)].MdContent
	log.Infow("ocr extraction complete", "file", filename, "chars", len(text))
	return text, nil
}

// resultKey picks the document entry for filename. MinerU keys results by the
// file stem; fall back to the first key in sorted order.
func resultKey[V any](results map[string]V, filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	for _, k := range []string{stem, base} {
		if _, ok := results[k]; ok {
			return k
		}
	}
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys[0]
}

func contentTypeFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".jpg" {
		return "image/jpeg"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
