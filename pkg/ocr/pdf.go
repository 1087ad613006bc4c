package ocr

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFTextExtractor reads the text layer of digital PDFs. Strings are decoded
// through each font's encoding and ToUnicode map. Files whose cross-reference
// data is damaged are rewritten by pdfcpu and read again.
type PDFTextExtractor struct {
	conf *model.Configuration
}

func NewPDFTextExtractor() *PDFTextExtractor {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return &PDFTextExtractor{conf: conf}
}

// ExtractText returns one entry per page joined by "\n". A page that cannot
// be decoded contributes "".
func (e *PDFTextExtractor) ExtractText(data []byte) (string, error) {
	r, err := openPDF(data)
	if err != nil {
		log.Warnw("pdf unreadable, rewriting with pdfcpu", "error", err)
		repaired, repairErr := e.repair(data)
		if repairErr != nil {
			return "", fmt.Errorf("read pdf: %w", err)
		}
		if r, err = openPDF(repaired); err != nil {
			return "", fmt.Errorf("read repaired pdf: %w", err)
		}
	}

	count, err := pageCount(r)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	pages := make([]string, 0, count)
	for pageNr := 1; pageNr <= count; pageNr++ {
		pages = append(pages, pageText(r, pageNr))
	}

	text := strings.Join(pages, "\n")
	log.Debugw("extracted pdf text", "chars", len(text), "pages", count)
	return text, nil
}

func (e *PDFTextExtractor) repair(data []byte) ([]byte, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), e.conf)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// the pdf package panics on malformed objects
func openPDF(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, fmt.Errorf("%v", rec)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

func pageCount(r *pdf.Reader) (n int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			n, err = 0, fmt.Errorf("%v", rec)
		}
	}()
	return r.NumPage(), nil
}

// Font resource names are scoped to a page, so fonts are not shared between pages.
func pageText(r *pdf.Reader, pageNr int) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Warnw("pdf page unreadable", "page", pageNr, "error", rec)
			text = ""
		}
	}()

	page := r.Page(pageNr)
	if page.V.IsNull() {
		return ""
	}
	raw, err := page.GetPlainText(nil)
	if err != nil {
		log.Warnw("pdf page unreadable", "page", pageNr, "error", err)
		return ""
	}
	return cleanText(raw)
}

// cleanText drops what a Postgres text column rejects (NUL, invalid UTF-8)
// and the blank lines emitted between text objects.
func cleanText(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = strings.ReplaceAll(s, "\x00", "")

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimRight(line, " \t\r"); strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
