package ocr

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"kyokki-backend/domain"

	"github.com/gofiber/fiber/v2/log"
)

// SourceKind is the closed set of inputs the router knows how to read.
type SourceKind int

const (
	KindPDF SourceKind = iota + 1
	KindImage
)

func (k SourceKind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindImage:
		return "image"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

var extensionKinds = map[string]SourceKind{
	".pdf":  KindPDF,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".png":  KindImage,
	".webp": KindImage,
}

// KindOf maps a file name onto a SourceKind by extension. Anything not listed
// fails with domain.ErrUnsupportedFileType.
func KindOf(filename string) (SourceKind, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	kind, ok := extensionKinds[ext]
	if !ok {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnsupportedFileType, ext)
	}
	return kind, nil
}

type (
	// PDFExtractor returns the text of a digital PDF, pages joined by "\n".
	PDFExtractor interface {
		ExtractText(data []byte) (string, error)
	}

	// ImageRecognizer sends an image to an OCR backend and returns markdown text.
	ImageRecognizer interface {
		Recognize(ctx context.Context, filename string, data []byte) (string, error)
	}

	Router struct {
		pdf   PDFExtractor
		image ImageRecognizer
	}
)

func NewRouter(pdf PDFExtractor, image ImageRecognizer) *Router {
	return &Router{pdf: pdf, image: image}
}

// ExtractText reads raw text out of a receipt file, choosing the backend by extension.
func (r *Router) ExtractText(ctx context.Context, filename string, data []byte) (string, error) {
	kind, err := KindOf(filename)
	if err != nil {
		return "", err
	}

	switch kind {
	case KindPDF:
		log.Infow("extracting text from pdf", "file", filename)
		text, err := r.pdf.ExtractText(data)
		if err != nil {
			return "", fmt.Errorf("pdf extraction: %w", err)
		}
		return text, nil
	case KindImage:
		log.Infow("extracting text from image via ocr service", "file", filename)
		return r.image.Recognize(ctx, filename, data)
	default:
		panic(fmt.Sprintf("ocr: unhandled source kind %s", kind))
	}
}
