package ocr

import (
	"context"
	"errors"
	"testing"

	"kyokki-backend/domain"
)

type fakePDF struct {
	text  string
	calls int
}

func (f *fakePDF) ExtractText(data []byte) (string, error) {
	f.calls++
	return f.text, nil
}

type fakeImage struct {
	text     string
	err      error
	calls    int
	filename string
}

func (f *fakeImage) Recognize(ctx context.Context, filename string, data []byte) (string, error) {
	f.calls++
	f.filename = filename
	return f.text, f.err
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name    string
		want    SourceKind
		wantErr bool
	}{
		{"receipt.pdf", KindPDF, false},
		{"RECEIPT.PDF", KindPDF, false},
		{"photo.jpg", KindImage, false},
		{"photo.JPEG", KindImage, false},
		{"scan.png", KindImage, false},
		{"scan.webp", KindImage, false},
		{"scan.gif", 0, true},
		{"noext", 0, true},
	}

	for _, tt := range tests {
		got, err := KindOf(tt.name)
		if tt.wantErr {
			if !errors.Is(err, domain.ErrUnsupportedFileType) {
				t.Errorf("KindOf(%q): expected ErrUnsupportedFileType, got %v", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("KindOf(%q): unexpected error %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("KindOf(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRouter_RoutesByExtension(t *testing.T) {
	pdf := &fakePDF{text: "page one\npage two"}
	img := &fakeImage{text: "# Receipt"}
	router := NewRouter(pdf, img)

	text, err := router.ExtractText(context.Background(), "a.pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("pdf extraction failed: %v", err)
	}
	if text != "page one\npage two" || pdf.calls != 1 || img.calls != 0 {
		t.Errorf("pdf path not taken: text=%q pdf=%d img=%d", text, pdf.calls, img.calls)
	}

	text, err = router.ExtractText(context.Background(), "b.webp", []byte{0x1})
	if err != nil {
		t.Fatalf("image extraction failed: %v", err)
	}
	if text != "# Receipt" || img.calls != 1 || img.filename != "b.webp" {
		t.Errorf("image path not taken: text=%q img=%d", text, img.calls)
	}
}

func TestRouter_UnsupportedExtensionDoesNotCallBackends(t *testing.T) {
	pdf := &fakePDF{}
	img := &fakeImage{}
	router := NewRouter(pdf, img)

	_, err := router.ExtractText(context.Background(), "receipt.tiff", nil)
	if !errors.Is(err, domain.ErrUnsupportedFileType) {
		t.Fatalf("expected ErrUnsupportedFileType, got %v", err)
	}
	if pdf.calls+img.calls != 0 {
		t.Error("no backend should be called for unsupported files")
	}
}

func TestRouter_PropagatesImageError(t *testing.T) {
	img := &fakeImage{err: domain.ErrExternalService}
	router := NewRouter(&fakePDF{}, img)

	if _, err := router.ExtractText(context.Background(), "x.png", nil); !errors.Is(err, domain.ErrExternalService) {
		t.Errorf("expected ErrExternalService, got %v", err)
	}
}
