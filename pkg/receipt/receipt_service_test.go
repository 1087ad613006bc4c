package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/textproto"
	"sync"
	"testing"

	"kyokki-backend/domain"
	"kyokki-backend/entities"
	"kyokki-backend/internal/utils/storage"
	"kyokki-backend/pkg/events"
	"kyokki-backend/pkg/matching"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeReceiptRepo struct {
	receipts  map[uuid.UUID]*entities.Receipt
	statuses  []string
	createErr error
}

func newFakeReceiptRepo() *fakeReceiptRepo {
	return &fakeReceiptRepo{receipts: map[uuid.UUID]*entities.Receipt{}}
}

func (f *fakeReceiptRepo) CreateReceipt(ctx context.Context, receipt *entities.Receipt) error {
	if f.createErr != nil {
		return f.createErr
	}
	copied := *receipt
	f.receipts[receipt.ID] = &copied
	return nil
}

func (f *fakeReceiptRepo) GetReceiptByID(ctx context.Context, id uuid.UUID) (*entities.Receipt, error) {
	r, ok := f.receipts[id]
	if !ok {
		return nil, domain.ErrReceiptNotFound
	}
	copied := *r
	return &copied, nil
}

func (f *fakeReceiptRepo) GetReceipts(ctx context.Context, filter domain.ReceiptFilter) ([]entities.Receipt, error) {
	var out []entities.Receipt
	for _, r := range f.receipts {
		if filter.Status != "" && r.ProcessingStatus != filter.Status {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeReceiptRepo) BeginProcessing(ctx context.Context, id uuid.UUID) error {
	r, ok := f.receipts[id]
	if !ok {
		return domain.ErrReceiptNotFound
	}
	if r.ProcessingStatus != domain.ReceiptStatusUploaded && r.ProcessingStatus != domain.ReceiptStatusFailed {
		return domain.ErrInvalidReceiptState
	}
	r.ProcessingStatus = domain.ReceiptStatusProcessing
	f.statuses = append(f.statuses, r.ProcessingStatus)
	return nil
}

// FinishProcessing copies only the pipeline columns, like the gorm repository.
func (f *fakeReceiptRepo) FinishProcessing(ctx context.Context, receipt *entities.Receipt) error {
	r, ok := f.receipts[receipt.ID]
	if !ok {
		return domain.ErrReceiptNotFound
	}
	if r.ProcessingStatus != domain.ReceiptStatusProcessing {
		return domain.ErrInvalidReceiptState
	}
	r.ProcessingStatus = receipt.ProcessingStatus
	r.OcrRawText = receipt.OcrRawText
	r.OcrStructured = receipt.OcrStructured
	r.ItemsExtracted = receipt.ItemsExtracted
	r.ItemsMatched = receipt.ItemsMatched
	r.StoreChain = receipt.StoreChain
	f.statuses = append(f.statuses, r.ProcessingStatus)
	return nil
}

type memoryStorage struct {
	objects map[string][]byte
}

func (m *memoryStorage) Save(ctx context.Context, key string, data []byte, contentType string) error {
	m.objects[key] = data
	return nil
}

func (m *memoryStorage) Read(ctx context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return data, nil
}

func (m *memoryStorage) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

type textExtractorFunc func(ctx context.Context, filename string, data []byte) (string, error)

func (f textExtractorFunc) ExtractText(ctx context.Context, filename string, data []byte) (string, error) {
	return f(ctx, filename, data)
}

type fakeExtractor struct {
	result domain.ReceiptExtraction
	err    error
	hint   string
	text   string
}

func (f *fakeExtractor) ExtractWithStoreHint(ctx context.Context, receiptText, storeHint string) (domain.ReceiptExtraction, error) {
	f.text = receiptText
	f.hint = storeHint
	return f.result, f.err
}

type fakeMatcher struct {
	results map[string]*matching.Result
	err     error
}

func (f *fakeMatcher) Match(ctx context.Context, name string, minScore float64) (*matching.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results[name], nil
}

type fakeInventory struct {
	created int
	err     error
	calls   int
}

func (f *fakeInventory) CreateItem(ctx context.Context, req domain.CreateInventoryItemRequest) (domain.InventoryItemResponse, error) {
	return domain.InventoryItemResponse{}, nil
}

func (f *fakeInventory) ConfirmReceipt(ctx context.Context, receipt *entities.Receipt, items []domain.ConfirmItemRequest) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	f.created += len(items)
	return len(items), nil
}

func (f *fakeInventory) Consume(ctx context.Context, id string, quantity decimal.Decimal) (domain.InventoryItemResponse, error) {
	return domain.InventoryItemResponse{}, nil
}

func (f *fakeInventory) GetItems(ctx context.Context, filter domain.InventoryFilter) ([]domain.InventoryItemResponse, error) {
	return nil, nil
}

func (f *fakeInventory) GetItemByID(ctx context.Context, id string) (domain.InventoryItemResponse, error) {
	return domain.InventoryItemResponse{}, nil
}

func (f *fakeInventory) UpdateItem(ctx context.Context, id string, req domain.UpdateInventoryItemRequest) (domain.InventoryItemResponse, error) {
	return domain.InventoryItemResponse{}, nil
}

func (f *fakeInventory) DeleteItem(ctx context.Context, id string) error {
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(ctx context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingPublisher) statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Data["status"].(string))
	}
	return out
}

type fixture struct {
	svc       ReceiptService
	repo      *fakeReceiptRepo
	files     *memoryStorage
	text      textExtractorFunc
	extractor *fakeExtractor
	matcher   *fakeMatcher
	inventory *fakeInventory
	publisher *recordingPublisher
	milk      entities.Product
}

func newFixture(text textExtractorFunc) *fixture {
	f := &fixture{
		repo:      newFakeReceiptRepo(),
		files:     &memoryStorage{objects: map[string][]byte{}},
		extractor: &fakeExtractor{},
		inventory: &fakeInventory{},
		publisher: &recordingPublisher{},
		milk:      entities.Product{ID: uuid.New(), CanonicalName: "Milk", DefaultShelfLifeDays: 7},
	}
	f.matcher = &fakeMatcher{results: map[string]*matching.Result{
		"Milk": {Product: f.milk, Score: 100, Confidence: domain.ConfidenceExact},
	}}
	f.text = text
	f.svc = NewReceiptService(f.repo, f.inventory, f.files, f.text, f.extractor, f.matcher, f.publisher)
	return f
}

func (f *fixture) seedReceipt(storeChain *string) *entities.Receipt {
	r := &entities.Receipt{
		ID:               uuid.New(),
		ImagePath:        "receipt.jpg",
		ProcessingStatus: domain.ReceiptStatusUploaded,
		StoreChain:       storeChain,
	}
	f.repo.receipts[r.ID] = r
	f.files.objects[r.ImagePath] = []byte("image-bytes")
	return r
}

func ptr(s string) *string { return &s }

func staticText(text string) textExtractorFunc {
	return func(ctx context.Context, filename string, data []byte) (string, error) {
		return text, nil
	}
}

func TestProcessReceipt_Completed(t *testing.T) {
	f := newFixture(staticText("Milk 1L 1.49"))
	f.extractor.result = domain.ReceiptExtraction{
		Store:    domain.StoreInfo{Name: ptr("K-Market"), Chain: ptr("K-Group")},
		Products: []domain.ExtractedProduct{{Name: "Milk", Quantity: 1, Unit: "pcs"}},
	}
	r := f.seedReceipt(nil)

	res, err := f.svc.ProcessReceipt(context.Background(), r.ID.String())
	if err != nil {
		t.Fatalf("ProcessReceipt: %v", err)
	}
	if !res.Success || res.ItemsExtracted != 1 || res.ItemsMatched != 1 || res.Error != nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Matches) != 1 || res.Matches[0].ProductID != f.milk.ID.String() {
		t.Errorf("unexpected matches %+v", res.Matches)
	}

	stored := f.repo.receipts[r.ID]
	if stored.ProcessingStatus != domain.ReceiptStatusCompleted {
		t.Errorf("status = %s", stored.ProcessingStatus)
	}
	if stored.OcrRawText == nil || *stored.OcrRawText != "Milk 1L 1.49" {
		t.Errorf("raw text not stored")
	}
	if stored.StoreChain == nil || *stored.StoreChain != "K-Group" {
		t.Errorf("store chain not backfilled: %v", stored.StoreChain)
	}

	var structured map[string]any
	if err := json.Unmarshal(stored.OcrStructured, &structured); err != nil {
		t.Fatalf("ocr_structured: %v", err)
	}
	for _, key := range []string{"store", "products", "confidence"} {
		if _, ok := structured[key]; !ok {
			t.Errorf("ocr_structured missing %q", key)
		}
	}

	want := []string{domain.ReceiptStatusProcessing, domain.ReceiptStatusCompleted}
	if got := f.publisher.statuses(); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("published statuses = %v, want %v", got, want)
	}
}

func TestProcessReceipt_ProcessingPersistedBeforeOCR(t *testing.T) {
	var f *fixture
	var seen string
	f = newFixture(func(ctx context.Context, filename string, data []byte) (string, error) {
		for _, r := range f.repo.receipts {
			seen = r.ProcessingStatus
		}
		return "text", nil
	})
	r := f.seedReceipt(nil)

	if _, err := f.svc.ProcessReceipt(context.Background(), r.ID.String()); err != nil {
		t.Fatalf("ProcessReceipt: %v", err)
	}
	if seen != domain.ReceiptStatusProcessing {
		t.Errorf("status during OCR = %q, want processing", seen)
	}
}

func TestProcessReceipt_OCRFailure(t *testing.T) {
	f := newFixture(func(ctx context.Context, filename string, data []byte) (string, error) {
		return "", domain.ErrExternalService
	})
	r := f.seedReceipt(nil)

	res, err := f.svc.ProcessReceipt(context.Background(), r.ID.String())
	if err != nil {
		t.Fatalf("ProcessReceipt returned error: %v", err)
	}
	if res.Success || res.Error == nil {
		t.Fatalf("expected failure result, got %+v", res)
	}
	if want := "Receipt processing failed: "; len(*res.Error) <= len(want) || (*res.Error)[:len(want)] != want {
		t.Errorf("error message = %q", *res.Error)
	}
	if f.repo.receipts[r.ID].ProcessingStatus != domain.ReceiptStatusFailed {
		t.Errorf("status = %s", f.repo.receipts[r.ID].ProcessingStatus)
	}
	if f.inventory.calls != 0 {
		t.Error("inventory touched by failed processing")
	}
	statuses := f.publisher.statuses()
	if len(statuses) != 2 || statuses[1] != domain.ReceiptStatusFailed {
		t.Errorf("published statuses = %v", statuses)
	}
	if f.publisher.events[1].Data["error"] != *res.Error {
		t.Errorf("failed event error = %v", f.publisher.events[1].Data["error"])
	}
}

func TestProcessReceipt_ExtractionFailureKeepsText(t *testing.T) {
	f := newFixture(staticText("MAITO 1,49"))
	f.extractor.err = domain.ErrSchemaValidation
	r := f.seedReceipt(nil)

	res, err := f.svc.ProcessReceipt(context.Background(), r.ID.String())
	if err != nil {
		t.Fatalf("ProcessReceipt: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure")
	}
	stored := f.repo.receipts[r.ID]
	if stored.OcrRawText == nil || *stored.OcrRawText != "MAITO 1,49" {
		t.Errorf("raw text lost on failure")
	}
}

func TestProcessReceipt_KeepsExistingStoreChainAndHints(t *testing.T) {
	f := newFixture(staticText("text"))
	f.extractor.result = domain.ReceiptExtraction{
		Store:    domain.StoreInfo{Chain: ptr("K-Group")},
		Products: []domain.ExtractedProduct{{Name: "Milk"}, {Name: "Mystery"}},
	}
	r := f.seedReceipt(ptr("S-Group"))

	res, err := f.svc.ProcessReceipt(context.Background(), r.ID.String())
	if err != nil {
		t.Fatalf("ProcessReceipt: %v", err)
	}
	if res.ItemsExtracted != 2 || res.ItemsMatched != 1 {
		t.Errorf("counts = %d/%d", res.ItemsExtracted, res.ItemsMatched)
	}
	if *f.repo.receipts[r.ID].StoreChain != "S-Group" {
		t.Errorf("existing store chain overwritten")
	}
	if f.extractor.hint != "S-Group" {
		t.Errorf("store hint = %q", f.extractor.hint)
	}
}

func TestProcessReceipt_NotFound(t *testing.T) {
	f := newFixture(staticText("text"))
	if _, err := f.svc.ProcessReceipt(context.Background(), uuid.NewString()); !errors.Is(err, domain.ErrReceiptNotFound) {
		t.Errorf("err = %v, want ErrReceiptNotFound", err)
	}
}

func TestProcessReceipt_MatcherFailure(t *testing.T) {
	f := newFixture(staticText("text"))
	f.extractor.result = domain.ReceiptExtraction{
		Store:    domain.StoreInfo{Chain: ptr("K-Group")},
		Products: []domain.ExtractedProduct{{Name: "Milk"}},
	}
	f.matcher.err = errors.New("catalog unavailable")
	r := f.seedReceipt(nil)

	res, err := f.svc.ProcessReceipt(context.Background(), r.ID.String())
	if err != nil {
		t.Fatalf("ProcessReceipt: %v", err)
	}
	stored := f.repo.receipts[r.ID]
	if res.Success || stored.ProcessingStatus != domain.ReceiptStatusFailed {
		t.Errorf("expected failed receipt, got %+v", res)
	}
	if stored.StoreChain != nil {
		t.Errorf("store chain backfilled on failed run: %q", *stored.StoreChain)
	}
	if stored.ItemsExtracted != 0 || stored.ItemsMatched != 0 {
		t.Errorf("counts persisted on failed run: %d/%d", stored.ItemsExtracted, stored.ItemsMatched)
	}
	if len(stored.OcrStructured) == 0 {
		t.Error("structured extraction lost on failed run")
	}
}

func TestProcessReceipt_RejectsNonProcessableStates(t *testing.T) {
	for _, status := range []string{
		domain.ReceiptStatusProcessing,
		domain.ReceiptStatusCompleted,
		domain.ReceiptStatusConfirmed,
	} {
		t.Run(status, func(t *testing.T) {
			calls := 0
			f := newFixture(func(ctx context.Context, filename string, data []byte) (string, error) {
				calls++
				return "text", nil
			})
			r := f.seedReceipt(nil)
			r.ProcessingStatus = status

			_, err := f.svc.ProcessReceipt(context.Background(), r.ID.String())
			if !errors.Is(err, domain.ErrInvalidReceiptState) {
				t.Fatalf("err = %v, want ErrInvalidReceiptState", err)
			}
			if got := f.repo.receipts[r.ID].ProcessingStatus; got != status {
				t.Errorf("status = %s, want %s", got, status)
			}
			if calls != 0 || len(f.repo.statuses) != 0 || len(f.publisher.events) != 0 {
				t.Errorf("pipeline ran: ocr calls=%d transitions=%v events=%d", calls, f.repo.statuses, len(f.publisher.events))
			}
		})
	}
}

func TestProcessReceipt_RetriesFailedReceipt(t *testing.T) {
	f := newFixture(staticText("Milk"))
	f.extractor.result = domain.ReceiptExtraction{Products: []domain.ExtractedProduct{{Name: "Milk"}}}
	r := f.seedReceipt(nil)
	r.ProcessingStatus = domain.ReceiptStatusFailed

	res, err := f.svc.ProcessReceipt(context.Background(), r.ID.String())
	if err != nil {
		t.Fatalf("ProcessReceipt: %v", err)
	}
	if !res.Success {
		t.Fatalf("unexpected result %+v", res)
	}
	want := []string{domain.ReceiptStatusProcessing, domain.ReceiptStatusCompleted}
	if got := f.repo.statuses; len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("transitions = %v, want %v", got, want)
	}
}

func fileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("ReadForm: %v", err)
	}
	return form.File["file"][0]
}

func TestUploadReceipt(t *testing.T) {
	f := newFixture(staticText(""))
	batch := uuid.NewString()

	res, err := f.svc.UploadReceipt(context.Background(), domain.UploadReceiptRequest{
		File:         fileHeader(t, "scan.PDF", "application/pdf", []byte("%PDF-1.4")),
		StoreChain:   "Lidl",
		PurchaseDate: "2024-01-06",
		BatchID:      batch,
	})
	if err != nil {
		t.Fatalf("UploadReceipt: %v", err)
	}

	if res.ProcessingStatus != domain.ReceiptStatusUploaded || res.ItemsExtracted != 0 {
		t.Errorf("unexpected receipt %+v", res)
	}
	if res.ImagePath != res.ID+".pdf" {
		t.Errorf("image_path = %s", res.ImagePath)
	}
	if string(f.files.objects[res.ImagePath]) != "%PDF-1.4" {
		t.Errorf("file not stored under %s", res.ImagePath)
	}
	if res.PurchaseDate == nil || *res.PurchaseDate != "2024-01-06" || res.BatchID == nil || *res.BatchID != batch {
		t.Errorf("optional fields not kept: %+v", res)
	}
}

func TestUploadReceipt_RejectsContentType(t *testing.T) {
	f := newFixture(staticText(""))

	_, err := f.svc.UploadReceipt(context.Background(), domain.UploadReceiptRequest{
		File: fileHeader(t, "notes.txt", "text/plain", []byte("hello")),
	})
	if !errors.Is(err, domain.ErrUnsupportedContentType) {
		t.Errorf("err = %v, want ErrUnsupportedContentType", err)
	}
	if len(f.files.objects) != 0 || len(f.repo.receipts) != 0 {
		t.Error("rejected upload left data behind")
	}
}

func TestUploadReceipt_CleansUpOnCreateFailure(t *testing.T) {
	f := newFixture(staticText(""))
	f.repo.createErr = errors.New("db down")

	if _, err := f.svc.UploadReceipt(context.Background(), domain.UploadReceiptRequest{
		File: fileHeader(t, "photo.jpg", "image/jpeg", []byte{0xff, 0xd8}),
	}); err == nil {
		t.Fatal("expected error")
	}
	if len(f.files.objects) != 0 {
		t.Error("orphaned file left in storage")
	}
}

func TestConfirmReceipt(t *testing.T) {
	f := newFixture(staticText(""))
	r := f.seedReceipt(nil)
	r.ProcessingStatus = domain.ReceiptStatusCompleted

	res, err := f.svc.ConfirmReceipt(context.Background(), r.ID.String(), domain.ConfirmReceiptRequest{
		Items: []domain.ConfirmItemRequest{{ProductID: f.milk.ID.String(), Quantity: decimal.NewFromInt(2), Unit: "pcs"}},
	})
	if err != nil {
		t.Fatalf("ConfirmReceipt: %v", err)
	}
	if !res.Success || res.ItemsCreated != 1 {
		t.Errorf("unexpected response %+v", res)
	}
	if got := f.publisher.statuses(); len(got) != 1 || got[0] != domain.ReceiptStatusConfirmed {
		t.Errorf("published statuses = %v", got)
	}
}

func TestConfirmReceipt_EmptyItems(t *testing.T) {
	f := newFixture(staticText(""))
	r := f.seedReceipt(nil)

	res, err := f.svc.ConfirmReceipt(context.Background(), r.ID.String(), domain.ConfirmReceiptRequest{})
	if err != nil {
		t.Fatalf("ConfirmReceipt: %v", err)
	}
	if !res.Success || res.ItemsCreated != 0 {
		t.Errorf("unexpected response %+v", res)
	}
	if len(f.publisher.events) != 0 {
		t.Error("event published for empty confirmation")
	}
}

func TestConfirmReceipt_Errors(t *testing.T) {
	f := newFixture(staticText(""))
	if _, err := f.svc.ConfirmReceipt(context.Background(), uuid.NewString(), domain.ConfirmReceiptRequest{}); !errors.Is(err, domain.ErrReceiptNotFound) {
		t.Errorf("err = %v, want ErrReceiptNotFound", err)
	}

	r := f.seedReceipt(nil)
	f.inventory.err = domain.ErrProductNotFound
	_, err := f.svc.ConfirmReceipt(context.Background(), r.ID.String(), domain.ConfirmReceiptRequest{
		Items: []domain.ConfirmItemRequest{{ProductID: uuid.NewString(), Quantity: decimal.NewFromInt(1), Unit: "pcs"}},
	})
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("err = %v, want ErrProductNotFound", err)
	}
}
