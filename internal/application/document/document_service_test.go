package document

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/tallybook/backend/internal/domain/business"
	"github.com/tallybook/backend/internal/domain/document"
	"github.com/tallybook/backend/internal/domain/ledger"
	"github.com/tallybook/backend/internal/domain/shared"
	"github.com/tallybook/backend/internal/domain/shared/valueobject"
)

// =============================================================================
// Mock Repositories
// =============================================================================

// MockDocumentRepository is a mock implementation of DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByIDForBusiness(ctx context.Context, businessID, id uuid.UUID) (*document.Document, error) {
	args := m.Called(ctx, businessID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByNumber(ctx context.Context, businessID uuid.UUID, number string) (*document.Document, error) {
	args := m.Called(ctx, businessID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByTransactionID(ctx context.Context, businessID, transactionID uuid.UUID) ([]document.Document, error) {
	args := m.Called(ctx, businessID, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]document.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter shared.Filter) ([]document.Document, error) {
	args := m.Called(ctx, businessID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]document.Document), args.Error(1)
}

func (m *MockDocumentRepository) Save(ctx context.Context, doc *document.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, businessID, id uuid.UUID) error {
	args := m.Called(ctx, businessID, id)
	return args.Error(0)
}

func (m *MockDocumentRepository) DeleteByTransactionID(ctx context.Context, businessID, transactionID uuid.UUID) error {
	args := m.Called(ctx, businessID, transactionID)
	return args.Error(0)
}

func (m *MockDocumentRepository) CountForBusiness(ctx context.Context, businessID uuid.UUID, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, businessID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDocumentRepository) GenerateNumber(ctx context.Context, businessID uuid.UUID, docType document.DocumentType) (string, error) {
	args := m.Called(ctx, businessID, docType)
	return args.String(0), args.Error(1)
}

// Verify interface compliance
var _ document.DocumentRepository = (*MockDocumentRepository)(nil)

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Save(ctx context.Context, tx *ledger.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, businessID, id uuid.UUID) (*ledger.Transaction, error) {
	args := m.Called(ctx, businessID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindAll(ctx context.Context, businessID uuid.UUID, filter ledger.TransactionFilter) ([]ledger.Transaction, int64, error) {
	args := m.Called(ctx, businessID, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]ledger.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionRepository) FindByContact(ctx context.Context, businessID, contactID uuid.UUID, statuses []ledger.PaymentStatus) ([]ledger.Transaction, error) {
	args := m.Called(ctx, businessID, contactID, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindOutstanding(ctx context.Context, businessID uuid.UUID) ([]ledger.Transaction, error) {
	args := m.Called(ctx, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindInWindow(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]ledger.Transaction, error) {
	args := m.Called(ctx, businessID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) CountByContact(ctx context.Context, businessID, contactID uuid.UUID) (int64, error) {
	args := m.Called(ctx, businessID, contactID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) Delete(ctx context.Context, businessID, id uuid.UUID) error {
	args := m.Called(ctx, businessID, id)
	return args.Error(0)
}

// Verify interface compliance
var _ ledger.TransactionRepository = (*MockTransactionRepository)(nil)

// MockBusinessRepository is a mock implementation of BusinessRepository
type MockBusinessRepository struct {
	mock.Mock
}

func (m *MockBusinessRepository) FindByID(ctx context.Context, id uuid.UUID) (*business.Business, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*business.Business), args.Error(1)
}

func (m *MockBusinessRepository) FindBySlug(ctx context.Context, slug string) (*business.Business, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*business.Business), args.Error(1)
}

func (m *MockBusinessRepository) FindAll(ctx context.Context, page, pageSize int) ([]business.Business, int64, error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]business.Business), args.Get(1).(int64), args.Error(2)
}

func (m *MockBusinessRepository) Save(ctx context.Context, biz *business.Business) error {
	args := m.Called(ctx, biz)
	return args.Error(0)
}

func (m *MockBusinessRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBusinessRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

// Verify interface compliance
var _ business.BusinessRepository = (*MockBusinessRepository)(nil)

// MockExporter is a mock implementation of Exporter
type MockExporter struct {
	mock.Mock
}

func (m *MockExporter) Export(ctx context.Context, payload ExportPayload) ([]byte, string, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

// Verify interface compliance
var _ Exporter = (*MockExporter)(nil)

// =============================================================================
// Test Helper Functions
// =============================================================================

func newTestBusinessID() uuid.UUID {
	return uuid.MustParse("11111111-1111-1111-1111-111111111111")
}

func newTestService() (*DocumentService, *MockDocumentRepository, *MockTransactionRepository, *MockBusinessRepository, *MockExporter) {
	documentRepo := new(MockDocumentRepository)
	txRepo := new(MockTransactionRepository)
	businessRepo := new(MockBusinessRepository)
	exporter := new(MockExporter)
	service := NewDocumentService(documentRepo, txRepo, businessRepo, exporter)
	return service, documentRepo, txRepo, businessRepo, exporter
}

func createTestSale(businessID uuid.UUID) *ledger.Transaction {
	price := valueobject.MustMoney(decimal.NewFromInt(150), valueobject.USD)
	line, _ := ledger.NewLineItem("Consulting session", 1, price)
	tx, _ := ledger.NewTransaction(
		businessID,
		ledger.TransactionTypeSale,
		time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		valueobject.USD,
		[]ledger.LineItem{line},
		decimal.Zero,
		decimal.Zero,
		ledger.PaymentMethodCash,
	)
	tx.ClearDomainEvents()
	return tx
}

func createTestDocument(businessID, transactionID uuid.UUID) *document.Document {
	doc, _ := document.NewDocument(businessID, transactionID, document.DocumentTypeInvoice, "INV-202506-00042")
	doc.ClearDomainEvents()
	return doc
}

func createSentDocument(businessID, transactionID uuid.UUID) *document.Document {
	doc := createTestDocument(businessID, transactionID)
	_ = doc.MarkSent()
	doc.ClearDomainEvents()
	return doc
}

// =============================================================================
// DocumentService Tests
// =============================================================================

func TestDocumentService_Issue_Success(t *testing.T) {
	service, documentRepo, txRepo, _, _ := newTestService()

	ctx := context.Background()
	businessID := newTestBusinessID()
	tx := createTestSale(businessID)

	txRepo.On("FindByID", ctx, businessID, tx.ID).Return(tx, nil)
	documentRepo.On("GenerateNumber", ctx, businessID, document.DocumentTypeReceipt).Return("REC-202506-00001", nil)
	documentRepo.On("Save", ctx, mock.AnythingOfType("*document.Document")).Return(nil)

	result, err := service.Issue(ctx, businessID, tx.ID, IssueDocumentRequest{Type: "receipt"})

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, "REC-202506-00001", result.Number)
	assert.Equal(t, "receipt", result.Type)
	assert.Equal(t, "draft", result.Status)
	assert.Equal(t, tx.ID, result.TransactionID)
	assert.Nil(t, result.SentAt)
	documentRepo.AssertExpectations(t)
}

func TestDocumentService_Issue_TransactionNotFound(t *testing.T) {
	service, documentRepo, txRepo, _, _ := newTestService()

	ctx := context.Background()
	businessID := newTestBusinessID()
	transactionID := uuid.New()

	txRepo.On("FindByID", ctx, businessID, transactionID).Return(nil, nil)

	result, err := service.Issue(ctx, businessID, transactionID, IssueDocumentRequest{Type: "invoice"})

	assert.Error(t, err)
	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
	documentRepo.AssertNotCalled(t, "GenerateNumber", mock.Anything, mock.Anything, mock.Anything)
	documentRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestDocumentService_Export_MovesDraftToSent(t *testing.T) {
	service, documentRepo, txRepo, businessRepo, exporter := newTestService()

	ctx := context.Background()
	businessID := newTestBusinessID()
	tx := createTestSale(businessID)
	doc := createTestDocument(businessID, tx.ID)

	documentRepo.On("FindByIDForBusiness", ctx, businessID, doc.ID).Return(doc, nil)
	txRepo.On("FindByID", ctx, businessID, tx.ID).Return(tx, nil)
	businessRepo.On("FindByID", ctx, businessID).Return(nil, nil)
	exporter.On("Export", ctx, mock.AnythingOfType("ExportPayload")).Return([]byte("<html>invoice</html>"), "text/html", nil)
	documentRepo.On("Save", ctx, doc).Return(nil)

	result, err := service.Export(ctx, businessID, doc.ID)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, []byte("<html>invoice</html>"), result.Content)
	assert.Equal(t, "text/html", result.ContentType)
	assert.Equal(t, "sent", result.Document.Status)
	assert.NotNil(t, result.Document.SentAt)
	documentRepo.AssertExpectations(t)
	exporter.AssertExpectations(t)
}

func TestDocumentService_Export_ExporterFailureLeavesDraft(t *testing.T) {
	service, documentRepo, txRepo, businessRepo, exporter := newTestService()

	ctx := context.Background()
	businessID := newTestBusinessID()
	tx := createTestSale(businessID)
	doc := createTestDocument(businessID, tx.ID)

	documentRepo.On("FindByIDForBusiness", ctx, businessID, doc.ID).Return(doc, nil)
	txRepo.On("FindByID", ctx, businessID, tx.ID).Return(tx, nil)
	businessRepo.On("FindByID", ctx, businessID).Return(nil, nil)
	exporter.On("Export", ctx, mock.AnythingOfType("ExportPayload")).Return(nil, "", errors.New("renderer unavailable"))

	result, err := service.Export(ctx, businessID, doc.ID)

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, document.DocumentStatusDraft, doc.Status)
	documentRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestDocumentService_Export_ReExportKeepsStatus(t *testing.T) {
	service, documentRepo, txRepo, businessRepo, exporter := newTestService()

	ctx := context.Background()
	businessID := newTestBusinessID()
	tx := createTestSale(businessID)
	doc := createSentDocument(businessID, tx.ID)
	firstSentAt := doc.SentAt

	documentRepo.On("FindByIDForBusiness", ctx, businessID, doc.ID).Return(doc, nil)
	txRepo.On("FindByID", ctx, businessID, tx.ID).Return(tx, nil)
	businessRepo.On("FindByID", ctx, businessID).Return(nil, nil)
	exporter.On("Export", ctx, mock.AnythingOfType("ExportPayload")).Return([]byte("<html>invoice</html>"), "text/html", nil)

	result, err := service.Export(ctx, businessID, doc.ID)

	assert.NoError(t, err)
	assert.Equal(t, "sent", result.Document.Status)
	assert.Equal(t, firstSentAt, doc.SentAt)
	documentRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestDocumentService_Export_MissingTransaction(t *testing.T) {
	service, documentRepo, txRepo, _, exporter := newTestService()

	ctx := context.Background()
	businessID := newTestBusinessID()
	doc := createTestDocument(businessID, uuid.New())

	documentRepo.On("FindByIDForBusiness", ctx, businessID, doc.ID).Return(doc, nil)
	txRepo.On("FindByID", ctx, businessID, doc.TransactionID).Return(nil, nil)

	result, err := service.Export(ctx, businessID, doc.ID)

	assert.Error(t, err)
	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INCONSISTENT_STATE", domainErr.Code)
	exporter.AssertNotCalled(t, "Export", mock.Anything, mock.Anything)
}

func TestDocumentService_Export_NotFound(t *testing.T) {
	service, documentRepo, _, _, exporter := newTestService()

	ctx := context.Background()
	businessID := newTestBusinessID()
	docID := uuid.New()

	documentRepo.On("FindByIDForBusiness", ctx, businessID, docID).Return(nil, nil)

	result, err := service.Export(ctx, businessID, docID)

	assert.Error(t, err)
	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
	exporter.AssertNotCalled(t, "Export", mock.Anything, mock.Anything)
}

func TestDocumentService_ConfirmViewed_RecordsFirstView(t *testing.T) {
	service, documentRepo, _, _, _ := newTestService()

	ctx := context.Background()
	businessID := newTestBusinessID()
	doc := createSentDocument(businessID, uuid.New())

	documentRepo.On("FindByID", ctx, doc.ID).Return(doc, nil)
	documentRepo.On("Save", ctx, doc).Return(nil)

	result, err := service.ConfirmViewed(ctx, doc.ID)

	assert.NoError(t, err)
	assert.Equal(t, "viewed", result.Status)
	assert.NotNil(t, result.ViewedAt)
	documentRepo.AssertExpectations(t)
}

func TestDocumentService_ConfirmViewed_RepeatIsNoOp(t *testing.T) {
	service, documentRepo, _, _, _ := newTestService()

	ctx := context.Background()
	businessID := newTestBusinessID()
	doc := createSentDocument(businessID, uuid.New())

	documentRepo.On("FindByID", ctx, doc.ID).Return(doc, nil)
	documentRepo.On("Save", ctx, doc).Return(nil)

	first, err := service.ConfirmViewed(ctx, doc.ID)
	assert.NoError(t, err)

	second, err := service.ConfirmViewed(ctx, doc.ID)
	assert.NoError(t, err)

	assert.Equal(t, "viewed", second.Status)
	assert.Equal(t, first.ViewedAt, second.ViewedAt)
	documentRepo.AssertNumberOfCalls(t, "Save", 1)
}

func TestDocumentService_ConfirmViewed_NotFound(t *testing.T) {
	service, documentRepo, _, _, _ := newTestService()

	ctx := context.Background()
	docID := uuid.New()

	documentRepo.On("FindByID", ctx, docID).Return(nil, nil)

	result, err := service.ConfirmViewed(ctx, docID)

	assert.Error(t, err)
	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestDocumentService_List_InvalidType(t *testing.T) {
	service, documentRepo, _, _, _ := newTestService()

	ctx := context.Background()
	businessID := newTestBusinessID()

	result, total, err := service.List(ctx, businessID, DocumentListFilter{Type: "quote"})

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, int64(0), total)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_INPUT", domainErr.Code)
	documentRepo.AssertNotCalled(t, "FindAllForBusiness", mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentService_ListByTransaction_Success(t *testing.T) {
	service, documentRepo, _, _, _ := newTestService()

	ctx := context.Background()
	businessID := newTestBusinessID()
	transactionID := uuid.New()
	docs := []document.Document{
		*createTestDocument(businessID, transactionID),
		*createSentDocument(businessID, transactionID),
	}

	documentRepo.On("FindByTransactionID", ctx, businessID, transactionID).Return(docs, nil)

	result, err := service.ListByTransaction(ctx, businessID, transactionID)

	assert.NoError(t, err)
	assert.Len(t, result, 2)
	assert.Equal(t, "draft", result[0].Status)
	assert.Equal(t, "sent", result[1].Status)
	documentRepo.AssertExpectations(t)
}
