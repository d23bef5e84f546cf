package banking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tallybook/backend/internal/domain/banking"
	"github.com/tallybook/backend/internal/domain/business"
	"github.com/tallybook/backend/internal/domain/ledger"
	"github.com/tallybook/backend/internal/domain/shared"
	"github.com/tallybook/backend/internal/domain/shared/valueobject"
	"github.com/tallybook/backend/internal/infrastructure/logger"
	"github.com/tallybook/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ReconciliationService converts imported bank-statement lines into ledger
// transactions. The record flip is a single conditional write, so two
// concurrent conversions of the same record produce exactly one transaction.
type ReconciliationService struct {
	recordRepo     banking.BankRecordRepository
	auditRepo      banking.ReconciliationAuditRepository
	txRepo         ledger.TransactionRepository
	businessRepo   business.BusinessRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	recordRepo banking.BankRecordRepository,
	auditRepo banking.ReconciliationAuditRepository,
	txRepo ledger.TransactionRepository,
	businessRepo business.BusinessRepository,
	logger *zap.Logger,
) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationService{
		recordRepo:   recordRepo,
		auditRepo:    auditRepo,
		txRepo:       txRepo,
		businessRepo: businessRepo,
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ReconciliationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// ===================== DTOs =====================

// BankRecordImportLine is one statement line in an import request
type BankRecordImportLine struct {
	Date            time.Time       `json:"date" binding:"required"`
	Type            string          `json:"type" binding:"required,oneof=money_in money_out"`
	Description     string          `json:"description" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	BeneficiaryName string          `json:"beneficiary_name"`
}

// ImportBankRecordsRequest represents a bulk statement import
type ImportBankRecordsRequest struct {
	Records []BankRecordImportLine `json:"records" binding:"required,min=1,dive"`
}

// BankRecordListFilter defines filtering options for bank record list queries
type BankRecordListFilter struct {
	Type      string     `form:"type"`
	Processed *bool      `form:"processed"`
	DateFrom  *time.Time `form:"date_from"`
	DateTo    *time.Time `form:"date_to"`
	Search    string     `form:"search"`
	Page      int        `form:"page"`
	PageSize  int        `form:"page_size"`
	OrderBy   string     `form:"order_by"`
	OrderDir  string     `form:"order_dir"`
}

// BankRecordResponse represents a bank payment record in API responses
type BankRecordResponse struct {
	ID              uuid.UUID       `json:"id"`
	Date            time.Time       `json:"date"`
	Type            string          `json:"type"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	BeneficiaryName string          `json:"beneficiary_name,omitempty"`
	Processed       bool            `json:"processed"`
	TransactionID   *uuid.UUID      `json:"transaction_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ConvertResponse reports the transaction created from a bank record
type ConvertResponse struct {
	RecordID      uuid.UUID       `json:"record_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Type          string          `json:"type"`
	Date          time.Time       `json:"date"`
	Total         decimal.Decimal `json:"total"`
	PaymentStatus string          `json:"payment_status"`
}

// AuditResponse represents one reconciliation audit entry
type AuditResponse struct {
	ID            uuid.UUID  `json:"id"`
	RecordID      uuid.UUID  `json:"record_id"`
	TransactionID *uuid.UUID `json:"transaction_id,omitempty"`
	Outcome       string     `json:"outcome"`
	Detail        string     `json:"detail,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ===================== Operations =====================

// ImportRecords creates unprocessed bank payment records from statement
// lines. The import is all-or-nothing: one bad line rejects the batch.
func (s *ReconciliationService) ImportRecords(ctx context.Context, businessID uuid.UUID, req ImportBankRecordsRequest) ([]BankRecordResponse, error) {
	records := make([]*banking.BankPaymentRecord, 0, len(req.Records))
	for i, line := range req.Records {
		record, err := banking.NewBankPaymentRecord(
			businessID,
			line.Date,
			banking.BankRecordType(line.Type),
			line.Description,
			line.Amount,
			line.BeneficiaryName,
		)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		records = append(records, record)
	}

	if err := s.recordRepo.SaveBatch(ctx, records); err != nil {
		return nil, err
	}

	responses := make([]BankRecordResponse, len(records))
	for i, record := range records {
		s.publishRecordEvents(ctx, record)
		responses[i] = *toBankRecordResponse(record)
	}
	return responses, nil
}

// GetRecord gets a bank record by ID
func (s *ReconciliationService) GetRecord(ctx context.Context, businessID, id uuid.UUID) (*BankRecordResponse, error) {
	record, err := s.recordRepo.FindByIDForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Bank record not found")
	}
	return toBankRecordResponse(record), nil
}

// ListRecords lists bank records with filtering and pagination
func (s *ReconciliationService) ListRecords(ctx context.Context, businessID uuid.UUID, filter BankRecordListFilter) ([]BankRecordResponse, int64, error) {
	domainFilter := banking.DefaultBankRecordFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	domainFilter.Processed = filter.Processed
	domainFilter.DateFrom = filter.DateFrom
	domainFilter.DateTo = filter.DateTo
	domainFilter.Search = filter.Search

	if filter.Type != "" {
		recordType := banking.BankRecordType(filter.Type)
		if !recordType.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_INPUT", "Record type must be 'money_in' or 'money_out'")
		}
		domainFilter.Type = &recordType
	}

	records, total, err := s.recordRepo.FindAllForBusiness(ctx, businessID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]BankRecordResponse, len(records))
	for i := range records {
		responses[i] = *toBankRecordResponse(&records[i])
	}
	return responses, total, nil
}

// Convert turns an unprocessed bank record into a ledger transaction.
//
// The transaction is inserted first, then the record is flipped with a
// conditional write. A conversion that loses the race deletes its own
// transaction again and reports ALREADY_PROCESSED. If the flip fails for
// any other reason the inserted transaction may be an orphan: the attempt
// is recorded as an inconsistent audit entry and never retried here.
func (s *ReconciliationService) Convert(ctx context.Context, businessID, recordID uuid.UUID) (*ConvertResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "banking", "convert_bank_record",
		telemetry.WithAttribute(telemetry.SpanAttrRecordID, recordID.String()))
	defer span.End()

	record, err := s.recordRepo.FindByIDForBusiness(ctx, businessID, recordID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if record == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Bank record not found")
	}

	// Fast path: already converted. The conditional write below would catch
	// this too, but without inserting a transaction first.
	if !record.CanConvert() {
		s.saveAudit(ctx, banking.NewReconciliationAudit(
			businessID, record.ID, record.TransactionID,
			banking.ReconciliationOutcomeRejected,
			"record already processed",
		))
		return nil, shared.NewDomainError("ALREADY_PROCESSED", "Bank record has already been converted")
	}

	tx, err := s.buildTransaction(ctx, businessID, record)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.txRepo.Save(ctx, tx); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	switch err := s.recordRepo.MarkProcessed(ctx, businessID, record.ID, tx.ID); {
	case err == nil:
		// Won the race: sync the in-memory record so its event carries the link.
		_ = record.MarkProcessed(tx.ID)
		s.saveAudit(ctx, banking.NewReconciliationAudit(
			businessID, record.ID, &tx.ID,
			banking.ReconciliationOutcomeCompleted, "",
		))
		s.publishRecordEvents(ctx, record)
		s.publishTransactionEvents(ctx, tx)
		telemetry.AddEvent(span, "record_converted", telemetry.SpanAttrTransactionID, tx.ID.String())
		return toConvertResponse(record.ID, tx), nil

	case errors.Is(err, shared.ErrAlreadyProcessed):
		// Lost the race: our transaction is an orphan for certain, so take it
		// back out before reporting the conflict.
		if delErr := s.txRepo.Delete(ctx, businessID, tx.ID); delErr != nil {
			logger.WithTraceContext(ctx, s.logger).Error("failed to remove orphan transaction after lost conversion race",
				zap.String("record_id", record.ID.String()),
				zap.String("transaction_id", tx.ID.String()),
				zap.Error(delErr),
			)
			s.saveAudit(ctx, banking.NewReconciliationAudit(
				businessID, record.ID, &tx.ID,
				banking.ReconciliationOutcomeInconsistent,
				fmt.Sprintf("lost conversion race and orphan cleanup failed: %v", delErr),
			))
			telemetry.RecordError(span, delErr)
			return nil, shared.NewDomainError("INCONSISTENT_STATE",
				"Conversion conflicted and cleanup failed; the attempt is recorded for review")
		}
		s.saveAudit(ctx, banking.NewReconciliationAudit(
			businessID, record.ID, nil,
			banking.ReconciliationOutcomeRejected,
			"lost conversion race, transaction rolled back",
		))
		return nil, shared.NewDomainError("ALREADY_PROCESSED", "Bank record has already been converted")

	default:
		// The flip outcome is unknown: the transaction row exists but the
		// record may or may not point at it. Surface the orphan, do not retry.
		logger.WithTraceContext(ctx, s.logger).Error("bank record flip failed after transaction insert",
			zap.String("record_id", record.ID.String()),
			zap.String("transaction_id", tx.ID.String()),
			zap.Error(err),
		)
		s.saveAudit(ctx, banking.NewReconciliationAudit(
			businessID, record.ID, &tx.ID,
			banking.ReconciliationOutcomeInconsistent,
			fmt.Sprintf("transaction inserted but record flip failed: %v", err),
		))
		telemetry.RecordError(span, err)
		return nil, shared.NewDomainError("INCONSISTENT_STATE",
			"Conversion partially failed; the attempt is recorded for review")
	}
}

// ListAudits lists reconciliation audit entries, newest first
func (s *ReconciliationService) ListAudits(ctx context.Context, businessID uuid.UUID, page, pageSize int, inconsistentOnly bool) ([]AuditResponse, int64, error) {
	filter := shared.DefaultFilter()
	if page > 0 {
		filter.Page = page
	}
	if pageSize > 0 {
		filter.PageSize = pageSize
	}

	var audits []banking.ReconciliationAudit
	var err error
	if inconsistentOnly {
		audits, err = s.auditRepo.FindInconsistent(ctx, businessID)
	} else {
		audits, err = s.auditRepo.FindAllForBusiness(ctx, businessID, filter)
	}
	if err != nil {
		return nil, 0, err
	}

	total := int64(len(audits))
	if !inconsistentOnly {
		total, err = s.auditRepo.CountForBusiness(ctx, businessID, filter)
		if err != nil {
			return nil, 0, err
		}
	}

	responses := make([]AuditResponse, len(audits))
	for i := range audits {
		responses[i] = *toAuditResponse(&audits[i])
	}
	return responses, total, nil
}

// ===================== Helpers =====================

// buildTransaction seeds the ledger transaction from the bank record:
// money_in becomes a sale and money_out an expense, dated on the record
// date, fully paid by bank transfer for the record amount.
func (s *ReconciliationService) buildTransaction(ctx context.Context, businessID uuid.UUID, record *banking.BankPaymentRecord) (*ledger.Transaction, error) {
	currency, err := s.resolveCurrency(ctx, businessID)
	if err != nil {
		return nil, err
	}

	unitPrice, err := valueobject.NewMoney(record.Amount, currency)
	if err != nil {
		return nil, err
	}
	line, err := ledger.NewLineItem(record.Description, 1, unitPrice)
	if err != nil {
		return nil, err
	}

	txType := ledger.TransactionTypeExpense
	if record.IsMoneyIn() {
		txType = ledger.TransactionTypeSale
	}

	tx, err := ledger.NewTransaction(
		businessID,
		txType,
		record.Date,
		currency,
		[]ledger.LineItem{line},
		decimal.Zero,
		record.Amount,
		ledger.PaymentMethodBankTransfer,
	)
	if err != nil {
		return nil, err
	}

	if record.BeneficiaryName != "" {
		tx.SetNotes(fmt.Sprintf("Converted from bank record (%s)", record.BeneficiaryName))
	} else {
		tx.SetNotes("Converted from bank record")
	}

	return tx, nil
}

func (s *ReconciliationService) resolveCurrency(ctx context.Context, businessID uuid.UUID) (valueobject.Currency, error) {
	biz, err := s.businessRepo.FindByID(ctx, businessID)
	if err != nil {
		return "", err
	}
	if biz == nil {
		return valueobject.DefaultCurrency, nil
	}
	return biz.Currency, nil
}

// saveAudit appends an audit entry. The trail is best-effort: a failed
// append must not change the conversion outcome.
func (s *ReconciliationService) saveAudit(ctx context.Context, audit *banking.ReconciliationAudit) {
	if err := s.auditRepo.Save(ctx, audit); err != nil {
		s.logger.Warn("failed to save reconciliation audit entry",
			zap.String("record_id", audit.RecordID.String()),
			zap.String("outcome", string(audit.Outcome)),
			zap.Error(err),
		)
	}
}

func (s *ReconciliationService) publishRecordEvents(ctx context.Context, record *banking.BankPaymentRecord) {
	if s.eventPublisher == nil {
		return
	}
	events := record.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	record.ClearDomainEvents()
}

func (s *ReconciliationService) publishTransactionEvents(ctx context.Context, tx *ledger.Transaction) {
	if s.eventPublisher == nil {
		return
	}
	events := tx.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	tx.ClearDomainEvents()
}

func toBankRecordResponse(record *banking.BankPaymentRecord) *BankRecordResponse {
	return &BankRecordResponse{
		ID:              record.ID,
		Date:            record.Date,
		Type:            string(record.Type),
		Description:     record.Description,
		Amount:          record.Amount,
		BeneficiaryName: record.BeneficiaryName,
		Processed:       record.Processed,
		TransactionID:   record.TransactionID,
		CreatedAt:       record.CreatedAt,
	}
}

func toConvertResponse(recordID uuid.UUID, tx *ledger.Transaction) *ConvertResponse {
	return &ConvertResponse{
		RecordID:      recordID,
		TransactionID: tx.ID,
		Type:          string(tx.Type),
		Date:          tx.Date,
		Total:         tx.Total,
		PaymentStatus: string(tx.PaymentStatus),
	}
}

func toAuditResponse(audit *banking.ReconciliationAudit) *AuditResponse {
	return &AuditResponse{
		ID:            audit.ID,
		RecordID:      audit.RecordID,
		TransactionID: audit.TransactionID,
		Outcome:       string(audit.Outcome),
		Detail:        audit.Detail,
		CreatedAt:     audit.CreatedAt,
	}
}
