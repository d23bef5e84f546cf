package handler

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	bankingapp "github.com/tallybook/backend/internal/application/banking"
)

// BankRecordHandler handles bank statement reconciliation API endpoints
type BankRecordHandler struct {
	BaseHandler
	reconciliationService *bankingapp.ReconciliationService
}

// NewBankRecordHandler creates a new BankRecordHandler
func NewBankRecordHandler(reconciliationService *bankingapp.ReconciliationService) *BankRecordHandler {
	return &BankRecordHandler{
		reconciliationService: reconciliationService,
	}
}

// Import godoc
// @Summary      Import bank statement records
// @Description  Creates unprocessed bank payment records from statement lines. The import is all-or-nothing.
// @Tags         banking
// @Accept       json
// @Produce      json
// @Param        request body bankingapp.ImportBankRecordsRequest true "Statement lines to import"
// @Success      201 {object} dto.Response{data=[]bankingapp.BankRecordResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /banking/records/import [post]
func (h *BankRecordHandler) Import(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	var req bankingapp.ImportBankRecordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	records, err := h.reconciliationService.ImportRecords(c.Request.Context(), businessID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, records)
}

// ImportCSV godoc
// @Summary      Import a bank statement CSV
// @Description  Parses an uploaded CSV (columns: date, type, amount, description, beneficiary) and imports its lines as unprocessed bank records.
// @Tags         banking
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "Statement CSV file"
// @Success      201 {object} dto.Response{data=[]bankingapp.BankRecordResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /banking/records/import/csv [post]
func (h *BankRecordHandler) ImportCSV(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "A statement file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.BadRequest(c, "Unable to read the statement file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.BadRequest(c, "Unable to read the statement file")
		return
	}

	req, err := bankingapp.ParseStatementCSV(data)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	records, err := h.reconciliationService.ImportRecords(c.Request.Context(), businessID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, records)
}

// GetByID godoc
// @Summary      Get bank record by ID
// @Tags         banking
// @Produce      json
// @Param        id path string true "Bank record ID" format(uuid)
// @Success      200 {object} dto.Response{data=bankingapp.BankRecordResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /banking/records/{id} [get]
func (h *BankRecordHandler) GetByID(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid bank record ID format")
		return
	}

	record, err := h.reconciliationService.GetRecord(c.Request.Context(), businessID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, record)
}

// List godoc
// @Summary      List bank records
// @Tags         banking
// @Produce      json
// @Param        type query string false "Record type" Enums(money_in, money_out)
// @Param        processed query bool false "Filter by processed flag"
// @Param        date_from query string false "Start of date range (RFC 3339)"
// @Param        date_to query string false "End of date range (RFC 3339)"
// @Param        search query string false "Search term (description, beneficiary)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]bankingapp.BankRecordResponse,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /banking/records [get]
func (h *BankRecordHandler) List(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	var filter bankingapp.BankRecordListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	records, total, err := h.reconciliationService.ListRecords(c.Request.Context(), businessID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, records, total, filter.Page, filter.PageSize)
}

// Convert godoc
// @Summary      Convert a bank record into a ledger transaction
// @Description  Creates a paid sale from a money-in record or a paid expense from a money-out record. Each record converts exactly once; converting again returns a conflict.
// @Tags         banking
// @Produce      json
// @Param        id path string true "Bank record ID" format(uuid)
// @Success      201 {object} dto.Response{data=bankingapp.ConvertResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /banking/records/{id}/convert [post]
func (h *BankRecordHandler) Convert(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid bank record ID format")
		return
	}

	result, err := h.reconciliationService.Convert(c.Request.Context(), businessID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// ListAudits godoc
// @Summary      List reconciliation audit entries
// @Description  Audit entries record every conversion attempt and any inconsistent states found.
// @Tags         banking
// @Produce      json
// @Param        inconsistent_only query bool false "Only entries with an inconsistent outcome"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]bankingapp.AuditResponse,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /banking/reconciliation/audits [get]
func (h *BankRecordHandler) ListAudits(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	inconsistentOnly, _ := strconv.ParseBool(c.DefaultQuery("inconsistent_only", "false"))

	audits, total, err := h.reconciliationService.ListAudits(c.Request.Context(), businessID, page, pageSize, inconsistentOnly)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, audits, total, page, pageSize)
}
