package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	ledgerapp "github.com/tallybook/backend/internal/application/ledger"
)

// TransactionHandler handles ledger transaction API endpoints
type TransactionHandler struct {
	BaseHandler
	transactionService *ledgerapp.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService *ledgerapp.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

// Create godoc
// @Summary      Record a transaction
// @Description  Record a sale or expense. Totals, balance and payment status are derived from the line items, discount and amount paid.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        request body ledgerapp.CreateTransactionRequest true "Transaction to record"
// @Success      201 {object} dto.Response{data=ledgerapp.TransactionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	var req ledgerapp.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	tx, err := h.transactionService.Create(c.Request.Context(), businessID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, tx)
}

// GetByID godoc
// @Summary      Get transaction by ID
// @Tags         transactions
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledgerapp.TransactionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/transactions/{id} [get]
func (h *TransactionHandler) GetByID(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID format")
		return
	}

	tx, err := h.transactionService.GetByID(c.Request.Context(), businessID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, tx)
}

// List godoc
// @Summary      List transactions
// @Description  Paginated transaction history with optional type, status, contact, category, date range and text filters
// @Tags         transactions
// @Produce      json
// @Param        type query string false "Transaction type" Enums(sale, expense)
// @Param        status query string false "Payment status" Enums(paid, partially_paid, unpaid)
// @Param        contact_id query string false "Contact ID" format(uuid)
// @Param        category query string false "Expense category"
// @Param        date_from query string false "Start of date range (RFC 3339)"
// @Param        date_to query string false "End of date range (RFC 3339)"
// @Param        search query string false "Search term (notes, contact name)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]ledgerapp.TransactionResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	var filter ledgerapp.TransactionListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	txs, total, err := h.transactionService.List(c.Request.Context(), businessID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, txs, total, filter.Page, filter.PageSize)
}

// Update godoc
// @Summary      Edit a transaction
// @Description  Replace the editable fields of a transaction. Derived totals are recomputed; stock deltas are applied for changed sale lines.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Param        request body ledgerapp.UpdateTransactionRequest true "New transaction contents"
// @Success      200 {object} dto.Response{data=ledgerapp.TransactionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/transactions/{id} [put]
func (h *TransactionHandler) Update(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID format")
		return
	}

	var req ledgerapp.UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	tx, err := h.transactionService.Update(c.Request.Context(), businessID, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, tx)
}

// RecordPayment godoc
// @Summary      Record a payment against a transaction
// @Description  Apply a partial or full payment. The balance and payment status are re-derived.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Param        request body ledgerapp.RecordPaymentRequest true "Payment to apply"
// @Success      200 {object} dto.Response{data=ledgerapp.TransactionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/transactions/{id}/payments [post]
func (h *TransactionHandler) RecordPayment(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID format")
		return
	}

	var req ledgerapp.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	tx, err := h.transactionService.RecordPayment(c.Request.Context(), businessID, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, tx)
}

// Delete godoc
// @Summary      Delete a transaction
// @Description  Remove a transaction from the ledger. Sold stock is returned to inventory.
// @Tags         transactions
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID format")
		return
	}

	if err := h.transactionService.Delete(c.Request.Context(), businessID, id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
