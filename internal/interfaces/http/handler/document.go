package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	documentapp "github.com/tallybook/backend/internal/application/document"
)

// DocumentHandler handles receipt and invoice API endpoints
type DocumentHandler struct {
	BaseHandler
	documentService *documentapp.DocumentService
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(documentService *documentapp.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
	}
}

// Issue godoc
// @Summary      Issue a receipt or invoice for a transaction
// @Description  Issues a new document against the transaction. Receipts require full payment; invoices require an outstanding balance.
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Param        request body documentapp.IssueDocumentRequest true "Document type to issue"
// @Success      201 {object} dto.Response{data=documentapp.DocumentResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/transactions/{id}/documents [post]
func (h *DocumentHandler) Issue(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID format")
		return
	}

	var req documentapp.IssueDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	doc, err := h.documentService.Issue(c.Request.Context(), businessID, transactionID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, doc)
}

// GetByID godoc
// @Summary      Get document by ID
// @Tags         documents
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} dto.Response{data=documentapp.DocumentResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /documents/{id} [get]
func (h *DocumentHandler) GetByID(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	doc, err := h.documentService.GetByID(c.Request.Context(), businessID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, doc)
}

// List godoc
// @Summary      List documents
// @Tags         documents
// @Produce      json
// @Param        type query string false "Document type" Enums(receipt, invoice)
// @Param        status query string false "Document status" Enums(draft, sent, viewed)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]documentapp.DocumentResponse,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	var filter documentapp.DocumentListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	docs, total, err := h.documentService.List(c.Request.Context(), businessID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, docs, total, filter.Page, filter.PageSize)
}

// ListByTransaction godoc
// @Summary      List documents issued for a transaction
// @Tags         documents
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]documentapp.DocumentResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /ledger/transactions/{id}/documents [get]
func (h *DocumentHandler) ListByTransaction(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID format")
		return
	}

	docs, err := h.documentService.ListByTransaction(c.Request.Context(), businessID, transactionID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, docs)
}

// Export godoc
// @Summary      Export a document as a rendered file
// @Description  Renders the document through the export service and returns the file. A draft document transitions to sent on its first export.
// @Tags         documents
// @Produce      application/pdf
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {file} binary
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /documents/{id}/export [get]
func (h *DocumentHandler) Export(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	result, err := h.documentService.Export(c.Request.Context(), businessID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	c.Data(200, result.ContentType, result.Content)
}

// ConfirmViewed godoc
// @Summary      Confirm a document was viewed
// @Description  Called from the shared document link. Marks a sent document as viewed; repeated calls are no-ops.
// @Tags         documents
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} dto.Response{data=documentapp.DocumentResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /public/documents/{id}/viewed [post]
func (h *DocumentHandler) ConfirmViewed(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	doc, err := h.documentService.ConfirmViewed(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, doc)
}
