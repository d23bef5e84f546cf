package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	partnerapp "github.com/tallybook/backend/internal/application/partner"
)

// ContactHandler handles contact API endpoints
type ContactHandler struct {
	BaseHandler
	contactService *partnerapp.ContactService
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(contactService *partnerapp.ContactService) *ContactHandler {
	return &ContactHandler{
		contactService: contactService,
	}
}

// Create godoc
// @Summary      Create a contact
// @Tags         contacts
// @Accept       json
// @Produce      json
// @Param        request body partnerapp.CreateContactRequest true "Contact to create"
// @Success      201 {object} dto.Response{data=partnerapp.ContactResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /partner/contacts [post]
func (h *ContactHandler) Create(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	var req partnerapp.CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	contact, err := h.contactService.Create(c.Request.Context(), businessID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, contact)
}

// GetByID godoc
// @Summary      Get contact by ID
// @Tags         contacts
// @Produce      json
// @Param        id path string true "Contact ID" format(uuid)
// @Success      200 {object} dto.Response{data=partnerapp.ContactResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /partner/contacts/{id} [get]
func (h *ContactHandler) GetByID(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid contact ID format")
		return
	}

	contact, err := h.contactService.GetByID(c.Request.Context(), businessID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, contact)
}

// List godoc
// @Summary      List contacts
// @Tags         contacts
// @Produce      json
// @Param        type query string false "Contact type" Enums(customer, supplier)
// @Param        search query string false "Search term (name, phone, email)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]partnerapp.ContactResponse,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /partner/contacts [get]
func (h *ContactHandler) List(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	var filter partnerapp.ContactListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	contacts, total, err := h.contactService.List(c.Request.Context(), businessID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, contacts, total, filter.Page, filter.PageSize)
}

// Update godoc
// @Summary      Update a contact
// @Tags         contacts
// @Accept       json
// @Produce      json
// @Param        id path string true "Contact ID" format(uuid)
// @Param        request body partnerapp.UpdateContactRequest true "New contact contents"
// @Success      200 {object} dto.Response{data=partnerapp.ContactResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /partner/contacts/{id} [put]
func (h *ContactHandler) Update(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid contact ID format")
		return
	}

	var req partnerapp.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	contact, err := h.contactService.Update(c.Request.Context(), businessID, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, contact)
}

// Delete godoc
// @Summary      Delete a contact
// @Description  Contacts referenced by transactions cannot be deleted.
// @Tags         contacts
// @Produce      json
// @Param        id path string true "Contact ID" format(uuid)
// @Success      204 "No Content"
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /partner/contacts/{id} [delete]
func (h *ContactHandler) Delete(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid contact ID format")
		return
	}

	if err := h.contactService.Delete(c.Request.Context(), businessID, id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// Debt godoc
// @Summary      Get a contact's outstanding debt
// @Description  Sums the open balances of the contact's unpaid and partially paid transactions, split by direction.
// @Tags         contacts
// @Produce      json
// @Param        id path string true "Contact ID" format(uuid)
// @Success      200 {object} dto.Response{data=partnerapp.ContactDebtResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /partner/contacts/{id}/debt [get]
func (h *ContactHandler) Debt(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid contact ID format")
		return
	}

	debt, err := h.contactService.Debt(c.Request.Context(), businessID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, debt)
}

// DebtSummary godoc
// @Summary      Get debt totals across all contacts
// @Tags         contacts
// @Produce      json
// @Success      200 {object} dto.Response{data=partnerapp.DebtSummaryResponse}
// @Security     BearerAuth
// @Router       /partner/contacts/debt-summary [get]
func (h *ContactHandler) DebtSummary(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	summary, err := h.contactService.DebtSummary(c.Request.Context(), businessID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summary)
}
