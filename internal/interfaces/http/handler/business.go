package handler

import (
	"github.com/gin-gonic/gin"

	businessapp "github.com/tallybook/backend/internal/application/business"
)

// BusinessHandler handles business registration and profile API endpoints
type BusinessHandler struct {
	BaseHandler
	businessService *businessapp.BusinessService
}

// NewBusinessHandler creates a new BusinessHandler
func NewBusinessHandler(businessService *businessapp.BusinessService) *BusinessHandler {
	return &BusinessHandler{
		businessService: businessService,
	}
}

// Register godoc
// @Summary      Register a new business
// @Description  Creates a business and returns a long-lived API token scoped to it. The token carries the business identity for all subsequent requests.
// @Tags         business
// @Accept       json
// @Produce      json
// @Param        request body businessapp.RegisterBusinessRequest true "Business details"
// @Success      201 {object} dto.Response{data=businessapp.RegisterBusinessResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /businesses/register [post]
func (h *BusinessHandler) Register(c *gin.Context) {
	var req businessapp.RegisterBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.businessService.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// GetProfile godoc
// @Summary      Get the authenticated business profile
// @Tags         business
// @Produce      json
// @Success      200 {object} dto.Response{data=businessapp.BusinessResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /business/profile [get]
func (h *BusinessHandler) GetProfile(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	profile, err := h.businessService.GetProfile(c.Request.Context(), businessID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, profile)
}

// UpdateProfile godoc
// @Summary      Update the authenticated business profile
// @Tags         business
// @Accept       json
// @Produce      json
// @Param        request body businessapp.UpdateBusinessRequest true "Updated business details"
// @Success      200 {object} dto.Response{data=businessapp.BusinessResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /business/profile [put]
func (h *BusinessHandler) UpdateProfile(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	var req businessapp.UpdateBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	profile, err := h.businessService.UpdateProfile(c.Request.Context(), businessID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, profile)
}
