package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	businessapp "github.com/tallybook/backend/internal/application/business"
)

// StorefrontHandler handles public storefront API endpoints.
// These routes are unauthenticated; the business is resolved by slug.
type StorefrontHandler struct {
	BaseHandler
	businessService   *businessapp.BusinessService
	storefrontService *businessapp.StorefrontService
}

// NewStorefrontHandler creates a new StorefrontHandler
func NewStorefrontHandler(businessService *businessapp.BusinessService, storefrontService *businessapp.StorefrontService) *StorefrontHandler {
	return &StorefrontHandler{
		businessService:   businessService,
		storefrontService: storefrontService,
	}
}

// Catalog godoc
// @Summary      Browse a business storefront catalog
// @Tags         storefront
// @Produce      json
// @Param        slug path string true "Storefront slug"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=businessapp.StorefrontCatalogResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /storefront/{slug} [get]
func (h *StorefrontHandler) Catalog(c *gin.Context) {
	biz, err := h.businessService.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	catalog, err := h.storefrontService.Catalog(c.Request.Context(), biz.ID, page, pageSize)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, catalog)
}

// PlaceOrder godoc
// @Summary      Place a storefront order
// @Description  Creates an unpaid sale transaction for the business from the submitted order lines.
// @Tags         storefront
// @Accept       json
// @Produce      json
// @Param        slug path string true "Storefront slug"
// @Param        request body businessapp.PlaceOrderRequest true "Order details"
// @Success      201 {object} dto.Response{data=businessapp.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /storefront/{slug}/orders [post]
func (h *StorefrontHandler) PlaceOrder(c *gin.Context) {
	biz, err := h.businessService.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	var req businessapp.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	order, err := h.storefrontService.PlaceOrder(c.Request.Context(), biz.ID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, order)
}
