package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	inventoryapp "github.com/tallybook/backend/internal/application/inventory"
)

// ItemHandler handles inventory item API endpoints
type ItemHandler struct {
	BaseHandler
	itemService *inventoryapp.ItemService
}

// NewItemHandler creates a new ItemHandler
func NewItemHandler(itemService *inventoryapp.ItemService) *ItemHandler {
	return &ItemHandler{
		itemService: itemService,
	}
}

// Create godoc
// @Summary      Create an inventory item
// @Description  Products track a counted quantity; services never do.
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.CreateItemRequest true "Item to create"
// @Success      201 {object} dto.Response{data=inventoryapp.ItemResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /inventory/items [post]
func (h *ItemHandler) Create(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	var req inventoryapp.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	item, err := h.itemService.Create(c.Request.Context(), businessID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, item)
}

// GetByID godoc
// @Summary      Get item by ID
// @Tags         items
// @Produce      json
// @Param        id path string true "Item ID" format(uuid)
// @Success      200 {object} dto.Response{data=inventoryapp.ItemResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /inventory/items/{id} [get]
func (h *ItemHandler) GetByID(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	item, err := h.itemService.GetByID(c.Request.Context(), businessID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, item)
}

// List godoc
// @Summary      List inventory items
// @Tags         items
// @Produce      json
// @Param        type query string false "Item type" Enums(product, service)
// @Param        level query string false "Stock level" Enums(in_stock, low_stock, out_of_stock)
// @Param        search query string false "Search term (name)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]inventoryapp.ItemResponse,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /inventory/items [get]
func (h *ItemHandler) List(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	var filter inventoryapp.ItemListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	items, total, err := h.itemService.List(c.Request.Context(), businessID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// Update godoc
// @Summary      Update an item
// @Description  Updates name and pricing. Stock is changed through the adjust-stock endpoint, not here.
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        id path string true "Item ID" format(uuid)
// @Param        request body inventoryapp.UpdateItemRequest true "New item contents"
// @Success      200 {object} dto.Response{data=inventoryapp.ItemResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /inventory/items/{id} [put]
func (h *ItemHandler) Update(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	var req inventoryapp.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	item, err := h.itemService.Update(c.Request.Context(), businessID, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, item)
}

// Delete godoc
// @Summary      Delete an item
// @Description  Past transactions keep their line item snapshots, so deleting an item never alters the books.
// @Tags         items
// @Produce      json
// @Param        id path string true "Item ID" format(uuid)
// @Success      204 "No Content"
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /inventory/items/{id} [delete]
func (h *ItemHandler) Delete(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	if err := h.itemService.Delete(c.Request.Context(), businessID, id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// AdjustStock godoc
// @Summary      Set the counted stock of a product
// @Description  Sets the absolute on-hand quantity after a physical count.
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        id path string true "Item ID" format(uuid)
// @Param        request body inventoryapp.AdjustStockRequest true "Counted quantity"
// @Success      200 {object} dto.Response{data=inventoryapp.ItemResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /inventory/items/{id}/stock [put]
func (h *ItemHandler) AdjustStock(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	var req inventoryapp.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	item, err := h.itemService.AdjustStock(c.Request.Context(), businessID, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, item)
}

// LowStock godoc
// @Summary      List products that are low on stock
// @Tags         items
// @Produce      json
// @Success      200 {object} dto.Response{data=[]inventoryapp.ItemResponse}
// @Security     BearerAuth
// @Router       /inventory/items/low-stock [get]
func (h *ItemHandler) LowStock(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Business identity required")
		return
	}

	items, err := h.itemService.LowStock(c.Request.Context(), businessID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, items)
}
