package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"order-management-service/internal/models"
	"order-management-service/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateOrderRequest is the body of POST /orders
type CreateOrderRequest struct {
	Email string                `json:"email" binding:"required,email"`
	Items []service.LineRequest `json:"items" binding:"required,min=1"`
}

// UpdateOrderRequest is the body of PUT /orders/:id
type UpdateOrderRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) createOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), callerFrom(c), req.Email, req.Items)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) listOrders(c *gin.Context) {
	page, size, ok := pageParams(c)
	if !ok {
		return
	}

	filter, err := orderFilter(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.orders.ListOrders(c.Request.Context(), callerFrom(c), page, size, filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) updateOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	order, err := h.orders.UpdateOrder(c.Request.Context(), callerFrom(c), id, req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) deleteOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.orders.DeleteOrder(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// orderFilter reads ids and statuses, each given as repeated parameters,
// comma separated values, or both
func orderFilter(c *gin.Context) (models.OrderFilter, error) {
	var filter models.OrderFilter

	for _, raw := range queryList(c, "ids") {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid order id %q: %w", raw, models.ErrInvalidArgument)
		}
		filter.IDs = append(filter.IDs, id)
	}

	for _, raw := range queryList(c, "statuses") {
		status, ok := models.ParseOrderStatus(raw)
		if !ok {
			return filter, fmt.Errorf("unknown order status %q: %w", raw, models.ErrInvalidArgument)
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	return filter, nil
}

func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// pageParams reads page and size. Range clamping is left to the services.
func pageParams(c *gin.Context) (int, int, bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid page")
		return 0, 0, false
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "0"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid size")
		return 0, 0, false
	}
	return page, size, true
}
