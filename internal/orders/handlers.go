package orders

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/guestlink/guestlink/internal/identities"
	"github.com/guestlink/guestlink/pkg/models"
)

// Handler provides HTTP handlers for order operations.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates an orders handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Checkout handles POST /orders/checkout.
func (h *Handler) Checkout(c *gin.Context) {
	userID, err := uuid.Parse(c.GetString(identities.ContextUserID))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
		return
	}

	order, err := h.service.Checkout(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrEmptyCart) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Cart is empty"})
			return
		}
		h.logger.Error("checkout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Checkout failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "order": order})
}

// List handles GET /orders for the authenticated user.
func (h *Handler) List(c *gin.Context) {
	userID, err := uuid.Parse(c.GetString(identities.ContextUserID))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
		return
	}

	orders, err := h.service.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("order listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders})
}

// Get handles GET /orders/:reference. Buyers can only read their own
// orders; admins can read any.
func (h *Handler) Get(c *gin.Context) {
	order, err := h.service.GetByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
			return
		}
		h.logger.Error("order fetch failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch order"})
		return
	}

	if c.GetString(identities.ContextRole) != models.RoleAdmin &&
		order.UserID.String() != c.GetString(identities.ContextUserID) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// UpdateStatus handles PUT /orders/:reference/status (admin only).
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Status is required"})
		return
	}

	order, err := h.service.UpdateStatus(c.Request.Context(), c.Param("reference"), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
		case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidTransition):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "message": "Status change not allowed"})
		default:
			h.logger.Error("status update failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update order"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}
