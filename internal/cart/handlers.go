package cart

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/guestlink/guestlink/internal/identities"
)

// Handler provides HTTP handlers for cart operations. All routes require
// authentication; the user is taken from the request context.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a cart handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func requestUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.GetString(identities.ContextUserID))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
		return uuid.Nil, false
	}
	return userID, true
}

// Get handles GET /cart.
func (h *Handler) Get(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	cart, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("cart fetch failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "cart": cart})
}

// Add handles POST /cart/items.
func (h *Handler) Add(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	var req struct {
		WebsiteID uuid.UUID `json:"websiteId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "websiteId is required"})
		return
	}

	cart, err := h.service.Add(c.Request.Context(), userID, req.WebsiteID)
	if err != nil {
		switch {
		case errors.Is(err, ErrWebsiteNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Website not found"})
		case errors.Is(err, ErrAlreadyInCart):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Website already in cart"})
		default:
			h.logger.Error("cart add failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to add to cart"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Website added to cart", "cart": cart})
}

// Remove handles DELETE /cart/items/:websiteId.
func (h *Handler) Remove(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	websiteID, err := uuid.Parse(c.Param("websiteId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid website id"})
		return
	}

	cart, err := h.service.Remove(c.Request.Context(), userID, websiteID)
	if err != nil {
		if errors.Is(err, ErrNotInCart) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Website not in cart"})
			return
		}
		h.logger.Error("cart remove failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to remove from cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Website removed from cart", "cart": cart})
}
