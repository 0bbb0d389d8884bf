package marketplace

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Handler provides HTTP handlers for the marketplace catalog.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a marketplace handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Create handles POST /marketplace/websites.
func (h *Handler) Create(c *gin.Context) {
	var req CreateWebsiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "domain, title and price are required"})
		return
	}

	website, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrDomainTaken) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Website already exists"})
			return
		}
		h.logger.Error("website creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create website"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "website": website})
}

// List handles GET /marketplace/websites with optional filters.
func (h *Handler) List(c *gin.Context) {
	filter := &ListFilter{
		Category: c.Query("category"),
		Country:  c.Query("country"),
		Keyword:  c.Query("keyword"),
	}
	if raw := c.Query("minPrice"); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "minPrice must be a number"})
			return
		}
		filter.MinPrice = &price
	}
	if raw := c.Query("maxPrice"); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "maxPrice must be a number"})
			return
		}
		filter.MaxPrice = &price
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch websites"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "websites": result.Websites, "suggestions": result.Suggestions})
}

// Get handles GET /marketplace/websites/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid website id"})
		return
	}

	website, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrWebsiteNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Website not found"})
			return
		}
		h.logger.Error("website fetch failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch website"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "website": website})
}
