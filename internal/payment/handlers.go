package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler provides the HTTP surface for the gateway callback.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a payment handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// VerifyPayment handles the gateway settlement callback. Authentication is
// the signature itself, not a session token. The verification-failed
// response is deliberately generic: it does not reveal whether the order
// reference was valid.
func (h *Handler) VerifyPayment(c *gin.Context) {
	var req SettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "orderReference, paymentReference and signature are required",
		})
		return
	}

	result, err := h.service.Settle(c.Request.Context(), &req)
	switch result {
	case ResultSettled, ResultAlreadySettled:
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Payment verified successfully",
		})
	case ResultVerificationFailed:
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Payment verification failed",
		})
	case ResultOrderNotFound:
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Order not found",
		})
	default:
		// Full detail goes to operator logs only.
		h.logger.Error("settlement failed",
			zap.String("order_reference", req.OrderReference),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Internal server error",
		})
	}
}
