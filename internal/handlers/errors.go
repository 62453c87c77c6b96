package handlers

import (
	"errors"
	"net/http"

	"mechanical_shop/internal/cartsession"
	"mechanical_shop/internal/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

var badRequest = []error{
	services.ErrEmptyOrder,
	services.ErrInvalidQuantity,
	services.ErrShippingAddressRequired,
	services.ErrInvalidPaymentMethod,
	services.ErrProductNotFound,
	services.ErrInsufficientStock,
	services.ErrOrderNotCancellable,
	services.ErrInvalidStatusTransition,
	services.ErrPaymentProofNotAllowed,
	services.ErrAddressLimitReached,
	services.ErrAlreadyPaid,
	services.ErrOrderNotPayable,
	services.ErrNoTransaction,
	services.ErrEmptyMessage,
	services.ErrEmailTaken,
	services.ErrInvalidInput,
	services.ErrInvalidOAuthState,
	cartsession.ErrInvalidQuantity,
	cartsession.ErrMissingDevice,
}

var notFound = []error{
	services.ErrOrderNotFound,
	services.ErrAddressNotFound,
	services.ErrCartItemNotFound,
	services.ErrUserNotFound,
	cartsession.ErrProductUnavailable,
	cartsession.ErrOwnerMismatch,
}

var unauthorized = []error{
	services.ErrInvalidCredentials,
	services.ErrInvalidSignature,
}

var upstream = []error{
	services.ErrPaymentGateway,
	services.ErrAssistantUnavailable,
}

func matches(err error, targets []error) bool {
	return matched(err, targets) != nil
}

func matched(err error, targets []error) error {
	for _, target := range targets {
		if errors.Is(err, target) {
			return target
		}
	}
	return nil
}

// respondError maps service errors to status codes. Anything unrecognised is
// logged and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	switch {
	case matches(err, badRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case matches(err, notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case matches(err, unauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case matches(err, upstream):
		log.WithError(err).WithField("path", c.FullPath()).Warn("Upstream dependency failed")
		// upstream detail stays in the log
		c.JSON(http.StatusBadGateway, gin.H{"error": matched(err, upstream).Error()})
	default:
		log.WithError(err).WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
}
