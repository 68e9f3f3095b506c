package controllers

import (
	"io"
	"net/http"

	"corredorflow/services"
	"corredorflow/utils"

	"github.com/gin-gonic/gin"
)

// WebhookController terminates provider callbacks. Responses follow the
// provider contract: 403 for bad signatures, 400 for malformed payloads, and
// 200 for everything else so providers stop redelivering once we have
// processed (or safely ignored) an event.
type WebhookController struct {
	service *services.WebhookService
}

func NewWebhookController(service *services.WebhookService) *WebhookController {
	return &WebhookController{service: service}
}

func (wc *WebhookController) Yappy(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unreadable body"})
		return
	}

	err = wc.service.HandleYappy(c.Request.Context(), body, c.GetHeader("X-Yappy-Signature"))
	wc.respond(c, err)
}

func (wc *WebhookController) MercadoPago(c *gin.Context) {
	// ignore non-payment topics (merchant_order etc.)
	if topic := c.Query("type"); topic != "" && topic != "payment" {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	dataID := c.Query("data.id")
	if dataID == "" {
		dataID = c.Query("id")
	}

	err := wc.service.HandleMercadoPago(c.Request.Context(), c.GetHeader("x-signature"), c.GetHeader("x-request-id"), dataID)
	wc.respond(c, err)
}

func (wc *WebhookController) respond(c *gin.Context, err error) {
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	switch utils.ErrorKindOf(err) {
	case utils.KindAuth, utils.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "invalid signature"})
	case utils.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case utils.KindNotFound:
		// acked so the provider stops retrying an order we will never know
		utils.LogError(err, "Webhook for unknown order")
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
	default:
		// transient (db/upstream); a retry may succeed
		utils.LogError(err, "Webhook processing")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "processing failed"})
	}
}
