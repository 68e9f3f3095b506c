package controllers

import (
	"net/http"
	"strconv"

	"corredorflow/config"
	"corredorflow/models"
	"corredorflow/services"

	"github.com/gin-gonic/gin"
)

type PaymentController struct {
	service *services.PaymentService
	cfg     *config.Config
}

func NewPaymentController(service *services.PaymentService, cfg *config.Config) *PaymentController {
	return &PaymentController{service: service, cfg: cfg}
}

// Create issues a payable link for a chosen quote result; the provider is
// picked from the broker's configuration, never by the caller.
func (pc *PaymentController) Create(c *gin.Context) {
	var req models.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request"})
		return
	}

	result, err := pc.service.CreatePayment(c.Request.Context(), brokerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

func (pc *PaymentController) Get(c *gin.Context) {
	payment, err := pc.service.GetPayment(c.Request.Context(), brokerID(c), c.Param("order_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": payment})
}

func (pc *PaymentController) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	payments, total, err := pc.service.ListPayments(brokerID(c), c.Query("status"), c.Query("provider"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": payments, "total": total})
}

// YappyCallback is the browser return URL after a Yappy checkout. It only
// redirects; the payment state is driven by the signed webhook.
func (pc *PaymentController) YappyCallback(c *gin.Context) {
	pc.redirectToFrontend(c)
}

// MercadoPagoCallback is the browser return URL after a Mercado Pago
// checkout.
func (pc *PaymentController) MercadoPagoCallback(c *gin.Context) {
	pc.redirectToFrontend(c)
}

func (pc *PaymentController) redirectToFrontend(c *gin.Context) {
	orderID := c.Query("order_id")
	result := c.Query("result")
	if result != "success" && result != "cancel" {
		result = "pending"
	}
	c.Redirect(http.StatusFound, pc.cfg.FrontendBaseURL+"/payments/"+orderID+"?result="+result)
}
