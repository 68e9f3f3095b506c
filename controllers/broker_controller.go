package controllers

import (
	"net/http"
	"os"
	"strings"
	"time"

	"corredorflow/models"
	"corredorflow/utils"

	"github.com/gin-gonic/gin"
)

type BrokerController struct{}

func NewBrokerController() *BrokerController {
	return &BrokerController{}
}

func (bc *BrokerController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request"})
		return
	}

	db := utils.GetDB()
	var count int64
	db.Model(&models.Broker{}).Where("email = ?", strings.ToLower(req.Email)).Count(&count)
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "broker already exists"})
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	broker := models.Broker{
		Email:    strings.ToLower(req.Email),
		Password: hash,
		Name:     req.Name,
		Country:  strings.ToUpper(req.Country),
		Active:   true,
	}
	if req.Phone != "" {
		broker.Phone = &req.Phone
	}
	if err := db.Create(&broker).Error; err != nil {
		respondError(c, utils.NewPersistenceError("failed to create broker", err))
		return
	}

	token, err := utils.GenerateJWT(broker.ID, os.Getenv("JWT_SECRET"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"token": token, "broker": broker}})
}

func (bc *BrokerController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request"})
		return
	}

	db := utils.GetDB()
	var broker models.Broker
	if err := db.Where("email = ? AND active = ?", strings.ToLower(req.Email), true).First(&broker).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid credentials"})
		return
	}
	if !utils.CheckPasswordHash(req.Password, broker.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid credentials"})
		return
	}

	token, err := utils.GenerateJWT(broker.ID, os.Getenv("JWT_SECRET"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"token": token, "broker": broker}})
}

// Logout blacklists the presented token until its natural expiry.
func (bc *BrokerController) Logout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token != "" {
		if rdb := utils.GetRedis(); rdb != nil {
			rdb.Set(utils.RedisCtx(), "blacklist:"+token, 1, 72*time.Hour)
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (bc *BrokerController) Me(c *gin.Context) {
	var broker models.Broker
	if err := utils.GetDB().First(&broker, brokerID(c)).Error; err != nil {
		respondError(c, utils.NewNotFoundError("broker not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": broker})
}

// UpdatePaymentSettings stores the broker's payment provider configuration:
// Yappy merchant credentials and/or the Mercado Pago collector id.
func (bc *BrokerController) UpdatePaymentSettings(c *gin.Context) {
	var req models.PaymentSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request"})
		return
	}

	db := utils.GetDB()
	var broker models.Broker
	if err := db.First(&broker, brokerID(c)).Error; err != nil {
		respondError(c, utils.NewNotFoundError("broker not found"))
		return
	}

	updates := map[string]interface{}{}
	if req.YappyMerchantID != nil {
		updates["yappy_merchant_id"] = *req.YappyMerchantID
	}
	if req.YappySecretKey != nil {
		updates["yappy_secret_key"] = *req.YappySecretKey
	}
	if req.MPCollectorID != nil {
		updates["mp_collector_id"] = *req.MPCollectorID
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "nothing to update"})
		return
	}

	if err := db.Model(&broker).Updates(updates).Error; err != nil {
		respondError(c, utils.NewPersistenceError("failed to update payment settings", err))
		return
	}

	db.First(&broker, broker.ID)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": broker})
}
