package controllers

import (
	"net/http"
	"strconv"

	"corredorflow/models"
	"corredorflow/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ConversationController struct{}

func NewConversationController() *ConversationController {
	return &ConversationController{}
}

func (cc *ConversationController) Create(c *gin.Context) {
	var req models.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request"})
		return
	}

	conv := models.Conversation{
		UUID:          uuid.NewString(),
		BrokerID:      brokerID(c),
		CustomerPhone: req.CustomerPhone,
		CustomerName:  req.CustomerName,
		Status:        models.ConversationActive,
	}
	if err := utils.GetDB().Create(&conv).Error; err != nil {
		respondError(c, utils.NewPersistenceError("failed to create conversation", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": conv})
}

func (cc *ConversationController) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := utils.GetDB().Model(&models.Conversation{}).Where("broker_id = ?", brokerID(c))
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var convs []models.Conversation
	if err := query.Order("updated_at DESC").Limit(limit).Offset(offset).Find(&convs).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": convs, "total": total})
}

func (cc *ConversationController) Get(c *gin.Context) {
	var conv models.Conversation
	if err := utils.GetDB().Where("uuid = ? AND broker_id = ?", c.Param("uuid"), brokerID(c)).First(&conv).Error; err != nil {
		respondError(c, utils.NewNotFoundError("conversation not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": conv})
}

// Takeover flips a session to human handling so automated quoting pauses.
func (cc *ConversationController) Takeover(c *gin.Context) {
	res := utils.GetDB().Model(&models.Conversation{}).
		Where("uuid = ? AND broker_id = ? AND status IN ?", c.Param("uuid"), brokerID(c),
			[]string{models.ConversationActive, models.ConversationWaitingPayment}).
		Update("status", models.ConversationHumanTakeover)
	if res.Error != nil {
		respondError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		respondError(c, utils.NewNotFoundError("conversation not found or already closed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
