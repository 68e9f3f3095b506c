package controllers

import (
	"net/http"
	"strconv"

	"corredorflow/models"
	"corredorflow/services"
	"corredorflow/utils"

	"github.com/gin-gonic/gin"
)

type QuoteController struct {
	service *services.QuoteService
}

func NewQuoteController(service *services.QuoteService) *QuoteController {
	return &QuoteController{service: service}
}

// Aggregate quotes every capable connection concurrently. Partial failures
// come back in the same response; the request only errors as a whole when the
// input itself is invalid.
func (qc *QuoteController) Aggregate(c *gin.Context) {
	var req models.AggregateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request"})
		return
	}

	result, err := qc.service.AggregateQuotes(c.Request.Context(), brokerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

func (qc *QuoteController) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid quote id"})
		return
	}

	db := utils.GetDB()
	var quote models.Quote
	if err := db.Preload("Results").Where("id = ? AND broker_id = ?", id, brokerID(c)).First(&quote).Error; err != nil {
		respondError(c, utils.NewNotFoundError("quote not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": quote})
}

func (qc *QuoteController) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	db := utils.GetDB()
	query := db.Model(&models.Quote{}).Where("broker_id = ?", brokerID(c))
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var total int64
	query.Count(&total)

	var quotes []models.Quote
	if err := query.Preload("Results").Order("created_at DESC").Limit(limit).Offset(offset).Find(&quotes).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": quotes, "total": total})
}
