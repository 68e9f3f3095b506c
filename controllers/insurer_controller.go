package controllers

import (
	"net/http"
	"strconv"

	"corredorflow/models"
	"corredorflow/services"
	"corredorflow/utils"

	"github.com/gin-gonic/gin"
)

type InsurerController struct {
	service      *services.InsurerService
	quoteService *services.QuoteService
}

func NewInsurerController(service *services.InsurerService, quoteService *services.QuoteService) *InsurerController {
	return &InsurerController{service: service, quoteService: quoteService}
}

// ListProviders returns the provider catalog, optionally filtered by
// category and country.
func (ic *InsurerController) ListProviders(c *gin.Context) {
	db := utils.GetDB()
	query := db.Model(&models.Provider{})

	var providers []models.Provider
	if err := query.Order("name ASC").Find(&providers).Error; err != nil {
		respondError(c, err)
		return
	}

	category := c.Query("category")
	country := c.Query("country")
	filtered := providers[:0]
	for _, p := range providers {
		if category != "" && !p.SupportsCategory(category) {
			continue
		}
		if country != "" && !p.AvailableIn(country) {
			continue
		}
		filtered = append(filtered, p)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": filtered})
}

// TestConnection runs a rate-limited connectivity check without persisting
// anything.
func (ic *InsurerController) TestConnection(c *gin.Context) {
	var req models.TestConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request"})
		return
	}

	id := brokerID(c)
	if rdb := utils.GetRedis(); rdb != nil {
		if ok, msg := utils.CanTestConnection(rdb, id); !ok {
			c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "error": msg})
			return
		}
		utils.MarkConnectionTest(rdb, id)
	}

	result, err := ic.service.TestProvider(c.Request.Context(), id, req.ProviderID, req.Credentials)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// Connect tests the credentials and stores the connection on success.
func (ic *InsurerController) Connect(c *gin.Context) {
	var req models.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request"})
		return
	}

	var broker models.Broker
	if err := utils.GetDB().First(&broker, brokerID(c)).Error; err != nil {
		respondError(c, utils.NewNotFoundError("broker not found"))
		return
	}

	conn, err := ic.service.Connect(c.Request.Context(), &broker, req.ProviderID, req.Credentials)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": conn})
}

func (ic *InsurerController) ListConnections(c *gin.Context) {
	conns, err := ic.service.ListConnections(brokerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": conns})
}

func (ic *InsurerController) Disconnect(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid connection id"})
		return
	}
	if err := ic.service.Disconnect(brokerID(c), uint(id)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Quote runs a single-connection quote and reports the measured latency.
func (ic *InsurerController) Quote(c *gin.Context) {
	var req models.SingleQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request"})
		return
	}

	result, latency, err := ic.quoteService.QuoteConnection(c.Request.Context(), brokerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"quote": result, "latency_ms": latency}})
}
