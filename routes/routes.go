package routes

import (
	"corredorflow/config"
	"corredorflow/controllers"
	"corredorflow/insurers"
	"corredorflow/middleware"
	"corredorflow/services"
	"corredorflow/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter creates the gin.Engine, wires services and controllers, and
// registers every route.
func SetupRouter(cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.RecoveryMiddleware())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", cfg.FrontendBaseURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	db := utils.GetDB()
	registry := insurers.DefaultRegistry()

	yappy := services.NewYappyClient(cfg.YappyBaseURL)
	mercadopago := services.NewMercadoPagoClient(cfg.MPAccessToken, cfg.MPWebhookSecret)
	notifier := utils.NewWhatsAppClient(cfg.WhatsAppBaseURL, cfg.WhatsAppToken, cfg.WhatsAppPhoneID)

	insurerService := services.NewInsurerService(db, registry)
	quoteService := services.NewQuoteService(db, registry)
	paymentService := services.NewPaymentService(db, cfg, yappy, mercadopago)
	webhookService := services.NewWebhookService(db, cfg, notifier, yappy, mercadopago)

	brokerController := controllers.NewBrokerController()
	insurerController := controllers.NewInsurerController(insurerService, quoteService)
	quoteController := controllers.NewQuoteController(quoteService)
	paymentController := controllers.NewPaymentController(paymentService, cfg)
	webhookController := controllers.NewWebhookController(webhookService)
	conversationController := controllers.NewConversationController()

	r.POST("/auth/register", brokerController.Register)
	r.POST("/auth/login", brokerController.Login)

	// provider callbacks stay public; they authenticate by signature
	r.POST("/webhooks/yappy", webhookController.Yappy)
	r.POST("/webhooks/mercadopago", webhookController.MercadoPago)
	r.GET("/payments/yappy-callback", paymentController.YappyCallback)
	r.GET("/payments/mercadopago-callback", paymentController.MercadoPagoCallback)

	auth := r.Group("/", middleware.JWTAuthMiddleware())
	{
		auth.POST("/auth/logout", brokerController.Logout)
		auth.GET("/broker/me", brokerController.Me)
		auth.PUT("/broker/payment-settings", brokerController.UpdatePaymentSettings)

		auth.GET("/insurers/providers", insurerController.ListProviders)
		auth.POST("/insurers/test", insurerController.TestConnection)
		auth.POST("/insurers/connect", insurerController.Connect)
		auth.GET("/insurers/connections", insurerController.ListConnections)
		auth.DELETE("/insurers/connections/:id", insurerController.Disconnect)
		auth.POST("/insurers/quote", insurerController.Quote)

		auth.POST("/quotes", quoteController.Aggregate)
		auth.GET("/quotes", quoteController.List)
		auth.GET("/quotes/:id", quoteController.Get)

		auth.POST("/payments/create", paymentController.Create)
		auth.GET("/payments", paymentController.List)
		auth.GET("/payments/:order_id", paymentController.Get)

		auth.POST("/conversations", conversationController.Create)
		auth.GET("/conversations", conversationController.List)
		auth.GET("/conversations/:uuid", conversationController.Get)
		auth.POST("/conversations/:uuid/takeover", conversationController.Takeover)
	}

	return r
}
