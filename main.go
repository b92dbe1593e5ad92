package main

import (
	"log"
	"net/http"

	"grocery-order-service/address"
	"grocery-order-service/cart"
	"grocery-order-service/config"
	"grocery-order-service/consumers"
	"grocery-order-service/controllers"
	"grocery-order-service/database"
	"grocery-order-service/middlewares"
	"grocery-order-service/rabbitmq"
	"grocery-order-service/store"
	"grocery-order-service/vnpay"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.LoadConfig()

	// An unsigned payment URL is worse than no service at all.
	payClient, err := vnpay.NewClient(cfg)
	if err != nil {
		log.Fatalf("VNPay configuration invalid: %v", err)
	}

	if err := database.InitDB(cfg); err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}
	defer database.CloseDB()

	ledger := store.NewOrderStore(database.DB)

	cartStore, err := cart.NewStore(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Redis initialization failed: %v", err)
	}

	addressStore, err := address.NewStore(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Redis initialization failed: %v", err)
	}

	rmq, err := rabbitmq.NewRabbitMQ(cfg)
	if err != nil {
		log.Fatalf("RabbitMQ initialization failed: %v", err)
	}
	defer rmq.Close()

	if err := rmq.SetupQueues(); err != nil {
		log.Fatalf("Failed to setup RabbitMQ queues: %v", err)
	}

	consumers.StartOrderConsumer(rmq.Channel, cfg, ledger)

	controllers.SetLedger(ledger)
	controllers.SetCartStore(cartStore)
	controllers.SetAddressStore(addressStore)
	controllers.SetPaymentClient(payClient)
	controllers.SetRabbitMQ(rmq)
	controllers.SetFrontendURL(cfg.FrontendURL)

	r := gin.Default()

	r.Use(middlewares.PrometheusMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	orderGroup := r.Group("/api/order")
	orderGroup.Use(middlewares.AuthMiddleware())
	{
		orderGroup.POST("/create", controllers.CreateOrder)
		orderGroup.GET("/my-orders", controllers.GetUserOrders)
		orderGroup.GET("/detail/:orderId", controllers.GetOrderDetail)
		orderGroup.PUT("/cancel", controllers.CancelOrder)
	}

	paymentGroup := r.Group("/api/payment")
	{
		// The provider redirects the shopper's browser here; no auth.
		paymentGroup.GET("/vnpay-return", controllers.VNPayReturn)

		authed := paymentGroup.Group("")
		authed.Use(middlewares.AuthMiddleware())
		authed.POST("/create-payment", controllers.CreatePaymentURL)
		authed.GET("/check-status/:orderId", controllers.CheckPaymentStatus)
	}

	addr := ":" + cfg.ServerPort
	log.Printf("Order service starting on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
