package main

import (
	"net/http"

	"github.com/TNZtims/bazaar-pos-sub000/internal/handler"
	mid "github.com/TNZtims/bazaar-pos-sub000/internal/middleware"
	"github.com/TNZtims/bazaar-pos-sub000/internal/order"
	"github.com/TNZtims/bazaar-pos-sub000/internal/realtime"
	"github.com/TNZtims/bazaar-pos-sub000/internal/stock"
	"github.com/TNZtims/bazaar-pos-sub000/pkg/config"
	"github.com/TNZtims/bazaar-pos-sub000/pkg/database"
	"github.com/TNZtims/bazaar-pos-sub000/pkg/jwtutil"
	"github.com/TNZtims/bazaar-pos-sub000/pkg/logger"
	"github.com/TNZtims/bazaar-pos-sub000/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration (reads .env if present)
	appConfig, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.InitLogger(appConfig)
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting bazaar-pos",
		zap.String("environment", appConfig.Server.Env),
		zap.String("port", appConfig.Server.Port))

	// Initialize JWT utility
	jwtutil.Initialize(&appConfig.JWT)
	log.Info("JWT utility initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Initialize database
	if err := database.InitDB(appConfig); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Connect the realtime inventory broadcaster
	var broadcaster realtime.Broadcaster = realtime.NopBroadcaster{}
	if appConfig.Redis.Enabled {
		redisBroadcaster, err := realtime.NewRedisBroadcaster(&appConfig.Redis)
		if err != nil {
			log.Warn("Redis unavailable, inventory broadcast disabled", zap.Error(err))
		} else {
			defer redisBroadcaster.Close()
			broadcaster = redisBroadcaster
			log.Info("Realtime broadcaster connected", zap.String("addr", appConfig.Redis.Addr))
		}
	}

	// Wire the stock ledger and order lifecycle controller
	db := database.GetDB()
	ledger := stock.NewLedger(stock.NewGormStore(db), broadcaster, log)
	orders := order.NewController(order.NewGormSales(db), ledger, log, appConfig.Orders.DeleteWindow)
	handler.Init(ledger, orders)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(mid.RequestIDMiddleware)
	e.Use(mid.MetricsMiddleware)

	// Ops endpoints
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Authentication
	e.POST("/auth/login", handler.Login)
	e.POST("/auth/customer/login", handler.CustomerLogin)

	// Admin API, store context required
	api := e.Group("/api", mid.AuthMiddleware)
	api.GET("/products", handler.ListProducts)
	api.POST("/products", handler.CreateProduct)
	api.POST("/products/reserve", handler.ReserveProduct)
	api.GET("/products/:id", handler.GetProduct)
	api.PUT("/products/:id", handler.UpdateProduct)
	api.DELETE("/products/:id", handler.DeleteProduct)
	api.POST("/products/:id/adjust", handler.AdjustProduct)

	api.GET("/sales", handler.ListSales)
	api.POST("/sales", handler.CreateSale)
	api.GET("/sales/:id", handler.GetSale)
	api.PUT("/sales/:id", handler.UpdateSale)
	api.DELETE("/sales/:id", handler.DeleteSale)

	api.GET("/store", handler.GetStore)
	api.PUT("/store", handler.UpdateStore)

	api.GET("/users", handler.ListUsers)
	api.POST("/users", handler.CreateUser)
	api.PUT("/users/:id", handler.UpdateUser)
	api.DELETE("/users/:id", handler.DeleteUser)

	// Public shop
	e.GET("/shop/:storeId/products", handler.ListShopProducts)
	e.POST("/shop/release-beacon", handler.BeaconRelease)
	shop := e.Group("/shop", mid.CustomerAuthMiddleware)
	shop.POST("/reserve", handler.ShopReserve)
	shop.POST("/orders", handler.CreateShopOrder)

	// Start server
	log.Info("Server starting", zap.String("port", appConfig.Server.Port))
	if err := e.Start(":" + appConfig.Server.Port); err != nil && err != http.ErrServerClosed {
		log.Fatal("Server failed to start", zap.Error(err))
	}
}
