package main

import (
	"context" // context package is needed for Redis operations
	"log"     // log package is needed for logging

	"cashout_system/internal/api"          // Custom package for API handlers
	"cashout_system/internal/config"       // Custom package for configuration
	"cashout_system/internal/distribution" // Distribution engine
	"cashout_system/internal/ledger"       // Balance and treasury ledgers
	"cashout_system/internal/metrics"      // Metrics aggregator
	"cashout_system/internal/middleware"   // Custom package for middleware
	"cashout_system/internal/policy"       // Rate policy service
	"cashout_system/internal/settlement"   // Settlement engine and reversal service

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Wire the core components; the ledgers are the only balance mutators
	balances := ledger.NewBalanceLedger(db)                                       // Customer balances
	treasury := ledger.NewTreasuryLedger(db)                                      // Treasury pools
	policies := policy.NewService(db, nil)                                        // Rate policy validation
	engine := settlement.NewEngine(db, balances, policies, nil)                   // Cashout settlement
	reversals := settlement.NewReversalService(db, balances, nil)                 // Cashout reversal
	transport := distribution.NewHTTPTransport(cfg.TransportURL, cfg.TransportTimeout) // External ledger rail
	distributor := distribution.NewEngine(db, treasury, transport, nil)           // Treasury payouts
	aggregator := metrics.NewAggregator(db, nil)                                  // Read-side rollups

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Auth routes
	r.POST("/auth/login", api.LoginHandler(db, cfg.JWTSecret)) // Login endpoint

	// Staff routes (protected by JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	auth.GET("/exchange-rate", api.GetExchangeRateHandler(policies, redisClient))        // Active rate policy
	auth.POST("/cashout", api.CashoutHandler(engine, balances, redisClient))             // Process a cashout
	auth.GET("/cashout/venues/:id/history", api.VenueHistoryHandler(engine, redisClient)) // Venue history
	auth.GET("/customers/:id/balance", api.GetBalanceHandler(balances))                  // Customer balance
	auth.POST("/collections", api.CreateCollectionHandler(db))                           // Record machine cash
	auth.GET("/metrics/trends", api.TrendsHandler(aggregator))                           // Revenue trend series
	auth.GET("/treasury/distributions", api.DistributionHistoryHandler(distributor))     // Distribution history
	auth.GET("/treasury/distributions/stats", api.DistributionStatsHandler(aggregator, redisClient)) // Period stats

	// Admin routes (protected, admin only)
	admin := r.Group("/")
	admin.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware(db))
	admin.POST("/auth/staff", api.CreateStaffHandler(db))                                   // Create staff logins
	admin.PUT("/exchange-rate", api.UpdateExchangeRateHandler(policies, redisClient))       // Update the rate policy
	admin.POST("/cashout/:id/reverse", api.ReverseHandler(reversals, redisClient))          // Reverse a cashout
	admin.POST("/customers/:id/credit", api.AdminCreditHandler(db, balances))               // Administrative grant
	admin.POST("/treasury/distribute", api.DistributeHandler(distributor, redisClient))     // Treasury payout
	admin.GET("/treasury/accounts", api.ListTreasuryAccountsHandler(treasury))              // Treasury pools
	admin.POST("/treasury/accounts/:type/topup", api.TopupHandler(db, treasury))            // Treasury top-up
	admin.POST("/treasury/distributions/:id/reconcile", api.ReconcileHandler(distributor))  // Resolve a failed payout

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
