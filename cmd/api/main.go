package main

import (
	_ "backend/api/swagger" // swagger docs
	"backend/internal/database"
	"backend/internal/handler"
	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/storage"
	"backend/internal/websocket"
	"backend/pkg/logger"
	"log"
	"os"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Departure Tracking API
// @version         1.0
// @description     Bulk-cargo departure tracking: activity lifecycle, shift-gated departure submission and verification.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	zapLogger, err := logger.New(os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL"))
	if err != nil {
		log.Fatalf("Logger setup failed: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		zapLogger.Fatal("Database connection failed", zap.Error(err))
	}
	zapLogger.Info("Connected to PostgreSQL")

	evidenceRoot := os.Getenv("EVIDENCE_DIR")
	if evidenceRoot == "" {
		evidenceRoot = "data/evidence"
	}
	maxEvidenceSize := 5 << 20 // 5 MiB per photo
	if raw := os.Getenv("EVIDENCE_MAX_BYTES"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			maxEvidenceSize = parsed
		}
	}
	evidenceStore, err := storage.NewDiskStore(evidenceRoot, maxEvidenceSize)
	if err != nil {
		zapLogger.Fatal("Evidence store setup failed", zap.Error(err))
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(zapLogger)
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	pairRepo := repository.NewPairRepository(db)
	vehicleRepo := repository.NewVehicleRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	departureRepo := repository.NewDepartureRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	transporterRepo := repository.NewTransporterRepository(db)

	authService := service.NewAuthService(userRepo)
	scheduleService := service.NewScheduleService(scheduleRepo, zapLogger)
	transporterService := service.NewTransporterService(transporterRepo, vehicleRepo, zapLogger)
	auditService := service.NewAuditService(auditRepo, zapLogger)
	activityService := service.NewActivityService(
		activityRepo, pairRepo, vehicleRepo, allocationRepo, departureRepo, auditRepo, txManager, zapLogger)
	departureService := service.NewDepartureService(
		activityRepo, pairRepo, vehicleRepo, allocationRepo, departureRepo, auditRepo,
		txManager, scheduleService, evidenceStore, wsHub, zapLogger)
	verificationService := service.NewVerificationService(departureRepo, auditRepo, txManager, zapLogger)

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(authService)
	activityHandler := handler.NewActivityHandler(activityService)
	departureHandler := handler.NewDepartureHandler(departureService)
	verificationHandler := handler.NewVerificationHandler(verificationService)
	scheduleHandler := handler.NewScheduleHandler(scheduleService)
	transporterHandler := handler.NewTransporterHandler(transporterService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	authHandler.RegisterRoutes(router.Group(""))
	activityHandler.RegisterRoutes(router.Group(""))
	departureHandler.RegisterRoutes(router.Group(""))
	verificationHandler.RegisterRoutes(router.Group(""))
	scheduleHandler.RegisterRoutes(router.Group(""))
	transporterHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	zapLogger.Info("Server listening", zap.String("port", port))
	if err := router.Run(":" + port); err != nil {
		zapLogger.Fatal("Server failed", zap.Error(err))
	}
}
