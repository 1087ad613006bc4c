package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"kyokki-backend/internal/api/handlers"
	"kyokki-backend/internal/api/routes"
	"kyokki-backend/internal/middleware"
	"kyokki-backend/internal/utils"
	"kyokki-backend/internal/utils/storage"
	"kyokki-backend/pkg/events"
	"kyokki-backend/pkg/extraction"
	"kyokki-backend/pkg/inventory"
	"kyokki-backend/pkg/jwt"
	"kyokki-backend/pkg/matching"
	"kyokki-backend/pkg/ocr"
	"kyokki-backend/pkg/product"
	"kyokki-backend/pkg/receipt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func NewApp(ctx context.Context, db *gorm.DB, hub *events.Hub, broker *events.Broker) (*fiber.App, error) {
	utils.InitValidator()
	app := fiber.New(fiber.Config{
		EnablePrintRoutes: true,
		BodyLimit:         20 * 1024 * 1024,
	})
	middlewares := middleware.NewMiddleware()
	validator := utils.Validate

	// setting up logging and limiter
	logFile := utils.GetConfig("LOG_FILE")
	if err := os.MkdirAll(filepath.Dir(logFile), os.ModePerm); err != nil {
		return nil, fmt.Errorf("error creating logs directory: %w", err)
	}
	file, err := os.OpenFile(
		logFile,
		os.O_RDWR|os.O_CREATE|os.O_APPEND,
		0666,
	)
	if err != nil {
		return nil, fmt.Errorf("error opening log file: %w", err)
	}
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Output:     file,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        30,
		Expiration: 1 * time.Second,
	}))

	// utils
	files, err := storage.New(ctx, storage.Options{
		Driver:    utils.GetConfig("STORAGE_DRIVER"),
		LocalDir:  utils.GetConfig("STORAGE_LOCAL_DIR"),
		Bucket:    storageBucket(),
		Region:    utils.GetConfig("AWS_S3_REGION"),
		Endpoint:  utils.GetConfig("MINIO_ENDPOINT"),
		AccessKey: storageAccessKey(),
		SecretKey: storageSecretKey(),
		UseSSL:    utils.GetConfigBool("MINIO_USE_SSL"),
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	// OCR and LLM share one throttle
	externalLimiter := rate.NewLimiter(
		rate.Limit(utils.GetConfigFloat("EXTERNAL_RATE_PER_SECOND")),
		utils.GetConfigInt("EXTERNAL_RATE_BURST"),
	)
	mineru := ocr.NewMineruClient(ocr.MineruOptions{
		BaseURL:       utils.GetConfig("MINERU_BASE_URL"),
		Lang:          utils.GetConfig("MINERU_LANG"),
		EnableTable:   utils.GetConfigBool("MINERU_ENABLE_TABLE"),
		EnableFormula: utils.GetConfigBool("MINERU_ENABLE_FORMULA"),
		Timeout:       utils.GetConfigDuration("MINERU_TIMEOUT"),
	}, externalLimiter)
	textRouter := ocr.NewRouter(ocr.NewPDFTextExtractor(), mineru)

	extractor, err := extraction.NewClient(extraction.Config{
		BaseURL:     utils.GetConfig("LLM_BASE_URL"),
		APIKey:      utils.GetConfig("LLM_API_KEY"),
		Model:       utils.GetConfig("LLM_MODEL"),
		Temperature: float32(utils.GetConfigFloat("LLM_TEMPERATURE")),
		Timeout:     utils.GetConfigDuration("LLM_TIMEOUT"),
		Policy:      extraction.PartialPolicy(utils.GetConfig("LLM_PARTIAL_POLICY")),
	}, externalLimiter)
	if err != nil {
		return nil, fmt.Errorf("init extraction client: %w", err)
	}

	var jwtService jwt.JWTService
	if secret := utils.GetConfig("JWT_SECRET"); secret != "" {
		jwtService = jwt.NewJWTService(secret)
	} else {
		log.Warnw("JWT_SECRET is empty, API authentication disabled")
	}

	// Repository
	productRepository := product.NewProductRepository(db)
	receiptRepository := receipt.NewReceiptRepository(db)
	inventoryRepository := inventory.NewInventoryRepository(db)

	// Service
	matcher := matching.NewMatcher(productRepository, utils.GetConfigDuration("CATALOG_CACHE_TTL"), nil)
	productService := product.NewProductService(productRepository, matcher)
	inventoryService := inventory.NewInventoryService(inventoryRepository, productRepository, broker)
	receiptService := receipt.NewReceiptService(
		receiptRepository,
		inventoryService,
		files,
		textRouter,
		extractor,
		matcher,
		broker,
	)

	// Handler
	receiptHandler := handlers.NewReceiptHandler(receiptService, validator)
	inventoryHandler := handlers.NewInventoryHandler(inventoryService, validator)
	productHandler := handlers.NewProductHandler(productService, validator)
	eventHandler := handlers.NewEventHandler(hub)

	// routes
	routesConfig := routes.Config{
		App:              app,
		ReceiptHandler:   receiptHandler,
		InventoryHandler: inventoryHandler,
		ProductHandler:   productHandler,
		EventHandler:     eventHandler,
		Middleware:       middlewares,
		JWTService:       jwtService,
	}
	routesConfig.Setup()
	return app, nil
}

func storageBucket() string {
	if utils.GetConfig("STORAGE_DRIVER") == "minio" {
		return utils.GetConfig("MINIO_BUCKET")
	}
	return utils.GetConfig("AWS_S3_BUCKET")
}

func storageAccessKey() string {
	if utils.GetConfig("STORAGE_DRIVER") == "minio" {
		return utils.GetConfig("MINIO_ACCESS_KEY")
	}
	return utils.GetConfig("AWS_ACCESS_KEY")
}

func storageSecretKey() string {
	if utils.GetConfig("STORAGE_DRIVER") == "minio" {
		return utils.GetConfig("MINIO_SECRET_KEY")
	}
	return utils.GetConfig("AWS_SECRET_KEY")
}
