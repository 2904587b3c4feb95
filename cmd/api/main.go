package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"alfredoptarigan/cv-search/internal/config"
	"alfredoptarigan/cv-search/internal/handlers"
	applog "alfredoptarigan/cv-search/internal/logger"
	"alfredoptarigan/cv-search/internal/metrics"
	"alfredoptarigan/cv-search/internal/repositories"
	"alfredoptarigan/cv-search/internal/services"
)

func main() {
	cfg := config.Load("5000")

	log, err := applog.New(cfg.Log.JSON, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}

	repo := repositories.NewCandidateRepository(db)

	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		log.Fatal("failed to create upload directory", zap.Error(err))
	}
	pdfParser := services.NewPDFParserService()

	geminiService, err := services.NewGeminiService(cfg.Gemini.APIKey, cfg.Worker.RetryInitialDelay, log.Named("gemini"))
	if err != nil {
		log.Fatal("failed to initialize gemini", zap.Error(err))
	}

	qdrantService, err := services.NewQdrantService(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
		log.Named("qdrant"),
	)
	if err != nil {
		log.Fatal("failed to initialize qdrant", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := qdrantService.InitCollection(ctx); err != nil {
		log.Fatal("failed to initialize qdrant collection", zap.Error(err))
	}

	m := metrics.NewManager()

	indexer := services.NewIndexerService(
		repo,
		geminiService,
		qdrantService,
		pdfParser,
		m,
		log.Named("indexer"),
		cfg.Worker.RetryMaxAttempts,
	)
	worker := services.NewWorker(
		repo,
		indexer,
		cfg.Worker.Concurrency,
		cfg.Worker.PollInterval,
		log.Named("worker"),
	)
	worker.Start(ctx)

	search := services.NewSearchService(repo, geminiService, qdrantService, log.Named("search"))

	app := fiber.New(fiber.Config{
		AppName:      "CV Search API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize) + 1<<20,
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(m.Middleware())

	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	handlers.Register(app,
		handlers.NewUploadHandler(repo, storageService, pdfParser, worker, cfg.Storage.MaxFileSize, log.Named("upload")),
		handlers.NewSearchHandler(search, log.Named("search")),
		handlers.NewCandidateHandler(repo, storageService, log.Named("candidates")),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("shutting down server")
		worker.Stop()
		cancel()
		if err := app.Shutdown(); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("server starting", zap.String("addr", addr), zap.String("uploads", cfg.Storage.UploadPath))

	if err := app.Listen(addr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
