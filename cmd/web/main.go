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

	"alfredoptarigan/cv-search/internal/client"
	"alfredoptarigan/cv-search/internal/config"
	applog "alfredoptarigan/cv-search/internal/logger"
	"alfredoptarigan/cv-search/internal/metrics"
	"alfredoptarigan/cv-search/internal/pages"
	"alfredoptarigan/cv-search/internal/proxy"
)

func main() {
	cfg := config.Load("3000")

	log, err := applog.New(cfg.Log.JSON, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("config loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("upstream", cfg.Upstream.BaseURL),
		zap.String("proxy", cfg.ProxyURL()),
	)

	m := metrics.NewManager()

	fwd := proxy.NewForwarder(cfg.Upstream.BaseURL, nil, m, log.Named("proxy"))
	proxyHandler := proxy.NewHandler(fwd, log.Named("proxy"))

	candidateAPI := client.NewCandidateAPI(cfg.ProxyURL(), cfg.Upstream.BaseURL, cfg.Client.Timeout, m, log.Named("client"))
	rest := client.NewREST(cfg.ProxyURL(), cfg.Client.Timeout, nil)
	site := pages.New(candidateAPI, rest, m, log.Named("pages"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	site.StartJanitor(ctx, time.Minute, 30*time.Minute)

	app := fiber.New(fiber.Config{
		AppName:      "CV Search",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize) + 1<<20,
		ErrorHandler: customErrorHandler,

		// The upload proxy forwards multipart bodies as received.
		DisablePreParseMultipartForm: true,
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
	proxyHandler.Register(app.Group("/api"))
	site.Register(app)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("shutting down server")
		cancel()
		if err := app.Shutdown(); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("server starting", zap.String("addr", addr))

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
