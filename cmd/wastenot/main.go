package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"wastenot/internal/config"
	"wastenot/internal/events"
	"wastenot/internal/http/handlers"
	applog "wastenot/internal/log"
	"wastenot/internal/repos"
	"wastenot/internal/services"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	var catalog services.Catalog = services.DefaultCatalog()
	if cfg.CatalogFile != "" {
		c, err := services.LoadCatalog(cfg.CatalogFile)
		if err != nil {
			return err
		}
		catalog = c
	}

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}
	log.Printf("[catalog] %d products", len(catalog.Products()))

	db, err := repos.OpenDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	sink := events.Multi{events.LogSink{}}
	if cfg.AMQPURL != "" {
		mq := events.NewAMQPSink(cfg.AMQPURL, cfg.AMQPExchange)
		if err := mq.Connect(); err != nil {
			// keep serving; events still reach the log sink
			applog.Error(nil, "events.amqp.connect", err, map[string]any{"exchange": cfg.AMQPExchange})
		} else {
			defer mq.Close()
			sink = append(sink, mq)
		}
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    cfg.BodyLimit,
	})

	// ---------- Middlewares ----------
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Warn(c, "rate.hit", nil, nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"success": false, "message": "rate limit exceeded, retry soon"})
		},
	}))

	deps := handlers.NewDeps(db, cfg, catalog, sink)
	handlers.Routes(app, deps)
	app.Use(handlers.NotFound)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(ctx); err != nil {
			log.Printf("[shutdown] %v", err)
		}
	}()

	return app.Listen(":" + cfg.Port)
}
