package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/haulbound/billing/app/repository"
	"github.com/haulbound/billing/internal/pkg/billing"
	"github.com/haulbound/billing/internal/pkg/cache"
	"github.com/haulbound/billing/internal/pkg/database"
	"github.com/haulbound/billing/internal/pkg/env"
	"github.com/haulbound/billing/internal/pkg/pricesync"
	"github.com/haulbound/billing/internal/pkg/router"
)

func main() {
	app, worker := NewApplication()
	worker.Start()

	// Shut the worker down cleanly on SIGINT/SIGTERM.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		worker.Stop()
		_ = app.Shutdown()
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() (*fiber.App, *pricesync.Worker) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	app := fiber.New(fiber.Config{
		AppName: "billing",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			"admin": env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// ROUTER
	router.InstallRouter(app)

	worker := pricesync.NewWorker(billing.NewServiceFromDB(database.GetDB()))

	return app, worker
}
