package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/hookd/subsync/internal/pkg/billing"
	"github.com/hookd/subsync/internal/pkg/cache"
	"github.com/hookd/subsync/internal/pkg/clients"
	"github.com/hookd/subsync/internal/pkg/database"
	"github.com/hookd/subsync/internal/pkg/env"
	"github.com/hookd/subsync/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	cfg := billing.ConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	if err := clients.NewServiceFromDB(database.GetDB()).SeedIfEmpty(context.Background()); err != nil {
		log.Printf("client seeding failed: %v", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 << 20, // webhook payloads are small; 1 MiB is plenty
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app, cfg)

	return app
}
