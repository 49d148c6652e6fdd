package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hookd/subsync/internal/pkg/billing"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App, cfg billing.Config) {
	setup(app, NewHttpRouter(cfg), NewApiRouter())
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
