package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/hookd/subsync/internal/pkg/clients"
	"github.com/hookd/subsync/internal/pkg/database"
)

// HandleGetClientByCustomerID returns the stored billing state for one
// provider customer id. Read-only ops surface.
func HandleGetClientByCustomerID(c *fiber.Ctx) error {
	customerID := c.Params("customerId")
	if customerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "customerId missing"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	svc := clients.NewServiceFromDB(database.GetDB())
	client, err := svc.GetByCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "client_lookup_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(client)
}
