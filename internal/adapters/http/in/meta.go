package in

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Ping answers a bare liveness probe with a plain "healthy" body.
func Ping(c *fiber.Ctx) error {
	return c.SendString("healthy")
}

// Version reports the running build.
func Version(version string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"version":     version,
			"buildNumber": os.Getenv("BUILD_NUMBER"),
			"requestDate": time.Now().UTC(),
		})
	}
}

// Welcome reports the service's identity.
func Welcome(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service":     "confdogma",
		"description": "content-addressed, replicated configuration repository",
	})
}
