package in

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestAuthorOfDefaultsToAnonymous(t *testing.T) {
	app := fiber.New()

	var got string

	app.Get("/", func(c *fiber.Ctx) error {
		got = authorOf(c)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	_, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, "anonymous", got)
}

func TestAuthorOfReadsHeader(t *testing.T) {
	app := fiber.New()

	var got string

	app.Get("/", func(c *fiber.Ctx) error {
		got = authorOf(c)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Confdogma-Author", "alice")
	_, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, "alice", got)
}

func TestIdempotencyKeyOfGeneratesWhenAbsent(t *testing.T) {
	app := fiber.New()

	var got string

	app.Get("/", func(c *fiber.Ctx) error {
		got = idempotencyKeyOf(c)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	_, err := app.Test(req)
	assert.NoError(t, err)
	assert.NotEmpty(t, got)
}

func TestIdempotencyKeyOfReadsHeader(t *testing.T) {
	app := fiber.New()

	var got string

	app.Get("/", func(c *fiber.Ctx) error {
		got = idempotencyKeyOf(c)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Idempotency-Key", "fixed-key")
	_, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, "fixed-key", got)
}

func TestRevisionOfDefaultsToZero(t *testing.T) {
	app := fiber.New()

	var got int64

	app.Get("/", func(c *fiber.Ctx) error {
		rev, err := revisionOf(c)
		assert.NoError(t, err)
		got = rev
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	_, err := app.Test(req)
	assert.NoError(t, err)
	assert.EqualValues(t, 0, got)
}

func TestRevisionOfRejectsNonInteger(t *testing.T) {
	app := fiber.New()

	var got error

	app.Get("/", func(c *fiber.Ctx) error {
		_, got = revisionOf(c)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/?revision=not-a-number", nil)
	_, err := app.Test(req)
	assert.NoError(t, err)
	assert.Error(t, got)
}

func TestSplitCSV(t *testing.T) {
	assert.Nil(t, splitCSV(""))
	assert.Equal(t, []string{"$.a", "$.b"}, splitCSV("$.a, $.b"))
}
