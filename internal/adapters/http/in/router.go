package in

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/LerianStudio/confdogma/internal/pkg/mlog"
)

// NewRouter builds the fiber app for a replica's HTTP wire surface,
// rooted at /api/v1/, plus the health/version/welcome triad at the root.
// It does not listen; callers call Listen on the returned *fiber.App.
func NewRouter(h *Handlers, maxBodyBytes int) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             maxBodyBytes,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return WithError(c, err)
		},
	})

	app.Use(cors.New())
	app.Use(logger.New())
	app.Use(withLogger(h.Logger))

	app.Get("/health", Ping)
	app.Get("/version", Version(h.Version))
	app.Get("/", Welcome)

	api := app.Group("/api/v1")

	projects := api.Group("/projects")
	projects.Get("/", h.ListProjects)
	projects.Post("/", h.CreateProject)
	projects.Delete("/:project", h.RemoveProject)
	projects.Patch("/:project", h.PatchProject)

	repos := projects.Group("/:project/repos")
	repos.Get("/", h.ListRepositories)
	repos.Post("/", h.CreateRepository)
	repos.Delete("/:repo", h.RemoveRepository)
	repos.Patch("/:repo", h.PatchRepository)

	repo := projects.Group("/:project/repos/:repo")
	repo.Get("/list/*", h.ListEntries)
	repo.Get("/contents/*", h.GetContents)
	repo.Post("/contents", h.PushContents)
	repo.Post("/preview", h.PreviewDiff)
	repo.Get("/commits", h.Commits)
	repo.Get("/commits/:revision", h.Commits)
	repo.Get("/compare", h.Compare)
	repo.Get("/merge", h.Merge)

	return app
}

// withLogger stashes logger in the request context under the key
// mlog.FromContext looks for, so handlers and the services they call
// share one logger instance per request.
func withLogger(logger mlog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(mlog.ContextWithLogger(c.UserContext(), logger))
		return c.Next()
	}
}
