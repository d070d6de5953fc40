package in

import (
	"github.com/gofiber/fiber/v2"

	"github.com/LerianStudio/confdogma/internal/domain/apperr"
	"github.com/LerianStudio/confdogma/internal/domain/command"
	"github.com/LerianStudio/confdogma/internal/domain/repository"
)

type createRepositoryRequest struct {
	Name string `json:"name"`
}

// ListRepositories answers GET /projects/{p}/repos[?status=removed].
func (h *Handlers) ListRepositories(c *fiber.Ctx) error {
	projectName := c.Params("project")

	state := repository.StateActive
	if c.Query("status") == "removed" {
		state = repository.StateRemoved
	}

	repos, err := h.Registry.ListRepositories(c.UserContext(), projectName, state)
	if err != nil {
		return WithError(c, err)
	}

	return OK(c, repos)
}

// CreateRepository answers POST /projects/{p}/repos.
func (h *Handlers) CreateRepository(c *fiber.Ctx) error {
	projectName := c.Params("project")

	var req createRepositoryRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, apperr.Wrap(apperr.KindInvalidRequest, err, "parse request body"))
	}

	if !repository.ValidName(req.Name, false) {
		return WithError(c, apperr.New(apperr.KindInvalidRequest, "invalid repository name %q", req.Name))
	}

	cmd := command.Command{
		Tag:            command.TagCreateRepository,
		TimestampMs:    nowMs(),
		Author:         authorOf(c),
		IdempotencyKey: idempotencyKeyOf(c),
		Project:        projectName,
		Repository:     req.Name,
	}

	if _, err := h.Replog.Submit(c.UserContext(), cmd); err != nil {
		return WithError(c, err)
	}

	r, err := h.Registry.GetRepository(c.UserContext(), projectName, req.Name)
	if err != nil {
		return WithError(c, err)
	}

	return Created(c, r)
}

// RemoveRepository answers DELETE /projects/{p}/repos/{r}.
func (h *Handlers) RemoveRepository(c *fiber.Ctx) error {
	cmd := command.Command{
		Tag:            command.TagRemoveRepository,
		TimestampMs:    nowMs(),
		Author:         authorOf(c),
		IdempotencyKey: idempotencyKeyOf(c),
		Project:        c.Params("project"),
		Repository:     c.Params("repo"),
	}

	if _, err := h.Replog.Submit(c.UserContext(), cmd); err != nil {
		return WithError(c, err)
	}

	return NoContent(c)
}

// PatchRepository answers PATCH /projects/{p}/repos/{r}, the same
// json-patch-replacing-/status idiom as PatchProject.
func (h *Handlers) PatchRepository(c *fiber.Ctx) error {
	projectName, repoName := c.Params("project"), c.Params("repo")

	r, err := h.Registry.GetRepository(c.UserContext(), projectName, repoName)
	if err != nil {
		return WithError(c, err)
	}

	next, err := applyStatusPatch(string(r.State), c.Body())
	if err != nil {
		return WithError(c, err)
	}

	tag := command.TagUnremoveRepository
	if next == string(repository.StateRemoved) {
		tag = command.TagRemoveRepository
	} else if next != string(repository.StateActive) {
		return WithError(c, apperr.New(apperr.KindInvalidRequest, "unsupported status %q", next))
	}

	cmd := command.Command{
		Tag:            tag,
		TimestampMs:    nowMs(),
		Author:         authorOf(c),
		IdempotencyKey: idempotencyKeyOf(c),
		Project:        projectName,
		Repository:     repoName,
	}

	if _, err := h.Replog.Submit(c.UserContext(), cmd); err != nil {
		return WithError(c, err)
	}

	return NoContent(c)
}
