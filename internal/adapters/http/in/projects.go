package in

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/LerianStudio/confdogma/internal/domain/apperr"
	"github.com/LerianStudio/confdogma/internal/domain/command"
	"github.com/LerianStudio/confdogma/internal/domain/project"
	"github.com/LerianStudio/confdogma/internal/pkg/jsonpatch"
)

// createProjectRequest is the POST /projects body.
type createProjectRequest struct {
	Name string `json:"name"`
}

// ListProjects answers GET /projects[?status=removed].
func (h *Handlers) ListProjects(c *fiber.Ctx) error {
	state := project.StateActive
	if c.Query("status") == "removed" {
		state = project.StateRemoved
	}

	projects, err := h.Registry.ListProjects(c.UserContext(), state)
	if err != nil {
		return WithError(c, err)
	}

	return OK(c, projects)
}

// CreateProject answers POST /projects.
func (h *Handlers) CreateProject(c *fiber.Ctx) error {
	var req createProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, apperr.Wrap(apperr.KindInvalidRequest, err, "parse request body"))
	}

	if !project.ValidName(req.Name) {
		return WithError(c, apperr.New(apperr.KindInvalidRequest, "invalid project name %q", req.Name))
	}

	cmd := command.Command{
		Tag:            command.TagCreateProject,
		TimestampMs:    nowMs(),
		Author:         authorOf(c),
		IdempotencyKey: idempotencyKeyOf(c),
		Project:        req.Name,
	}

	if _, err := h.Replog.Submit(c.UserContext(), cmd); err != nil {
		return WithError(c, err)
	}

	p, err := h.Registry.GetProject(c.UserContext(), req.Name)
	if err != nil {
		return WithError(c, err)
	}

	return Created(c, p)
}

// RemoveProject answers DELETE /projects/{p}.
func (h *Handlers) RemoveProject(c *fiber.Ctx) error {
	cmd := command.Command{
		Tag:            command.TagRemoveProject,
		TimestampMs:    nowMs(),
		Author:         authorOf(c),
		IdempotencyKey: idempotencyKeyOf(c),
		Project:        c.Params("project"),
	}

	if _, err := h.Replog.Submit(c.UserContext(), cmd); err != nil {
		return WithError(c, err)
	}

	return NoContent(c)
}

// statusDoc is the minimal JSON document a lifecycle PATCH's json-patch
// body is applied against: {"status": "active"|"removed"}.
type statusDoc struct {
	Status string `json:"status"`
}

// PatchProject answers PATCH /projects/{p}: a JSON-Patch body replacing
// /status drives unremove (status=active) or remove (status=removed).
func (h *Handlers) PatchProject(c *fiber.Ctx) error {
	name := c.Params("project")

	p, err := h.Registry.GetProject(c.UserContext(), name)
	if err != nil {
		return WithError(c, err)
	}

	next, err := applyStatusPatch(string(p.State), c.Body())
	if err != nil {
		return WithError(c, err)
	}

	tag := command.TagUnremoveProject
	if next == string(project.StateRemoved) {
		tag = command.TagRemoveProject
	} else if next != string(project.StateActive) {
		return WithError(c, apperr.New(apperr.KindInvalidRequest, "unsupported status %q", next))
	}

	cmd := command.Command{
		Tag:            tag,
		TimestampMs:    nowMs(),
		Author:         authorOf(c),
		IdempotencyKey: idempotencyKeyOf(c),
		Project:        name,
	}

	if _, err := h.Replog.Submit(c.UserContext(), cmd); err != nil {
		return WithError(c, err)
	}

	return NoContent(c)
}

// applyStatusPatch applies a JSON-Patch body to {"status": current} and
// returns the resulting status.
func applyStatusPatch(current string, patch []byte) (string, error) {
	cur, err := json.Marshal(statusDoc{Status: current})
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "encode current status")
	}

	out, err := jsonpatch.Apply(cur, patch)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInvalidRequest, err, "apply status patch")
	}

	var doc statusDoc
	if err := json.Unmarshal(out, &doc); err != nil {
		return "", apperr.Wrap(apperr.KindInvalidRequest, err, "decode patched status")
	}

	return doc.Status, nil
}
