package handlers

import (
	"errors"

	"fitadmin/internal/app"
	subjectController "fitadmin/internal/controllers/subject"
	"fitadmin/internal/handlers/middleware"
	. "fitadmin/internal/models"
	"fitadmin/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type SubjectHandler struct {
	Handler
	controller *subjectController.SubjectController
}

func NewSubjectHandler(app *app.App, router fiber.Router) *SubjectHandler {
	return &SubjectHandler{
		controller: app.SubjectController,
		Handler:    newHandler(app, router, "subject_handler"),
	}
}

func (h *SubjectHandler) Register() {
	subjects := h.router.Group("/subjects", h.middleware.AuthRequired)
	subjects.Get("/", h.list)
	subjects.Post("/", h.create)
	subjects.Get("/:ulid", h.get)
	subjects.Put("/:ulid", h.update)
	subjects.Delete("/:ulid", h.delete)
}

func (h *SubjectHandler) list(c *fiber.Ctx) error {
	log := h.log.Function("list")

	subjects, err := h.controller.List(c.Context(), SubjectFilter{
		Keyword:     c.Query("keyword"),
		Gender:      c.Query("gender"),
		CreatedDate: c.Query("createdDate"),
	}, pageFrom(c))
	if err != nil {
		log.Er("failed to list subjects", err)
		return failure(c, fiber.StatusInternalServerError, "failed to list subjects")
	}

	return c.JSON(subjects)
}

func (h *SubjectHandler) get(c *fiber.Ctx) error {
	log := h.log.Function("get")

	detail, err := h.controller.Get(c.Context(), c.Params("ulid"))
	if errors.Is(err, subjectController.ErrSubjectNotFound) {
		return failure(c, fiber.StatusNotFound, err.Error())
	}
	if err != nil {
		log.Er("failed to get subject", err)
		return failure(c, fiber.StatusInternalServerError, "failed to get subject")
	}

	return c.JSON(fiber.Map{"success": true, "data": detail})
}

func (h *SubjectHandler) create(c *fiber.Ctx) error {
	log := h.log.Function("create")

	var req SubjectRequest
	if err := c.BodyParser(&req); err != nil {
		log.Er("failed to parse subject request", err)
		return failure(c, fiber.StatusBadRequest, "invalid request format")
	}

	memberID := ""
	if member := middleware.CurrentMember(c); member != nil {
		memberID = member.ID
	}

	subject, err := h.controller.Create(c.Context(), memberID, req)
	if err != nil {
		return h.writeError(c, "create", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": subject})
}

func (h *SubjectHandler) update(c *fiber.Ctx) error {
	log := h.log.Function("update")

	var req SubjectRequest
	if err := c.BodyParser(&req); err != nil {
		log.Er("failed to parse subject request", err)
		return failure(c, fiber.StatusBadRequest, "invalid request format")
	}

	subject, err := h.controller.Update(c.Context(), c.Params("ulid"), req)
	if err != nil {
		return h.writeError(c, "update", err)
	}

	return c.JSON(fiber.Map{"success": true, "data": subject})
}

func (h *SubjectHandler) delete(c *fiber.Ctx) error {
	if err := h.controller.Delete(c.Context(), c.Params("ulid")); err != nil {
		return h.writeError(c, "delete", err)
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *SubjectHandler) writeError(c *fiber.Ctx, function string, err error) error {
	var ve *validation.RequestValidationError
	switch {
	case errors.As(err, &ve):
		return validationFailure(c, ve)
	case errors.Is(err, subjectController.ErrSubjectNotFound):
		return failure(c, fiber.StatusNotFound, err.Error())
	default:
		h.log.Function(function).Er("subject request failed", err)
		return failure(c, fiber.StatusInternalServerError, "failed to "+function+" subject")
	}
}
