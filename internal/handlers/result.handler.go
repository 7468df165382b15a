package handlers

import (
	"errors"

	"fitadmin/internal/app"
	resultController "fitadmin/internal/controllers/result"

	"github.com/gofiber/fiber/v2"
)

type ResultHandler struct {
	Handler
	controller *resultController.ResultController
}

func NewResultHandler(app *app.App, router fiber.Router) *ResultHandler {
	return &ResultHandler{
		controller: app.ResultController,
		Handler:    newHandler(app, router, "result_handler"),
	}
}

func (h *ResultHandler) Register() {
	results := h.router.Group("/results", h.middleware.AuthRequired)
	results.Get("/", h.list)
	results.Get("/:ulid", h.get)
}

func (h *ResultHandler) list(c *fiber.Ctx) error {
	log := h.log.Function("list")

	results, err := h.controller.List(c.Context(), resultController.ResultQuery{
		TestType:    c.Query("testType"),
		SubjectULID: c.Query("subjectUlid"),
		DateFrom:    c.Query("dateFrom"),
		DateTo:      c.Query("dateTo"),
	}, pageFrom(c))
	if errors.Is(err, resultController.ErrInvalidDate) {
		return failure(c, fiber.StatusBadRequest, err.Error())
	}
	if err != nil {
		log.Er("failed to list test results", err)
		return failure(c, fiber.StatusInternalServerError, "failed to list test results")
	}

	return c.JSON(results)
}

func (h *ResultHandler) get(c *fiber.Ctx) error {
	log := h.log.Function("get")

	result, err := h.controller.Get(c.Context(), c.Params("ulid"))
	if errors.Is(err, resultController.ErrResultNotFound) {
		return failure(c, fiber.StatusNotFound, err.Error())
	}
	if err != nil {
		log.Er("failed to get test result", err)
		return failure(c, fiber.StatusInternalServerError, "failed to get test result")
	}

	return c.JSON(fiber.Map{"success": true, "data": result})
}
