package handlers

import (
	"errors"

	"fitadmin/internal/app"
	statisticsController "fitadmin/internal/controllers/statistics"

	"github.com/gofiber/fiber/v2"
)

type StatisticsHandler struct {
	Handler
	controller *statisticsController.StatisticsController
}

func NewStatisticsHandler(app *app.App, router fiber.Router) *StatisticsHandler {
	return &StatisticsHandler{
		controller: app.StatisticsController,
		Handler:    newHandler(app, router, "statistics_handler"),
	}
}

func (h *StatisticsHandler) Register() {
	h.router.Get("/test-types", h.testTypes)

	h.router.Get("/statistics", h.middleware.AuthRequired, h.statistics)
	h.router.Get("/dashboard", h.middleware.AuthRequired, h.dashboard)
	h.router.Get("/sync-logs", h.middleware.AuthRequired, h.syncLogs)
}

func (h *StatisticsHandler) statistics(c *fiber.Ctx) error {
	log := h.log.Function("statistics")

	stats, err := h.controller.GetStatistics(c.Context(), c.Query("from"), c.Query("to"))
	if errors.Is(err, statisticsController.ErrInvalidRange) {
		return failure(c, fiber.StatusBadRequest, err.Error())
	}
	if err != nil {
		log.Er("failed to get statistics", err)
		return failure(c, fiber.StatusInternalServerError, "failed to get statistics")
	}

	return c.JSON(fiber.Map{"success": true, "data": stats})
}

func (h *StatisticsHandler) dashboard(c *fiber.Ctx) error {
	log := h.log.Function("dashboard")

	summary, err := h.controller.Dashboard(c.Context())
	if err != nil {
		log.Er("failed to get dashboard summary", err)
		return failure(c, fiber.StatusInternalServerError, "failed to get dashboard summary")
	}

	return c.JSON(fiber.Map{"success": true, "data": summary})
}

func (h *StatisticsHandler) syncLogs(c *fiber.Ctx) error {
	log := h.log.Function("syncLogs")

	logs, err := h.controller.SyncLogs(c.Context(), pageFrom(c))
	if err != nil {
		log.Er("failed to list sync logs", err)
		return failure(c, fiber.StatusInternalServerError, "failed to list sync logs")
	}

	return c.JSON(logs)
}

func (h *StatisticsHandler) testTypes(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "data": h.controller.TestTypes()})
}
