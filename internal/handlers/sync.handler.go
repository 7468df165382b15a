package handlers

import (
	"errors"
	"time"

	"fitadmin/internal/app"
	syncController "fitadmin/internal/controllers/sync"
	"fitadmin/internal/handlers/middleware"
	. "fitadmin/internal/models"
	"fitadmin/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type SyncHandler struct {
	Handler
	controller *syncController.SyncController
}

func NewSyncHandler(app *app.App, router fiber.Router) *SyncHandler {
	return &SyncHandler{
		controller: app.SyncController,
		Handler:    newHandler(app, router, "sync_handler"),
	}
}

func (h *SyncHandler) Register() {
	sync := h.router.Group("/sync", h.middleware.SyncAuth)
	sync.Post("/subjects", h.syncSubjects)
	sync.Get("/subjects", h.listSubjects)
	sync.Post("/results", h.syncResults)
	sync.Get("/results", h.listResults)
	sync.Post("/full", h.syncFull)
}

type syncFunc func(c *fiber.Ctx) (SyncResponse, error)

// respond answers 200 for every batch that was reconciled, even when every
// record failed; the per-record outcome is in the body.
func (h *SyncHandler) respond(c *fiber.Ctx, function string, sync syncFunc) error {
	log := h.log.Function(function)

	response, err := sync(c)
	if errors.Is(err, syncController.ErrMalformedBatch) {
		return failure(c, fiber.StatusBadRequest, err.Error())
	}
	if err != nil {
		log.Er("sync failed", err)
		return failure(c, fiber.StatusInternalServerError, "sync failed")
	}

	return c.JSON(response)
}

func (h *SyncHandler) syncSubjects(c *fiber.Ctx) error {
	return h.respond(c, "syncSubjects", func(c *fiber.Ctx) (SyncResponse, error) {
		return h.controller.SyncSubjects(c.Context(), middleware.CurrentSyncSource(c), c.Body())
	})
}

func (h *SyncHandler) syncResults(c *fiber.Ctx) error {
	return h.respond(c, "syncResults", func(c *fiber.Ctx) (SyncResponse, error) {
		return h.controller.SyncResults(c.Context(), middleware.CurrentSyncSource(c), c.Body())
	})
}

func (h *SyncHandler) syncFull(c *fiber.Ctx) error {
	return h.respond(c, "syncFull", func(c *fiber.Ctx) (SyncResponse, error) {
		return h.controller.SyncFull(c.Context(), middleware.CurrentSyncSource(c), c.Body())
	})
}

func (h *SyncHandler) listSubjects(c *fiber.Ctx) error {
	log := h.log.Function("listSubjects")

	since, ok := sinceQuery(c)
	if !ok {
		return failure(c, fiber.StatusBadRequest, "invalid since")
	}

	subjects, err := h.controller.ListSubjects(c.Context(), since, c.QueryInt("limit"))
	if err != nil {
		log.Er("failed to list subjects", err)
		return failure(c, fiber.StatusInternalServerError, "failed to list subjects")
	}
	if subjects == nil {
		subjects = []*Subject{}
	}

	return c.JSON(fiber.Map{"success": true, "data": subjects, "count": len(subjects)})
}

func (h *SyncHandler) listResults(c *fiber.Ctx) error {
	log := h.log.Function("listResults")

	since, ok := sinceQuery(c)
	if !ok {
		return failure(c, fiber.StatusBadRequest, "invalid since")
	}

	results, err := h.controller.ListResults(c.Context(), c.Query("subject_ulid"), since, c.QueryInt("limit"))
	if err != nil {
		log.Er("failed to list test results", err)
		return failure(c, fiber.StatusInternalServerError, "failed to list test results")
	}
	if results == nil {
		results = []*TestResult{}
	}

	return c.JSON(fiber.Map{"success": true, "data": results, "count": len(results)})
}

func sinceQuery(c *fiber.Ctx) (*time.Time, bool) {
	raw := c.Query("since")
	if raw == "" {
		return nil, true
	}
	since, ok := utils.ParseTimestamp(raw)
	if !ok {
		return nil, false
	}
	return &since, true
}
