package handlers

import (
	"bytes"
	"errors"
	"time"

	"fitadmin/internal/app"
	"fitadmin/internal/playback"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

type PlaybackHandler struct {
	Handler
	negotiator *playback.Negotiator
}

func NewPlaybackHandler(app *app.App, router fiber.Router) *PlaybackHandler {
	return &PlaybackHandler{
		negotiator: app.Negotiator,
		Handler:    newHandler(app, router, "playback_handler"),
	}
}

func (h *PlaybackHandler) Register() {
	kvs := h.router.Group("/kvs", h.middleware.SyncAuth)
	kvs.Post("/hls", h.hlsSession)
}

type hlsRequest struct {
	StreamName hint `json:"streamName"`
	StartTime  hint `json:"startTime"`
	EndTime    hint `json:"endTime"`
	TestedAt   hint `json:"testedAt"`
}

// hint accepts a JSON string or number. Numbers keep their literal text so
// millisecond timestamps parse like their quoted form; any other value is
// treated as absent.
type hint string

func (h *hint) UnmarshalJSON(data []byte) error {
	var value any
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&value); err != nil {
		return err
	}

	switch v := value.(type) {
	case string:
		*h = hint(v)
	case json.Number:
		*h = hint(v.String())
	default:
		*h = ""
	}
	return nil
}

func (h *PlaybackHandler) hlsSession(c *fiber.Ctx) error {
	log := h.log.Function("hlsSession")

	var req hlsRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		log.Er("failed to parse HLS request", err)
		return failure(c, fiber.StatusBadRequest, "invalid request format")
	}

	result, err := h.negotiator.Negotiate(c.Context(), playback.Hints{
		StreamName: string(req.StreamName),
		StartTime:  string(req.StartTime),
		EndTime:    string(req.EndTime),
		TestedAt:   string(req.TestedAt),
	})
	if err != nil {
		return failure(c, playbackStatus(err), playback.Message(err))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"hlsUrl":  result.URL,
		"debug": fiber.Map{
			"startTime": result.Window.Start.UTC().Format(time.RFC3339Nano),
			"endTime":   result.Window.End.UTC().Format(time.RFC3339Nano),
		},
	})
}

func playbackStatus(err error) int {
	var providerErr *playback.ProviderError
	switch {
	case errors.Is(err, playback.ErrStreamNameRequired):
		return fiber.StatusBadRequest
	case errors.Is(err, playback.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, playback.ErrAccessDenied),
		errors.Is(err, playback.ErrEndpointUnavailable),
		errors.Is(err, playback.ErrSessionUnavailable),
		errors.As(err, &providerErr):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
