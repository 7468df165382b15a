package handlers

import (
	"errors"

	"fitadmin/internal/app"
	memberController "fitadmin/internal/controllers/member"
	"fitadmin/internal/handlers/middleware"
	. "fitadmin/internal/models"
	"fitadmin/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type MemberHandler struct {
	Handler
	controller *memberController.MemberController
	secure     bool
}

func NewMemberHandler(app *app.App, router fiber.Router) *MemberHandler {
	return &MemberHandler{
		controller: app.MemberController,
		secure:     app.Config.IsProduction(),
		Handler:    newHandler(app, router, "member_handler"),
	}
}

func (h *MemberHandler) Register() {
	members := h.router.Group("/members")
	members.Post("/login", h.login)

	members.Post("/logout", h.middleware.AuthRequired, h.logout)
	members.Get("/me", h.middleware.AuthRequired, h.me)
	members.Get("/", h.middleware.AuthRequired, h.list)
}

func (h *MemberHandler) login(c *fiber.Ctx) error {
	log := h.log.Function("login")

	var loginRequest LoginRequest
	if err := c.BodyParser(&loginRequest); err != nil {
		log.Er("failed to parse login request", err)
		return failure(c, fiber.StatusBadRequest, "failed to parse login request")
	}

	result, err := h.controller.Login(c.Context(), loginRequest)
	var ve *validation.RequestValidationError
	switch {
	case errors.As(err, &ve):
		return validationFailure(c, ve)
	case errors.Is(err, memberController.ErrInvalidCredentials):
		return failure(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, memberController.ErrMemberInactive):
		return failure(c, fiber.StatusForbidden, err.Error())
	case err != nil:
		log.Er("failed to log in", err)
		return failure(c, fiber.StatusInternalServerError, "failed to log in")
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    result.Token,
		Expires:  result.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.JSON(fiber.Map{"success": true, "token": result.Token, "expiresAt": result.ExpiresAt, "member": result.Member})
}

func (h *MemberHandler) logout(c *fiber.Ctx) error {
	log := h.log.Function("logout")

	if err := h.controller.Logout(c.Context(), middleware.CurrentToken(c)); err != nil {
		log.Er("failed to log out", err)
		return failure(c, fiber.StatusInternalServerError, "failed to log out")
	}
	c.ClearCookie(middleware.SessionCookie)

	return c.JSON(fiber.Map{"success": true})
}

func (h *MemberHandler) me(c *fiber.Ctx) error {
	member := middleware.CurrentMember(c)
	if member == nil {
		h.log.Function("me").ErMsg("No member found in locals")
		return failure(c, fiber.StatusInternalServerError, "failed to get member")
	}

	return c.JSON(fiber.Map{"success": true, "member": member})
}

func (h *MemberHandler) list(c *fiber.Ctx) error {
	log := h.log.Function("list")

	members, err := h.controller.List(c.Context(), MemberFilter{
		Keyword: c.Query("keyword"),
		Status:  c.Query("status"),
	}, pageFrom(c))
	if err != nil {
		log.Er("failed to list members", err)
		return failure(c, fiber.StatusInternalServerError, "failed to list members")
	}

	return c.JSON(members)
}

func validationFailure(c *fiber.Ctx, ve *validation.RequestValidationError) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   ve.Error(),
		"fields":  ve.Fields,
	})
}
