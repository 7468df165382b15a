package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"fitadmin/config"
	memberController "fitadmin/internal/controllers/member"
	"fitadmin/internal/logger"
	. "fitadmin/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	SessionCookie = "fitadmin_session"

	localsMember     = "member"
	localsToken      = "token"
	localsSyncSource = "syncSource"
)

type Middleware struct {
	memberController *memberController.MemberController
	syncAPIKey       string
	log              logger.Logger
}

func New(memberController *memberController.MemberController, config config.Config) Middleware {
	return Middleware{
		memberController: memberController,
		syncAPIKey:       config.SyncAPIKey,
		log:              logger.New("middleware"),
	}
}

// AuthRequired admits requests carrying a live staff session, from either the
// Authorization header or the session cookie.
func (m Middleware) AuthRequired(c *fiber.Ctx) error {
	log := m.log.Function("AuthRequired")

	token := Token(c)
	if token == "" {
		return unauthorized(c)
	}

	member, err := m.memberController.Authenticate(c.Context(), token)
	if errors.Is(err, memberController.ErrUnauthorized) {
		return unauthorized(c)
	}
	if err != nil {
		log.Er("failed to authenticate session", err)
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"success": false, "error": "failed to authenticate"})
	}

	c.Locals(localsMember, member)
	c.Locals(localsToken, token)
	return c.Next()
}

// SyncAuth admits devices holding the sync key and staff with a session. With
// no key configured the endpoints are open and requests count as device
// traffic.
func (m Middleware) SyncAuth(c *fiber.Ctx) error {
	log := m.log.Function("SyncAuth")

	token := Token(c)
	if m.syncAPIKey != "" && token != "" &&
		subtle.ConstantTimeCompare([]byte(token), []byte(m.syncAPIKey)) == 1 {
		c.Locals(localsSyncSource, SyncSourceDevice)
		return c.Next()
	}

	if token != "" {
		member, err := m.memberController.Authenticate(c.Context(), token)
		if err == nil {
			c.Locals(localsMember, member)
			c.Locals(localsToken, token)
			c.Locals(localsSyncSource, SyncSourceWebAdmin)
			return c.Next()
		}
		if !errors.Is(err, memberController.ErrUnauthorized) {
			log.Er("failed to authenticate session", err)
		}
	}

	if m.syncAPIKey == "" {
		c.Locals(localsSyncSource, SyncSourceDevice)
		return c.Next()
	}

	return unauthorized(c)
}

func Token(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return c.Cookies(SessionCookie)
}

// CurrentMember is nil outside AuthRequired routes.
func CurrentMember(c *fiber.Ctx) *Member {
	member, _ := c.Locals(localsMember).(*Member)
	return member
}

func CurrentToken(c *fiber.Ctx) string {
	token, _ := c.Locals(localsToken).(string)
	return token
}

func CurrentSyncSource(c *fiber.Ctx) SyncSource {
	if source, ok := c.Locals(localsSyncSource).(SyncSource); ok {
		return source
	}
	return SyncSourceDevice
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"success": false, "error": "unauthorized"})
}
