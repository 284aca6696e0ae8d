package http

import (
	"net/url"

	"subscription_server/core/port/in"
	"subscription_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

type OAuthHandler struct {
	oauthService in.OAuthService
	frontendURL  string
}

func NewOAuthHandler(oauthService in.OAuthService, frontendURL string) *OAuthHandler {
	return &OAuthHandler{
		oauthService: oauthService,
		frontendURL:  frontendURL,
	}
}

// Register splits routes: the Google callback arrives without our JWT.
func (h *OAuthHandler) Register(protected, public fiber.Router) {
	gmail := protected.Group("/gmail")
	gmail.Get("/connect", h.Connect)
	gmail.Get("/connection", h.Connection)
	gmail.Delete("/connection", h.Disconnect)

	public.Get("/oauth/gmail/callback", h.Callback)
}

func (h *OAuthHandler) Connect(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	authURL, err := h.oauthService.GetAuthURL(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"url": authURL})
}

// Callback exchanges the code and redirects back to the frontend.
func (h *OAuthHandler) Callback(c *fiber.Ctx) error {
	if e := c.Query("error"); e != "" {
		logger.Warn("[OAuth Callback] provider returned error: %s", e)
		return c.Redirect(h.redirect("error", e))
	}

	conn, err := h.oauthService.HandleCallback(c.Context(), c.Query("state"), c.Query("code"))
	if err != nil {
		logger.WithError(err).Warn("[OAuth Callback] failed")
		return c.Redirect(h.redirect("error", "oauth_failed"))
	}
	return c.Redirect(h.redirect("connected", conn.Email))
}

func (h *OAuthHandler) Connection(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	conn, err := h.oauthService.GetConnection(c.Context(), userID)
	if err != nil {
		return err
	}
	return SuccessResponse(c, conn)
}

func (h *OAuthHandler) Disconnect(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	if err := h.oauthService.Disconnect(c.Context(), userID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *OAuthHandler) redirect(key, value string) string {
	q := url.Values{}
	q.Set(key, value)
	return h.frontendURL + "/settings/gmail?" + q.Encode()
}
