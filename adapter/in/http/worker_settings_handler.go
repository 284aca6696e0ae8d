package http

import (
	"subscription_server/core/port/in"
	"subscription_server/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// SettingsHandler serves the reminder preferences.
type SettingsHandler struct {
	settingsService in.SettingsService
}

func NewSettingsHandler(settingsService in.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

func (h *SettingsHandler) Register(router fiber.Router) {
	router.Get("/settings/reminders", h.Get)
	router.Patch("/settings/reminders", h.Update)
}

func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	settings, err := h.settingsService.GetSettings(c.Context(), userID)
	if err != nil {
		return err
	}
	return SuccessResponse(c, settings)
}

func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	var updates map[string]any
	if err := c.BodyParser(&updates); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	settings, err := h.settingsService.UpdateSettings(c.Context(), userID, updates)
	if err != nil {
		return err
	}
	return SuccessResponse(c, settings)
}
