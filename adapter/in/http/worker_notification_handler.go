package http

import (
	"subscription_server/core/domain"
	"subscription_server/core/port/in"
	"subscription_server/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// NotificationHandler handles notification requests.
type NotificationHandler struct {
	notificationService in.NotificationService
}

func NewNotificationHandler(notificationService in.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// Register registers notification routes.
func (h *NotificationHandler) Register(router fiber.Router) {
	notifications := router.Group("/notifications")
	notifications.Get("/", h.ListNotifications)
	notifications.Get("/unread-count", h.GetUnreadCount)
	notifications.Post("/mark-read", h.MarkAsRead)
	notifications.Post("/mark-all-read", h.MarkAllAsRead)
}

// ListNotifications supports ?unread_only=true and ?type=renewal_reminder.
func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	p := GetPaginationParams(c, 50)
	filter := &domain.NotificationFilter{Limit: p.Limit, Offset: p.Offset}
	if c.Query("unread_only") == "true" {
		isRead := false
		filter.IsRead = &isRead
	}
	if t := c.Query("type"); t != "" {
		nt := domain.NotificationType(t)
		filter.Type = &nt
	}

	notifications, total, err := h.notificationService.List(c.Context(), userID, filter)
	if err != nil {
		return apperr.DatabaseError("list notifications", err)
	}
	return c.JSON(NewListResponse(notifications, total, p.Offset, p.Limit))
}

func (h *NotificationHandler) GetUnreadCount(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	count, err := h.notificationService.GetUnreadCount(c.Context(), userID)
	if err != nil {
		return apperr.DatabaseError("count notifications", err)
	}
	return c.JSON(fiber.Map{"count": count})
}

type markReadRequest struct {
	IDs []int64 `json:"ids"`
}

func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	var req markReadRequest
	if err := c.BodyParser(&req); err != nil || len(req.IDs) == 0 {
		return apperr.BadRequest("ids is required")
	}
	if err := h.notificationService.MarkAsRead(c.Context(), userID, req.IDs); err != nil {
		return apperr.DatabaseError("mark notifications read", err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	if err := h.notificationService.MarkAllAsRead(c.Context(), userID); err != nil {
		return apperr.DatabaseError("mark notifications read", err)
	}
	return c.JSON(fiber.Map{"success": true})
}
