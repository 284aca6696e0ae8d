package http

import (
	"context"

	"subscription_server/core/domain"
	"subscription_server/core/port/in"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SubscriptionHandler serves the review queue and the subscription list.
type SubscriptionHandler struct {
	subscriptionService in.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService in.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

func (h *SubscriptionHandler) Register(router fiber.Router) {
	subs := router.Group("/subscriptions")
	subs.Get("/", h.List)
	subs.Get("/spend", h.Spend)
	subs.Get("/by-category", h.ByCategory)
	subs.Get("/:id", h.Get)
	subs.Post("/:id/approve", h.Approve)
	subs.Post("/:id/reject", h.Reject)
}

// List returns subscriptions, optionally filtered by ?status=active,trial
func (h *SubscriptionHandler) List(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	var statuses []domain.SubscriptionStatus
	for _, s := range QueryList(c, "status") {
		statuses = append(statuses, domain.SubscriptionStatus(s))
	}

	p := GetPaginationParams(c, 50)
	subs, err := h.subscriptionService.List(c.Context(), userID, statuses, p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return SuccessResponse(c, subs)
}

func (h *SubscriptionHandler) Get(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	id, err := ParamUUID(c, "id")
	if err != nil {
		return err
	}
	sub, err := h.subscriptionService.Get(c.Context(), userID, id)
	if err != nil {
		return err
	}
	return SuccessResponse(c, sub)
}

func (h *SubscriptionHandler) Approve(c *fiber.Ctx) error {
	return h.review(c, h.subscriptionService.Approve)
}

func (h *SubscriptionHandler) Reject(c *fiber.Ctx) error {
	return h.review(c, h.subscriptionService.Reject)
}

func (h *SubscriptionHandler) review(c *fiber.Ctx, action func(ctx context.Context, userID, id uuid.UUID) (*domain.Subscription, error)) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	id, err := ParamUUID(c, "id")
	if err != nil {
		return err
	}
	sub, err := action(c.Context(), userID, id)
	if err != nil {
		return err
	}
	return SuccessResponse(c, sub)
}

func (h *SubscriptionHandler) Spend(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	summary, err := h.subscriptionService.Spend(c.Context(), userID)
	if err != nil {
		return err
	}
	return SuccessResponse(c, summary)
}

func (h *SubscriptionHandler) ByCategory(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	groups, err := h.subscriptionService.ServicesByCategory(c.Context(), userID)
	if err != nil {
		return err
	}
	return SuccessResponse(c, groups)
}
