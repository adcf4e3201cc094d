package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/callpool-service/internal/api/dto"
	"github.com/spec-kit/callpool-service/internal/auth"
	"github.com/spec-kit/callpool-service/internal/domain"
	"github.com/spec-kit/callpool-service/internal/service"
)

// ClaimsHandler exposes the self-service surface for moderators.
type ClaimsHandler struct {
	allocator  *service.AllocationService
	moderators *service.ModeratorService
}

// NewClaimsHandler constructs handler.
func NewClaimsHandler(allocator *service.AllocationService, moderators *service.ModeratorService) *ClaimsHandler {
	return &ClaimsHandler{allocator: allocator, moderators: moderators}
}

// Claim POST /me/claims: top up to the requested count within quota.
func (h *ClaimsHandler) Claim(c *fiber.Ctx) error {
	moderator, err := moderatorPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ClaimRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	items, err := h.allocator.ClaimUpTo(c.UserContext(), moderator.ID, req.Count, req.Campaign)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWorkItemResponses(items)})
}

// MyItems GET /me/items.
func (h *ClaimsHandler) MyItems(c *fiber.Ctx) error {
	moderator, err := moderatorPrincipal(c)
	if err != nil {
		return err
	}
	statuses := parseStatuses(c.Query("status"))
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	items, err := h.moderators.ListItems(c.UserContext(), moderator.ID, statuses, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWorkItemResponses(items)})
}

// Profile GET /me: moderator record plus live quota usage.
func (h *ClaimsHandler) Profile(c *fiber.Ctx) error {
	moderator, err := moderatorPrincipal(c)
	if err != nil {
		return err
	}
	claimedToday, err := h.allocator.ClaimedToday(c.UserContext(), moderator.ID)
	if err != nil {
		return err
	}
	remaining := moderator.DailyQuota - claimedToday
	if remaining < 0 {
		remaining = 0
	}
	return c.JSON(fiber.Map{"data": dto.ProfileResponse{
		Moderator:      dto.NewModeratorResponse(moderator),
		ClaimedToday:   claimedToday,
		RemainingToday: remaining,
	}})
}

func moderatorPrincipal(c *fiber.Ctx) (*domain.Moderator, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Moderator == nil {
		return nil, fiber.NewError(http.StatusUnauthorized, "moderator required")
	}
	return principal.Moderator, nil
}

func parseStatuses(raw string) []domain.WorkItemStatus {
	if raw == "" {
		return nil
	}
	var statuses []domain.WorkItemStatus
	for _, part := range strings.Split(raw, ",") {
		statuses = append(statuses, domain.WorkItemStatus(strings.TrimSpace(strings.ToUpper(part))))
	}
	return statuses
}
