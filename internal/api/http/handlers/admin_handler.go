package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/callpool-service/internal/api/dto"
	"github.com/spec-kit/callpool-service/internal/domain"
	"github.com/spec-kit/callpool-service/internal/repository"
	"github.com/spec-kit/callpool-service/internal/service"
)

// AdminHandler exposes administrative pool and moderator management.
type AdminHandler struct {
	allocator  *service.AllocationService
	pool       *service.PoolService
	moderators *service.ModeratorService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(allocator *service.AllocationService, pool *service.PoolService, moderators *service.ModeratorService) *AdminHandler {
	return &AdminHandler{allocator: allocator, pool: pool, moderators: moderators}
}

// ImportItems POST /admin/items/import.
func (h *AdminHandler) ImportItems(c *fiber.Ctx) error {
	var req dto.ImportItemsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	inserted, err := h.pool.ImportKeys(c.UserContext(), req.Campaign, req.Keys)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"campaign": req.Campaign,
		"imported": inserted,
		"skipped":  int64(len(req.Keys)) - inserted,
	}})
}

// Distribute POST /admin/distribute: bulk allocation across moderators.
func (h *AdminHandler) Distribute(c *fiber.Ctx) error {
	var req dto.DistributeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	result, err := h.allocator.Distribute(c.UserContext(), adminActorID(c), req.ModeratorIDs, req.PerWorkerCount, req.Campaign)
	if err != nil {
		return err
	}
	assignments := make(map[string][]dto.WorkItemResponse, len(result.Assignments))
	for moderatorID, items := range result.Assignments {
		assignments[moderatorID] = dto.NewWorkItemResponses(items)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"assignments": assignments,
		"counts":      result.Counts(),
	}})
}

// ListItems GET /admin/items.
func (h *AdminHandler) ListItems(c *fiber.Ctx) error {
	filter := repository.ItemFilter{}
	if campaign := c.Query("campaign"); campaign != "" {
		filter.Campaign = &campaign
	}
	if owner := c.Query("owner_id"); owner != "" {
		filter.OwnerID = &owner
	}
	filter.Statuses = parseStatuses(c.Query("status"))
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	items, err := h.pool.ListItems(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWorkItemResponses(items)})
}

// ListModerators GET /admin/moderators.
func (h *AdminHandler) ListModerators(c *fiber.Ctx) error {
	filter := repository.ModeratorFilter{}
	if role := c.Query("role"); role != "" {
		parsed := domain.ModeratorRole(role)
		filter.Role = &parsed
	}
	if partition := c.Query("partition"); partition != "" {
		filter.Partition = &partition
	}
	if active := c.Query("active"); active != "" {
		parsed := active == "true"
		filter.Active = &parsed
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	moderators, err := h.moderators.ListModerators(c.UserContext(), filter)
	if err != nil {
		return err
	}
	result := make([]dto.ModeratorResponse, 0, len(moderators))
	for i := range moderators {
		result = append(result, dto.NewModeratorResponse(&moderators[i]))
	}
	return c.JSON(fiber.Map{"data": result})
}

// UpdateModerator PATCH /admin/moderators/:id.
func (h *AdminHandler) UpdateModerator(c *fiber.Ctx) error {
	var req dto.UpdateModeratorRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	ctx := c.UserContext()
	id := c.Params("id")
	moderator, err := h.moderators.GetModerator(ctx, id)
	if err != nil {
		return err
	}
	if req.DailyQuota != nil {
		if moderator, err = h.moderators.SetDailyQuota(ctx, id, *req.DailyQuota); err != nil {
			return err
		}
	}
	if req.Role != nil {
		if moderator, err = h.moderators.SetRole(ctx, id, *req.Role); err != nil {
			return err
		}
	}
	if req.Active != nil {
		if moderator, err = h.moderators.SetActive(ctx, id, *req.Active); err != nil {
			return err
		}
	}
	if req.Partition != nil {
		if moderator, err = h.moderators.SetPartition(ctx, id, *req.Partition); err != nil {
			return err
		}
	}
	return c.JSON(fiber.Map{"data": dto.NewModeratorResponse(moderator)})
}

// adminActorID attributes admin-key actions to the authenticated moderator
// when one is present, or to the system actor otherwise.
func adminActorID(c *fiber.Ctx) string {
	if moderator, err := moderatorPrincipal(c); err == nil {
		return moderator.ID
	}
	return ""
}
