package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/callpool-service/internal/api/dto"
	"github.com/spec-kit/callpool-service/internal/service"
)

// ItemsHandler exposes lifecycle operations on individual work items.
type ItemsHandler struct {
	lifecycle *service.LifecycleService
}

// NewItemsHandler constructs handler.
func NewItemsHandler(lifecycle *service.LifecycleService) *ItemsHandler {
	return &ItemsHandler{lifecycle: lifecycle}
}

// Get GET /items/:id.
func (h *ItemsHandler) Get(c *fiber.Ctx) error {
	item, err := h.lifecycle.GetItem(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWorkItemResponse(item)})
}

// Resolve POST /items/:id/resolve.
func (h *ItemsHandler) Resolve(c *fiber.Ctx) error {
	moderator, err := moderatorPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	item, err := h.lifecycle.Resolve(c.UserContext(), moderator.ID, c.Params("id"), req.Outcome)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWorkItemResponse(item)})
}

// RecordConversion POST /items/:id/conversion.
func (h *ItemsHandler) RecordConversion(c *fiber.Ctx) error {
	moderator, err := moderatorPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ConversionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	item, err := h.lifecycle.RecordConversion(c.UserContext(), moderator.ID, c.Params("id"), req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWorkItemResponse(item)})
}

// ClearConversion DELETE /items/:id/conversion.
func (h *ItemsHandler) ClearConversion(c *fiber.Ctx) error {
	moderator, err := moderatorPrincipal(c)
	if err != nil {
		return err
	}
	item, err := h.lifecycle.ClearConversion(c.UserContext(), moderator.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWorkItemResponse(item)})
}

// Reset POST /items/:id/reset.
func (h *ItemsHandler) Reset(c *fiber.Ctx) error {
	moderator, err := moderatorPrincipal(c)
	if err != nil {
		return err
	}
	item, err := h.lifecycle.Reset(c.UserContext(), moderator.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWorkItemResponse(item)})
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &parsed
}
