package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/callpool-service/internal/domain"
	"github.com/spec-kit/callpool-service/internal/service"
)

// ReportsHandler exposes read-only aggregation over the pool.
type ReportsHandler struct {
	reports *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reports *service.ReportService) *ReportsHandler {
	return &ReportsHandler{reports: reports}
}

// Summary GET /reports/summary?from=&to=.
func (h *ReportsHandler) Summary(c *fiber.Ctx) error {
	from := parseTime(c.Query("from"))
	to := parseTime(c.Query("to"))
	if from == nil || to == nil {
		return fiber.NewError(http.StatusBadRequest, "from and to are required RFC3339 timestamps")
	}
	summary, err := h.reports.Summarize(c.UserContext(), *from, *to, parseReportFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// Buckets GET /reports/buckets?from=&to=&granularity=.
func (h *ReportsHandler) Buckets(c *fiber.Ctx) error {
	from := parseTime(c.Query("from"))
	to := parseTime(c.Query("to"))
	if from == nil || to == nil {
		return fiber.NewError(http.StatusBadRequest, "from and to are required RFC3339 timestamps")
	}
	granularity := service.Granularity(c.Query("granularity", string(service.GranularityDay)))
	buckets, err := h.reports.BucketBy(c.UserContext(), *from, *to, granularity, parseReportFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": buckets})
}

func parseReportFilter(c *fiber.Ctx) service.ReportFilter {
	filter := service.ReportFilter{}
	if campaign := c.Query("campaign"); campaign != "" {
		filter.Campaign = &campaign
	}
	if owner := c.Query("owner_id"); owner != "" {
		filter.OwnerID = &owner
	}
	if outcome := c.Query("outcome"); outcome != "" {
		parsed := domain.Outcome(outcome)
		filter.Outcome = &parsed
	}
	return filter
}
