package handlers

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/chamatrack/chama-service/internal/api/dto"
	"github.com/chamatrack/chama-service/internal/service"
	apperrors "github.com/chamatrack/chama-service/pkg/util/errorutil"
)

// ReportsHandler serves dashboard reads, settings and the cycle reset.
type ReportsHandler struct {
	reports  *service.ReportService
	settings *service.SettingsService
	members  *service.MemberService
	loc      *time.Location
}

// NewReportsHandler constructs handler. loc interprets due dates.
func NewReportsHandler(reports *service.ReportService, settings *service.SettingsService, members *service.MemberService, loc *time.Location) *ReportsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportsHandler{reports: reports, settings: settings, members: members, loc: loc}
}

// Balance GET /api/reports/balance.
func (h *ReportsHandler) Balance(c *fiber.Ctx) error {
	report, err := h.reports.Balance(c.UserContext(), c.QueryInt("recent", 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewBalanceReportResponse(report)})
}

// BalanceCSV GET /api/reports/balance.csv.
func (h *ReportsHandler) BalanceCSV(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.reports.WriteBalanceCSV(c.UserContext(), &buf); err != nil {
		return err
	}
	filename := fmt.Sprintf("chama-balance-%s.csv", time.Now().In(h.loc).Format("2006-01-02"))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(buf.Bytes())
}

// Stats GET /api/stats.
func (h *ReportsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.reports.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStatsResponse(stats)})
}

// GetSettings GET /api/settings.
func (h *ReportsHandler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.settings.Get(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSettingsResponse(settings)})
}

// UpdateSettings PUT /api/settings.
func (h *ReportsHandler) UpdateSettings(c *fiber.Ctx) error {
	var req dto.UpdateSettingsRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}

	input := service.UpdateSettingsInput{
		ExpectedPerMember: req.ExpectedPerMember,
		Currency:          req.Currency,
	}
	if req.DueDate != nil {
		if strings.TrimSpace(*req.DueDate) == "" {
			input.ClearDueDate = true
		} else {
			due, err := dto.ParseDate(strings.TrimSpace(*req.DueDate), h.loc)
			if err != nil {
				return apperrors.NewValidationError("validation failed",
					map[string]any{"due_date": "must match 2006-01-02"})
			}
			input.DueDate = &due
		}
	}

	settings, err := h.settings.Update(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSettingsResponse(settings)})
}

// ResetCycle POST /api/cycle/reset.
func (h *ReportsHandler) ResetCycle(c *fiber.Ctx) error {
	count, err := h.members.ResetCycle(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"members_reset": count}})
}
