package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chamatrack/chama-service/internal/api/dto"
	"github.com/chamatrack/chama-service/internal/service"
)

// RemindersHandler lists and sends payment reminders.
type RemindersHandler struct {
	reminders *service.ReminderService
}

// NewRemindersHandler constructs handler.
func NewRemindersHandler(reminders *service.ReminderService) *RemindersHandler {
	return &RemindersHandler{reminders: reminders}
}

// List GET /api/reminders.
func (h *RemindersHandler) List(c *fiber.Ctx) error {
	targets, err := h.reminders.Targets(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.ReminderTargetResponse, 0, len(targets))
	for i := range targets {
		out = append(out, dto.ReminderTargetResponse{
			MemberResponse:      dto.NewMemberResponse(&targets[i].Member),
			DaysSinceRegistered: targets[i].DaysSinceRegistered,
		})
	}
	return c.JSON(fiber.Map{"data": out})
}

// Send POST /api/reminders/send.
func (h *RemindersHandler) Send(c *fiber.Ctx) error {
	batch, err := h.reminders.SendAll(c.UserContext())
	if err != nil {
		return err
	}
	resp := dto.ReminderBatchResponse{
		Sent:        batch.Sent,
		Failed:      batch.Failed,
		TotalUnpaid: batch.TotalUnpaid,
		Results:     make([]dto.ReminderResultResponse, 0, len(batch.Results)),
	}
	for _, r := range batch.Results {
		resp.Results = append(resp.Results, dto.ReminderResultResponse{
			MemberID: r.MemberID,
			Name:     r.Name,
			Phone:    r.Phone,
			Success:  r.Sent,
			Error:    r.Error,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}
