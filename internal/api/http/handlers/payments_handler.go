package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/chamatrack/chama-service/internal/api/dto"
	"github.com/chamatrack/chama-service/internal/service"
)

// PaymentsHandler records ledger entries and lists the latest ones.
type PaymentsHandler struct {
	payments *service.PaymentService
	reports  *service.ReportService
}

// NewPaymentsHandler constructs handler.
func NewPaymentsHandler(payments *service.PaymentService, reports *service.ReportService) *PaymentsHandler {
	return &PaymentsHandler{payments: payments, reports: reports}
}

// Record POST /api/payments.
func (h *PaymentsHandler) Record(c *fiber.Ctx) error {
	var req dto.RecordPaymentRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}
	payment, err := h.payments.RecordPayment(c.UserContext(), req.MemberID, *req.Amount)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewPaymentResponse(payment)})
}

// Recent GET /api/payments/recent?limit=n.
func (h *PaymentsHandler) Recent(c *fiber.Ctx) error {
	recent, err := h.reports.RecentPayments(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRecentPayments(recent)})
}
