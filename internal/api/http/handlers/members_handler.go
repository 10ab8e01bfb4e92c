package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/chamatrack/chama-service/internal/api/dto"
	"github.com/chamatrack/chama-service/internal/domain"
	"github.com/chamatrack/chama-service/internal/service"
)

// MembersHandler exposes the member registry.
type MembersHandler struct {
	members *service.MemberService
}

// NewMembersHandler constructs handler.
func NewMembersHandler(members *service.MemberService) *MembersHandler {
	return &MembersHandler{members: members}
}

// List GET /api/members. With ?search= the result is filtered by name and
// ordered alphabetically; otherwise newest registrations come first.
func (h *MembersHandler) List(c *fiber.Ctx) error {
	var (
		members []domain.Member
		err     error
	)
	if c.Context().QueryArgs().Has("search") {
		members, err = h.members.Search(c.UserContext(), utils.CopyString(c.Query("search")))
	} else {
		members, err = h.members.List(c.UserContext())
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMemberList(members)})
}

// Create POST /api/members.
func (h *MembersHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateMemberRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}
	member, err := h.members.Register(c.UserContext(), req.Name, req.Phone)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewMemberResponse(member)})
}

// Get GET /api/members/:id.
func (h *MembersHandler) Get(c *fiber.Ctx) error {
	member, err := h.members.Get(c.UserContext(), memberID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMemberResponse(member)})
}

// Payments GET /api/members/:id/payments.
func (h *MembersHandler) Payments(c *fiber.Ctx) error {
	payments, err := h.members.History(c.UserContext(), memberID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPaymentList(payments)})
}

// SetPaid PATCH /api/members/:id/paid.
func (h *MembersHandler) SetPaid(c *fiber.Ctx) error {
	var req dto.SetPaidRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}
	member, err := h.members.SetPaid(c.UserContext(), memberID(c), *req.Paid)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMemberResponse(member)})
}

// Delete DELETE /api/members/:id.
func (h *MembersHandler) Delete(c *fiber.Ctx) error {
	if err := h.members.Delete(c.UserContext(), memberID(c)); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// memberID copies the route parameter so it can outlive the request.
func memberID(c *fiber.Ctx) string {
	return utils.CopyString(c.Params("id"))
}
