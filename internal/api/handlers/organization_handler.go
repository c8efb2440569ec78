package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/maheshrc27/postsphere/internal/service"
	"github.com/maheshrc27/postsphere/internal/transfer"
)

type OrganizationHandler struct {
	s service.OrganizationService
}

func NewOrganizationHandler(s service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{s: s}
}

func (h *OrganizationHandler) Create(c *fiber.Ctx) error {
	var req transfer.OrganizationCreation
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	org, err := h.s.Create(c.Context(), GetUserID(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(org)
}

func (h *OrganizationHandler) List(c *fiber.Ctx) error {
	orgs, err := h.s.List(c.Context(), GetUserID(c), pageQuery(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(orgs)
}

func (h *OrganizationHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	org, err := h.s.Get(c.Context(), GetUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(org)
}

func (h *OrganizationHandler) AddMember(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req transfer.MemberAddition
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	if err := h.s.AddMember(c.Context(), GetUserID(c), id, req.UserID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusCreated)
}
