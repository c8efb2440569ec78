package handlers

import (
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/maheshrc27/postsphere/internal/service"
	"github.com/maheshrc27/postsphere/internal/transfer"
)

type PlatformHandler struct {
	ps          service.PlatformService
	frontendURL string
}

func NewPlatformHandler(ps service.PlatformService, frontendURL string) *PlatformHandler {
	return &PlatformHandler{ps: ps, frontendURL: frontendURL}
}

func (h *PlatformHandler) ListPlatforms(c *fiber.Ctx) error {
	return c.JSON(h.ps.Platforms())
}

// AddSocialAccount redirects to the platform's consent screen.
func (h *PlatformHandler) AddSocialAccount(c *fiber.Ctx) error {
	orgID := c.QueryInt("organization_id", 0)
	if orgID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "organization_id is required",
		})
	}

	authURL, err := h.ps.AuthURL(c.Context(), GetUserID(c), int64(orgID), c.Params("platform"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Redirect(authURL, fiber.StatusTemporaryRedirect)
}

func (h *PlatformHandler) CallbackHandler(c *fiber.Ctx) error {
	platform := c.Params("platform")

	account, err := h.ps.Callback(c.Context(), platform, service.CallbackParams{
		Code:             c.Query("code"),
		State:            c.Query("state"),
		Error:            c.Query("error"),
		ErrorReason:      c.Query("error_reason"),
		ErrorDescription: c.Query("error_description"),
	})
	if err != nil {
		return respondError(c, err)
	}

	redirectURL := fmt.Sprintf("%s/dashboard/accounts?connected=%s&account_id=%d",
		h.frontendURL, url.QueryEscape(account.Platform), account.ID)
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *PlatformHandler) CreateSocialAccount(c *fiber.Ctx) error {
	var req transfer.SocialAccountCreation
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	account, err := h.ps.CreateManual(c.Context(), GetUserID(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(account)
}

func (h *PlatformHandler) ListSocialAccounts(c *fiber.Ctx) error {
	orgID := c.QueryInt("organization_id", 0)
	if orgID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "organization_id is required",
		})
	}

	accounts, err := h.ps.List(c.Context(), GetUserID(c), int64(orgID), pageQuery(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(accounts)
}

func (h *PlatformHandler) GetSocialAccount(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	account, err := h.ps.Get(c.Context(), GetUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(account)
}

func (h *PlatformHandler) DeleteSocialAccount(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.ps.Delete(c.Context(), GetUserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
