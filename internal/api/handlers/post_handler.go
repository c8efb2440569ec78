package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/maheshrc27/postsphere/internal/service"
	"github.com/maheshrc27/postsphere/internal/transfer"
)

type PostHandler struct {
	s  service.PostService
	pb service.PublishService
}

func NewPostHandler(s service.PostService, pb service.PublishService) *PostHandler {
	return &PostHandler{s: s, pb: pb}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	var req transfer.PostCreation
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	post, err := h.s.Create(c.Context(), GetUserID(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.s.List(c.Context(), GetUserID(c), pageQuery(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	post, err := h.s.Get(c.Context(), GetUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req transfer.PostSchedule
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	post, err := h.s.Schedule(c.Context(), GetUserID(c), id, req.ScheduledTime)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// PublishPost publishes immediately and reports the platform's identifier.
func (h *PostHandler) PublishPost(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	post, err := h.pb.PublishNow(c.Context(), GetUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}

	result := transfer.PublishResult{PostID: post.ID, PlatformPostID: post.PlatformPostID}
	if post.PublishedTime != nil {
		result.PublishedAt = *post.PublishedTime
	}
	return c.JSON(result)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.s.Remove(c.Context(), GetUserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PostHandler) PostHistory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	history, err := h.s.History(c.Context(), GetUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(history)
}
