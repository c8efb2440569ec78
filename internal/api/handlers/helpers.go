package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/maheshrc27/postsphere/internal/platforms"
	"github.com/maheshrc27/postsphere/internal/service"
	"github.com/maheshrc27/postsphere/internal/transfer"
)

// UserIDKey is the fiber.Ctx local the auth middleware stores the caller in.
const UserIDKey = "user_id"

var validate = validator.New(validator.WithRequiredStructEnabled())

func GetUserID(c *fiber.Ctx) int64 {
	userID, _ := c.Locals(UserIDKey).(int64)
	return userID
}

// parseBody decodes and validates the request body into v.
func parseBody(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	return validate.Struct(v)
}

func pageQuery(c *fiber.Ctx) transfer.Page {
	return transfer.Page{
		Skip:  c.QueryInt("skip", 0),
		Limit: c.QueryInt("limit", 100),
	}
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", service.ErrInvalidInput, name)
	}
	return int64(id), nil
}

// respondError maps an error to its HTTP status. Platform failures keep the
// upstream status and body so callers can tell which hop failed.
func respondError(c *fiber.Ctx, err error) error {
	var (
		apiErr    *platforms.APIError
		oauthErr  *platforms.OAuthError
		fieldErrs validator.ValidationErrors
	)

	switch {
	case errors.As(err, &apiErr):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":           err.Error(),
			"platform":        apiErr.Platform,
			"stage":           apiErr.Stage,
			"upstream_status": apiErr.StatusCode,
			"upstream_body":   apiErr.Body,
		})
	case errors.As(err, &oauthErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":       err.Error(),
			"platform":    oauthErr.Platform,
			"reason":      oauthErr.Reason,
			"description": oauthErr.Description,
		})
	case errors.As(err, &fieldErrs):
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Field()] = fe.Tag()
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation failed", "fields": fields})
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, platforms.ErrMissingCode),
		errors.Is(err, platforms.ErrUnsupportedContent),
		errors.Is(err, service.ErrInvalidInput):
		status = fiber.StatusBadRequest
	case errors.Is(err, platforms.ErrNotAuthorized), errors.Is(err, service.ErrUnknownKey):
		status = fiber.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, service.ErrNotFound), errors.Is(err, platforms.ErrUnsupportedPlatform):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = fiber.StatusConflict
	}

	if status == fiber.StatusInternalServerError {
		slog.Error(err.Error(), "path", c.Path())
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
