package apperrors

import (
	"github.com/gofiber/fiber/v3"
)

// Respond writes a classified error as the appropriate JSON response.
func Respond(c fiber.Ctx, err error) error {
	kind := KindOf(err)

	body := fiber.Map{"error": err.Error()}

	switch kind {
	case KindValidation:
		return c.Status(fiber.StatusBadRequest).JSON(body)
	case KindAuthorization:
		return c.Status(fiber.StatusForbidden).JSON(body)
	case KindStateConflict:
		return c.Status(fiber.StatusConflict).JSON(body)
	case KindNotFound:
		return c.Status(fiber.StatusNotFound).JSON(body)
	default:
		body["retryable"] = true
		return c.Status(fiber.StatusBadGateway).JSON(body)
	}
}
