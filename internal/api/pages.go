package api

import (
	"embed"

	"github.com/gofiber/fiber/v2"
)

//go:embed web/*.html
var pages embed.FS

func page(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, err := pages.ReadFile("web/" + name)
		if err != nil {
			return err
		}
		c.Type("html", "utf-8")
		return c.Send(body)
	}
}
