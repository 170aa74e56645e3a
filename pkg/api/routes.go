package api

import (
	_ "embed"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	customlog "github.com/open-teleop/joypad/pkg/log"
)

//go:embed static/pointer.html
var pointerPage []byte

// RegisterPointerRoutes mounts the operator page and its websocket.
func RegisterPointerRoutes(app *fiber.App, intake *PointerIntake, logger customlog.Logger) {
	app.Get("/", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Send(pointerPage)
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/pointer", websocket.New(intake.ServeConn))

	logger.Infof("Registered pointer intake at /ws/pointer")
}
