package api

import (
	"fmt"
	"net/http" // Import net/http for status codes
	"strings"

	"github.com/gofiber/fiber/v2"
	"gopkg.in/yaml.v3"

	"github.com/open-teleop/joypad/pkg/config"
	customlog "github.com/open-teleop/joypad/pkg/log"
)

// ConfigHandler exposes the effective bootstrap configuration.
type ConfigHandler struct {
	cfg    *config.BootstrapConfig
	logger customlog.Logger
}

// NewConfigHandler creates a new handler for configuration endpoints.
func NewConfigHandler(cfg *config.BootstrapConfig, logger customlog.Logger) *ConfigHandler {
	if cfg == nil {
		panic("Config cannot be nil in NewConfigHandler")
	}
	if logger == nil {
		panic("Logger cannot be nil in NewConfigHandler")
	}
	return &ConfigHandler{cfg: cfg, logger: logger}
}

// RegisterConfigRoutes registers the configuration API endpoints with the Fiber app.
func RegisterConfigRoutes(app *fiber.App, cfg *config.BootstrapConfig, logger customlog.Logger) {
	h := NewConfigHandler(cfg, logger)

	apiGroup := app.Group("/api/v1/config")
	apiGroup.Get("/", h.handleGetConfig)

	logger.Infof("Registered configuration API endpoints under /api/v1/config")
}

// handleGetConfig returns the configuration after defaults, environment and
// flag overrides. YAML by default, JSON when the client asks for it.
func (h *ConfigHandler) handleGetConfig(c *fiber.Ctx) error {
	h.logger.Debugf("Handling GET request for /api/v1/config")

	if strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMEApplicationJSON) {
		return c.JSON(h.cfg)
	}

	yamlData, err := yaml.Marshal(h.cfg)
	if err != nil {
		h.logger.Errorf("Failed to marshal configuration: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Failed to render configuration: %v", err),
		})
	}

	c.Set(fiber.HeaderContentType, "application/x-yaml")
	return c.Send(yamlData)
}
