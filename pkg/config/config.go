package config

import (
	"fmt"
	"net/url"
)

// DefaultTargetURL is the access-point address the robot firmware listens on.
const DefaultTargetURL = "ws://192.168.4.1:80/ws"

// BootstrapConfig holds the configuration loaded from joypad_config.yaml
type BootstrapConfig struct {
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	Transport  TransportConfig  `yaml:"transport" json:"transport"`
	Layout     LayoutConfig     `yaml:"layout" json:"layout"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Processing ProcessingConfig `yaml:"processing" json:"processing"`
	Tap        TapConfig        `yaml:"tap" json:"tap"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	LogPath string `yaml:"log_path,omitempty" json:"log_path,omitempty"`
}

// TransportConfig describes the single outbound websocket to the vehicle
type TransportConfig struct {
	URL                string `yaml:"url" json:"url"`
	HandshakeTimeoutMs int    `yaml:"handshake_timeout_ms" json:"handshake_timeout_ms"`
	WriteTimeoutMs     int    `yaml:"write_timeout_ms" json:"write_timeout_ms"`
}

// LayoutConfig holds the viewport proportions used to place the joystick and buttons.
// All values are fractions of the viewport.
type LayoutConfig struct {
	JoystickX      float64 `yaml:"joystick_x" json:"joystick_x"`
	JoystickY      float64 `yaml:"joystick_y" json:"joystick_y"`
	RadiusFraction float64 `yaml:"radius_fraction" json:"radius_fraction"`
	ButtonsX       float64 `yaml:"buttons_x" json:"buttons_x"`
}

// ServerConfig holds HTTP server settings for the browser intake
type ServerConfig struct {
	HTTPPort int `yaml:"http_port" json:"http_port"`
}

// ProcessingConfig sizes the serial event loop
type ProcessingConfig struct {
	QueueSize int `yaml:"queue_size" json:"queue_size"`
}

// TapConfig controls the ZeroMQ mirror of sent commands
type TapConfig struct {
	Enabled            bool   `yaml:"enabled" json:"enabled"`
	PublishBindAddress string `yaml:"publish_bind_address" json:"publish_bind_address"`
	Topic              string `yaml:"topic" json:"topic"`
}

// DefaultBootstrapConfig returns the configuration used when no file is present.
func DefaultBootstrapConfig() *BootstrapConfig {
	cfg := &BootstrapConfig{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills zero-valued fields
func applyDefaults(cfg *BootstrapConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Transport.URL == "" {
		cfg.Transport.URL = DefaultTargetURL
	}
	if cfg.Transport.HandshakeTimeoutMs == 0 {
		cfg.Transport.HandshakeTimeoutMs = 5000
	}
	if cfg.Transport.WriteTimeoutMs == 0 {
		cfg.Transport.WriteTimeoutMs = 1000
	}

	if cfg.Layout.JoystickX == 0 {
		cfg.Layout.JoystickX = 0.25
	}
	if cfg.Layout.JoystickY == 0 {
		cfg.Layout.JoystickY = 0.5
	}
	if cfg.Layout.RadiusFraction == 0 {
		cfg.Layout.RadiusFraction = 0.2
	}
	if cfg.Layout.ButtonsX == 0 {
		cfg.Layout.ButtonsX = 0.75
	}

	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}

	if cfg.Processing.QueueSize == 0 {
		cfg.Processing.QueueSize = 64
	}

	if cfg.Tap.PublishBindAddress == "" {
		cfg.Tap.PublishBindAddress = "tcp://*:5557"
	}
	if cfg.Tap.Topic == "" {
		cfg.Tap.Topic = "joypad.command"
	}
}

// Validate checks the fields that cannot be defaulted into something sensible
func (c *BootstrapConfig) Validate() error {
	u, err := url.Parse(c.Transport.URL)
	if err != nil {
		return fmt.Errorf("invalid transport.url '%s': %w", c.Transport.URL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid transport.url '%s': scheme must be ws or wss", c.Transport.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid transport.url '%s': missing host", c.Transport.URL)
	}

	fractions := map[string]float64{
		"layout.joystick_x":      c.Layout.JoystickX,
		"layout.joystick_y":      c.Layout.JoystickY,
		"layout.radius_fraction": c.Layout.RadiusFraction,
		"layout.buttons_x":       c.Layout.ButtonsX,
	}
	for name, v := range fractions {
		if v <= 0 || v > 1 {
			return fmt.Errorf("invalid %s %.3f: must be in (0, 1]", name, v)
		}
	}

	if c.Processing.QueueSize < 1 {
		return fmt.Errorf("invalid processing.queue_size %d: must be positive", c.Processing.QueueSize)
	}
	if c.Server.HTTPPort < 1 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid server.http_port %d", c.Server.HTTPPort)
	}
	if c.Tap.Enabled && c.Tap.PublishBindAddress == "" {
		return fmt.Errorf("missing required field in bootstrap config: tap.publish_bind_address")
	}
	return nil
}
