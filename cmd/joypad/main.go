package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	"github.com/open-teleop/joypad/domain/diagnostic"
	"github.com/open-teleop/joypad/domain/teleop"
	"github.com/open-teleop/joypad/frontend/desktop"
	"github.com/open-teleop/joypad/frontend/terminal"
	"github.com/open-teleop/joypad/pkg/api"
	"github.com/open-teleop/joypad/pkg/config"
	customlog "github.com/open-teleop/joypad/pkg/log"
)

var (
	configDir string
	target    string
	logLevel  string
	httpPort  int
	tapOn     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "joypad",
		Short:        "drive a vehicle with an on-screen joystick",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "./config", "directory holding "+config.BootstrapFileName)
	rootCmd.PersistentFlags().StringVar(&target, "target", "", "vehicle websocket URL (overrides config and "+config.EnvTargetURL+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&tapOn, "tap", false, "mirror sent commands on the ZeroMQ tap")

	desktopCmd := &cobra.Command{
		Use:   "desktop",
		Short: "open a window with mouse and touch control",
		RunE:  runDesktop,
	}

	terminalCmd := &cobra.Command{
		Use:   "terminal",
		Short: "control from the terminal with the mouse",
		RunE:  runTerminal,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the control page to a phone or browser",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&httpPort, "port", 0, "HTTP port (overrides server.http_port)")

	rootCmd.AddCommand(desktopCmd, terminalCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the bootstrap file, falling back to defaults, and applies
// command-line overrides on top.
func loadConfig(cmd *cobra.Command) (*config.BootstrapConfig, bool, error) {
	cfg, fromFile, err := config.LoadOrDefault(configDir)
	if err != nil {
		return nil, false, err
	}
	if target != "" {
		cfg.Transport.URL = target
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if tapOn {
		cfg.Tap.Enabled = true
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.HTTPPort = httpPort
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return cfg, fromFile, nil
}

func newLogger(cfg *config.BootstrapConfig) (customlog.Logger, error) {
	return customlog.NewLogrusLogger(cfg.Logging.Level, cfg.Logging.LogPath)
}

// newFileLogger keeps log lines off the terminal UI. Without a log path
// logging is discarded.
func newFileLogger(cfg *config.BootstrapConfig) (customlog.Logger, io.Closer, error) {
	if cfg.Logging.LogPath == "" {
		return customlog.NewLogrusLoggerWithWriter(cfg.Logging.Level, io.Discard), nopCloser{}, nil
	}
	if err := os.MkdirAll(cfg.Logging.LogPath, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory '%s': %w", cfg.Logging.LogPath, err)
	}
	path := filepath.Join(cfg.Logging.LogPath, customlog.LogFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file '%s': %w", path, err)
	}
	return customlog.NewLogrusLoggerWithWriter(cfg.Logging.Level, f), f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runDesktop(cmd *cobra.Command, _ []string) error {
	cfg, fromFile, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	logConfigSource(logger, fromFile)

	rt, err := newRuntime(cfg, logger)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	rt.start(ctx)
	defer rt.stop()

	return desktop.Run(ctx, rt.controller, rt.store, desktop.Options{
		Title:  "joypad - " + cfg.Transport.URL,
		Width:  initialWidth,
		Height: initialHeight,
	}, logger)
}

func runTerminal(cmd *cobra.Command, _ []string) error {
	cfg, fromFile, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closer, err := newFileLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()
	logConfigSource(logger, fromFile)

	rt, err := newRuntime(cfg, logger)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	rt.start(ctx)
	defer rt.stop()

	return terminal.Run(ctx, rt.controller, rt.store, logger)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, fromFile, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	logConfigSource(logger, fromFile)

	// The intake needs the controller and the session needs the intake as a
	// renderer, so bind it after construction. Nothing renders before start.
	var intake *api.PointerIntake
	rt, err := newRuntime(cfg, logger, teleop.RendererFunc(func(st teleop.State) {
		if intake != nil {
			intake.Render(st)
		}
	}))
	if err != nil {
		return err
	}
	intake = api.NewPointerIntake(rt.controller, logger.WithField("component", "intake"))

	app := fiber.New(fiber.Config{
		AppName:               "joypad",
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: true,
	})
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	diagnosticService := diagnostic.NewDiagnosticService(rt.client, rt.loop, rt.controller, logger)
	if rt.tap != nil {
		diagnosticService.SetTap(rt.tap)
	}
	diagnosticService.RegisterRoutes(app)
	api.RegisterConfigRoutes(app, cfg, logger)
	api.RegisterPointerRoutes(app, intake, logger)

	ctx, cancel := signalContext()
	defer cancel()

	rt.start(ctx)
	defer rt.stop()

	port := strconv.Itoa(cfg.Server.HTTPPort)
	listenErr := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", port)
		listenErr <- app.Listen(":" + port)
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	logger.Infof("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Infof("Server exited properly")
	return nil
}

func logConfigSource(logger customlog.Logger, fromFile bool) {
	path := filepath.Join(configDir, config.BootstrapFileName)
	if fromFile {
		logger.Infof("Loaded configuration from %s", path)
	} else {
		logger.Infof("No configuration at %s, using defaults", path)
	}
}

// Custom error handler
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
