package diagnostic

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/joypad/domain/teleop"
	customlog "github.com/open-teleop/joypad/pkg/log"
	"github.com/open-teleop/joypad/pkg/processing"
	"github.com/open-teleop/joypad/pkg/transport"
	"github.com/open-teleop/joypad/pkg/zeromq"
)

const snapshotTimeout = 500 * time.Millisecond

// TransportSource reports link counters.
type TransportSource interface {
	GetStats() transport.Stats
}

// LoopSource reports event loop metrics.
type LoopSource interface {
	GetMetrics() processing.LoopMetrics
	GetQueueLength() int
	GetQueueCapacity() int
}

// SessionSource reports session counters.
type SessionSource interface {
	Stats(ctx context.Context) (teleop.SessionStats, error)
}

// TapSource reports command tap counters.
type TapSource interface {
	GetMetrics() zeromq.TapMetrics
}

// LoopReport is the loop section of a report.
type LoopReport struct {
	processing.LoopMetrics
	QueueLength   int `json:"queue_length"`
	QueueCapacity int `json:"queue_capacity"`
}

// Report is the body of GET /api/diagnostics.
type Report struct {
	Timestamp time.Time            `json:"timestamp"`
	Uptime    string               `json:"uptime"`
	Transport transport.Stats      `json:"transport"`
	Loop      LoopReport           `json:"loop"`
	Session   *teleop.SessionStats `json:"session,omitempty"`
	Tap       *zeromq.TapMetrics   `json:"tap,omitempty"`
}

// DiagnosticService gathers counters from the running components.
type DiagnosticService struct {
	mu        sync.RWMutex
	transport TransportSource
	loop      LoopSource
	session   SessionSource
	tap       TapSource
	started   time.Time
	logger    customlog.Logger
}

// NewDiagnosticService creates a new diagnostic service instance
func NewDiagnosticService(t TransportSource, l LoopSource, s SessionSource, logger customlog.Logger) *DiagnosticService {
	if t == nil || l == nil {
		panic("Transport and Loop sources cannot be nil in NewDiagnosticService")
	}
	return &DiagnosticService{
		transport: t,
		loop:      l,
		session:   s,
		started:   time.Now(),
		logger:    logger,
	}
}

// SetTap adds the command tap to reports.
func (s *DiagnosticService) SetTap(tap TapSource) {
	s.mu.Lock()
	s.tap = tap
	s.mu.Unlock()
}

// Collect builds a report. Session counters are read on the event loop and
// are left out if the loop does not answer in time.
func (s *DiagnosticService) Collect(ctx context.Context) Report {
	s.mu.RLock()
	tap := s.tap
	s.mu.RUnlock()

	report := Report{
		Timestamp: time.Now(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Transport: s.transport.GetStats(),
		Loop: LoopReport{
			LoopMetrics:   s.loop.GetMetrics(),
			QueueLength:   s.loop.GetQueueLength(),
			QueueCapacity: s.loop.GetQueueCapacity(),
		},
	}

	if s.session != nil {
		ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
		defer cancel()
		if stats, err := s.session.Stats(ctx); err == nil {
			report.Session = &stats
		} else {
			s.logger.Warnf("Session counters unavailable: %v", err)
		}
	}
	if tap != nil {
		m := tap.GetMetrics()
		report.Tap = &m
	}
	return report
}

// GetDiagnosticsHandler handles API requests for diagnostics
func (s *DiagnosticService) GetDiagnosticsHandler(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status":      "success",
		"diagnostics": s.Collect(c.UserContext()),
	})
}

// RegisterRoutes mounts the diagnostics and health endpoints.
func (s *DiagnosticService) RegisterRoutes(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	app.Group("/api").Get("/diagnostics", s.GetDiagnosticsHandler)
}
