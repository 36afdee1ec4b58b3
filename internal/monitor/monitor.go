package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/emomap/engine/internal/worker"
)

// StatusRecorder receives periodic status samples. *influx.Manager implements it.
type StatusRecorder interface {
	RecordStatus(fields map[string]interface{})
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Status     func() worker.Status
	LinkStats  func() (sent, dropped uint64) // optional
	Telemetry  StatusRecorder                // optional
	Logger     *slog.Logger
	StatusFile string // optional, rewritten on every sample
	Interval   time.Duration
}

// Report is one status sample.
type Report struct {
	Time          time.Time     `json:"time"`
	Engine        worker.Status `json:"engine"`
	StreamSent    uint64        `json:"streamSent"`
	StreamDropped uint64        `json:"streamDropped"`
}

// Fields flattens the report for telemetry.
func (r Report) Fields() map[string]interface{} {
	return map[string]interface{}{
		"places":        r.Engine.Places,
		"version":       int64(r.Engine.Version),
		"forbidden":     r.Engine.Forbidden,
		"preferred":     r.Engine.Preferred,
		"hasPosition":   r.Engine.HasPosition,
		"audioState":    r.Engine.Audio.State.String(),
		"volume":        r.Engine.Volume,
		"streamSent":    int64(r.StreamSent),
		"streamDropped": int64(r.StreamDropped),
	}
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = 30 * time.Second
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Sample collects one report.
func (s *Service) Sample() Report {
	r := Report{Time: time.Now(), Engine: s.deps.Status()}
	if s.deps.LinkStats != nil {
		r.StreamSent, r.StreamDropped = s.deps.LinkStats()
	}
	return r
}

// Tick samples once, logs the result and forwards it.
func (s *Service) Tick() Report {
	r := s.Sample()

	s.deps.Logger.Info("Engine status",
		"places", r.Engine.Places,
		"version", r.Engine.Version,
		"audioState", r.Engine.Audio.State.String(),
		"activePlace", r.Engine.Audio.ActivePlaceID,
		"volume", r.Engine.Volume,
		"streamDropped", r.StreamDropped,
	)
	if s.deps.Telemetry != nil {
		s.deps.Telemetry.RecordStatus(r.Fields())
	}
	if s.deps.StatusFile != "" {
		if err := writeStatusFile(s.deps.StatusFile, r); err != nil {
			s.deps.Logger.Warn("Error writing status file", "error", err)
		}
	}
	return r
}

func writeStatusFile(path string, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshalling status: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	if s.deps.Status == nil {
		return fmt.Errorf("monitor: status source is required")
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.Logger.Debug("Starting status monitor", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Tick()
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
