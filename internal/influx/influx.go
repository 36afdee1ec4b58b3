package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/emomap/engine/internal/config"
	"github.com/emomap/engine/internal/queue"
	"github.com/emomap/engine/pkg/core"
	"github.com/google/uuid"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
)

// Measurement names written by the engine.
const (
	MeasurementRoute = "route"
	MeasurementZone  = "zone_transition"
	MeasurementState = "status"
)

// ErrDisabled is returned by Connect when telemetry is switched off.
var ErrDisabled = errors.New("influx telemetry is disabled")

// Manager buffers telemetry points and ships them to InfluxDB,
// or to a gzip line protocol file while the server is unreachable.
type Manager struct {
	Client       influxdb2.Client
	Writer       influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	Logger       zerolog.Logger

	cfg        config.InfluxConfig
	points     *queue.Queue[*influxdb2_write.Point]
	backupFile *os.File
	now        func() time.Time
	session    string

	mu     sync.Mutex // guards sinks during flush and close
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a new telemetry manager. Nothing is sent until Connect succeeds.
func NewManager(log zerolog.Logger, cfg config.InfluxConfig) *Manager {
	return &Manager{
		Logger:  log,
		cfg:     cfg,
		points:  queue.NewBounded[*influxdb2_write.Point](cfg.QueueLimit),
		now:     time.Now,
		session: uuid.NewString(),
	}
}

// SetSession sets the session tag carried by every point. Empty ids are ignored.
func (m *Manager) SetSession(id string) {
	if id != "" {
		m.session = id
	}
}

// newPoint starts a point tagged with the session. Line protocol has no form
// for a point without tags, so every measurement carries at least this one.
func (m *Manager) newPoint(measurement string) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(measurement).
		AddTag("session", m.session).
		SetTime(m.now())
}

// Connect establishes a connection to InfluxDB, falling back to the backup file.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.IsValid = false
		m.Logger.Warn().Err(err).Str("backupPath", m.cfg.BackupPath).
			Msg("InfluxDB unreachable, writing telemetry to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}
	m.createWriter()
	m.IsValid = true
	m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.BackupWriter != nil {
		return nil
	}
	if m.cfg.BackupPath == "" {
		return errors.New("influx backup path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(m.cfg.BackupPath), 0o755); err != nil {
		return fmt.Errorf("error creating backup dir: %w", err)
	}
	file, err := os.OpenFile(m.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgs := m.Client.OrganizationsAPI()

	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.Logger.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			return fmt.Errorf("error creating organization %q: %w", m.cfg.Org, err)
		}
	}

	if _, err = m.Client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket); err == nil {
		return nil
	}
	m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")

	// 30 days
	rule := domain.RetentionRuleTypeExpire
	_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, org, m.cfg.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: 60 * 60 * 24 * 30,
	})
	if err != nil {
		return fmt.Errorf("error creating bucket %q: %w", m.cfg.Bucket, err)
	}
	return nil
}

func (m *Manager) createWriter() {
	m.Writer = m.Client.WriteAPI(m.cfg.Org, m.cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}(m.Writer.Errors())
}

// Start flushes queued points every FlushInterval until ctx is done or Close is called.
func (m *Manager) Start(ctx context.Context) {
	interval := m.cfg.FlushInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.Flush(); err != nil {
					m.Logger.Warn().Err(err).Msg("Telemetry flush failed")
				}
			}
		}
	}()
}

// Enqueue adds a point without blocking. The oldest points are dropped once the queue is full.
func (m *Manager) Enqueue(point *influxdb2_write.Point) {
	if point == nil {
		return
	}
	if n := m.points.Push(point); n > 0 {
		m.Logger.Debug().Int("dropped", n).Msg("Telemetry queue full, dropped oldest points")
	}
}

// Pending returns the number of queued points.
func (m *Manager) Pending() int {
	return m.points.Len()
}

// Dropped returns how many points were evicted from a full queue.
func (m *Manager) Dropped() uint64 {
	return m.points.Dropped()
}

// Flush writes every queued point to the active sink.
// Points stay queued when there is no sink yet.
func (m *Manager) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.IsValid && m.BackupWriter == nil {
		return nil
	}
	batch := m.points.GetAndEmpty()
	for i, point := range batch {
		if err := m.writePoint(point); err != nil {
			m.points.Requeue(batch[i:])
			return err
		}
	}

	if m.IsValid {
		m.Writer.Flush()
		return nil
	}
	if err := m.BackupWriter.Flush(); err != nil {
		return fmt.Errorf("error flushing telemetry backup: %w", err)
	}
	return nil
}

func (m *Manager) writePoint(point *influxdb2_write.Point) error {
	if m.IsValid {
		m.Writer.WritePoint(point)
		return nil
	}
	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(line)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Close stops the flush loop, writes what is left and releases the sinks.
func (m *Manager) Close() error {
	if m.cancel != nil {
		m.cancel()
		<-m.done
		m.cancel = nil
	}
	err := m.Flush()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Client != nil {
		m.Client.Close()
		m.Client = nil
	}
	m.IsValid = false
	if m.BackupWriter != nil {
		err = errors.Join(err, m.BackupWriter.Close(), m.backupFile.Close())
		m.BackupWriter = nil
		m.backupFile = nil
	}
	return err
}

// RecordRoute queues the outcome of a route computation.
func (m *Manager) RecordRoute(destinationID string, result core.RouteResult) {
	reason := string(result.Reason)
	if reason == "" {
		reason = "ok"
	}
	point := m.newPoint(MeasurementRoute).
		AddTag("destination", destinationID).
		AddTag("reason", reason).
		AddField("valid", result.Valid).
		AddField("fallback", result.IsFallback).
		AddField("waypoints", len(result.Waypoints)).
		AddField("samples", len(result.Path)).
		AddField("totalAngle", result.TotalAngle).
		AddField("comfortCost", result.ComfortCost).
		AddField("uncomfortableSamples", result.UncomfortableSamples)
	m.Enqueue(point)
}

// RecordZoneTransition queues an audio state change.
func (m *Manager) RecordZoneTransition(state core.AudioZoneState) {
	point := m.newPoint(MeasurementZone).
		AddTag("state", state.State.String()).
		AddField("place", state.ActivePlaceID).
		AddField("keywords", len(state.Queue)).
		AddField("volume", state.EffectiveVolume()).
		AddField("playing", state.Playing)
	m.Enqueue(point)
}

// RecordStatus queues a periodic status sample. A sample without fields is dropped.
func (m *Manager) RecordStatus(fields map[string]interface{}) {
	if len(fields) == 0 {
		return
	}
	point := m.newPoint(MeasurementState)
	for k, v := range fields {
		point.AddField(k, v)
	}
	m.Enqueue(point)
}
