package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/emomap/engine/internal/api"
	"github.com/emomap/engine/internal/audio"
	"github.com/emomap/engine/internal/config"
	"github.com/emomap/engine/internal/database"
	"github.com/emomap/engine/internal/dispatcher"
	"github.com/emomap/engine/internal/influx"
	"github.com/emomap/engine/internal/logging"
	"github.com/emomap/engine/internal/monitor"
	intOtel "github.com/emomap/engine/internal/otel"
	"github.com/emomap/engine/internal/places"
	"github.com/emomap/engine/internal/router"
	"github.com/emomap/engine/internal/storage"
	"github.com/emomap/engine/internal/stream"
	"github.com/emomap/engine/internal/worker"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// app holds every long-lived component of one engine run.
type app struct {
	SlogManager  *logging.SlogManager
	Logger       *slog.Logger
	OTelProvider *intOtel.Provider

	logFile     *os.File
	infraLogger zerolog.Logger
	started     time.Time

	db         *database.Manager
	backend    storage.Backend
	index      *places.Index
	router     *router.Router
	speaker    *audio.SpeakerPlayer
	controller *audio.Controller
	link       *stream.Link
	telemetry  *influx.Manager
	dispatcher *dispatcher.Dispatcher
	worker     *worker.Manager
	monitor    *monitor.Service
}

func newApp(ctx context.Context, configDir string) (*app, error) {
	a := &app{started: time.Now()}

	// log to stderr until the log file exists; stdout carries replies
	a.SlogManager = logging.NewSlogManager()
	a.SlogManager.Setup(os.Stderr, viper.GetString("logLevel"), nil)
	a.Logger = a.SlogManager.Logger()

	if err := config.Load(configDir); err != nil {
		a.Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		a.Logger.Info("Loaded config", "dir", configDir)
	}

	a.setupLogging()

	if err := a.initStorage(); err != nil {
		a.close()
		return nil, err
	}
	if err := a.initEngine(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// setupLogging moves logging to the session log file and attaches OTel and Graylog when enabled.
func (a *app) setupLogging() {
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		a.Logger.Error("Failed to create logs dir", "error", err, "path", logsDir)
	}

	logFilePath := logging.LogFilePath(logsDir, ExtensionName, a.started)
	var out io.Writer = os.Stderr
	file, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		a.Logger.Error("Failed to create/open log file!", "error", err, "path", logFilePath)
	} else {
		a.logFile = file
		out = file
	}

	a.infraLogger = zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}).With().Timestamp().Logger().Hook(zerolog.HookFunc(
		func(e *zerolog.Event, level zerolog.Level, msg string) {
			if a.index != nil {
				e.Int("places", a.index.Len())
			}
		}))

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		a.OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			Version:      CurrentVersion,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    out,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			a.Logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			a.Logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		}
	}

	if viper.GetBool("graylog.enabled") {
		addr := viper.GetString("graylog.address")
		if err := a.SlogManager.EnableGELF(addr); err != nil {
			a.Logger.Error("Failed to set up Graylog", "error", err, "address", addr)
		}
	}

	a.SlogManager.SetContextProvider(func() []slog.Attr {
		var attrs []slog.Attr
		if a.index != nil {
			attrs = append(attrs, slog.Int("places", a.index.Len()))
		}
		if a.controller != nil {
			s := a.controller.State()
			attrs = append(attrs, slog.String("zone", s.State.String()))
			if s.ActivePlaceID != "" {
				attrs = append(attrs, slog.String("activePlace", s.ActivePlaceID))
			}
		}
		return attrs
	})

	var otelLogProvider *sdklog.LoggerProvider
	if a.OTelProvider != nil && a.OTelProvider.Enabled() {
		otelLogProvider = a.OTelProvider.LoggerProvider()
	}
	a.SlogManager.Setup(out, viper.GetString("logLevel"), otelLogProvider)
	a.Logger = a.SlogManager.Logger()
	a.Logger.Info("Logging to file", "path", logFilePath)
}

func (a *app) initEngine(ctx context.Context) error {
	var err error

	a.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(a.infraLogger))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	a.registerSystemHandlers(a.dispatcher)

	a.index = places.NewIndex(config.GetThresholds())
	a.router, err = router.New(router.Dependencies{
		Places: a.index,
		Logger: a.Logger.With("component", "router"),
	}, config.GetRouterConfig())
	if err != nil {
		return err
	}

	audioCfg := config.GetAudioConfig()
	var player audio.Player = audio.NopPlayer{}
	if audioCfg.Enabled {
		a.speaker = audio.NewSpeakerPlayer(audioCfg.TrackRoot, audioCfg.SampleRate, a.Logger.With("component", "speaker"))
		if err := a.speaker.Init(); err != nil {
			a.Logger.Warn("Speaker unavailable, playing silently", "error", err)
			a.speaker = nil
		} else {
			player = a.speaker
		}
	}
	a.controller, err = audio.NewController(audio.Dependencies{
		Places:       a.index,
		Player:       player,
		Logger:       a.Logger.With("component", "audio"),
		OnTransition: worker.TransitionHook(a.dispatcher, a.Logger),
	}, audioCfg)
	if err != nil {
		return err
	}

	archiveCfg := config.GetArchiveConfig()
	deps := worker.Dependencies{
		Index:     a.index,
		Router:    a.router,
		Audio:     a.controller,
		Backend:   a.backend,
		Logger:    a.Logger,
		ExportDir: archiveCfg.ExportDir,
		SessionID: uuid.NewString(),
	}
	if archiveCfg.URL != "" {
		archive := api.New(archiveCfg.URL, archiveCfg.APIKey)
		if err := archive.Healthcheck(ctx); err != nil {
			a.Logger.Warn("Place archive not reachable, exports stay local until it is", "error", err)
		}
		deps.Archive = archive
	}

	streamCfg := config.GetStreamConfig()
	if streamCfg.Enabled {
		a.link = stream.New(stream.Config{
			URL:     streamCfg.URL,
			Secret:  streamCfg.Secret,
			Version: CurrentVersion,
		}, a.Logger.With("component", "stream"))
		if err := a.link.Init(); err != nil {
			a.Logger.Warn("Renderer link unavailable", "error", err, "url", streamCfg.URL)
			a.link = nil
		} else {
			deps.Publisher = a.link
			deps.SessionID = a.link.SessionID()
		}
	}

	influxCfg := config.GetInfluxConfig()
	if influxCfg.Enabled {
		a.telemetry = influx.NewManager(a.infraLogger, influxCfg)
		a.telemetry.SetSession(deps.SessionID)
		if err := a.telemetry.Connect(ctx); err != nil {
			a.Logger.Warn("Telemetry unavailable", "error", err)
			a.telemetry = nil
		} else {
			a.telemetry.Start(ctx)
			deps.Telemetry = a.telemetry
		}
	}

	a.worker = worker.NewManager(deps)
	a.worker.RegisterHandlers(a.dispatcher)

	if _, err := a.worker.LoadPlaces(); err != nil {
		a.Logger.Warn("Failed to load stored places", "error", err)
	}

	monitorDeps := monitor.Dependencies{
		Status:     a.worker.Status,
		Logger:     a.Logger.With("component", "monitor"),
		StatusFile: filepath.Join(viper.GetString("logsDir"), "status.json"),
		Interval:   config.GetDuration("monitor.interval"),
	}
	if a.link != nil {
		monitorDeps.LinkStats = a.link.Stats
	}
	if a.telemetry != nil {
		monitorDeps.Telemetry = a.telemetry
	}
	a.monitor = monitor.NewService(monitorDeps)
	return a.monitor.Start()
}

// close shuts components down in reverse order of setup.
func (a *app) close() {
	var errs []error

	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.controller != nil {
		a.controller.StopAll()
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.speaker != nil {
		a.speaker.Close()
	}
	if a.link != nil {
		errs = append(errs, a.link.Close())
	}
	if a.telemetry != nil {
		errs = append(errs, a.telemetry.Close())
	}
	if a.backend != nil {
		errs = append(errs, a.backend.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.OTelProvider != nil {
		errs = append(errs, a.OTelProvider.Shutdown(ctx))
	}

	if err := errors.Join(errs...); err != nil {
		a.Logger.Error("Errors during shutdown", "error", err)
	} else {
		a.Logger.Info("Shut down cleanly")
	}
	_ = a.SlogManager.Close(ctx)
	if a.logFile != nil {
		a.logFile.Close()
	}
}
