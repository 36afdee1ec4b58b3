package config

import (
	"fmt"
	"time"

	"github.com/emomap/engine/pkg/core"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "emomap.cfg.json"

// RouterConfig holds route search settings.
type RouterConfig struct {
	Samples            int     `json:"samples" mapstructure:"samples"`
	SlopeStrict        float64 `json:"slopeStrict" mapstructure:"slopeStrict"`
	SlopeFallback      float64 `json:"slopeFallback" mapstructure:"slopeFallback"`
	ForbiddenRadiusDeg float64 `json:"forbiddenRadiusDeg" mapstructure:"forbiddenRadiusDeg"`
	CorridorDeg        float64 `json:"corridorDeg" mapstructure:"corridorDeg"`
	MinFraction        float64 `json:"minFraction" mapstructure:"minFraction"`
	MaxFraction        float64 `json:"maxFraction" mapstructure:"maxFraction"`
	MaxWaypoints       int     `json:"maxWaypoints" mapstructure:"maxWaypoints"`
	BandWidth          float64 `json:"bandWidth" mapstructure:"bandWidth"`
	ComfortRadiusDeg   float64 `json:"comfortRadiusDeg" mapstructure:"comfortRadiusDeg"`
}

// DefaultRouterConfig returns the stock route search settings.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Samples:            50,
		SlopeStrict:        0.25,
		SlopeFallback:      0.45,
		ForbiddenRadiusDeg: 2,
		CorridorDeg:        45,
		MinFraction:        0.2,
		MaxFraction:        0.8,
		MaxWaypoints:       2,
		BandWidth:          0.1,
		ComfortRadiusDeg:   22.5,
	}
}

// AudioConfig holds audio zoning and playback settings.
type AudioConfig struct {
	Enabled            bool                 `json:"enabled" mapstructure:"enabled"`
	InfluenceRadiusDeg float64              `json:"influenceRadiusDeg" mapstructure:"influenceRadiusDeg"`
	NeutralThreshold   float64              `json:"neutralThreshold" mapstructure:"neutralThreshold"`
	NeutralVolume      float64              `json:"neutralVolume" mapstructure:"neutralVolume"`
	NeutralMinVolume   float64              `json:"neutralMinVolume" mapstructure:"neutralMinVolume"`
	TrackRoot          string               `json:"trackRoot" mapstructure:"trackRoot"`
	SampleRate         int                  `json:"sampleRate" mapstructure:"sampleRate"`
	Seed               uint64               `json:"seed" mapstructure:"seed"`
	Pools              map[core.Emotion]int `json:"pool" mapstructure:"pool"`
}

// DefaultPools returns the number of tracks available per keyword.
func DefaultPools() map[core.Emotion]int {
	return map[core.Emotion]int{
		core.EmotionCalm:      4,
		core.EmotionAffection: 4,
		core.EmotionAnxiety:   4,
		core.EmotionAvoidance: 3,
		core.EmotionEmptiness: 3,
		core.EmotionImpulse:   5,
		core.EmotionTension:   4,
	}
}

// DefaultAudioConfig returns the stock audio settings.
func DefaultAudioConfig() AudioConfig {
	return AudioConfig{
		Enabled:            true,
		InfluenceRadiusDeg: 30,
		NeutralThreshold:   0.15,
		NeutralVolume:      0.7,
		NeutralMinVolume:   0.5,
		TrackRoot:          "./public",
		SampleRate:         44100,
		Pools:              DefaultPools(),
	}
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	Path     string `json:"path" mapstructure:"path"`
	Compress bool   `json:"compress" mapstructure:"compress"`
}

// StorageConfig selects and configures the place store.
type StorageConfig struct {
	Type       string       `json:"type" mapstructure:"type"`
	Memory     MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLitePath string       `json:"sqlitePath" mapstructure:"sqlitePath"`
}

// InfluxConfig holds telemetry writer settings.
type InfluxConfig struct {
	Enabled       bool
	Host          string
	Port          string
	Protocol      string
	Token         string
	Org           string
	Bucket        string
	FlushInterval time.Duration
	BackupPath    string
	QueueLimit    int
}

// StreamConfig holds the renderer websocket link settings.
type StreamConfig struct {
	Enabled bool
	URL     string
	Secret  string
}

// ArchiveConfig holds place export settings.
type ArchiveConfig struct {
	ExportDir string
	URL       string // archive service, optional
	APIKey    string
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers every default value with viper.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./emomaplogs")

	th := core.DefaultThresholds()
	viper.SetDefault("thresholds.forbidden", th.Forbidden)
	viper.SetDefault("thresholds.uncomfortable", th.Uncomfortable)
	viper.SetDefault("thresholds.comfortable", th.Comfortable)
	viper.SetDefault("thresholds.preferred", th.Preferred)

	rc := DefaultRouterConfig()
	viper.SetDefault("router.samples", rc.Samples)
	viper.SetDefault("router.slopeStrict", rc.SlopeStrict)
	viper.SetDefault("router.slopeFallback", rc.SlopeFallback)
	viper.SetDefault("router.forbiddenRadiusDeg", rc.ForbiddenRadiusDeg)
	viper.SetDefault("router.corridorDeg", rc.CorridorDeg)
	viper.SetDefault("router.minFraction", rc.MinFraction)
	viper.SetDefault("router.maxFraction", rc.MaxFraction)
	viper.SetDefault("router.maxWaypoints", rc.MaxWaypoints)
	viper.SetDefault("router.bandWidth", rc.BandWidth)
	viper.SetDefault("router.comfortRadiusDeg", rc.ComfortRadiusDeg)

	ac := DefaultAudioConfig()
	viper.SetDefault("audio.enabled", ac.Enabled)
	viper.SetDefault("audio.influenceRadiusDeg", ac.InfluenceRadiusDeg)
	viper.SetDefault("audio.neutralThreshold", ac.NeutralThreshold)
	viper.SetDefault("audio.neutralVolume", ac.NeutralVolume)
	viper.SetDefault("audio.neutralMinVolume", ac.NeutralMinVolume)
	viper.SetDefault("audio.trackRoot", ac.TrackRoot)
	viper.SetDefault("audio.sampleRate", ac.SampleRate)
	viper.SetDefault("audio.seed", 0)
	for k, n := range ac.Pools {
		viper.SetDefault("audio.pool."+string(k), n)
	}

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.path", "./places.json")
	viper.SetDefault("storage.memory.compress", false)
	viper.SetDefault("storage.sqlitePath", "./emomap.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "emomap")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "emomap-metrics")
	viper.SetDefault("influx.bucket", "emomap")
	viper.SetDefault("influx.flushInterval", "5s")
	viper.SetDefault("influx.backupPath", "./emomaplogs/telemetry_backup.lp.gz")
	viper.SetDefault("influx.queueLimit", 10000)

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("stream.enabled", false)
	viper.SetDefault("stream.url", "ws://localhost:5000/api/v1/emomap/ws")
	viper.SetDefault("stream.secret", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "emomap-engine")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("monitor.interval", "30s")

	viper.SetDefault("archive.exportDir", "./exports")
	viper.SetDefault("archive.url", "")
	viper.SetDefault("archive.apiKey", "")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetThresholds returns the configured intimacy cutoffs.
func GetThresholds() core.Thresholds {
	return core.Thresholds{
		Forbidden:     viper.GetInt("thresholds.forbidden"),
		Uncomfortable: viper.GetInt("thresholds.uncomfortable"),
		Comfortable:   viper.GetInt("thresholds.comfortable"),
		Preferred:     viper.GetInt("thresholds.preferred"),
	}
}

// GetRouterConfig returns the configured route search settings.
func GetRouterConfig() RouterConfig {
	return RouterConfig{
		Samples:            viper.GetInt("router.samples"),
		SlopeStrict:        viper.GetFloat64("router.slopeStrict"),
		SlopeFallback:      viper.GetFloat64("router.slopeFallback"),
		ForbiddenRadiusDeg: viper.GetFloat64("router.forbiddenRadiusDeg"),
		CorridorDeg:        viper.GetFloat64("router.corridorDeg"),
		MinFraction:        viper.GetFloat64("router.minFraction"),
		MaxFraction:        viper.GetFloat64("router.maxFraction"),
		MaxWaypoints:       viper.GetInt("router.maxWaypoints"),
		BandWidth:          viper.GetFloat64("router.bandWidth"),
		ComfortRadiusDeg:   viper.GetFloat64("router.comfortRadiusDeg"),
	}
}

// GetAudioConfig returns the configured audio settings.
func GetAudioConfig() AudioConfig {
	pools := make(map[core.Emotion]int, len(core.Emotions))
	for _, k := range core.Emotions {
		pools[k] = viper.GetInt("audio.pool." + string(k))
	}
	return AudioConfig{
		Enabled:            viper.GetBool("audio.enabled"),
		InfluenceRadiusDeg: viper.GetFloat64("audio.influenceRadiusDeg"),
		NeutralThreshold:   viper.GetFloat64("audio.neutralThreshold"),
		NeutralVolume:      viper.GetFloat64("audio.neutralVolume"),
		NeutralMinVolume:   viper.GetFloat64("audio.neutralMinVolume"),
		TrackRoot:          viper.GetString("audio.trackRoot"),
		SampleRate:         viper.GetInt("audio.sampleRate"),
		Seed:               viper.GetUint64("audio.seed"),
		Pools:              pools,
	}
}

// GetStorageConfig returns the place store settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			Path:     viper.GetString("storage.memory.path"),
			Compress: viper.GetBool("storage.memory.compress"),
		},
		SQLitePath: viper.GetString("storage.sqlitePath"),
	}
}

// GetInfluxConfig returns the telemetry writer settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:       viper.GetBool("influx.enabled"),
		Host:          viper.GetString("influx.host"),
		Port:          viper.GetString("influx.port"),
		Protocol:      viper.GetString("influx.protocol"),
		Token:         viper.GetString("influx.token"),
		Org:           viper.GetString("influx.org"),
		Bucket:        viper.GetString("influx.bucket"),
		FlushInterval: viper.GetDuration("influx.flushInterval"),
		BackupPath:    viper.GetString("influx.backupPath"),
		QueueLimit:    viper.GetInt("influx.queueLimit"),
	}
}

// GetStreamConfig returns the renderer link settings.
func GetStreamConfig() StreamConfig {
	return StreamConfig{
		Enabled: viper.GetBool("stream.enabled"),
		URL:     viper.GetString("stream.url"),
		Secret:  viper.GetString("stream.secret"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetArchiveConfig returns the place export settings.
func GetArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		ExportDir: viper.GetString("archive.exportDir"),
		URL:       viper.GetString("archive.url"),
		APIKey:    viper.GetString("archive.apiKey"),
	}
}
