package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP      HTTPConfig
	Graph     GraphConfig
	Store     StoreConfig
	Client    ClientConfig
	Playback  PlaybackConfig
	Layout    LayoutConfig
	Events    EventsConfig
	Telemetry TelemetryConfig
	Logging   LoggingConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MetricsEnabled    bool
	AllowedOriginsCSV string
}

// GraphConfig describes connectivity to the Neo4j graph store.
type GraphConfig struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// StoreConfig selects the transaction store backing the data service.
type StoreConfig struct {
	Driver      string // memory|neo4j|postgres
	PostgresDSN string
	SeedOnStart bool
	SeedSize    int
}

// ClientConfig configures the data client used by the visualization host.
type ClientConfig struct {
	BaseURL       string
	Timeout       time.Duration
	SyntheticMode string // auto|always|never
	Scenario      string
	TimeRange     string
}

// PlaybackConfig tunes the timeline animation loop.
type PlaybackConfig struct {
	Speed         int
	BaseTickDelay time.Duration
	MinTickDelay  time.Duration
}

// LayoutConfig describes the virtual canvas both views render into.
type LayoutConfig struct {
	Width              float64
	Height             float64
	SimulationTick     time.Duration
	MaxSimulationTicks int
}

// EventsConfig controls publication of visualization events to NATS.
type EventsConfig struct {
	NATSURL       string
	SubjectPrefix string
}

// TelemetryConfig controls OpenTelemetry trace export. Tracing stays on the
// no-op provider while OTLPEndpoint is empty.
type TelemetryConfig struct {
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	Insecure     bool
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	Output        string // stdout|stderr|<file path>
	Colored       bool
	IncludeCaller bool
}

const (
	defaultHost             = "0.0.0.0"
	defaultPort             = 8080
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 15 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultLoggingLevel     = "info"
	defaultLoggingFormat    = "text"
	defaultLoggingOutput    = "stdout"
	defaultGraphMaxSessions = 10
	defaultStoreDriver      = "memory"
	defaultSeedSize         = 150
	defaultClientBaseURL    = "http://localhost:8080/api"
	defaultClientTimeout    = 10 * time.Second
	defaultSyntheticMode    = "auto"
	defaultScenario         = "all"
	defaultTimeRange        = "30d"
	defaultSpeed            = 10
	defaultBaseTickDelay    = 150 * time.Millisecond
	defaultMinTickDelay     = 50 * time.Millisecond
	defaultLayoutWidth      = 800
	defaultLayoutHeight     = 400
	defaultSimulationTick   = 16 * time.Millisecond
	defaultMaxSimTicks      = 300
	defaultSubjectPrefix    = "chronos.events"
	defaultServiceName      = "chronos"
	defaultEnvironment      = "development"
)

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Host:            valueOrDefault("SERVER_HOST", defaultHost),
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			Output:        valueOrDefault("LOG_OUTPUT", defaultLoggingOutput),
			Colored:       parseBoolWithDefault("LOG_COLOR", false),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
		Graph: GraphConfig{
			URI:            os.Getenv("GRAPH_URI"),
			Database:       valueOrDefault("GRAPH_DATABASE", ""),
			Username:       os.Getenv("GRAPH_USERNAME"),
			Password:       os.Getenv("GRAPH_PASSWORD"),
			MaxConnections: parseIntWithDefault("GRAPH_MAX_CONNECTIONS", defaultGraphMaxSessions),
		},
		Store: StoreConfig{
			Driver:      strings.ToLower(valueOrDefault("STORE_DRIVER", defaultStoreDriver)),
			PostgresDSN: os.Getenv("POSTGRES_DSN"),
			SeedOnStart: parseBoolWithDefault("STORE_SEED_ON_START", true),
			SeedSize:    parseIntWithDefault("STORE_SEED_SIZE", defaultSeedSize),
		},
		Client: ClientConfig{
			BaseURL:       valueOrDefault("CHRONOS_API_BASE_URL", defaultClientBaseURL),
			Timeout:       defaultClientTimeout,
			SyntheticMode: strings.ToLower(valueOrDefault("CHRONOS_SYNTHETIC", defaultSyntheticMode)),
			Scenario:      valueOrDefault("CHRONOS_SCENARIO", defaultScenario),
			TimeRange:     valueOrDefault("CHRONOS_TIME_RANGE", defaultTimeRange),
		},
		Playback: PlaybackConfig{
			Speed:         parseIntWithDefault("CHRONOS_SPEED", defaultSpeed),
			BaseTickDelay: defaultBaseTickDelay,
			MinTickDelay:  defaultMinTickDelay,
		},
		Layout: LayoutConfig{
			Width:              parseFloatWithDefault("CHRONOS_LAYOUT_WIDTH", defaultLayoutWidth),
			Height:             parseFloatWithDefault("CHRONOS_LAYOUT_HEIGHT", defaultLayoutHeight),
			SimulationTick:     defaultSimulationTick,
			MaxSimulationTicks: parseIntWithDefault("CHRONOS_MAX_SIMULATION_TICKS", defaultMaxSimTicks),
		},
		Events: EventsConfig{
			NATSURL:       os.Getenv("NATS_URL"),
			SubjectPrefix: valueOrDefault("NATS_SUBJECT_PREFIX", defaultSubjectPrefix),
		},
		Telemetry: TelemetryConfig{
			ServiceName:  valueOrDefault("OTEL_SERVICE_NAME", defaultServiceName),
			Environment:  valueOrDefault("CHRONOS_ENVIRONMENT", defaultEnvironment),
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure:     parseBoolWithDefault("OTEL_EXPORTER_OTLP_INSECURE", true),
		},
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout},
		{"CHRONOS_API_TIMEOUT", &cfg.Client.Timeout},
		{"CHRONOS_BASE_TICK_DELAY", &cfg.Playback.BaseTickDelay},
		{"CHRONOS_MIN_TICK_DELAY", &cfg.Playback.MinTickDelay},
		{"CHRONOS_SIMULATION_TICK", &cfg.Layout.SimulationTick},
	}
	for _, d := range durations {
		if err := parseDurationInto(d.key, d.target); err != nil {
			return Config{}, err
		}
	}

	cfg.HTTP.MetricsEnabled = parseBoolWithDefault("SERVER_METRICS_ENABLED", true)
	cfg.HTTP.AllowedOriginsCSV = os.Getenv("SERVER_ALLOWED_ORIGINS")

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Driver {
	case "memory", "neo4j", "postgres":
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Store.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required when STORE_DRIVER=postgres")
	}
	switch c.Client.SyntheticMode {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("unsupported CHRONOS_SYNTHETIC %q", c.Client.SyntheticMode)
	}
	if c.Playback.MinTickDelay <= 0 {
		return fmt.Errorf("CHRONOS_MIN_TICK_DELAY must be positive")
	}
	if c.Layout.Width <= 0 || c.Layout.Height <= 0 {
		return fmt.Errorf("layout dimensions must be positive")
	}
	return nil
}

// ParseAllowedOrigins splits the comma separated origin list.
func (h HTTPConfig) ParseAllowedOrigins() []string {
	if h.AllowedOriginsCSV == "" {
		return nil
	}
	var origins []string
	for _, part := range strings.Split(h.AllowedOriginsCSV, ",") {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseFloatWithDefault(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil {
			return val
		}
	}
	return fallback
}

func parseDurationInto(key string, target *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*target = d
	return nil
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
