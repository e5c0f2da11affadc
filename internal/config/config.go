package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

// SynthConfig configures the DSP engine behind the speech service.
type SynthConfig struct {
	SampleRate      int `yaml:"sample_rate"`
	MaxQueuedFrames int `yaml:"max_queued_frames"`
	ChunkDurationMS int `yaml:"chunk_duration_ms"`
}

// PacksConfig locates the language packs.
type PacksConfig struct {
	Directory       string `yaml:"directory"`
	DefaultLanguage string `yaml:"default_language"`
}

// SpeechConfig controls the bus-facing speech service.
type SpeechConfig struct {
	Enabled bool `yaml:"enabled"`
}

type EventStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxUtterances int    `yaml:"max_utterances"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type Config struct {
	RuntimeName string           `yaml:"runtime_name"`
	Environment string           `yaml:"environment"`
	HTTP        HTTPConfig       `yaml:"http"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
	Bus         BusConfig        `yaml:"bus"`
	Synth       SynthConfig      `yaml:"synth"`
	Packs       PacksConfig      `yaml:"packs"`
	Speech      SpeechConfig     `yaml:"speech"`
	EventStore  EventStoreConfig `yaml:"event_store"`
}

func Default() Config {
	return Config{
		RuntimeName: "nvsp-runtime",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Synth: SynthConfig{
			SampleRate:      22050,
			MaxQueuedFrames: 256,
			ChunkDurationMS: 200,
		},
		Packs: PacksConfig{
			Directory:       "./packs",
			DefaultLanguage: "en",
		},
		Speech: SpeechConfig{
			Enabled: true,
		},
		EventStore: EventStoreConfig{
			Path:          "./data/nvsp-events.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxUtterances: 10000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "NVSP_RUNTIME_NAME")
	overrideString(&cfg.Environment, "NVSP_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "NVSP_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "NVSP_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "NVSP_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "NVSP_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "NVSP_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "NVSP_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Embedded, "NVSP_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "NVSP_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "NVSP_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "NVSP_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "NVSP_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "NVSP_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "NVSP_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "NVSP_BUS_CONNECT_TIMEOUT_MS")
	overrideInt(&cfg.Synth.SampleRate, "NVSP_SYNTH_SAMPLE_RATE")
	overrideInt(&cfg.Synth.MaxQueuedFrames, "NVSP_SYNTH_MAX_QUEUED_FRAMES")
	overrideInt(&cfg.Synth.ChunkDurationMS, "NVSP_SYNTH_CHUNK_DURATION_MS")
	overrideString(&cfg.Packs.Directory, "NVSP_PACKS_DIRECTORY")
	overrideString(&cfg.Packs.DefaultLanguage, "NVSP_PACKS_DEFAULT_LANGUAGE")
	overrideBool(&cfg.Speech.Enabled, "NVSP_SPEECH_ENABLED")
	overrideString(&cfg.EventStore.Path, "NVSP_EVENT_STORE_PATH")
	overrideString(&cfg.EventStore.RetentionMode, "NVSP_EVENT_STORE_RETENTION_MODE")
	overrideInt(&cfg.EventStore.RetentionDays, "NVSP_EVENT_STORE_RETENTION_DAYS")
	overrideInt(&cfg.EventStore.MaxUtterances, "NVSP_EVENT_STORE_MAX_UTTERANCES")
	overrideBool(&cfg.EventStore.VacuumOnStart, "NVSP_EVENT_STORE_VACUUM_ON_START")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Synth.SampleRate <= 0 {
		return errors.New("synth.sample_rate must be positive")
	}
	if cfg.Synth.MaxQueuedFrames <= 0 {
		return errors.New("synth.max_queued_frames must be positive")
	}
	if cfg.Synth.ChunkDurationMS <= 0 {
		return errors.New("synth.chunk_duration_ms must be positive")
	}
	if cfg.Packs.Directory == "" {
		return errors.New("packs.directory must not be empty")
	}
	if cfg.EventStore.Path == "" {
		return errors.New("event_store.path must not be empty")
	}
	switch cfg.EventStore.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("event_store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.EventStore.RetentionDays < 0 {
		return errors.New("event_store.retention_days must be >= 0")
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	return nil
}
