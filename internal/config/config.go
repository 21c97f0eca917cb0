package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type VoiceConfig struct {
	Default    string `yaml:"default"`
	Dir        string `yaml:"dir"`
	PreloadAll bool   `yaml:"preload_all"`
}

type ModelConfig struct {
	Mode         string `yaml:"mode"` // mock, exec
	Command      string `yaml:"command"`
	SampleRate   int    `yaml:"sample_rate"`
	ChunkSamples int    `yaml:"chunk_samples"`
	Serialize    bool   `yaml:"serialize"`
	HFToken      string `yaml:"hf_token"`
}

type BusConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Servers           []string `yaml:"servers"`
	Username          string   `yaml:"username"`
	Password          string   `yaml:"password"`
	Token             string   `yaml:"token"`
	TLSInsecure       bool     `yaml:"tls_insecure"`
	ConnectTimeout    int      `yaml:"connect_timeout_ms"`
	HeartbeatInterval int      `yaml:"heartbeat_interval_ms"`
}

type JournalConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxTurns      int    `yaml:"max_turns"`
}

type Config struct {
	ServerName  string          `yaml:"server_name"`
	Environment string          `yaml:"environment"`
	Server      ServerConfig    `yaml:"server"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Voice       VoiceConfig     `yaml:"voice"`
	Model       ModelConfig     `yaml:"model"`
	Bus         BusConfig       `yaml:"bus"`
	Journal     JournalConfig   `yaml:"journal"`
}

func Default() Config {
	return Config{
		ServerName:  "pocketvox",
		Environment: "development",
		Server: ServerConfig{
			Bind: "0.0.0.0",
			Port: 10200,
		},
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 10201,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPInsecure: true,
		},
		Voice: VoiceConfig{
			Default: "alba",
			Dir:     "/share/tts-voices",
		},
		Model: ModelConfig{
			Mode:         "mock",
			SampleRate:   24000,
			ChunkSamples: 4096,
			Serialize:    true,
		},
		Bus: BusConfig{
			Enabled:           false,
			Servers:           []string{"nats://localhost:4222"},
			ConnectTimeout:    2000,
			HeartbeatInterval: 5000,
		},
		Journal: JournalConfig{
			Path:          "./data/pocketvox-journal.db",
			RetentionMode: "ephemeral",
			RetentionDays: 30,
			MaxTurns:      10000,
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
	overrideString(&cfg.ServerName, "POCKETVOX_SERVER_NAME")
	overrideString(&cfg.Environment, "POCKETVOX_ENVIRONMENT")
	overrideString(&cfg.Server.Bind, "POCKETVOX_SERVER_BIND")
	overrideInt(&cfg.Server.Port, "POCKETVOX_SERVER_PORT")
	overrideString(&cfg.HTTP.Bind, "POCKETVOX_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "POCKETVOX_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "POCKETVOX_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "POCKETVOX_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "POCKETVOX_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Voice.Default, "POCKETVOX_VOICE_DEFAULT")
	overrideString(&cfg.Voice.Dir, "POCKETVOX_VOICE_DIR")
	overrideBool(&cfg.Voice.PreloadAll, "POCKETVOX_VOICE_PRELOAD_ALL")
	overrideString(&cfg.Model.Mode, "POCKETVOX_MODEL_MODE")
	overrideString(&cfg.Model.Command, "POCKETVOX_MODEL_COMMAND")
	overrideInt(&cfg.Model.SampleRate, "POCKETVOX_MODEL_SAMPLE_RATE")
	overrideInt(&cfg.Model.ChunkSamples, "POCKETVOX_MODEL_CHUNK_SAMPLES")
	overrideBool(&cfg.Model.Serialize, "POCKETVOX_MODEL_SERIALIZE")
	overrideString(&cfg.Model.HFToken, "HF_TOKEN")
	overrideBool(&cfg.Bus.Enabled, "POCKETVOX_BUS_ENABLED")
	overrideStringSlice(&cfg.Bus.Servers, "POCKETVOX_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "POCKETVOX_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "POCKETVOX_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "POCKETVOX_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "POCKETVOX_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "POCKETVOX_BUS_CONNECT_TIMEOUT_MS")
	overrideInt(&cfg.Bus.HeartbeatInterval, "POCKETVOX_BUS_HEARTBEAT_INTERVAL_MS")
	overrideString(&cfg.Journal.Path, "POCKETVOX_JOURNAL_PATH")
	overrideString(&cfg.Journal.RetentionMode, "POCKETVOX_JOURNAL_RETENTION_MODE")
	overrideInt(&cfg.Journal.RetentionDays, "POCKETVOX_JOURNAL_RETENTION_DAYS")
	overrideInt(&cfg.Journal.MaxTurns, "POCKETVOX_JOURNAL_MAX_TURNS")
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
	if cfg.ServerName == "" {
		return errors.New("server_name must not be empty")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Voice.Default == "" {
		return errors.New("voice.default must not be empty")
	}
	switch cfg.Model.Mode {
	case "mock", "exec":
	default:
		return errors.New("model.mode must be one of mock|exec")
	}
	if cfg.Model.Mode == "exec" && cfg.Model.Command == "" {
		return errors.New("model.command must be set when mode=exec")
	}
	if cfg.Model.SampleRate <= 0 {
		return errors.New("model.sample_rate must be positive")
	}
	if cfg.Model.ChunkSamples <= 0 {
		return errors.New("model.chunk_samples must be positive")
	}
	if cfg.Bus.Enabled {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when the bus is enabled")
		}
		if cfg.Bus.HeartbeatInterval <= 0 {
			return errors.New("bus.heartbeat_interval_ms must be positive")
		}
	}
	switch cfg.Journal.RetentionMode {
	case "ephemeral", "persistent":
		// ok
	default:
		return errors.New("journal.retention_mode must be one of ephemeral|persistent")
	}
	if cfg.Journal.RetentionMode == "persistent" && cfg.Journal.Path == "" {
		return errors.New("journal.path must not be empty when retention is persistent")
	}
	if cfg.Journal.RetentionDays < 0 {
		return errors.New("journal.retention_days must be >= 0")
	}
	return nil
}
