package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fitflow/fitflow/internal/session"
	"github.com/fitflow/fitflow/internal/stream"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Trainer   TrainerConfig   `yaml:"trainer"`
	Backend   BackendConfig   `yaml:"backend"`
	Local     LocalConfig     `yaml:"local"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	// JWTSecret is shared with the auth backend. Empty runs the history API
	// as a single dev user.
	JWTSecret string `yaml:"jwt_secret"`
}

// TrainerConfig controls the live rep-counting session.
type TrainerConfig struct {
	URL           string        `yaml:"url"`
	FrameInterval time.Duration `yaml:"frame_interval"`
	JPEGQuality   int           `yaml:"jpeg_quality"`
	BackoffBase   time.Duration `yaml:"backoff_base"`
	BackoffStep   time.Duration `yaml:"backoff_step"`
	BackoffMax    time.Duration `yaml:"backoff_max"`
	SetMode       string        `yaml:"set_mode"`
	Countdown     int           `yaml:"countdown"`
	SetRest       int           `yaml:"set_rest"`
	ExerciseRest  int           `yaml:"exercise_rest"`
	// Frames is the directory the file camera replays.
	Frames string `yaml:"frames"`
}

type BackendConfig struct {
	AuthURL    string `yaml:"auth_url"`
	HistoryURL string `yaml:"history_url"`
}

type LocalConfig struct {
	StateDir string `yaml:"state_dir"`
	// Catalog optionally replaces the built-in plan catalog.
	Catalog string `yaml:"catalog"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// StreamConfig returns the trainer connection settings.
func (t TrainerConfig) StreamConfig() stream.Config {
	return stream.Config{
		BaseURL:       t.URL,
		FrameInterval: t.FrameInterval,
		JPEGQuality:   t.JPEGQuality,
		BackoffBase:   t.BackoffBase,
		BackoffStep:   t.BackoffStep,
		BackoffMax:    t.BackoffMax,
	}
}

// Rules returns the session timing.
func (t TrainerConfig) Rules() session.Rules {
	return session.Rules{Countdown: t.Countdown, SetRest: t.SetRest, ExerciseRest: t.ExerciseRest}
}

// Mode returns the configured set mode.
func (t TrainerConfig) Mode() session.SetMode {
	return session.ParseSetMode(t.SetMode)
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	dir := "."
	if d, err := os.UserConfigDir(); err == nil {
		dir = filepath.Join(d, "fitflow")
	}
	r := session.DefaultRules
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Trainer: TrainerConfig{
			URL:           "ws://127.0.0.1:8000/ws/ai_trainer",
			FrameInterval: 200 * time.Millisecond,
			JPEGQuality:   70,
			BackoffBase:   500 * time.Millisecond,
			BackoffStep:   time.Second,
			BackoffMax:    30 * time.Second,
			SetMode:       string(session.SetsCollapsed),
			Countdown:     r.Countdown,
			SetRest:       r.SetRest,
			ExerciseRest:  r.ExerciseRest,
		},
		Backend: BackendConfig{
			AuthURL:    "http://127.0.0.1:8000",
			HistoryURL: "http://127.0.0.1:8080",
		},
		Local: LocalConfig{StateDir: dir},
	}
}

// Load reads the server config from a YAML file, then applies environment
// variable overrides. Env vars use the prefix FITFLOW_ and underscore-separated
// paths:
//
//	FITFLOW_SERVER_HOST, FITFLOW_SERVER_PORT,
//	FITFLOW_DB_HOST, FITFLOW_DB_PORT, FITFLOW_DB_NAME,
//	FITFLOW_DB_USER, FITFLOW_DB_PASSWORD, FITFLOW_DB_SSLMODE,
//	FITFLOW_AUTH_JWT_SECRET, FITFLOW_TRAINER_URL, FITFLOW_TRAINER_SET_MODE,
//	FITFLOW_BACKEND_AUTH_URL, FITFLOW_BACKEND_HISTORY_URL,
//	FITFLOW_LOCAL_STATE_DIR, FITFLOW_TAILSCALE_HOSTNAME
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// LoadClient reads the CLI config. A missing file is not an error; defaults
// and environment overrides apply.
func LoadClient(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validateClient(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FITFLOW_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("FITFLOW_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FITFLOW_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("FITFLOW_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("FITFLOW_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("FITFLOW_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("FITFLOW_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("FITFLOW_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("FITFLOW_AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("FITFLOW_TRAINER_URL"); v != "" {
		cfg.Trainer.URL = v
	}
	if v := os.Getenv("FITFLOW_TRAINER_SET_MODE"); v != "" {
		cfg.Trainer.SetMode = v
	}
	if v := os.Getenv("FITFLOW_BACKEND_AUTH_URL"); v != "" {
		cfg.Backend.AuthURL = v
	}
	if v := os.Getenv("FITFLOW_BACKEND_HISTORY_URL"); v != "" {
		cfg.Backend.HistoryURL = v
	}
	if v := os.Getenv("FITFLOW_LOCAL_STATE_DIR"); v != "" {
		cfg.Local.StateDir = v
	}
	if v := os.Getenv("FITFLOW_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	return nil
}

func (c *Config) validateClient() error {
	if c.Trainer.URL == "" {
		return fmt.Errorf("trainer.url is required")
	}
	switch session.SetMode(c.Trainer.SetMode) {
	case session.SetsCollapsed, session.SetsCycled:
	default:
		return fmt.Errorf("trainer.set_mode must be %q or %q", session.SetsCollapsed, session.SetsCycled)
	}
	if c.Trainer.JPEGQuality < 1 || c.Trainer.JPEGQuality > 100 {
		return fmt.Errorf("trainer.jpeg_quality must be between 1 and 100")
	}
	if c.Trainer.Countdown < 0 || c.Trainer.SetRest < 0 || c.Trainer.ExerciseRest < 0 {
		return fmt.Errorf("trainer countdown and rest durations must not be negative")
	}
	if c.Backend.AuthURL == "" || c.Backend.HistoryURL == "" {
		return fmt.Errorf("backend.auth_url and backend.history_url are required")
	}
	if c.Local.StateDir == "" {
		return fmt.Errorf("local.state_dir is required")
	}
	return nil
}
