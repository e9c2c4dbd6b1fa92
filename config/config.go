package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Gemini   GeminiConfig   `yaml:"gemini"`
	Maps     MapsConfig     `yaml:"maps"`
	Location LocationConfig `yaml:"location"`
	Audio    AudioConfig    `yaml:"audio"`
	HTTP     HTTPConfig     `yaml:"http"`
	Pushover PushoverConfig `yaml:"pushover"`
	Retry    RetryConfig    `yaml:"retry"`
	Log      LogConfig      `yaml:"log"`
}

type GeminiConfig struct {
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	LiveURL         string `yaml:"live_url"`
	DirectionsModel string `yaml:"directions_model"`
	SpeechModel     string `yaml:"speech_model"`
	LiveModel       string `yaml:"live_model"`
	Voice           string `yaml:"voice"`
}

type MapsConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type LocationConfig struct {
	Source    string  `yaml:"source"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	LookupURL string  `yaml:"lookup_url"`
}

type AudioConfig struct {
	Capture   string `yaml:"capture"`
	Player    string `yaml:"player"`
	InputDir  string `yaml:"input_dir"`
	OutputDir string `yaml:"output_dir"`
}

type HTTPConfig struct {
	Addr      string `yaml:"addr"`
	AuthToken string `yaml:"auth_token"`
	// TrustProxy keys rate limiting on X-Forwarded-For/X-Real-IP.
	TrustProxy bool `yaml:"trust_proxy"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type RetryConfig struct {
	MaxAttempts  int    `yaml:"max_attempts"`
	InitialDelay string `yaml:"initial_delay"`
	MaxDelay     string `yaml:"max_delay"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse expands ${VAR} references in data before decoding it.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

// Default is the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

func (c *Config) setDefaults() {
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = os.Getenv("API_KEY")
	}
	if c.Maps.APIKey == "" {
		c.Maps.APIKey = os.Getenv("MAPS_API_KEY")
	}
	if c.Location.Source == "" {
		c.Location.Source = "ip"
	}
	if c.Audio.Capture == "" {
		c.Audio.Capture = "microphone"
	}
	if c.Audio.Player == "" {
		c.Audio.Player = "speaker"
	}
	if c.Audio.InputDir == "" {
		c.Audio.InputDir = "./audio/in"
	}
	if c.Audio.OutputDir == "" {
		c.Audio.OutputDir = "./audio/out"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.InitialDelay == "" {
		c.Retry.InitialDelay = "100ms"
	}
	if c.Retry.MaxDelay == "" {
		c.Retry.MaxDelay = "5s"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Delays parses the retry delays.
func (r RetryConfig) Delays() (initial, maxDelay time.Duration, err error) {
	initial, err = time.ParseDuration(r.InitialDelay)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing initial_delay: %w", err)
	}
	maxDelay, err = time.ParseDuration(r.MaxDelay)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing max_delay: %w", err)
	}
	return initial, maxDelay, nil
}
