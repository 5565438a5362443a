// Package config loads the bot configuration from an optional YAML file and
// the process environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	envVarPrefix = "MEDIABOT"

	ModePolling = "polling"
	ModeWebhook = "webhook"
)

type TelegramConfig struct {
	Token        string        `yaml:"token"`
	Mode         string        `yaml:"mode"`
	PollTimeout  time.Duration `yaml:"poll_timeout"`
	PublicURL    string        `yaml:"public_url"`
	AllowedChats []int64       `yaml:"allowed_chats"`
}

type DownloadConfig struct {
	OutputDir           string `yaml:"output_dir"`
	MaxSizeMB           int    `yaml:"max_size_mb"`
	CookiesFile         string `yaml:"cookies_file"`
	YtDlpPath           string `yaml:"ytdlp_path"`
	Workers             int    `yaml:"workers"`
	ForceIPv4           bool   `yaml:"force_ipv4"`
	NoCheckCertificates bool   `yaml:"no_check_certificates"`
	RatePerMinute       int    `yaml:"rate_per_minute"`
	RateBurst           int    `yaml:"rate_burst"`
}

type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Download DownloadConfig `yaml:"download"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
}

// Default returns the configuration used for keys absent from both the file
// and the environment.
func Default() Config {
	return Config{
		Telegram: TelegramConfig{
			Mode:        ModePolling,
			PollTimeout: 10 * time.Second,
		},
		Download: DownloadConfig{
			OutputDir: "downloads",
			MaxSizeMB: 50,
			Workers:   4,
			RateBurst: 1,
		},
		HTTP: HTTPConfig{Listen: ":8080"},
		Log:  LogConfig{Level: "info"},
	}
}

// MaxSizeBytes is the upload ceiling in bytes.
func (c *Config) MaxSizeBytes() int64 {
	return int64(c.Download.MaxSizeMB) * 1024 * 1024
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := decodeStrict(data, &c); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}

	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func decodeStrict(data []byte, c *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) normalize() {
	c.Telegram.Token = strings.TrimSpace(c.Telegram.Token)
	c.Telegram.Mode = strings.ToLower(strings.TrimSpace(c.Telegram.Mode))
	c.Telegram.PublicURL = strings.TrimRight(strings.TrimSpace(c.Telegram.PublicURL), "/")
	c.Download.OutputDir = strings.TrimSpace(c.Download.OutputDir)
	if c.Download.YtDlpPath == "" {
		c.Download.YtDlpPath = "yt-dlp"
	}
	if c.Download.RateBurst < 1 {
		c.Download.RateBurst = 1
	}
}

// Validate reports the first missing or invalid setting.
func (c *Config) Validate() error {
	if key, env := func() (string, string) {
		if c.Telegram.Token == "" {
			return "telegram.token", "TELEGRAM_TOKEN"
		}
		if c.Download.OutputDir == "" {
			return "download.output_dir", "DOWNLOAD_OUTPUT_DIR"
		}
		if c.Telegram.Mode == ModeWebhook && c.Telegram.PublicURL == "" {
			return "telegram.public_url", "TELEGRAM_PUBLIC_URL"
		}
		if c.HTTP.Listen == "" && c.Telegram.Mode == ModeWebhook {
			return "http.listen", "HTTP_LISTEN"
		}
		return "", ""
	}(); key != "" {
		return fmt.Errorf(
			"missing required configuration: %s / %s_%s",
			key,
			envVarPrefix,
			env,
		)
	}

	switch c.Telegram.Mode {
	case ModePolling, ModeWebhook:
	default:
		return fmt.Errorf("telegram.mode must be %q or %q, got %q", ModePolling, ModeWebhook, c.Telegram.Mode)
	}
	if c.Telegram.Mode == ModeWebhook {
		u, err := url.Parse(c.Telegram.PublicURL)
		if err != nil || u.Scheme != "https" && u.Scheme != "http" || u.Host == "" {
			return fmt.Errorf("telegram.public_url must be an absolute http(s) URL, got %q", c.Telegram.PublicURL)
		}
	}
	if c.Telegram.PollTimeout <= 0 {
		return fmt.Errorf("telegram.poll_timeout must be positive, got %s", c.Telegram.PollTimeout)
	}
	if c.Download.MaxSizeMB <= 0 {
		return fmt.Errorf("download.max_size_mb must be positive, got %d", c.Download.MaxSizeMB)
	}
	if c.Download.Workers <= 0 {
		return fmt.Errorf("download.workers must be positive, got %d", c.Download.Workers)
	}
	if c.Download.RatePerMinute < 0 {
		return fmt.Errorf("download.rate_per_minute must not be negative, got %d", c.Download.RatePerMinute)
	}
	return nil
}
