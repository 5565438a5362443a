package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envOverlay lists every setting that can come from the environment. Keys are
// MEDIABOT_<NAME>; BOT_TOKEN and PORT are honoured without the prefix for
// compatibility with older deployments.
type envOverlay struct {
	Token        *string        `envconfig:"TELEGRAM_TOKEN"`
	BotToken     *string        `envconfig:"BOT_TOKEN"`
	Mode         *string        `envconfig:"TELEGRAM_MODE"`
	PollTimeout  *time.Duration `envconfig:"TELEGRAM_POLL_TIMEOUT"`
	PublicURL    *string        `envconfig:"TELEGRAM_PUBLIC_URL"`
	AllowedChats []int64        `envconfig:"TELEGRAM_ALLOWED_CHATS"`

	OutputDir           *string `envconfig:"DOWNLOAD_OUTPUT_DIR"`
	MaxSizeMB           *int    `envconfig:"DOWNLOAD_MAX_SIZE_MB"`
	CookiesFile         *string `envconfig:"DOWNLOAD_COOKIES_FILE"`
	YtDlpPath           *string `envconfig:"DOWNLOAD_YTDLP_PATH"`
	Workers             *int    `envconfig:"DOWNLOAD_WORKERS"`
	ForceIPv4           *bool   `envconfig:"DOWNLOAD_FORCE_IPV4"`
	NoCheckCertificates *bool   `envconfig:"DOWNLOAD_NO_CHECK_CERTIFICATES"`
	RatePerMinute       *int    `envconfig:"DOWNLOAD_RATE_PER_MINUTE"`
	RateBurst           *int    `envconfig:"DOWNLOAD_RATE_BURST"`

	Listen *string `envconfig:"HTTP_LISTEN"`
	Port   *string `envconfig:"PORT"`

	LogLevel *string `envconfig:"LOG_LEVEL"`
}

func applyEnv(c *Config) error {
	var e envOverlay
	if err := envconfig.Process(envVarPrefix, &e); err != nil {
		return err
	}

	setString(&c.Telegram.Token, e.BotToken)
	setString(&c.Telegram.Token, e.Token)
	setString(&c.Telegram.Mode, e.Mode)
	if e.PollTimeout != nil {
		c.Telegram.PollTimeout = *e.PollTimeout
	}
	setString(&c.Telegram.PublicURL, e.PublicURL)
	if len(e.AllowedChats) > 0 {
		c.Telegram.AllowedChats = e.AllowedChats
	}

	setString(&c.Download.OutputDir, e.OutputDir)
	setInt(&c.Download.MaxSizeMB, e.MaxSizeMB)
	setString(&c.Download.CookiesFile, e.CookiesFile)
	setString(&c.Download.YtDlpPath, e.YtDlpPath)
	setInt(&c.Download.Workers, e.Workers)
	setBool(&c.Download.ForceIPv4, e.ForceIPv4)
	setBool(&c.Download.NoCheckCertificates, e.NoCheckCertificates)
	setInt(&c.Download.RatePerMinute, e.RatePerMinute)
	setInt(&c.Download.RateBurst, e.RateBurst)

	if e.Port != nil && strings.TrimSpace(*e.Port) != "" {
		c.HTTP.Listen = ":" + strings.TrimSpace(*e.Port)
	}
	setString(&c.HTTP.Listen, e.Listen)

	setString(&c.Log.Level, e.LogLevel)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
