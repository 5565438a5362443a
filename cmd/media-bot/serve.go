package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"media-bot/internal/bot"
	"media-bot/internal/config"
	"media-bot/internal/download"
	"media-bot/internal/health"
	mlog "media-bot/internal/log"
	"media-bot/internal/ratelimit"
	"media-bot/internal/server"
	"media-bot/internal/worker"
)

const (
	defaultConfigPath = "config.yaml"

	drainTimeout    = 2 * time.Minute
	cancelTimeout   = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

// resolveConfigPath returns the explicit path, or ./config.yaml when it
// exists, or "" for environment-only configuration.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

func checkDependencies(ytdlp string) error {
	if _, err := exec.LookPath(ytdlp); err != nil {
		return fmt.Errorf("yt-dlp not found (%s): install it or set download.ytdlp_path", ytdlp)
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return errors.New("ffmpeg not found: install it first")
	}
	return nil
}

func runServe(ctx context.Context, configPath string) error {
	mlog.Configure(mlog.Config{Level: "info", Version: version})
	logger := mlog.WithComponent("daemon")

	path := resolveConfigPath(configPath)
	cfg, err := config.Load(path)
	if err != nil {
		logger.Error().Err(err).
			Str(mlog.FieldEvent, "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
		return err
	}

	mlog.Configure(mlog.Config{Level: cfg.Log.Level, Version: version})
	logger = mlog.WithComponent("daemon")
	if path != "" {
		logger.Info().Str(mlog.FieldEvent, "config.loaded").Str("path", path).Msg("loaded configuration from file")
	} else {
		logger.Info().Str(mlog.FieldEvent, "config.loaded").Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	if err := checkDependencies(cfg.Download.YtDlpPath); err != nil {
		logger.Error().Err(err).Str(mlog.FieldEvent, "startup.dependency_missing").Msg("missing dependency")
		return err
	}

	fetcher, err := download.New(download.Options{
		Executable:          cfg.Download.YtDlpPath,
		Dir:                 cfg.Download.OutputDir,
		CookiesFile:         cfg.Download.CookiesFile,
		ForceIPv4:           cfg.Download.ForceIPv4,
		NoCheckCertificates: cfg.Download.NoCheckCertificates,
	})
	if err != nil {
		return err
	}
	if n, err := fetcher.Sweep(); err != nil {
		logger.Warn().Err(err).Msg("failed to sweep scratch directory")
	} else if n > 0 {
		logger.Info().Int("removed", n).Str(mlog.FieldPath, fetcher.Dir()).Msg("removed leftovers from a previous run")
	}

	hm := health.NewManager(version)
	hm.RegisterChecker(health.ExecutableChecker{Path: cfg.Download.YtDlpPath})
	hm.RegisterChecker(health.ExecutableChecker{Path: "ffmpeg"})
	hm.RegisterChecker(health.DirWritableChecker{Dir: fetcher.Dir()})

	b, err := bot.New(bot.Settings{
		Token:        cfg.Telegram.Token,
		Mode:         cfg.Telegram.Mode,
		PollTimeout:  cfg.Telegram.PollTimeout,
		PublicURL:    cfg.Telegram.PublicURL,
		AllowedChats: cfg.Telegram.AllowedChats,
	})
	if err != nil {
		return err
	}

	// Jobs outlive the signal context so in-flight downloads can finish.
	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()

	pool := worker.New(cfg.Download.Workers)
	handler := bot.NewHandler(bot.Options{
		Messenger:   b.Bot,
		Fetcher:     fetcher,
		Pool:        pool,
		Limiter:     ratelimit.New(cfg.Download.RatePerMinute, cfg.Download.RateBurst),
		MaxSize:     cfg.MaxSizeBytes(),
		BaseContext: jobCtx,
	})
	handler.Register(b.Bot)

	var srv *server.Server
	if cfg.HTTP.Listen != "" {
		opts := server.Options{Listen: cfg.HTTP.Listen, Health: hm}
		if cfg.Telegram.Mode == config.ModeWebhook {
			opts.Webhook = b.HTTPHandler()
			opts.WebhookPath = bot.SecretPath(cfg.Telegram.Token)
		}
		srv = server.New(opts)
	}

	logger.Info().
		Str(mlog.FieldEvent, "startup.ready").
		Str("transport", cfg.Telegram.Mode).
		Int("workers", pool.Size()).
		Str("max_size", fmt.Sprintf("%d MiB", cfg.Download.MaxSizeMB)).
		Msg("media-bot started")

	g, gctx := errgroup.WithContext(ctx)
	botDone := make(chan struct{})

	g.Go(func() error {
		defer close(botDone)
		return b.Run(gctx)
	})
	if srv != nil {
		g.Go(srv.ListenAndServe)
	}
	g.Go(func() error {
		<-gctx.Done()
		<-botDone
		logger.Info().Str(mlog.FieldEvent, "shutdown.started").Msg("bot stopped, draining downloads")
		drain(pool, cancelJobs, logger)

		if srv == nil {
			return nil
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info().Str(mlog.FieldEvent, "shutdown.completed").Msg("media-bot stopped")
	return err
}

// drain stops new jobs and waits for running ones, cancelling them when they
// exceed drainTimeout.
func drain(pool *worker.Pool, cancelJobs context.CancelFunc, logger zerolog.Logger) {
	pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := pool.Wait(ctx); err == nil {
		return
	}

	logger.Warn().Str(mlog.FieldEvent, "shutdown.cancel_jobs").Msg("downloads still running, cancelling")
	cancelJobs()

	ctx, cancel = context.WithTimeout(context.Background(), cancelTimeout)
	defer cancel()
	if err := pool.Wait(ctx); err != nil {
		logger.Error().Err(err).Msg("gave up waiting for downloads")
	}
}
