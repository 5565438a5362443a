// Package download runs the external media extractor for a resolved preset
// and hands back the produced file.
package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lrstanley/go-ytdlp"
	"github.com/rs/zerolog"

	mlog "media-bot/internal/log"
	"media-bot/internal/mode"
)

const jobDirPrefix = "mediabot-job-"

// leftovers are partial files yt-dlp may leave next to the real output.
var leftovers = []string{".part", ".ytdl", ".temp"}

// Options configures a Fetcher.
type Options struct {
	Executable          string // yt-dlp binary, defaults to "yt-dlp"
	Dir                 string // scratch directory
	CookiesFile         string
	ForceIPv4           bool
	NoCheckCertificates bool
}

// Fetcher invokes yt-dlp. Each Fetch call works in its own sub-directory of
// the scratch directory, so concurrent calls never share an output path.
type Fetcher struct {
	opts   Options
	logger zerolog.Logger
}

// New prepares the scratch directory and returns a Fetcher writing into it.
func New(opts Options) (*Fetcher, error) {
	if opts.Executable == "" {
		opts.Executable = "yt-dlp"
	}
	if opts.Dir == "" {
		return nil, fmt.Errorf("scratch directory is required")
	}
	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolving scratch directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	opts.Dir = dir
	return &Fetcher{
		opts:   opts,
		logger: mlog.WithComponent("download"),
	}, nil
}

// Dir returns the absolute scratch directory.
func (f *Fetcher) Dir() string {
	return f.opts.Dir
}

// Fetch downloads rawURL with preset p and blocks until the file is on disk.
// It must not be called from the goroutine that dispatches updates.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, p mode.Preset) (*Artifact, error) {
	if !IsHTTPURL(rawURL) {
		return nil, failed(fmt.Sprintf("not an http(s) URL: %q", rawURL))
	}

	jobDir, err := os.MkdirTemp(f.opts.Dir, jobDirPrefix+uuid.NewString()+"-")
	if err != nil {
		return nil, failed(fmt.Sprintf("creating job directory: %v", err))
	}

	logger := mlog.WithContext(ctx, f.logger).With().
		Str(mlog.FieldMode, string(p.Mode)).
		Str(mlog.FieldURL, rawURL).
		Logger()

	start := time.Now()
	art, err := f.run(ctx, jobDir, rawURL, p)
	if err != nil {
		_ = os.RemoveAll(jobDir)
		logger.Warn().Err(err).
			Str(mlog.FieldEvent, "download.failed").
			Dur("duration", time.Since(start)).
			Msg("download failed")
		return nil, err
	}

	logger.Info().
		Str(mlog.FieldEvent, "download.completed").
		Str(mlog.FieldPath, art.Path).
		Int64(mlog.FieldBytes, art.Size).
		Dur("duration", time.Since(start)).
		Msg("download completed")
	return art, nil
}

func (f *Fetcher) command(jobDir string, p mode.Preset) *ytdlp.Command {
	tmpl := p.OutputTemplate
	if tmpl == "" {
		tmpl = mode.DefaultOutputTemplate
	}

	cmd := ytdlp.New().
		SetExecutable(f.opts.Executable).
		Format(p.Format).
		NoPlaylist().
		NoProgress().
		Output(filepath.Join(jobDir, tmpl)).
		Print("after_move:filepath").
		NoSimulate()

	if p.MergeFormat != "" {
		cmd = cmd.MergeOutputFormat(p.MergeFormat)
	}
	if pp := p.PostProcess; pp != nil {
		cmd = cmd.ExtractAudio().AudioFormat(pp.Codec)
		if pp.Quality != "" {
			cmd = cmd.AudioQuality(pp.Quality + "K")
		}
	}
	if f.opts.CookiesFile != "" {
		cmd = cmd.Cookies(f.opts.CookiesFile)
	}
	if f.opts.ForceIPv4 {
		cmd = cmd.ForceIPv4()
	}
	if f.opts.NoCheckCertificates {
		cmd = cmd.NoCheckCertificates()
	}
	return cmd
}

func (f *Fetcher) run(ctx context.Context, jobDir, rawURL string, p mode.Preset) (*Artifact, error) {
	res, err := f.command(jobDir, p).Run(ctx, rawURL)
	if err != nil {
		var stderr string
		if res != nil {
			stderr = res.Stderr
		}
		return nil, failed(extractorMessage(stderr, err))
	}

	path := printedPath(res.Stdout, jobDir)
	if path == "" {
		path, err = scanJobDir(jobDir)
		if err != nil {
			return nil, failed(err.Error())
		}
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, failed(fmt.Sprintf("output file missing: %v", err))
	}
	if !fi.Mode().IsRegular() {
		return nil, failed(fmt.Sprintf("output is not a regular file: %s", filepath.Base(path)))
	}

	art := &Artifact{Path: path, Size: fi.Size(), dir: jobDir}
	if pp := p.PostProcess; pp != nil && !strings.EqualFold(art.Ext(), pp.Codec) {
		return nil, failed(fmt.Sprintf("post-processing produced .%s, expected .%s", art.Ext(), pp.Codec))
	}
	return art, nil
}

// printedPath returns the last path yt-dlp printed that lies inside jobDir.
func printedPath(stdout, jobDir string) string {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		abs, err := filepath.Abs(line)
		if err != nil {
			continue
		}
		if rel, err := filepath.Rel(jobDir, abs); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
			return abs
		}
	}
	return ""
}

// scanJobDir picks the produced file when yt-dlp printed nothing usable.
func scanJobDir(jobDir string) (string, error) {
	entries, err := os.ReadDir(jobDir)
	if err != nil {
		return "", fmt.Errorf("reading job directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || isLeftover(e.Name()) {
			continue
		}
		files = append(files, e.Name())
	}
	switch len(files) {
	case 0:
		return "", fmt.Errorf("extractor produced no file")
	case 1:
		return filepath.Join(jobDir, files[0]), nil
	default:
		sort.Strings(files)
		return "", fmt.Errorf("extractor produced %d files: %s", len(files), strings.Join(files, ", "))
	}
}

func isLeftover(name string) bool {
	for _, suffix := range leftovers {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// extractorMessage reduces yt-dlp stderr to the lines worth showing a user.
func extractorMessage(stderr string, err error) string {
	var errLines []string
	var last string
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		last = line
		if strings.HasPrefix(line, "ERROR:") {
			errLines = append(errLines, line)
		}
	}

	msg := strings.Join(errLines, "\n")
	if msg == "" {
		msg = last
	}
	if msg == "" {
		msg = err.Error()
	}
	const maxLen = 512
	if r := []rune(msg); len(r) > maxLen {
		msg = string(r[:maxLen]) + "…"
	}
	return msg
}

// Sweep removes job directories left over from a previous run. It must only
// be called while no Fetch is in flight.
func (f *Fetcher) Sweep() (int, error) {
	entries, err := os.ReadDir(f.opts.Dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), jobDirPrefix) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(f.opts.Dir, e.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
