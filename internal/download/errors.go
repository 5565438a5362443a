package download

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

var (
	// ErrDownloadFailed wraps every failure of the extractor run: network
	// errors, unsupported sites, missing formats and post-processing errors.
	ErrDownloadFailed = errors.New("download failed")

	// ErrFileTooLarge is returned by CheckSize when an artifact exceeds the
	// upload ceiling.
	ErrFileTooLarge = errors.New("file too large")
)

func failed(msg string) error {
	return fmt.Errorf("%w: %s", ErrDownloadFailed, msg)
}

// CheckSize rejects artifacts larger than limit. A non-positive limit
// disables the check.
func CheckSize(a *Artifact, limit int64) error {
	if limit <= 0 || a.Size <= limit {
		return nil
	}
	return fmt.Errorf("%w: %s exceeds the %s limit",
		ErrFileTooLarge,
		humanize.IBytes(uint64(a.Size)),
		humanize.IBytes(uint64(limit)),
	)
}
