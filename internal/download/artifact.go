package download

import (
	"os"
	"path/filepath"
)

// Artifact is a file produced by Fetch. The caller owns it until Remove is
// called.
type Artifact struct {
	Path string
	Size int64

	dir string // per-job scratch directory, removed together with Path
}

// NewArtifact wraps an existing file. Remove deletes only the file itself.
func NewArtifact(path string) (*Artifact, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &Artifact{Path: path, Size: fi.Size()}, nil
}

// Name is the file name without its directory.
func (a *Artifact) Name() string {
	return filepath.Base(a.Path)
}

// Ext is the file extension without the leading dot.
func (a *Artifact) Ext() string {
	ext := filepath.Ext(a.Path)
	if ext == "" {
		return ""
	}
	return ext[1:]
}

// Remove deletes the artifact and its scratch directory. It is safe to call
// more than once.
func (a *Artifact) Remove() error {
	if a == nil {
		return nil
	}
	if a.dir != "" {
		return os.RemoveAll(a.dir)
	}
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
