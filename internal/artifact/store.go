// Package artifact persists finished narration audio on local disk.
//
// Artifacts are written as <dir>/<job id>.wav. The store owns the directory:
// a background sweep removes files older than the configured retention so
// the disk does not fill up on a long-running instance.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ErrNotFound is returned when no artifact exists for a job id.
var ErrNotFound = errors.New("artifact not found")

// Store writes and serves narration audio files.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates the artifact directory if needed and returns a store.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact dir: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Save writes the audio for a job and returns the file path. Writes go
// through a temp file and rename so readers never see a partial artifact.
func (s *Store) Save(id string, data []byte) (string, error) {
	path := s.pathFor(id)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("publishing artifact: %w", err)
	}

	s.logger.Debug("artifact saved", "id", id, "bytes", len(data))
	return path, nil
}

// Path returns the artifact path for a job, or ErrNotFound.
func (s *Store) Path(id string) (string, error) {
	path := s.pathFor(id)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("stat artifact: %w", err)
	}
	return path, nil
}

// Delete removes the artifact for a job. Missing files are not an error.
func (s *Store) Delete(id string) error {
	err := os.Remove(s.pathFor(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing artifact: %w", err)
	}
	return nil
}

// CleanupOlderThan removes artifacts whose modification time is older than
// maxAge and returns the number removed.
func (s *Store) CleanupOlderThan(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("reading artifact dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".wav" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}

	if removed > 0 {
		s.logger.Info("swept old artifacts", "removed", removed)
	}
	return removed, nil
}

// Sweep runs CleanupOlderThan(maxAge) every interval until ctx is cancelled.
// Intended to run in its own goroutine.
func (s *Store) Sweep(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.CleanupOlderThan(maxAge); err != nil {
				s.logger.Error("artifact sweep failed", "error", err)
			}
		}
	}
}

func (s *Store) pathFor(id string) string {
	return filepath.Join(s.dir, id+".wav")
}
