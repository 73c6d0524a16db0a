package persistence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
	"github.com/shift-devs/twitch-gamepad/internal/core/ports"
)

const archiveStampLayout = "20060102-150405.000"

// FileStore persists the snapshot as one JSON file. Writes go through a
// temp file in the target directory, fsync and rename, so a crash mid-save
// leaves the previous snapshot intact. Snapshots may carry block lists for
// real users, hence 0600.
type FileStore struct {
	path             string
	archiveRetention int
	logger           *zap.SugaredLogger

	mu sync.Mutex
}

// NewFileStore stores snapshots at path, keeping up to archiveRetention
// timestamped copies of earlier saves (0 disables archiving).
func NewFileStore(path string, archiveRetention int, logger *zap.SugaredLogger) *FileStore {
	return &FileStore{
		path:             path,
		archiveRetention: archiveRetention,
		logger:           logger,
	}
}

var _ ports.SnapshotStore = (*FileStore)(nil)

func (s *FileStore) Name() string { return "file" }

func (s *FileStore) Save(_ context.Context, snapshot domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if err := writeAndSync(tmp, data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	if s.archiveRetention > 0 {
		s.archive(data)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context) (domain.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("reading snapshot: %w", err)
	}
	return decodeSnapshot(data)
}

func (s *FileStore) Close() error { return nil }

func writeAndSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Chmod(0o600); err != nil {
		return err
	}
	return f.Sync()
}

// archive keeps a timestamped copy of the just-saved snapshot. Archives are
// best effort: a failure is a warning, never a failed save.
func (s *FileStore) archive(data []byte) {
	stamp := time.Now().UTC().Format(archiveStampLayout)
	archivePath := s.path + "." + stamp
	if err := os.WriteFile(archivePath, data, 0o600); err != nil {
		s.logger.Warnw("failed to write snapshot archive", "path", archivePath, "error", err)
		return
	}
	s.pruneArchives()
}

// pruneArchives deletes the oldest archives beyond the retention count.
// Names that do not parse as archive stamps (stray temp files included) are
// left alone.
func (s *FileStore) pruneArchives() {
	matches, err := filepath.Glob(s.path + ".*")
	if err != nil {
		return
	}

	var archives []string
	for _, match := range matches {
		stamp := strings.TrimPrefix(match, s.path+".")
		if _, err := time.Parse(archiveStampLayout, stamp); err != nil {
			continue
		}
		archives = append(archives, match)
	}
	if len(archives) <= s.archiveRetention {
		return
	}

	// The stamp layout sorts lexically, oldest first.
	sort.Strings(archives)
	for _, old := range archives[:len(archives)-s.archiveRetention] {
		if err := os.Remove(old); err != nil {
			s.logger.Warnw("failed to prune snapshot archive", "path", old, "error", err)
			continue
		}
		s.logger.Debugw("pruned snapshot archive", "path", old)
	}
}
