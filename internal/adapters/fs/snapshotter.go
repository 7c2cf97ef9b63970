package fs

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Snapshotter = (*Snapshotter)(nil)

// Snapshotter fingerprints files by size, modification time and xxhash content digest.
type Snapshotter struct {
	walker *Walker
}

// NewSnapshotter creates a new Snapshotter.
func NewSnapshotter(walker *Walker) *Snapshotter {
	return &Snapshotter{walker: walker}
}

// ComputeFileHash computes the xxhash of a file's content as a hex string.
func (s *Snapshotter) ComputeFileHash(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", path)
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

// Capture fingerprints the given paths. Directories contribute every file below them.
// A missing path is an error: a snapshot must describe files that exist.
func (s *Snapshotter) Capture(paths []string) (domain.Snapshot, error) {
	snapshot := domain.Snapshot{Files: make(map[string]domain.Fingerprint)}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return domain.Snapshot{}, zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", path)
		}

		if !info.IsDir() {
			if err := s.captureFile(snapshot, path, info); err != nil {
				return domain.Snapshot{}, err
			}
			continue
		}

		for filePath := range s.walker.WalkFiles(path, nil) {
			fileInfo, err := os.Stat(filePath)
			if err != nil {
				return domain.Snapshot{}, zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", filePath)
			}
			if err := s.captureFile(snapshot, filePath, fileInfo); err != nil {
				return domain.Snapshot{}, err
			}
		}
	}

	return snapshot, nil
}

func (s *Snapshotter) captureFile(snapshot domain.Snapshot, path string, info iofs.FileInfo) error {
	hash, err := s.ComputeFileHash(path)
	if err != nil {
		return err
	}
	snapshot.Files[path] = domain.Fingerprint{
		Size:    info.Size(),
		ModTime: info.ModTime().UnixNano(),
		Hash:    hash,
	}
	return nil
}

// Validate reports whether every recorded file still matches its fingerprint.
// Size and modification time are compared first; the content hash is only recomputed when
// the modification time moved but the size did not, so touching a file keeps the snapshot valid.
func (s *Snapshotter) Validate(snapshot domain.Snapshot) (bool, error) {
	for path, recorded := range snapshot.Files {
		info, err := os.Stat(path)
		if errors.Is(err, iofs.ErrNotExist) {
			return false, nil
		}
		if err != nil {
			return false, zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", path)
		}

		if info.Size() != recorded.Size {
			return false, nil
		}
		if info.ModTime().UnixNano() == recorded.ModTime {
			continue
		}

		hash, err := s.ComputeFileHash(path)
		if err != nil {
			return false, err
		}
		if hash != recorded.Hash {
			return false, nil
		}
	}

	return true, nil
}
