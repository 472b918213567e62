// Rankmill - Advisory Recommendation Ranking and Diversification
// Copyright 2026 The Rankmill Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rankmill/rankmill

// Package storage persists trained ranking model artifacts.
//
// Artifacts are gob-encoded, gzip-compressed, and carry a SHA-256
// checksum so a truncated or bit-rotted file is detected at load time
// instead of producing a silently wrong model.
//
// # Atomicity
//
// Every save writes to a temp file in the artifact directory and
// renames it into place. Readers either see the previous complete
// artifact or the new complete artifact, never a partial write.
//
// # Thread Safety
//
// All operations are safe for concurrent use from multiple goroutines.
package storage

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// artifactName is the single artifact kind this store manages.
const artifactName = "ranker"

// ErrNotFound means no artifact exists in the store.
var ErrNotFound = errors.New("storage: no artifact found")

// ArtifactMetadata describes a stored model artifact.
type ArtifactMetadata struct {
	// Version is the artifact version, monotonically increasing.
	Version int `json:"version"`

	// TrainedAt is when the model finished training.
	TrainedAt time.Time `json:"trained_at"`

	// SavedAt is when the artifact was written.
	SavedAt time.Time `json:"saved_at"`

	// GroupCount and ExampleCount describe the training set.
	GroupCount   int `json:"group_count"`
	ExampleCount int `json:"example_count"`

	// BoostRounds is the trained ensemble size.
	BoostRounds int `json:"boost_rounds"`

	// Checksum is the SHA-256 of the uncompressed model bytes.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed payload size.
	SizeBytes int64 `json:"size_bytes"`

	// TrainingDurationMS is how long training took.
	TrainingDurationMS int64 `json:"training_duration_ms"`
}

// artifactFile is the on-disk format.
type artifactFile struct {
	Metadata       ArtifactMetadata
	CompressedData []byte
}

// Store manages versioned artifacts in one directory.
type Store struct {
	dir string

	mu     sync.RWMutex
	latest int
}

// NewStore opens (creating if needed) an artifact store at dir and
// scans it for the latest existing version.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	s := &Store{dir: dir}
	if err := s.scan(); err != nil {
		return nil, fmt.Errorf("scan artifact directory: %w", err)
	}
	return s, nil
}

// scan finds the highest on-disk version.
func (s *Store) scan() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if v, ok := parseArtifactFilename(entry.Name()); ok && v > s.latest {
			s.latest = v
		}
	}
	return nil
}

// parseArtifactFilename extracts the version from a filename like
// "ranker_v3.gob.gz".
func parseArtifactFilename(name string) (int, bool) {
	const suffix = ".gob.gz"
	prefix := artifactName + "_v"
	if len(name) <= len(prefix)+len(suffix) {
		return 0, false
	}
	if name[:len(prefix)] != prefix || name[len(name)-len(suffix):] != suffix {
		return 0, false
	}
	var version int
	if _, err := fmt.Sscanf(name[len(prefix):len(name)-len(suffix)], "%d", &version); err != nil {
		return 0, false
	}
	if version <= 0 {
		return 0, false
	}
	return version, true
}

// Save encodes, compresses, and atomically writes a new artifact
// version. The version is the next after the current latest; it is
// recorded into meta and returned.
func (s *Store) Save(model interface{}, meta ArtifactMetadata) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(model); err != nil {
		return 0, fmt.Errorf("encode model: %w", err)
	}

	hash := sha256.Sum256(raw.Bytes())
	meta.Checksum = hex.EncodeToString(hash[:])

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return 0, fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return 0, fmt.Errorf("finalize compression: %w", err)
	}

	version := s.latest + 1
	meta.Version = version
	meta.SizeBytes = int64(compressed.Len())
	meta.SavedAt = time.Now().UTC()

	if err := s.writeAtomic(version, artifactFile{
		Metadata:       meta,
		CompressedData: compressed.Bytes(),
	}); err != nil {
		return 0, err
	}

	s.latest = version
	return version, nil
}

// writeAtomic writes the artifact to a temp file in the same directory
// and renames it into place.
func (s *Store) writeAtomic(version int, af artifactFile) error {
	tmp, err := os.CreateTemp(s.dir, artifactName+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := gob.NewEncoder(tmp).Encode(af); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp artifact: %w", err)
	}

	if err := os.Rename(tmpName, s.path(version)); err != nil {
		return fmt.Errorf("swap artifact into place: %w", err)
	}
	return nil
}

// Load reads an artifact version into target, verifying the checksum.
// Version 0 loads the latest. Returns ErrNotFound when no artifact of
// that version exists.
func (s *Store) Load(version int, target interface{}) (*ArtifactMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		if s.latest == 0 {
			return nil, ErrNotFound
		}
		version = s.latest
	}

	f, err := os.Open(s.path(version))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = f.Close() }()

	var af artifactFile
	if err := gob.NewDecoder(f).Decode(&af); err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(af.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress artifact: %w", err)
	}
	defer func() { _ = gzr.Close() }()

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed artifact: %w", err)
	}

	hash := sha256.Sum256(raw)
	if checksum := hex.EncodeToString(hash[:]); checksum != af.Metadata.Checksum {
		return nil, fmt.Errorf("artifact checksum mismatch: stored %s, computed %s",
			af.Metadata.Checksum, checksum)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return &af.Metadata, nil
}

// LatestVersion returns the newest stored version, or false when the
// store is empty.
func (s *Store) LatestVersion() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest > 0
}

// Prune removes old versions, keeping the newest keep versions.
func (s *Store) Prune(keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 1 {
		keep = 1
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read artifact directory: %w", err)
	}

	var versions []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if v, ok := parseArtifactFilename(entry.Name()); ok {
			versions = append(versions, v)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(versions)))

	for i := keep; i < len(versions); i++ {
		// Best effort; a leftover old version is harmless.
		_ = os.Remove(s.path(versions[i]))
	}
	return nil
}

// path returns the on-disk path for a version.
func (s *Store) path(version int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_v%d.gob.gz", artifactName, version))
}
