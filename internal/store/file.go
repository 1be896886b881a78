package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const pendingMarker = ".pending"

// FileStore persists artifacts under baseDir, one directory per key holding
// version files v0001.txt, v0002.txt, ... Writes go through a temp file and
// rename so a crash never leaves a half-written version behind.
type FileStore struct {
	BaseDir string
	mu      sync.Mutex
}

func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{BaseDir: baseDir}, nil
}

func (s *FileStore) keyDir(key string) string {
	return filepath.Join(s.BaseDir, filepath.FromSlash(key))
}

func (s *FileStore) Put(ctx context.Context, key, content string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.keyDir(key)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}

	version, err := latestVersion(dir)
	if err != nil {
		return nil, err
	}
	version++

	final := filepath.Join(dir, versionFile(version))
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("failed to commit %s: %w", key, err)
	}

	os.Remove(filepath.Join(dir, pendingMarker))

	return &Record{Key: key, Version: version, Content: content, CreatedAt: time.Now().UTC()}, nil
}

func (s *FileStore) Get(ctx context.Context, key string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.keyDir(key)
	version, err := latestVersion(dir)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, ErrNotFound
	}

	path := filepath.Join(dir, versionFile(version))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	info, _ := os.Stat(path)
	rec := &Record{Key: key, Version: version, Content: string(data)}
	if info != nil {
		rec.CreatedAt = info.ModTime().UTC()
	}
	return rec, nil
}

func (s *FileStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	version, err := latestVersion(s.keyDir(key))
	if err != nil {
		return false, err
	}
	return version > 0, nil
}

func (s *FileStore) MarkPending(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.keyDir(key)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, pendingMarker), nil, 0644)
}

func (s *FileStore) Pending(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := os.Stat(filepath.Join(s.keyDir(key), pendingMarker))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func versionFile(v int) string {
	return fmt.Sprintf("v%04d.txt", v)
}

// latestVersion returns the highest committed version in dir, 0 when none.
func latestVersion(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var versions []int
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "v") || !strings.HasSuffix(name, ".txt") {
			continue
		}
		var v int
		if _, err := fmt.Sscanf(name, "v%04d.txt", &v); err == nil {
			versions = append(versions, v)
		}
	}
	if len(versions) == 0 {
		return 0, nil
	}
	sort.Ints(versions)
	return versions[len(versions)-1], nil
}
