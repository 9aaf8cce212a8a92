package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/controlx2/version-api/pkg/logging"
	"go.uber.org/zap"
)

const (
	fileCacheVersion = "1.0"
	saveInterval     = 30 * time.Second
)

// FileCache keeps entries in memory and persists them to a JSON file so they
// survive restarts. Writes are flushed periodically, on Delete and on Close.
type FileCache struct {
	*entries
	filePath  string
	saveMu    sync.Mutex
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type fileCacheData struct {
	Entries map[string]*fileCacheEntry `json:"entries"`
	Version string                     `json:"version"`
}

type fileCacheEntry struct {
	Value     json.RawMessage `json:"value"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// NewFileCache creates a new file-based cache, loading any previous state
func NewFileCache(filePath string, opts ...Option) (*FileCache, error) {
	fc := &FileCache{
		entries:  newEntries(opts...),
		filePath: filePath,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	if err := fc.load(); err != nil {
		logging.Logger.Warn("Failed to load cache from file, starting with empty cache",
			zap.String("file", filePath),
			zap.Error(err))
	}

	go fc.run()

	return fc, nil
}

// Set stores a value in the cache with the specified TTL
func (fc *FileCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return fc.set(key, value, ttl)
}

// Get retrieves a value from the cache and unmarshals it into dest
func (fc *FileCache) Get(ctx context.Context, key string, dest interface{}) error {
	return fc.get(key, dest)
}

// Delete removes a value and persists the removal immediately
func (fc *FileCache) Delete(ctx context.Context, key string) error {
	fc.delete(key)
	return fc.save()
}

// Close stops background work and saves the cache one final time
func (fc *FileCache) Close() error {
	fc.closeOnce.Do(func() {
		close(fc.stop)
		<-fc.done
	})
	return fc.save()
}

// run evicts expired entries and saves to disk until Close is called
func (fc *FileCache) run() {
	defer close(fc.done)

	saveTicker := time.NewTicker(saveInterval)
	defer saveTicker.Stop()
	cleanupTicker := time.NewTicker(cleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-fc.stop:
			return
		case <-cleanupTicker.C:
			if cleaned := fc.evictExpired(); cleaned > 0 {
				logging.Logger.Debug("Cleaned expired cache entries",
					zap.Int("count", cleaned))
			}
		case <-saveTicker.C:
			if err := fc.save(); err != nil {
				logging.Logger.Warn("Failed to save cache to file",
					zap.String("file", fc.filePath),
					zap.Error(err))
			}
		}
	}
}

// load loads the cache from disk, skipping expired entries
func (fc *FileCache) load() error {
	data, err := os.ReadFile(fc.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var fileData fileCacheData
	if err := json.Unmarshal(data, &fileData); err != nil {
		return fmt.Errorf("failed to unmarshal cache file: %w", err)
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	now := fc.now()
	loaded := 0
	expired := 0

	for key, entry := range fileData.Entries {
		if now.After(entry.ExpiresAt) {
			expired++
			continue
		}

		fc.data[key] = &cacheEntry{
			value:     entry.Value,
			expiresAt: entry.ExpiresAt,
		}
		loaded++
	}

	logging.Logger.Info("Cache loaded from disk",
		zap.String("file", fc.filePath),
		zap.Int("loaded", loaded),
		zap.Int("expired", expired))

	return nil
}

// save writes unexpired entries to a temp file and renames it into place
func (fc *FileCache) save() error {
	fc.saveMu.Lock()
	defer fc.saveMu.Unlock()

	fileData := fileCacheData{
		Version: fileCacheVersion,
		Entries: make(map[string]*fileCacheEntry),
	}

	now := fc.now()
	fc.mu.RLock()
	for key, entry := range fc.data {
		if now.After(entry.expiresAt) {
			continue
		}
		fileData.Entries[key] = &fileCacheEntry{
			Value:     entry.value,
			ExpiresAt: entry.expiresAt,
		}
	}
	fc.mu.RUnlock()

	data, err := json.MarshalIndent(fileData, "", "  ")
	if err != nil {
		return err
	}

	tempFile := fc.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return err
	}

	if err := os.Rename(tempFile, fc.filePath); err != nil {
		return err
	}

	logging.Logger.Debug("Cache saved to disk",
		zap.String("file", fc.filePath),
		zap.Int("entries", len(fileData.Entries)))

	return nil
}
