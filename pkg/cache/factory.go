package cache

import (
	"github.com/controlx2/version-api/pkg/logging"
	"go.uber.org/zap"
)

// NewSnapshotCache creates the store used to persist the selected release
// across restarts. An empty filePath keeps snapshots in memory only.
func NewSnapshotCache(filePath string) Cache {
	if filePath != "" {
		fileCache, err := NewFileCache(filePath)
		if err != nil {
			logging.Logger.Warn("Failed to create file-based release cache, falling back to memory cache",
				zap.String("path", filePath),
				zap.Error(err))
			return NewMemoryCache()
		}
		logging.Logger.Info("Initialized file-based release cache",
			zap.String("path", filePath))
		return fileCache
	}

	logging.Logger.Info("Initialized in-memory release cache")
	return NewMemoryCache()
}
