package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/controlx2/version-api/pkg/logging"
)

// LoadOrCreateInstanceID returns the ID stored at path, generating and
// saving a new one if the file is missing or invalid. An empty path yields
// a fresh ID that lives only as long as the process.
func LoadOrCreateInstanceID(path string) (string, error) {
	if path == "" {
		instanceID := uuid.New().String()
		logging.Logger.Info("Generated ephemeral instance ID", zap.String("id", instanceID))
		return instanceID, nil
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if id, perr := uuid.Parse(strings.TrimSpace(string(data))); perr == nil {
			logging.Logger.Info("Loaded existing instance ID", zap.String("id", id.String()))
			return id.String(), nil
		}
		logging.Logger.Warn("Ignoring invalid instance ID file", zap.String("path", path))
	case !os.IsNotExist(err):
		return "", fmt.Errorf("failed to read instance ID: %w", err)
	}

	instanceID := uuid.New().String()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create instance ID directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(instanceID+"\n"), 0644); err != nil {
		return "", fmt.Errorf("failed to save instance ID: %w", err)
	}

	logging.Logger.Info("Generated new instance ID",
		zap.String("id", instanceID),
		zap.String("path", path))

	return instanceID, nil
}
