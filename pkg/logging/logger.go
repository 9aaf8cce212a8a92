package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process-wide structured logger. It is a no-op logger until
// InitLogger is called so packages can log safely from tests.
var Logger = zap.NewNop()

// InitLogger initializes the structured logger
func InitLogger(level string, format string) error {
	var config zap.Config

	if format == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	config.Level = zap.NewAtomicLevelAt(ParseLevel(level))

	// Disable caller and stack trace for cleaner logs
	config.DisableCaller = true
	config.DisableStacktrace = true

	logger, err := config.Build()
	if err != nil {
		return err
	}
	Logger = logger

	return nil
}

// ParseLevel maps a config level name to a zap level, defaulting to info
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// LogCheck logs an incoming version check with the reporting device's details
func LogCheck(version, timezone, countryCode, deviceUUID string) {
	Logger.Info("check",
		zap.String("version", version),
		zap.String("timezone", timezone),
		zap.String("country_code", countryCode),
		zap.String("device_uuid", deviceUUID),
	)
}

// LogCheckFailed logs a version check that could not be answered
func LogCheckFailed(reason, version, endpoint string, err error) {
	Logger.Error("check failed",
		zap.String("reason", reason),
		zap.String("version", version),
		zap.String("endpoint", endpoint),
		zap.Error(err),
	)
}
