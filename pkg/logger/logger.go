package logger

import (
	"sync"

	"github.com/TNZtims/bazaar-pos-sub000/pkg/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	once     sync.Once
	instance *zap.Logger
)

// InitLogger initializes the global logger from application configuration.
func InitLogger(appConfig *config.Config) {
	once.Do(func() {
		var level zapcore.Level
		switch appConfig.Log.Level {
		case "debug":
			level = zapcore.DebugLevel
		case "info":
			level = zapcore.InfoLevel
		case "warn":
			level = zapcore.WarnLevel
		case "error":
			level = zapcore.ErrorLevel
		default:
			level = zapcore.InfoLevel
		}

		var cfg zap.Config
		if appConfig.Server.Env == "production" {
			cfg = zap.NewProductionConfig()
			cfg.EncoderConfig.TimeKey = "timestamp"
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		} else {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
		cfg.OutputPaths = []string{"stdout"}

		logger, err := cfg.Build(zap.Fields(
			zap.String("environment", appConfig.Server.Env),
		))
		if err != nil {
			panic(err)
		}
		instance = logger
		zap.ReplaceGlobals(logger)
	})
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if instance == nil {
		return zap.NewNop()
	}
	return instance
}
