package config

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds a zap.Logger from a LoggerConfig the way nakama's
// server/logger.go builds its startup logger: a JSON core writing to
// stdout, optionally teed with a rotating file sink via lumberjack when
// Rotation is set. Grounded directly on SetupLogging/NewJSONLogger/
// NewRotatingJSONFileLogger/NewMultiLogger, collapsed into one entry point
// since this module doesn't carry nakama's Stackdriver-format option or
// separate console/file logger split.
func NewLogger(cfg LoggerConfig) *zap.Logger {
	level := zapcore.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	consoleCore := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)
	if cfg.File == "" {
		return zap.New(consoleCore, zap.AddCaller())
	}

	var fileSync zapcore.WriteSyncer
	if cfg.Rotation {
		// lumberjack.Logger is already safe for concurrent use, so no extra
		// locking is needed around it.
		fileSync = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxAge:     cfg.MaxAge,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		})
	} else {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			return zap.New(consoleCore, zap.AddCaller())
		}
		fileSync = zapcore.AddSync(f)
	}

	fileCore := zapcore.NewCore(encoder, fileSync, level)
	tee := zapcore.NewTee(consoleCore, fileCore)
	return zap.New(tee, zap.AddCaller())
}
