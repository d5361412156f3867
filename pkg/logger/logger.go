// Package logger provides the process-wide zap logger.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"InteriorEditor/pkg/utils"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu           sync.RWMutex
	globalLogger *zap.Logger
	globalSugar  *zap.SugaredLogger
)

// ParseLevel maps a config string onto a zap level, defaulting to INFO.
func ParseLevel(logLevel string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(logLevel)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// Init configures the global logger. With logFile set, entries are written as
// JSON to that file (the terminal UI owns stdout); otherwise they go to stderr
// in console format.
func Init(logLevel string, logFile string) error {
	level := ParseLevel(logLevel)

	var core zapcore.Core
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		core = zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(f), level)
	} else {
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.Lock(os.Stderr), level)
	}

	set(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel)))
	return nil
}

// Use replaces the global logger, mainly for tests (zaptest, zap.NewNop).
func Use(l *zap.Logger) {
	set(l.WithOptions(zap.AddCallerSkip(1)))
}

func set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger = l
	globalSugar = l.Sugar()
}

// GetLogger returns the global logger, creating a stderr INFO logger on first
// use if Init was never called.
func GetLogger() *zap.Logger {
	mu.RLock()
	l := globalLogger
	mu.RUnlock()
	if l == nil {
		_ = Init("INFO", "")
		mu.RLock()
		l = globalLogger
		mu.RUnlock()
	}
	return l
}

// GetSugarLogger returns the global sugared logger.
func GetSugarLogger() *zap.SugaredLogger {
	GetLogger()
	mu.RLock()
	defer mu.RUnlock()
	return globalSugar
}

// Sync flushes buffered entries.
func Sync() error {
	mu.RLock()
	l := globalLogger
	mu.RUnlock()
	if l != nil {
		return l.Sync()
	}
	return nil
}

func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(utils.SanitizeLog(msg), fields...)
}

func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(utils.SanitizeLog(msg), fields...)
}

func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(utils.SanitizeLog(msg), fields...)
}

func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(utils.SanitizeLog(msg), fields...)
}

// Sugared variants
func Debugf(template string, args ...interface{}) {
	GetSugarLogger().Debug(utils.SanitizeLog(fmt.Sprintf(template, args...)))
}

func Infof(template string, args ...interface{}) {
	GetSugarLogger().Info(utils.SanitizeLog(fmt.Sprintf(template, args...)))
}

func Warnf(template string, args ...interface{}) {
	GetSugarLogger().Warn(utils.SanitizeLog(fmt.Sprintf(template, args...)))
}

func Errorf(template string, args ...interface{}) {
	GetSugarLogger().Error(utils.SanitizeLog(fmt.Sprintf(template, args...)))
}
