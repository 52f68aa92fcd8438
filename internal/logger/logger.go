// Package logger provides a leveled, global logger used throughout the
// gateway daemon, configured from the gateway's loglevel/logfile
// settings.
package logger

import (
	"log"
	"os"
	"strings"
)

// Level name constants, ordered from least to most verbose.
const (
	LevelError = "error"
	LevelWarn  = "warn"
	LevelInfo  = "info"
	LevelDebug = "debug"
	LevelTrace = "trace"
)

var levelOrder = []string{LevelError, LevelWarn, LevelInfo, LevelDebug, LevelTrace}

// Config configures the global logger.
type Config struct {
	Level string
	File  string
}

// Global holds the active logging configuration. Set once by Init at
// startup (and again on a successful reload).
var Global *Config

// Init opens the configured log file (or falls back to stdout on
// failure) and installs it as the global logger target.
func Init(cfg *Config) {
	level := strings.ToLower(cfg.Level)
	if level == "" {
		level = LevelInfo
	}
	cfg.Level = level

	var output *os.File
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			log.Printf("⚠️ failed to open log file %s: %v, falling back to stdout", cfg.File, err)
			output = os.Stdout
		} else {
			output = f
		}
	} else {
		output = os.Stdout
	}
	log.SetOutput(output)
	log.SetFlags(log.LstdFlags)

	Global = cfg
}

func shouldLog(messageLevel string) bool {
	if Global == nil {
		return true
	}
	currentIndex, messageIndex := -1, -1
	for i, l := range levelOrder {
		if l == Global.Level {
			currentIndex = i
		}
		if l == messageLevel {
			messageIndex = i
		}
	}
	if currentIndex == -1 || messageIndex == -1 {
		return true
	}
	return messageIndex <= currentIndex
}

// Startup always logs, regardless of level — used for the handful of
// one-time messages the operator needs to see before Init runs.
func Startup(format string, args ...interface{}) {
	log.Printf("🔧 "+format, args...)
}

func Error(format string, args ...interface{}) {
	if shouldLog(LevelError) {
		log.Printf("❌ "+format, args...)
	}
}

func Warn(format string, args ...interface{}) {
	if shouldLog(LevelWarn) {
		log.Printf("⚠️ "+format, args...)
	}
}

func Info(format string, args ...interface{}) {
	if shouldLog(LevelInfo) {
		log.Printf("ℹ️ "+format, args...)
	}
}

func Debug(format string, args ...interface{}) {
	if shouldLog(LevelDebug) {
		log.Printf("🔧 "+format, args...)
	}
}

func Trace(format string, args ...interface{}) {
	if shouldLog(LevelTrace) {
		log.Printf("🔍 "+format, args...)
	}
}
