package main

import (
	"github.com/rpggio/rolecall/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogFile returns a size-rotated log file. lumberjack creates the
// directory on first write.
func newLogFile(cfg config.LogConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}
