package main

import (
	"log/slog"
	"os"

	"github.com/kstaniek/go-nextion-bridge/internal/logging"
)

func setupLogger(format, level string) *slog.Logger {
	l := logging.New(format, logging.ParseLevel(level), os.Stderr).With("app", "nextion-bridge")
	logging.Set(l)
	return l
}
