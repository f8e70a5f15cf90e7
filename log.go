package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// setupLog discards log output unless TTS_LOCAL_LOGFILE points at a
// file. The --debug flag additionally raises the level and, without a
// logfile, sends logs to stderr (see validateOptions).
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)
	log.SetLevel(log.InfoLevel)

	if file := os.Getenv("TTS_LOCAL_LOGFILE"); file != "" {
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec
		if err != nil {
			return nil, fmt.Errorf("error setting up logging: %w", err)
		}
		log.SetOutput(f)
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
		log.SetTimeFormat(time.Kitchen)
		return f.Close, nil
	}

	return func() error { return nil }, nil
}
