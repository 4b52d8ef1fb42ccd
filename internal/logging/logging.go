/*
Copyright (C) 2026 Philippe Proulx <eepp.ca>

SPDX-License-Identifier: MIT
*/

package logging

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog for the process.
func Setup(environment string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level := zerolog.InfoLevel
	if environment == "development" {
		level = zerolog.DebugLevel
	}

	// Console writer for human-readable output; the daemon logs to
	// stdout and lets the service manager capture it.
	writer := zerolog.ConsoleWriter{Out: os.Stdout}

	logger := zerolog.New(writer).With().Timestamp().Logger().Level(level)
	log.Logger = logger
	return logger
}
