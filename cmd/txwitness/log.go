// Copyright (c) 2025 The adasuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adasuite/txwitness/txcodec"
	"github.com/adasuite/txwitness/txsigner"
	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

var (
	// errUnknownSubsystem is returned when a debug level names a subsystem
	// that has no logger.
	errUnknownSubsystem = errors.New("unknown subsystem")

	// errInvalidLevel is returned when a debug level is not one of the
	// btclog levels.
	errInvalidLevel = errors.New("invalid log level")
)

// logWriter implements an io.Writer that outputs to stderr and, once it has
// been initialized, the log rotator. Stdout carries command results only.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stderr.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}

	return len(p), nil
}

var (
	// backendLog is the logging backend used to create all subsystem
	// loggers.
	backendLog = btclog.NewBackend(logWriter{})

	// logRotator is one of the logging outputs. It is nil until
	// initLogRotator is called.
	logRotator *rotator.Rotator

	log       = backendLog.Logger("TXWT")
	codecLog  = backendLog.Logger("CDEC")
	signerLog = backendLog.Logger("SIGN")
)

// Initialize package-global logger variables.
func init() {
	txcodec.UseLogger(codecLog)
	txsigner.UseLogger(signerLog)
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]btclog.Logger{
	"TXWT": log,
	"CDEC": codecLog,
	"SIGN": signerLog,
}

// initLogRotator initializes the logging rotator to write logs to logFile and
// create roll files in the same directory. It must be called before the
// package-global log rotator variables are used.
func initLogRotator(logFile string) error {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}

	logRotator = r

	return nil
}

// closeLogRotator flushes and closes the log file, if any.
func closeLogRotator() {
	if logRotator != nil {
		logRotator.Close()
		logRotator = nil
	}
}

// setLogLevels sets the log level for all subsystem loggers to the passed
// level.
func setLogLevels(logLevel string) {
	level, _ := btclog.LevelFromString(logLevel)
	for _, logger := range subsystemLoggers {
		logger.SetLevel(level)
	}
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}
	sort.Strings(subsystems)

	return subsystems
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	_, ok := btclog.LevelFromString(logLevel)
	return ok
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly. An appropriate error is returned if anything is
// invalid. The level is either a single level for every subsystem or a comma
// separated list of <subsystem>=<level> pairs.
func parseAndSetDebugLevels(debugLevel string) error {
	if !strings.Contains(debugLevel, ",") &&
		!strings.Contains(debugLevel, "=") {

		if !validLogLevel(debugLevel) {
			return fmt.Errorf("%w: %q", errInvalidLevel, debugLevel)
		}

		setLogLevels(debugLevel)

		return nil
	}

	// Validate every pair before changing any level.
	levels := make(map[string]string)
	for _, pair := range strings.Split(debugLevel, ",") {
		fields := strings.Split(pair, "=")
		if len(fields) != 2 {
			return fmt.Errorf("%w: %q is not <subsystem>=<level>",
				errInvalidLevel, pair)
		}

		subsysID, logLevel := fields[0], fields[1]
		if _, ok := subsystemLoggers[subsysID]; !ok {
			return fmt.Errorf("%w: %q, supported subsystems %v",
				errUnknownSubsystem, subsysID,
				supportedSubsystems())
		}

		if !validLogLevel(logLevel) {
			return fmt.Errorf("%w: %q", errInvalidLevel, logLevel)
		}

		levels[subsysID] = logLevel
	}

	for subsysID, logLevel := range levels {
		level, _ := btclog.LevelFromString(logLevel)
		subsystemLoggers[subsysID].SetLevel(level)
	}

	return nil
}

// initLogging applies the logging options of cfg. The returned function
// closes the log file.
func initLogging(cfg *config) (func(), error) {
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return nil, err
	}

	if cfg.NoLogFile {
		return func() {}, nil
	}

	logFile := filepath.Join(cfg.LogDir, defaultLogFilename)
	if err := initLogRotator(logFile); err != nil {
		return nil, err
	}

	return closeLogRotator, nil
}
