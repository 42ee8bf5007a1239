// Copyright (c) 2025 The adasuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "txwitness.conf"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "txwitness.log"
)

var (
	defaultAppDataDir = btcutil.AppDataDir("txwitness", false)
	defaultConfigFile = filepath.Join(defaultAppDataDir,
		defaultConfigFilename)
	defaultLogDir = filepath.Join(defaultAppDataDir, defaultLogDirname)
)

// config defines the global options. Command specific options live on the
// command structs.
type config struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`
	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
	LogDir     string `long:"logdir" description:"Directory to log output"`
	NoLogFile  bool   `long:"nologfile" description:"Disable writing logs to a file"`
}

// defaultConfig returns the config with every option at its default.
func defaultConfig() config {
	return config{
		ConfigFile: defaultConfigFile,
		DebugLevel: defaultLogLevel,
		LogDir:     defaultLogDir,
	}
}

// newParser builds the command line parser for cfg with the sign, verify and
// txid commands writing their results to out.
func newParser(cfg *config, out io.Writer) (*flags.Parser, error) {
	parser := flags.NewParser(cfg, flags.Default)

	commands := []struct {
		name, short, long string
		data              any
	}{{
		name:  "sign",
		short: "Add vkey witnesses to a transaction",
		long: "Sign the transaction body hash with each extended " +
			"private key and print the signed transaction as hex. " +
			"When no key option is given the key is read from the " +
			"terminal.",
		data: newSignCmd(out),
	}, {
		name:  "verify",
		short: "Check the vkey witnesses of a transaction",
		long: "Verify every vkey witness against the transaction " +
			"body hash and print the witness count.",
		data: &verifyCmd{out: out},
	}, {
		name:  "txid",
		short: "Print the transaction id",
		long:  "Print the BLAKE2b-256 hash of the transaction body.",
		data:  &txidCmd{out: out},
	}}

	for _, c := range commands {
		_, err := parser.AddCommand(c.name, c.short, c.long, c.data)
		if err != nil {
			return nil, err
		}
	}

	return parser, nil
}

// loadConfig reads the config file, when present, and then the command line
// so that command line options take precedence. The returned parser has not
// run any command yet.
func loadConfig(args []string, out io.Writer) (*config, *flags.Parser,
	error) {

	// Pre-parse the command line to find the config file. Command options
	// are unknown to this parser and are skipped.
	preCfg := defaultConfig()
	preParser := flags.NewParser(
		&preCfg, flags.HelpFlag|flags.IgnoreUnknown|flags.PassDoubleDash,
	)
	if _, err := preParser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if !errors.As(err, &flagsErr) || flagsErr.Type != flags.ErrHelp {
			return nil, nil, err
		}
	}

	cfg := defaultConfig()
	parser, err := newParser(&cfg, out)
	if err != nil {
		return nil, nil, err
	}

	// A missing config file is only an error when it was asked for.
	_, statErr := os.Stat(preCfg.ConfigFile)
	switch {
	case statErr == nil:
		err := flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
		if err != nil {
			return nil, nil, fmt.Errorf("error parsing config file "+
				"%s: %w", preCfg.ConfigFile, err)
		}

	case preCfg.ConfigFile != defaultConfigFile:
		return nil, nil, fmt.Errorf("unable to read config file: %w",
			statErr)
	}

	return &cfg, parser, nil
}
