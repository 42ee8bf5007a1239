// Copyright (c) 2025 The adasuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// txwitness adds vkey witnesses to Cardano transactions from the command
// line.
//
// Usage:
//
//	txwitness [global options] sign --tx <hex> [--key <xprv>...] [--replace]
//	txwitness [global options] verify --tx <hex>
//	txwitness [global options] txid --tx <hex>
//
// Results are written to stdout and log output to stderr and, unless
// --nologfile is given, a rotating log file under --logdir.
package main

import (
	"errors"
	"io"
	"os"

	flags "github.com/jessevdk/go-flags"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}

		os.Exit(1)
	}
}

// run parses args and executes the selected command, writing its result to
// out. Parse and command errors are printed by the parser.
func run(args []string, out io.Writer) error {
	cfg, parser, err := loadConfig(args, out)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return err
	}

	// Logging is set up once the command line is known so --debuglevel and
	// --logdir take effect before the command runs.
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if cmd == nil {
			return nil
		}

		closeLog, err := initLogging(cfg)
		if err != nil {
			return err
		}
		defer closeLog()

		return cmd.Execute(args)
	}

	_, err = parser.ParseArgs(args)

	return err
}
