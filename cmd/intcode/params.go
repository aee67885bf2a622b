// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"os"
	"path/filepath"
	"strings"

	log "github.com/inconshreveable/log15"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lassandro/gointcode/pkg/encoding"
)

const (
	helpKey        = "help"
	inputKey       = "input"
	asciiKey       = "ascii"
	interactiveKey = "interactive"
	debugKey       = "debug"
	traceKey       = "trace"
	logLevelKey    = "log-level"
	saveStateKey   = "save-state"
	resumeKey      = "resume"
	symbolsKey     = "symbols"
)

const usage = "intcode [flags] [program.txt|-]"

type config struct {
	Help        bool
	Program     string
	Input       []int64
	ASCII       bool
	Interactive bool
	Debug       bool
	Trace       bool
	LogLevel    log.Lvl
	SaveState   string
	Resume      string
	Symbols     string
}

func flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("intcode", pflag.ContinueOnError)

	fs.Bool(helpKey, false, "Displays command usage")
	fs.String(
		inputKey, "",
		"Comma-separated values fed to the program before any other input",
	)
	fs.Bool(
		asciiKey, false,
		"Treats program output as text and input as lines of text",
	)
	fs.Bool(
		interactiveKey, false,
		"Reads further input from stdin once the initial input is used up",
	)
	fs.Bool(debugKey, false, "Runs the machine in a debug CLI")
	fs.Bool(traceKey, false, "Logs every instruction at debug level")
	fs.String(logLevelKey, "info", "One of debug, info, warn, error, crit")
	fs.String(
		saveStateKey, "",
		"Writes a snapshot of the machine to this file when it stops",
	)
	fs.String(resumeKey, "", "Resumes a snapshot instead of loading a program")
	fs.String(
		symbolsKey, "",
		"Symbol table used by the debugger, defaults to the program name "+
			"with extension '.icdb'",
	)

	return fs
}

// getViper binds the command line over INTCODE_* environment variables and
// an optional intcode.toml.
func getViper(fs *pflag.FlagSet, args []string) (*viper.Viper, error) {
	v := viper.New()

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	v.SetEnvPrefix("INTCODE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("intcode")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "intcode"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "Error reading config")
		}
	}

	return v, nil
}

func loadConfig(args []string) (*config, *pflag.FlagSet, error) {
	fs := flagSet()
	v, err := getViper(fs, args)

	if err != nil {
		return nil, fs, err
	}

	cfg := &config{
		Help:        v.GetBool(helpKey),
		ASCII:       v.GetBool(asciiKey),
		Interactive: v.GetBool(interactiveKey),
		Debug:       v.GetBool(debugKey),
		Trace:       v.GetBool(traceKey),
		SaveState:   v.GetString(saveStateKey),
		Resume:      v.GetString(resumeKey),
		Symbols:     v.GetString(symbolsKey),
	}

	if cfg.LogLevel, err = log.LvlFromString(v.GetString(logLevelKey)); err != nil {
		return nil, fs, errors.Wrap(err, "Invalid log level")
	}

	// Trace lines are logged at debug level
	if cfg.Trace {
		cfg.LogLevel = log.LvlDebug
	}

	if input := v.GetString(inputKey); input != "" {
		if cfg.Input, err = encoding.ParseProgram(input); err != nil {
			return nil, fs, errors.Wrap(err, "Invalid input values")
		}
	}

	if rest := fs.Args(); len(rest) == 1 {
		cfg.Program = rest[0]
	} else if len(rest) > 1 || (len(rest) == 0 && cfg.Resume == "" && !cfg.Help) {
		return nil, fs, errors.New(usage)
	}

	return cfg, fs, nil
}
