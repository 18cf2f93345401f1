//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/chaos-harness/usecases/config"
)

// Options are the global options of every command.
type Options struct {
	config.Flags
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts Options
	h := &harness{ctx: ctx, flags: &opts.Flags}

	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	addCommand(parser, "converge", "wait for the cluster to converge",
		"Polls the raft statistics of every node until all expected nodes report the same applied index.",
		&convergeCommand{h: h})
	addCommand(parser, "sweep", "run the vector index parameter sweep",
		"Resets, imports and queries the benchmark collection for every cell of the configured grid.",
		&sweepCommand{h: h})
	addCommand(parser, "churn", "run the import, delete and backup scenario",
		"Imports the wiki dataset twice with a random deletion in between, validating and backing up each phase.",
		&churnCommand{h: h})

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, flagsErr.Message)
			return
		}
		if errors.As(err, &flagsErr) {
			fmt.Fprintln(os.Stderr, flagsErr.Message)
			os.Exit(2)
		}
		logFatal(h.log(), err)
		stop()
		os.Exit(1)
	}
}

func addCommand(parser *flags.Parser, name, short, long string, data interface{}) {
	if _, err := parser.AddCommand(name, short, long, data); err != nil {
		panic(fmt.Sprintf("register command %s: %v", name, err))
	}
}

// logFatal logs the error that ends the process. Errors built with
// pkg/errors print the stack of their origin with %+v.
func logFatal(logger logrus.FieldLogger, err error) {
	logger.WithError(err).
		WithField("stack", fmt.Sprintf("%+v", err)).
		Error("command failed")
}

// newLogger builds the process logger from the logging config.
func newLogger(cfg config.Logging) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
