// Package cli wires the netgate command line.
package cli

import (
	"errors"
	"io"

	"github.com/urfave/cli/v3"
)

// ErrCallsFailed is returned after all output is written when at least one
// call ended in a failure record.
var ErrCallsFailed = errors.New("calls failed")

// Flags are built per app; urfave flags carry parse state.
func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "YAML config file",
		Sources: cli.EnvVars("NETGATE_CONFIG"),
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "response encoding: json or msgpack",
		Value:   "json",
	}
}

func tokenFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "token",
		Usage:   "API token for this invocation, stored under store.token_key",
		Sources: cli.EnvVars("NETGATE_TOKEN"),
	}
}

// NewApp returns the root command writing results to stdout and logs to
// stderr.
func NewApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "netgate",
		Usage:     "cached, batched access to an HTTP API",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{Name: "events", Usage: "log cache and batch events"},
			&cli.BoolFlag{Name: "metrics", Usage: "print prometheus metrics to stderr on exit"},
		},
		Commands: []*cli.Command{
			getCommand(stdout, stderr),
			sendCommand(stdout, stderr),
			tokenCommand(stdout, stderr),
		},
	}
}

func baseOptions(cmd *cli.Command) envOptions {
	return envOptions{
		configPath: cmd.String("config"),
		events:     cmd.Bool("events"),
		metrics:    cmd.Bool("metrics"),
	}
}
