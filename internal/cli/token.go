package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/unkn0wn-root/netgate"
)

func tokenCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "manage the API token in the configured store",
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "store a token; - reads it from stdin",
				ArgsUsage: "TOKEN|-",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("token set: exactly one TOKEN is required")
					}
					tok := cmd.Args().First()
					if tok == "-" {
						line, err := bufio.NewReader(cmd.Root().Reader).ReadString('\n')
						if err != nil && err != io.EOF {
							return fmt.Errorf("token set: read stdin: %w", err)
						}
						tok = line
					}
					tok = strings.TrimSpace(tok)
					if tok == "" {
						return fmt.Errorf("token set: empty token")
					}
					return withStore(ctx, cmd, stdout, stderr, func(e *env) error {
						if err := e.store.Set(ctx, e.cfg.Store.TokenKey, []byte(tok), 0); err != nil {
							return err
						}
						fmt.Fprintf(stdout, "token stored under %s\n", e.cfg.Store.TokenKey)
						return nil
					})
				},
			},
			{
				Name:  "clear",
				Usage: "remove the stored token",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withStore(ctx, cmd, stdout, stderr, func(e *env) error {
						if err := e.store.Delete(ctx, e.cfg.Store.TokenKey); err != nil {
							return err
						}
						fmt.Fprintf(stdout, "token cleared from %s\n", e.cfg.Store.TokenKey)
						return nil
					})
				},
			},
		},
	}
}

func withStore(ctx context.Context, cmd *cli.Command, stdout, stderr io.Writer, fn func(*env) error) error {
	e, err := newEnv(ctx, stdout, stderr, baseOptions(cmd))
	if err != nil {
		return err
	}
	defer e.close()
	if e.store == nil {
		return fmt.Errorf("token: store.backend is none")
	}
	if !e.persistent() {
		e.log.Warn("token store lives in this process only", netgate.Fields{"backend": e.cfg.Store.Backend})
	}
	return fn(e)
}
