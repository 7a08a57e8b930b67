package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/urfave/cli/v3"
)

func sendCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "send a mutation and purge matching cache entries",
		ArgsUsage: "PATH",
		Flags: []cli.Flag{
			formatFlag(),
			tokenFlag(),
			&cli.StringFlag{
				Name:    "method",
				Aliases: []string{"X"},
				Usage:   "HTTP method",
				Value:   http.MethodPost,
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "JSON request body; @- reads it from stdin",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("send: exactly one PATH is required")
			}
			path := cmd.Args().First()
			method := strings.ToUpper(cmd.String("method"))
			if method == http.MethodGet || method == http.MethodHead {
				return fmt.Errorf("send: %s is not a mutation, use get", method)
			}
			body, err := requestBody(cmd.String("data"), cmd.Root().Reader)
			if err != nil {
				return err
			}

			o := baseOptions(cmd)
			o.format = cmd.String("format")
			o.token = cmd.String("token")
			e, err := newEnv(ctx, stdout, stderr, o)
			if err != nil {
				return err
			}
			defer e.close()
			if err := e.withGateway(o); err != nil {
				return err
			}

			res := e.gw.Mutate(ctx, method, path, body)
			if err := writeRecords(stdout, newRecord(method, path, res)); err != nil {
				return err
			}
			if !res.OK() {
				return fmt.Errorf("%w: 1", ErrCallsFailed)
			}
			return nil
		},
	}
}

// requestBody parses data as JSON so the gateway's body codec controls the
// wire encoding. An empty data sends no body.
func requestBody(data string, stdin io.Reader) (any, error) {
	if data == "" {
		return nil, nil
	}
	raw := []byte(data)
	if data == "@-" {
		if stdin == nil {
			return nil, fmt.Errorf("send: no stdin")
		}
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("send: read stdin: %w", err)
		}
		raw = b
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("send: --data is not JSON: %w", err)
	}
	return v, nil
}
