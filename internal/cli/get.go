package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/urfave/cli/v3"

	"github.com/unkn0wn-root/netgate"
)

func getCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "read one or more paths through the cache",
		ArgsUsage: "PATH [PATH...]",
		Flags: []cli.Flag{
			formatFlag(),
			tokenFlag(),
			&cli.StringSliceFlag{
				Name:    "param",
				Aliases: []string{"p"},
				Usage:   "query parameter as key=value, repeatable",
			},
			&cli.IntFlag{
				Name:    "repeat",
				Aliases: []string{"n"},
				Usage:   "read every path this many rounds; later rounds hit the cache",
				Value:   1,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				return fmt.Errorf("get: at least one PATH is required")
			}
			params, err := parseParams(cmd.StringSlice("param"))
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

			failed := 0
			for round := 0; round < max(cmd.Int("repeat"), 1); round++ {
				recs := readAll(ctx, e.gw, paths, params)
				for _, r := range recs {
					if r.Failure != nil {
						failed++
					}
				}
				if err := writeRecords(stdout, recs...); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d", ErrCallsFailed, failed)
			}
			return nil
		},
	}
}

// readAll reads paths concurrently so they share a batch flush.
func readAll(ctx context.Context, gw netgate.Gateway[any], paths []string, params url.Values) []record {
	recs := make([]record, len(paths))
	var wg sync.WaitGroup
	for i, p := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recs[i] = newRecord(http.MethodGet, p, gw.Read(ctx, p, params))
		}()
	}
	wg.Wait()
	return recs
}

func parseParams(kvs []string) (url.Values, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	v := make(url.Values, len(kvs))
	for _, kv := range kvs {
		k, val, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("param %q: want key=value", kv)
		}
		v.Add(k, val)
	}
	return v, nil
}
