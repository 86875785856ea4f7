package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/go-city-crud/internal/client"
	"github.com/FACorreiaa/go-city-crud/internal/types"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type cliOptions struct {
	bases   []string
	timeout time.Duration
	verbose bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "citycli",
		Short:         "Manage cities through the City API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(out)
	root.PersistentFlags().StringSliceVar(&opts.bases, "base", client.DefaultBaseURLs,
		"candidate base URLs, tried in order (repeatable)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-request timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log fallback attempts")

	root.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all cities",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				c, err := opts.client()
				if err != nil {
					return err
				}
				cities, err := c.ListCities(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), cities)
			},
		},
		&cobra.Command{
			Use:   "get <id>",
			Short: "Show one city",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				c, err := opts.client()
				if err != nil {
					return err
				}
				city, err := c.GetCity(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), city)
			},
		},
		&cobra.Command{
			Use:   "create <name> <country>",
			Short: "Create a city",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := opts.client()
				if err != nil {
					return err
				}
				city, err := c.CreateCity(cmd.Context(), types.CreateCityRequest{Name: args[0], Country: args[1]})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), city)
			},
		},
		newUpdateCmd(opts),
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a city",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				c, err := opts.client()
				if err != nil {
					return err
				}
				if err := c.DeleteCity(cmd.Context(), id); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), types.DeleteCityResponse{Message: "City deleted successfully", ID: id})
			},
		},
	)
	return root
}

func newUpdateCmd(opts *cliOptions) *cobra.Command {
	var name, country string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the name and/or country of a city",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var req types.UpdateCityRequest
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("country") {
				req.Country = &country
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			city, err := c.UpdateCity(cmd.Context(), id, req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), city)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new city name")
	cmd.Flags().StringVar(&country, "country", "", "new country")
	return cmd
}

func (o *cliOptions) client() (*client.Client, error) {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return client.New(o.bases,
		client.WithLogger(logger),
		client.WithHTTPClientTimeout(o.timeout),
	)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid city id %q: must be an integer", raw)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
