package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Sternrassler/graph-business-client/pkg/client"
	"github.com/Sternrassler/graph-business-client/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// app holds the state shared by the subcommands.
type app struct {
	configPath string
	logLevel   string
	pretty     bool
	apiVersion string
	strict     bool

	cfg    Config
	redis  *redis.Client
	client *client.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "graphctl",
		Short:         "Call the graph API from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.redis != nil {
				return a.redis.Close()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	flags.BoolVar(&a.pretty, "pretty", false, "human-readable log output")
	flags.StringVar(&a.apiVersion, "api-version", "", "graph API version, e.g. v21.0")
	flags.BoolVar(&a.strict, "strict", false, "reject params an endpoint does not declare")

	root.AddCommand(
		newGetCmd(a),
		newEdgeCmd(a),
		newBatchCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup loads the config, applies flags, configures logging and builds the
// client.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		level, err := logging.ParseLevel(a.logLevel)
		if err != nil {
			return err
		}
		cfg.Logging.Level = level
	}
	if flags.Changed("pretty") {
		cfg.Logging.Pretty = a.pretty
	}
	if flags.Changed("api-version") {
		cfg.Client.APIVersion = a.apiVersion
	}
	if flags.Changed("strict") {
		cfg.Client.StrictMode = a.strict
	}
	cfg.Logging.Output = cmd.ErrOrStderr()
	logging.Setup(cfg.Logging)

	if cfg.Client.AccessToken == "" {
		return errNoToken
	}
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cfg.Client.Redis = a.redis
	}

	c, err := client.New(cfg.Client)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	a.cfg = cfg
	a.client = c
	return nil
}

// parseParams turns key=value flags into params. Values stay strings.
func parseParams(pairs []string) (client.Params, error) {
	params := client.Params{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("param %q: want key=value", pair)
		}
		params[key] = value
	}
	return params, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
