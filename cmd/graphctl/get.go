package main

import (
	"fmt"
	"net/http"
	"strings"

	_ "github.com/Sternrassler/graph-business-client/pkg/adobjects"
	"github.com/Sternrassler/graph-business-client/pkg/graph"
	"github.com/spf13/cobra"
)

type readFlags struct {
	fields []string
	params []string
	schema string
}

func (f *readFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.fields, "fields", nil, "fields to read (comma separated)")
	cmd.Flags().StringArrayVar(&f.params, "param", nil, "request param as key=value, sent as given (repeatable)")
	cmd.Flags().StringVar(&f.schema, "schema", "", "resource type the result is parsed into, e.g. Page")
}

// options resolves --schema and --param into request options. The schema
// only types the result and its fields; param values go out verbatim.
func (f *readFlags) options() ([]graph.Option, error) {
	var opts []graph.Option

	if f.schema != "" {
		schema, ok := graph.Lookup(f.schema)
		if !ok {
			return nil, fmt.Errorf("unknown schema %q", f.schema)
		}
		opts = append(opts, graph.WithTarget(schema))
	}

	params, err := parseParams(f.params)
	if err != nil {
		return nil, err
	}
	return append(opts, graph.WithParams(params), graph.WithFields(f.fields)), nil
}

func newGetCmd(a *app) *cobra.Command {
	var flags readFlags

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Read a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			obj, err := graph.NewRequest(a.client, args[0], http.MethodGet, "/", opts...).Execute(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), obj)
		},
	}
	flags.register(cmd)
	return cmd
}

func newEdgeCmd(a *app) *cobra.Command {
	var (
		flags readFlags
		all   bool
		limit int
	)

	cmd := &cobra.Command{
		Use:   "edge <id> <edge>",
		Short: "List the objects on an edge, one JSON object per line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			opts = append(opts, graph.AsEdge())

			req := graph.NewRequest(a.client, args[0], http.MethodGet, strings.Trim(args[1], "/"), opts...)
			if limit > 0 {
				req.AddParam("limit", limit)
			}
			cursor, err := req.Cursor(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !all {
				for i := range cursor.Len() {
					if err := writeJSON(out, cursor.Index(i)); err != nil {
						return err
					}
				}
				return nil
			}
			for obj, err := range cursor.Objects(cmd.Context()) {
				if err != nil {
					return err
				}
				if err := writeJSON(out, obj); err != nil {
					return err
				}
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "follow cursors until the last page")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size")
	return cmd
}
