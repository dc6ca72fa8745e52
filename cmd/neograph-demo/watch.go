// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/datawire/dlib/dlog"
	"github.com/spf13/cobra"

	neograph "github.com/Aetherall/neograph-sub003"
)

func init() {
	var schemaFlag, seedFlag, queryFlag, scriptFlag string

	cmd := cobra.Command{
		Use:   "watch",
		Short: "Replay a mutation script against a live query and print the events it emits",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&schemaFlag, "schema", "", "path to a schema JSON document")
	cmd.Flags().StringVar(&seedFlag, "seed", "", "path to a seed-op JSON array to populate the graph before watching")
	cmd.Flags().StringVar(&queryFlag, "query", "", "path to a query JSON document (spec §4.4 wire shape)")
	cmd.Flags().StringVar(&scriptFlag, "script", "", "path to a mutation-script JSON array replayed after the query is live")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("query")
	_ = cmd.MarkFlagRequired("script")
	_ = cmd.MarkFlagFilename("schema")
	_ = cmd.MarkFlagFilename("seed")
	_ = cmd.MarkFlagFilename("query")
	_ = cmd.MarkFlagFilename("script")

	subcommands = append(subcommands, subcommand{
		Command: cmd,
		RunE: func(ctx context.Context, cmd *cobra.Command, args []string) error {
			g, err := loadSchemaFile(schemaFlag)
			if err != nil {
				return err
			}
			if seedFlag != "" {
				ops, err := loadOpsFile(seedFlag)
				if err != nil {
					return err
				}
				if _, err := applyOps(g, ops); err != nil {
					return err
				}
				dlog.Infof(ctx, "seeded %d op(s) from %s", len(ops), seedFlag)
			}

			qdef, err := loadQueryFile(queryFlag)
			if err != nil {
				return err
			}
			q, err := g.Query(qdef)
			if err != nil {
				return err
			}
			defer q.Destroy()

			for _, kind := range []string{"enter", "leave", "change", "move"} {
				kind := kind
				q.On(kind, func(e neograph.QueryEvent) {
					printEvent(kind, e)
				})
			}

			script, err := loadOpsFile(scriptFlag)
			if err != nil {
				return err
			}
			dlog.Infof(ctx, "replaying %d op(s) from %s", len(script), scriptFlag)
			if _, err := applyOps(g, script); err != nil {
				return err
			}
			return nil
		},
	})
}

func printEvent(kind string, e neograph.QueryEvent) {
	switch kind {
	case "move":
		fmt.Fprintf(os.Stdout, "move   #%d %s  %d -> %d\n", e.Item.Id, e.Item.Type, e.OldIndex, e.NewIndex)
	default:
		fmt.Fprintf(os.Stdout, "%-6s #%d %s  depth=%d index=%d\n", kind, e.Item.Id, e.Item.Type, e.Item.Depth, e.NewIndex)
	}
}
