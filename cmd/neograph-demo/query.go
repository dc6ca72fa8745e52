// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/datawire/dlib/dlog"
	"github.com/spf13/cobra"

	"github.com/Aetherall/neograph-sub003/internal/queryast"
	"github.com/Aetherall/neograph-sub003/lib/textui"
)

func init() {
	var schemaFlag, seedFlag, queryFlag string
	var offsetFlag, limitFlag int

	cmd := cobra.Command{
		Use:   "query",
		Short: "Seed a graph from a JSON fixture and print a query's materialized view",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&schemaFlag, "schema", "", "path to a schema JSON document")
	cmd.Flags().StringVar(&seedFlag, "seed", "", "path to a seed-op JSON array to populate the graph before querying")
	cmd.Flags().StringVar(&queryFlag, "query", "", "path to a query JSON document (spec §4.4 wire shape)")
	cmd.Flags().IntVar(&offsetFlag, "offset", 0, "viewport offset")
	cmd.Flags().IntVar(&limitFlag, "limit", -1, "viewport limit (-1 for unbounded)")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("query")
	_ = cmd.MarkFlagFilename("schema")
	_ = cmd.MarkFlagFilename("seed")
	_ = cmd.MarkFlagFilename("query")

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

			q.ScrollTo(offsetFlag)
			q.SetLimit(limitFlag)

			items := q.Items()
			fmt.Println(textui.Window{Offset: q.Offset(), Count: len(items), Total: q.Total()})
			for _, it := range items {
				indent := strings.Repeat("  ", it.Depth)
				marker := " "
				if it.HasChildren {
					if it.Expanded {
						marker = "-"
					} else {
						marker = "+"
					}
				}
				edge := ""
				if it.HasParent {
					edge = it.EdgeFromParent + " "
				}
				fmt.Printf("%s%s %s#%d %s\n", indent, marker, edge, it.Id, it.Type)
			}
			return nil
		},
	})
}

func loadQueryFile(path string) (queryast.Query, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return queryast.Query{}, err
	}
	return queryast.DecodeQueryJSON(string(bs))
}
