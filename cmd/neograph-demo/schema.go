// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"

	"github.com/datawire/dlib/dlog"
	"github.com/spf13/cobra"
)

func init() {
	var schemaFlag string

	cmd := cobra.Command{
		Use:   "schema",
		Short: "Validate a schema JSON file and print its registered types",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&schemaFlag, "schema", "", "path to a schema JSON document (spec §6 wire shape)")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagFilename("schema")

	subcommands = append(subcommands, subcommand{
		Command: cmd,
		RunE: func(ctx context.Context, cmd *cobra.Command, args []string) error {
			g, err := loadSchemaFile(schemaFlag)
			if err != nil {
				return err
			}
			dlog.Infof(ctx, "schema %s is valid", schemaFlag)
			for _, t := range g.Schema().Types() {
				fmt.Printf("%s\n", t.Name)
				for _, p := range t.Properties {
					fmt.Printf("  property %s %s\n", p.Name, p.Kind)
				}
				for _, e := range t.Edges {
					fmt.Printf("  edge %s -> %s\n", e.Name, g.Schema().Type(e.TargetType).Name)
				}
				for i, idx := range t.Indexes {
					fmt.Printf("  index #%d (%d field(s))\n", i, len(idx.Fields))
				}
				for _, r := range t.Rollups {
					fmt.Printf("  rollup %s (%s)\n", r.Name, r.Kind)
				}
			}
			return nil
		},
	})
}
