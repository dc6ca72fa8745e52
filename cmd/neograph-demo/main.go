// SPDX-License-Identifier: MIT

// Command neograph-demo is a small harness around the neograph Host
// API: load a schema, seed a graph from a JSON fixture, run a query
// against it, or replay a mutation script and print the event stream
// a live view emits. It is external to the core per spec §1 ("out of
// scope: embedding language bindings") — a demonstration CLI in the
// same spirit as the teacher's cmd/btrfs-rec, not a language binding.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/datawire/dlib/dgroup"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Aetherall/neograph-sub003/internal/nlog"
)

// subcommand pairs a cobra.Command with a RunE that receives an
// already logger-wrapped context, mirroring cmd/btrfs-rec/main.go's
// subcommand type minus the filesystem handle it threads through
// (neograph-demo's subcommands open their own fixtures instead).
type subcommand struct {
	cobra.Command
	RunE func(ctx context.Context, cmd *cobra.Command, args []string) error
}

var subcommands []subcommand

func main() {
	levelFlag := nlog.LevelFlag{Level: logrus.InfoLevel}

	argparser := &cobra.Command{
		Use:   "neograph-demo SUBCOMMAND",
		Short: "Inspect and query an in-memory neograph graph built from JSON fixtures",

		SilenceErrors: true,
		SilenceUsage:  true,

		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	argparser.PersistentFlags().Var(&levelFlag, "verbosity", "set the log verbosity (trace|debug|info|warn|error)")

	for _, sc := range subcommands {
		cmd := sc.Command
		runE := sc.RunE
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			ctx := nlog.WithLogger(cmd.Context(), levelFlag.Level)
			grp := dgroup.NewGroup(ctx, dgroup.GroupConfig{
				EnableSignalHandling: true,
			})
			grp.Go("main", func(ctx context.Context) error {
				return runE(ctx, cmd, args)
			})
			return grp.Wait()
		}
		argparser.AddCommand(&cmd)
	}

	if err := argparser.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "neograph-demo:", err)
		os.Exit(1)
	}
}
