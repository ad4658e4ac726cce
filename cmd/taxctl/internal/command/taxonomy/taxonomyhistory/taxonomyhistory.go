// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package taxonomyhistory implements the "taxonomy history" command.
package taxonomyhistory

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/taxctl/cmd/taxctl/internal/taxctlcmd"
	"github.com/bufdev/taxctl/internal/pkg/cliio"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlreport"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlstore"
	"github.com/spf13/pflag"
)

// NewCommand returns a new taxonomy history command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name + " <name>",
		Short: "List the saved imports of a taxonomy",
		Args:  appcmd.ExactArgs(1),
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container, flags)
			},
		),
		BindFlags: flags.Bind,
	}
}

type flags struct {
	// Dir is the taxctl directory containing taxctl.db.
	Dir string
	// Format is the output format (table, csv, json).
	Format string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	taxctlcmd.BindDirFlag(flagSet, &f.Dir)
	taxctlcmd.BindFormatFlag(flagSet, &f.Format)
}

func run(ctx context.Context, container appext.Container, flags *flags) error {
	format, err := cliio.ParseFormat(flags.Format)
	if err != nil {
		return appcmd.NewInvalidArgumentError(err.Error())
	}
	return taxctlcmd.WithStore(ctx, container, flags.Dir, func(store *taxctlstore.Store) error {
		taxonomy, err := store.LoadTaxonomy(ctx, container.Arg(0))
		if err != nil {
			return err
		}
		importRuns, err := store.ListImports(ctx, taxonomy.ID())
		if err != nil {
			return err
		}
		// JSON output includes the full change log of every import.
		return cliio.Write(
			container.Stdout(),
			format,
			taxctlreport.ImportRunsHeaders(),
			importRuns,
			taxctlreport.ImportRunToRow,
		)
	})
}
