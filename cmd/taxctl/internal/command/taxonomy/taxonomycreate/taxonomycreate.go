// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package taxonomycreate implements the "taxonomy create" command.
package taxonomycreate

import (
	"context"
	"fmt"
	"strings"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/taxctl/cmd/taxctl/internal/taxctlcmd"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlstore"
	"github.com/spf13/pflag"
)

// dimensionFlagName is the flag name for the taxonomy dimensions.
const dimensionFlagName = "dimension"

// NewCommand returns a new taxonomy create command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name + " <name>",
		Short: "Create an empty taxonomy",
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
	// Dimensions are the dimension labels of the taxonomy.
	Dimensions []string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	taxctlcmd.BindDirFlag(flagSet, &f.Dir)
	flagSet.StringSliceVar(&f.Dimensions, dimensionFlagName, nil, "A dimension label of the taxonomy (repeatable)")
}

func run(ctx context.Context, container appext.Container, flags *flags) error {
	name := strings.TrimSpace(container.Arg(0))
	if name == "" {
		return appcmd.NewInvalidArgumentError("taxonomy name must not be empty")
	}
	return taxctlcmd.WithStore(ctx, container, flags.Dir, func(store *taxctlstore.Store) error {
		taxonomy, err := store.CreateTaxonomy(ctx, name, flags.Dimensions)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(container.Stdout(), "%s\n", taxonomy.ID())
		return err
	})
}
