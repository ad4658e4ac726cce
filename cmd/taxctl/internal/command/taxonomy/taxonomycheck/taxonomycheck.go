// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package taxonomycheck implements the "taxonomy check" command.
package taxonomycheck

import (
	"context"
	"fmt"
	"strconv"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/taxctl/cmd/taxctl/internal/taxctlcmd"
	"github.com/bufdev/taxctl/internal/pkg/cliio"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlreport"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlstore"
	"github.com/spf13/pflag"
)

// NewCommand returns a new taxonomy check command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name + " <name>",
		Short: "Report the assignment weight budget of every vehicle",
		Long: `Report the assignment weight budget of every vehicle.

The command fails if any vehicle is assigned more than 100%.`,
		Args: appcmd.ExactArgs(1),
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container, flags)
			},
		),
		BindFlags: flags.Bind,
	}
}

type flags struct {
	// Dir is the taxctl directory containing taxctl.yaml and taxctl.db.
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
	config, err := taxctlcmd.ReadConfig(flags.Dir)
	if err != nil {
		return err
	}
	return taxctlcmd.WithStore(ctx, container, flags.Dir, func(store *taxctlstore.Store) error {
		taxonomy, err := store.LoadTaxonomy(ctx, container.Arg(0))
		if err != nil {
			return err
		}
		vehicleWeights := taxctlreport.GetVehicleWeights(taxonomy, config.Client())
		overCount := taxctlreport.CountStatus(vehicleWeights, taxctlreport.StatusOver)
		switch format {
		case cliio.FormatTable:
			rows := make([][]string, 0, len(vehicleWeights))
			for _, vehicleWeight := range vehicleWeights {
				rows = append(rows, taxctlreport.VehicleWeightToRow(vehicleWeight))
			}
			totalsRow := []string{
				"TOTAL",
				"",
				strconv.Itoa(len(vehicleWeights)),
				fmt.Sprintf("%d %s", overCount, taxctlreport.StatusOver),
			}
			if err := cliio.WriteTableWithTotals(container.Stdout(), taxctlreport.VehicleWeightsHeaders(), rows, totalsRow); err != nil {
				return err
			}
		default:
			if err := cliio.Write(
				container.Stdout(),
				format,
				taxctlreport.VehicleWeightsHeaders(),
				vehicleWeights,
				taxctlreport.VehicleWeightToRow,
			); err != nil {
				return err
			}
		}
		if overCount > 0 {
			return fmt.Errorf("%d vehicles are assigned more than 100%%", overCount)
		}
		return nil
	})
}
