// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package taxonomyimport implements the "taxonomy import" command.
package taxonomyimport

import (
	"context"
	"fmt"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/taxctl/cmd/taxctl/internal/taxctlcmd"
	"github.com/bufdev/taxctl/internal/pkg/cliio"
	"github.com/bufdev/taxctl/internal/standard/xos"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlreconcile"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlsnapshot"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlstore"
	"github.com/spf13/pflag"
)

const (
	pruneFlagName          = "prune"
	preserveNamesFlagName  = "preserve-names"
	dryRunFlagName         = "dry-run"
	snapshotFormatFlagName = "snapshot-format"
)

// stdinSource is the snapshot argument that reads from stdin.
const stdinSource = "-"

// NewCommand returns a new taxonomy import command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name + " <name> <snapshot-file|->",
		Short: "Synchronize a taxonomy with a snapshot",
		Long: `Synchronize a taxonomy with a JSON or YAML snapshot and print the change log.

Categories are matched by key, then by name below the same parent. Instruments are
matched against the securities and accounts of taxctl.yaml by ISIN, ticker, WKN, then name.
The taxonomy is only saved if the import changed it and --dry-run is not set.

--prune and --preserve-names are enabled if either the flag or the corresponding
import setting of taxctl.yaml is set.`,
		Args: appcmd.ExactArgs(2),
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
	// Format is the output format of the change log (table, csv, json).
	Format string
	// Prune deletes categories and assignments absent from the snapshot.
	Prune bool
	// PreserveNames keeps names, descriptions, and colors of matched categories.
	PreserveNames bool
	// DryRun prints the change log without saving.
	DryRun bool
	// SnapshotFormat overrides the snapshot encoding derived from the file extension.
	SnapshotFormat string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	taxctlcmd.BindDirFlag(flagSet, &f.Dir)
	taxctlcmd.BindFormatFlag(flagSet, &f.Format)
	flagSet.BoolVar(&f.Prune, pruneFlagName, false, "Delete categories and assignments that the snapshot does not mention")
	flagSet.BoolVar(&f.PreserveNames, preserveNamesFlagName, false, "Keep the names, descriptions, and colors of existing categories")
	flagSet.BoolVar(&f.DryRun, dryRunFlagName, false, "Print the changes without saving them")
	flagSet.StringVar(
		&f.SnapshotFormat,
		snapshotFormatFlagName,
		"",
		"The snapshot format (json, yaml), derived from the file extension if not set and json for stdin",
	)
}

func run(ctx context.Context, container appext.Container, flags *flags) error {
	format, err := cliio.ParseFormat(flags.Format)
	if err != nil {
		return appcmd.NewInvalidArgumentError(err.Error())
	}
	taxonomyName := container.Arg(0)
	source := container.Arg(1)
	snapshotFormat, err := getSnapshotFormat(flags.SnapshotFormat, source)
	if err != nil {
		return appcmd.NewInvalidArgumentError(err.Error())
	}
	config, err := taxctlcmd.ReadConfig(flags.Dir)
	if err != nil {
		return err
	}
	// Structural errors must surface before the taxonomy is loaded.
	snapshot, err := readSnapshot(container, source, snapshotFormat)
	if err != nil {
		return err
	}
	logger := container.Logger()
	importer := taxctlreconcile.NewImporter(
		logger,
		config.Client(),
		taxctlreconcile.Options{
			PreserveNameAndDescription: flags.PreserveNames || config.ImportPreserveNames,
			Prune:                      flags.Prune || config.ImportPrune,
		},
	)
	return taxctlcmd.WithStore(ctx, container, flags.Dir, func(store *taxctlstore.Store) error {
		taxonomy, err := store.LoadTaxonomy(ctx, taxonomyName)
		if err != nil {
			return err
		}
		result := importer.Import(taxonomy, snapshot)
		if err := cliio.Write(
			container.Stdout(),
			format,
			taxctlreconcile.ChangeHeaders(),
			result.Changes(),
			taxctlreconcile.ChangeToRow,
		); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(
			container.Stderr(),
			"%d created, %d modified, %d skipped, %d warnings, %d errors\n",
			result.CreatedCount(),
			result.ModifiedCount(),
			result.Count(taxctlreconcile.OperationSkipped),
			result.Count(taxctlreconcile.OperationWarning),
			result.Count(taxctlreconcile.OperationError),
		); err != nil {
			return err
		}
		switch {
		case flags.DryRun:
			logger.Info("dry run, taxonomy not saved", "taxonomy", taxonomyName)
			return nil
		case !result.HasChanges():
			logger.Info("taxonomy unchanged", "taxonomy", taxonomyName)
			return nil
		}
		if err := store.SaveTaxonomy(ctx, taxonomy); err != nil {
			return err
		}
		_, err = store.RecordImport(ctx, taxonomy.ID(), source, result)
		return err
	})
}

func getSnapshotFormat(flagValue string, source string) (taxctlsnapshot.Format, error) {
	if flagValue != "" {
		return taxctlsnapshot.ParseFormat(flagValue)
	}
	if source == stdinSource {
		return taxctlsnapshot.FormatJSON, nil
	}
	return taxctlsnapshot.FormatForPath(source), nil
}

func readSnapshot(container appext.Container, source string, format taxctlsnapshot.Format) (*taxctlsnapshot.Snapshot, error) {
	if source != stdinSource {
		filePath, err := xos.ExpandHome(source)
		if err != nil {
			return nil, err
		}
		return taxctlsnapshot.ReadFile(filePath, format)
	}
	snapshot, err := taxctlsnapshot.Read(container.Stdin(), format)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot from stdin: %w", err)
	}
	return snapshot, nil
}
