// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package taxonomyexport implements the "taxonomy export" command.
package taxonomyexport

import (
	"bytes"
	"context"
	"fmt"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/taxctl/cmd/taxctl/internal/taxctlcmd"
	"github.com/bufdev/taxctl/internal/standard/xos"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlpath"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlsnapshot"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlstore"
	"github.com/spf13/pflag"
)

const (
	outputFlagName = "output"
	stdoutFlagName = "stdout"
)

// NewCommand returns a new taxonomy export command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name + " <name>",
		Short: "Export a taxonomy as a JSON snapshot",
		Long: `Export a taxonomy as a JSON snapshot that imports back without changes.

The snapshot is written to exports/<name>.json in the taxctl directory unless
--output or --stdout is set.`,
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
	// Output is the file to write the snapshot to.
	Output string
	// Stdout writes the snapshot to stdout.
	Stdout bool
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	taxctlcmd.BindDirFlag(flagSet, &f.Dir)
	flagSet.StringVar(&f.Output, outputFlagName, "", "The file to write the snapshot to")
	flagSet.BoolVar(&f.Stdout, stdoutFlagName, false, "Write the snapshot to stdout")
}

func run(ctx context.Context, container appext.Container, flags *flags) error {
	if flags.Stdout && flags.Output != "" {
		return appcmd.NewInvalidArgumentErrorf("--%s and --%s are mutually exclusive", outputFlagName, stdoutFlagName)
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
		snapshot := taxctlsnapshot.Export(taxonomy, config.Client())
		if flags.Stdout {
			return taxctlsnapshot.Write(container.Stdout(), snapshot)
		}
		var buffer bytes.Buffer
		if err := taxctlsnapshot.Write(&buffer, snapshot); err != nil {
			return err
		}
		outputFilePath := flags.Output
		if outputFilePath == "" {
			outputFilePath = taxctlpath.ExportFilePath(config.DirPath, taxonomy.Name())
		}
		if outputFilePath, err = xos.ExpandHome(outputFilePath); err != nil {
			return err
		}
		if err := xos.WriteFileAtomic(outputFilePath, buffer.Bytes(), 0o644); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
		_, err = fmt.Fprintf(container.Stdout(), "%s\n", outputFilePath)
		return err
	})
}
