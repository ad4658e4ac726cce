// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package taxctlcmd provides shared wiring for taxctl commands that need
// the base directory, the configuration, or the taxonomy store.
package taxctlcmd

import (
	"context"
	"errors"

	"buf.build/go/app/appext"
	"github.com/bufdev/taxctl/internal/standard/xos"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlconfig"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlpath"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlstore"
	"github.com/spf13/pflag"
)

// DirFlagName is the flag name for the taxctl base directory.
const DirFlagName = "dir"

// FormatFlagName is the flag name for the output format.
const FormatFlagName = "format"

// BindDirFlag binds the --dir flag to dir.
func BindDirFlag(flagSet *pflag.FlagSet, dir *string) {
	flagSet.StringVar(dir, DirFlagName, ".", "The taxctl directory containing taxctl.yaml and taxctl.db")
}

// BindFormatFlag binds the --format flag to format.
func BindFormatFlag(flagSet *pflag.FlagSet, format *string) {
	flagSet.StringVar(format, FormatFlagName, "table", "Output format (table, csv, json)")
}

// ReadConfig reads and validates the configuration file from the base directory.
func ReadConfig(dir string) (*taxctlconfig.Config, error) {
	dirPath, err := xos.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	return taxctlconfig.ReadConfig(dirPath)
}

// WithStore opens the taxonomy store of the base directory, calls f, and closes the store.
func WithStore(
	ctx context.Context,
	container appext.Container,
	dir string,
	f func(*taxctlstore.Store) error,
) (retErr error) {
	dirPath, err := xos.ExpandHome(dir)
	if err != nil {
		return err
	}
	store, err := taxctlstore.Open(ctx, container.Logger(), taxctlpath.DatabaseFilePath(dirPath))
	if err != nil {
		return err
	}
	defer func() {
		retErr = errors.Join(retErr, store.Close())
	}()
	return f(store)
}
