// Copyright 2026 Peter Edge
//
// All rights reserved.

package main

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/taxctl/cmd/taxctl/internal/command/config"
	"github.com/bufdev/taxctl/cmd/taxctl/internal/command/taxonomy"
)

func main() {
	appcmd.Main(context.Background(), newRootCommand("taxctl"))
}

// newRootCommand creates the root taxctl command with all sub-commands.
func newRootCommand(name string) *appcmd.Command {
	builder := appext.NewBuilder(name)
	return &appcmd.Command{
		Use:                 name,
		Short:               "Synchronize classification taxonomies with declarative snapshots",
		BindPersistentFlags: builder.BindRoot,
		SubCommands: []*appcmd.Command{
			config.NewCommand("config", builder),
			taxonomy.NewCommand("taxonomy", builder),
		},
	}
}
