// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package taxonomy implements the "taxonomy" command group.
package taxonomy

import (
	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/taxctl/cmd/taxctl/internal/command/taxonomy/taxonomycheck"
	"github.com/bufdev/taxctl/cmd/taxctl/internal/command/taxonomy/taxonomycreate"
	"github.com/bufdev/taxctl/cmd/taxctl/internal/command/taxonomy/taxonomyexport"
	"github.com/bufdev/taxctl/cmd/taxctl/internal/command/taxonomy/taxonomyhistory"
	"github.com/bufdev/taxctl/cmd/taxctl/internal/command/taxonomy/taxonomyimport"
	"github.com/bufdev/taxctl/cmd/taxctl/internal/command/taxonomy/taxonomylist"
	"github.com/bufdev/taxctl/cmd/taxctl/internal/command/taxonomy/taxonomyshow"
)

// NewCommand returns a new taxonomy command group.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	return &appcmd.Command{
		Use:   name,
		Short: "Manage classification taxonomies",
		SubCommands: []*appcmd.Command{
			taxonomycreate.NewCommand("create", builder),
			taxonomylist.NewCommand("list", builder),
			taxonomyshow.NewCommand("show", builder),
			taxonomyimport.NewCommand("import", builder),
			taxonomyexport.NewCommand("export", builder),
			taxonomycheck.NewCommand("check", builder),
			taxonomyhistory.NewCommand("history", builder),
		},
	}
}
