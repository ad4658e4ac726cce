// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package taxctlpath derives file paths from the taxctl base directory.
//
// The base directory (--dir flag) contains:
//
//	taxctl.yaml    Config file (securities, accounts, import defaults)
//	taxctl.db      SQLite database holding taxonomies and import history
//	exports/       Default destination of exported snapshots
package taxctlpath

import (
	"path/filepath"
	"strings"
)

// ConfigFileName is the well-known config file name within the base directory.
const ConfigFileName = "taxctl.yaml"

// DatabaseFileName is the well-known database file name within the base directory.
const DatabaseFileName = "taxctl.db"

// ConfigFilePath returns the path to the config file within the base directory.
func ConfigFilePath(dirPath string) string {
	return filepath.Join(dirPath, ConfigFileName)
}

// DatabaseFilePath returns the path to the database file within the base directory.
func DatabaseFilePath(dirPath string) string {
	return filepath.Join(dirPath, DatabaseFileName)
}

// ExportsDirPath returns the directory exported snapshots are written to by default.
func ExportsDirPath(dirPath string) string {
	return filepath.Join(dirPath, "exports")
}

// ExportFilePath returns the default export path of the named taxonomy.
//
// Path separators and spaces in the name are replaced so the result is a single file name.
func ExportFilePath(dirPath string, taxonomyName string) string {
	fileName := strings.NewReplacer("/", "_", `\`, "_", " ", "_").Replace(strings.ToLower(taxonomyName))
	return filepath.Join(ExportsDirPath(dirPath), fileName+".json")
}
