// Copyright 2026 Peter Edge
//
// All rights reserved.

package taxctlpath

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPaths(t *testing.T) {
	t.Parallel()
	dirPath := filepath.Join("home", "taxctl")
	require.Equal(t, filepath.Join(dirPath, "taxctl.yaml"), ConfigFilePath(dirPath))
	require.Equal(t, filepath.Join(dirPath, "taxctl.db"), DatabaseFilePath(dirPath))
	require.Equal(t, filepath.Join(dirPath, "exports", "asset_classes.json"), ExportFilePath(dirPath, "Asset Classes"))
	require.Equal(t, filepath.Join(dirPath, "exports", "stocks_bonds.json"), ExportFilePath(dirPath, "Stocks/Bonds"))
}
