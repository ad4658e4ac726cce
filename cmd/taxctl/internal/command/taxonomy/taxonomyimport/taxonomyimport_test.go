// Copyright 2026 Peter Edge
//
// All rights reserved.

package taxonomyimport

import (
	"testing"

	"github.com/bufdev/taxctl/internal/taxctl/taxctlsnapshot"
	"github.com/stretchr/testify/require"
)

func TestGetSnapshotFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		flagValue string
		source    string
		expected  taxctlsnapshot.Format
		wantErr   bool
	}{
		{name: "stdin", source: "-", expected: taxctlsnapshot.FormatJSON},
		{name: "json_file", source: "regions.json", expected: taxctlsnapshot.FormatJSON},
		{name: "yaml_file", source: "regions.yaml", expected: taxctlsnapshot.FormatYAML},
		{name: "flag_overrides_extension", flagValue: "yaml", source: "regions.json", expected: taxctlsnapshot.FormatYAML},
		{name: "flag_for_stdin", flagValue: "yml", source: "-", expected: taxctlsnapshot.FormatYAML},
		{name: "invalid_flag", flagValue: "xml", source: "regions.json", wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			format, err := getSnapshotFormat(test.flagValue, test.source)
			if test.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.expected, format)
		})
	}
}
