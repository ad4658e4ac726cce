// Copyright 2026 Peter Edge
//
// All rights reserved.

package taxctlreport

import (
	"testing"
	"time"

	"github.com/bufdev/taxctl/internal/taxctl/taxctlmodel"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlreconcile"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlstore"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestGetClassificationOverviews(t *testing.T) {
	t.Parallel()
	taxonomy, _ := newTestTaxonomy()
	expected := []*ClassificationOverview{
		{Path: "Equity", Key: "EQ", Weight: "60.00%", Rank: 0, Color: "#1f77b4", Assignments: 1},
		{Path: "Equity > Developed", Weight: "0.00%", Rank: 0, Assignments: 1},
		{Path: "Bonds", Weight: "40.00%", Rank: 1, Assignments: 1},
	}
	if diff := cmp.Diff(expected, GetClassificationOverviews(taxonomy)); diff != "" {
		t.Errorf("classification overviews mismatch (-want +got):\n%s", diff)
	}
	require.Equal(
		t,
		[]string{"Equity", "EQ", "60.00%", "0", "#1f77b4", "1"},
		ClassificationOverviewToRow(GetClassificationOverviews(taxonomy)[0]),
	)
}

func TestGetVehicleWeights(t *testing.T) {
	t.Parallel()
	taxonomy, client := newTestTaxonomy()
	vehicleWeights := GetVehicleWeights(taxonomy, client)
	expected := []*VehicleWeight{
		{Vehicle: "Apple", ID: "apple", Total: "100.00%", Assignments: 2, Status: StatusComplete},
		{Vehicle: "Deutsche Bank", ID: "deutsche", Total: "120.00%", Assignments: 1, Status: StatusOver},
		{Vehicle: "Unused", ID: "unused", Total: "0.00%", Assignments: 0, Status: StatusUnassigned},
		{Vehicle: "Checking", ID: "checking", Total: "0.00%", Assignments: 0, Status: StatusUnassigned},
	}
	if diff := cmp.Diff(expected, vehicleWeights); diff != "" {
		t.Errorf("vehicle weights mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 1, CountStatus(vehicleWeights, StatusOver))
	require.Equal(t, []string{"Apple", "100.00%", "2", "COMPLETE"}, VehicleWeightToRow(vehicleWeights[0]))

	taxonomy.Root().Children()[0].Assignments()[0].Weight = 5000
	taxonomy.Root().Children()[1].AddAssignment(taxctlmodel.NewAssignment("removed", 2500))
	vehicleWeights = GetVehicleWeights(taxonomy, client)
	require.Equal(t, StatusOver, vehicleWeights[1].Status)
	require.Equal(t, StatusPartial, vehicleWeights[0].Status)
	last := vehicleWeights[len(vehicleWeights)-1]
	require.Equal(t, "removed", last.Vehicle)
	require.Equal(t, StatusUnknown, last.Status)
}

func TestRows(t *testing.T) {
	t.Parallel()
	require.Equal(
		t,
		[]string{"Regions", "region,country", "4", "7"},
		TaxonomyInfoToRow(&taxctlstore.TaxonomyInfo{
			Name:                "Regions",
			Dimensions:          []string{"region", "country"},
			ClassificationCount: 4,
			AssignmentCount:     7,
		}),
	)
	require.Equal(
		t,
		[]string{"3", "2026-03-01T12:30:00Z", "regions.json", "2", "1", "4"},
		ImportRunToRow(&taxctlstore.ImportRun{
			ID:         3,
			ImportedAt: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
			Source:     "regions.json",
			Created:    2,
			Modified:   1,
			Changes:    make([]taxctlreconcile.Change, 4),
		}),
	)
	require.Len(t, ImportRunsHeaders(), 6)
	require.Len(t, TaxonomyInfosHeaders(), 4)
}

func newTestTaxonomy() (*taxctlmodel.Taxonomy, *taxctlmodel.Client) {
	client := taxctlmodel.NewClient(
		[]*taxctlmodel.Security{
			taxctlmodel.NewSecurity("apple", "Apple", "US0378331005", "AAPL", ""),
			taxctlmodel.NewSecurity("deutsche", "Deutsche Bank", "DE0005140008", "DBK", "514000"),
			taxctlmodel.NewSecurity("unused", "Unused", "", "", ""),
		},
		[]*taxctlmodel.Account{
			taxctlmodel.NewAccount("checking", "Checking"),
		},
	)
	taxonomy := taxctlmodel.NewTaxonomy("Asset Classes")
	equity := taxctlmodel.NewClassification("Equity")
	equity.Key = "EQ"
	equity.Color = "#1f77b4"
	equity.Weight = 6000
	taxonomy.AddClassification(taxonomy.Root(), equity)
	developed := taxctlmodel.NewClassification("Developed")
	taxonomy.AddClassification(equity, developed)
	bonds := taxctlmodel.NewClassification("Bonds")
	bonds.Weight = 4000
	bonds.Rank = 1
	taxonomy.AddClassification(taxonomy.Root(), bonds)
	equity.AddAssignment(taxctlmodel.NewAssignment("apple", 6000))
	bonds.AddAssignment(taxctlmodel.NewAssignment("apple", 4000))
	developed.AddAssignment(taxctlmodel.NewAssignment("deutsche", 12000))
	return taxonomy, client
}
