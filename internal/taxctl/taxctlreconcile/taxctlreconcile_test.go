// Copyright 2026 Peter Edge
//
// All rights reserved.

package taxctlreconcile

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/bufdev/taxctl/internal/taxctl/taxctlmodel"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlsnapshot"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestCreateIntoEmptyTaxonomy(t *testing.T) {
	t.Parallel()
	taxonomy := taxctlmodel.NewTaxonomy("Asset Classes")
	snapshot := readSnapshot(t, `{"categories": [{"name": "Equity", "key": "EQ"}]}`)

	result := newTestImporter(newTestClient(), Options{}).Import(taxonomy, snapshot)

	require.Equal(t, []string{"CREATE CLASSIFICATION"}, operations(result))
	require.True(t, result.HasChanges())
	require.Len(t, taxonomy.Root().Children(), 1)
	equity := taxonomy.Root().Children()[0]
	require.Equal(t, "Equity", equity.Name)
	require.Equal(t, "EQ", equity.Key)
	require.Equal(t, 0, equity.Weight)
	require.Equal(t, 0, equity.Rank)
	require.True(t, result.IsCreated(equity.ID))
	require.Equal(t, 1, result.CreatedCount())
	require.Equal(t, 0, result.ModifiedCount())
}

func TestReplaceAssignment(t *testing.T) {
	t.Parallel()
	client := newTestClient()
	taxonomy := taxctlmodel.NewTaxonomy("Asset Classes")
	equity := addClassification(taxonomy, taxonomy.Root(), "Equity", "")
	bonds := addClassification(taxonomy, taxonomy.Root(), "Bonds", "")
	oldAssignment := taxctlmodel.NewAssignment("apple", 5000)
	equity.AddAssignment(oldAssignment)
	snapshot := readSnapshot(t, `{
		"instruments": [
			{"identifiers": {"isin": "US0378331005"}, "categories": [{"path": ["Bonds"], "weight": 0.3}]}
		]
	}`)

	result := newTestImporter(client, Options{}).Import(taxonomy, snapshot)

	require.Equal(t, []string{"CREATE ASSIGNMENT", "DELETE ASSIGNMENT"}, operations(result))
	require.Empty(t, equity.Assignments())
	require.Len(t, bonds.Assignments(), 1)
	require.Equal(t, 3000, bonds.Assignments()[0].Weight)
	require.Equal(t, "apple", bonds.Assignments()[0].VehicleID)
	require.True(t, result.IsModified(oldAssignment.ID))
	require.True(t, result.IsCreated(bonds.Assignments()[0].ID))
}

func TestWeightBudgetExceeded(t *testing.T) {
	t.Parallel()
	taxonomy := taxctlmodel.NewTaxonomy("Asset Classes")
	equity := addClassification(taxonomy, taxonomy.Root(), "Equity", "EQ")
	bonds := addClassification(taxonomy, taxonomy.Root(), "Bonds", "BD")
	snapshot := readSnapshot(t, `{
		"instruments": [
			{"identifiers": {"ticker": "AAPL"}, "categories": [{"key": "EQ", "weight": 0.7}, {"key": "BD", "weight": 0.4}]}
		]
	}`)

	result := newTestImporter(newTestClient(), Options{}).Import(taxonomy, snapshot)

	require.Equal(t, []string{"CREATE ASSIGNMENT", "ERROR ASSIGNMENT"}, operations(result))
	require.Len(t, equity.Assignments(), 1)
	require.Equal(t, 7000, equity.Assignments()[0].Weight)
	require.Empty(t, bonds.Assignments())
	require.Contains(t, result.Changes()[1].Comment, "exceeds 100%")
	require.Empty(t, taxonomy.WeightViolations())
}

func TestMoveUnderNewParent(t *testing.T) {
	t.Parallel()
	taxonomy := taxctlmodel.NewTaxonomy("Asset Classes")
	equity := addClassification(taxonomy, taxonomy.Root(), "Equity", "EQ")
	equity.Weight = 6000
	snapshot := readSnapshot(t, `{
		"categories": [{"name": "Assets", "children": [{"name": "Equity", "key": "EQ"}]}]
	}`)

	result := newTestImporter(newTestClient(), Options{}).Import(taxonomy, snapshot)

	require.Equal(t, []string{"CREATE CLASSIFICATION", "UPDATE CLASSIFICATION"}, operations(result))
	require.Contains(t, result.Changes()[1].Comment, "moved")
	require.Len(t, taxonomy.Root().Children(), 1)
	assets := taxonomy.Root().Children()[0]
	require.Equal(t, "Assets", assets.Name)
	require.Equal(t, 0, assets.Weight)
	require.Equal(t, []*taxctlmodel.Classification{equity}, assets.Children())
	require.Equal(t, 6000, equity.Weight)
	require.True(t, result.IsModified(equity.ID))
}

func TestMoveCycleRejected(t *testing.T) {
	t.Parallel()
	taxonomy := taxctlmodel.NewTaxonomy("Asset Classes")
	assets := addClassification(taxonomy, taxonomy.Root(), "Assets", "AS")
	equity := addClassification(taxonomy, assets, "Equity", "EQ")
	snapshot := readSnapshot(t, `{
		"categories": [
			{"name": "Assets", "key": "AS", "children": [
				{"name": "Equity", "key": "EQ", "children": [
					{"name": "Assets", "key": "AS", "children": [{"name": "Deep"}]}
				]}
			]}
		]
	}`)

	result := newTestImporter(newTestClient(), Options{}).Import(taxonomy, snapshot)

	require.Equal(t, []string{"ERROR CLASSIFICATION"}, operations(result))
	require.False(t, result.HasChanges())
	require.Equal(t, []*taxctlmodel.Classification{assets}, taxonomy.Root().Children())
	require.Equal(t, []*taxctlmodel.Classification{equity}, assets.Children())
	require.Empty(t, equity.Children())
}

func TestUpdateFields(t *testing.T) {
	t.Parallel()
	newTaxonomy := func() (*taxctlmodel.Taxonomy, *taxctlmodel.Classification) {
		taxonomy := taxctlmodel.NewTaxonomy("Asset Classes")
		equity := addClassification(taxonomy, taxonomy.Root(), "Equity", "EQ")
		equity.Note = "old"
		equity.Color = "#000000"
		return taxonomy, equity
	}
	document := `{
		"name": "Assets",
		"categories": [{"name": "Stocks", "key": "EQ", "description": "new", "color": "#ffffff"}]
	}`

	taxonomy, equity := newTaxonomy()
	result := newTestImporter(newTestClient(), Options{}).Import(taxonomy, readSnapshot(t, document))
	require.Equal(
		t,
		[]string{"UPDATE TAXONOMY", "UPDATE CLASSIFICATION", "UPDATE CLASSIFICATION", "UPDATE CLASSIFICATION"},
		operations(result),
	)
	require.Equal(t, "Assets", taxonomy.Name())
	require.Equal(t, "Stocks", equity.Name)
	require.Equal(t, "new", equity.Note)
	require.Equal(t, "#ffffff", equity.Color)

	taxonomy, equity = newTaxonomy()
	result = newTestImporter(newTestClient(), Options{PreserveNameAndDescription: true}).Import(taxonomy, readSnapshot(t, document))
	require.False(t, result.HasChanges())
	require.Equal(t, "Asset Classes", taxonomy.Name())
	require.Equal(t, "Equity", equity.Name)
	require.Equal(t, "old", equity.Note)
	require.Equal(t, "#000000", equity.Color)
}

func TestTaxonomyNameTrimmed(t *testing.T) {
	t.Parallel()
	taxonomy := taxctlmodel.NewTaxonomy("Asset Classes")
	result := newTestImporter(newTestClient(), Options{}).Import(taxonomy, readSnapshot(t, `{"name": "  Assets  "}`))
	require.Equal(t, []string{"UPDATE TAXONOMY"}, operations(result))
	require.Equal(t, "Assets", taxonomy.Name())
	require.Equal(t, "Assets", taxonomy.Root().Name)

	result = newTestImporter(newTestClient(), Options{}).Import(taxonomy, readSnapshot(t, `{"name": " Assets"}`))
	require.False(t, result.HasChanges())
	result = newTestImporter(newTestClient(), Options{}).Import(taxonomy, readSnapshot(t, `{"name": "   "}`))
	require.False(t, result.HasChanges())
	require.Equal(t, "Assets", taxonomy.Name())
}

func TestPruneUnknownVehicle(t *testing.T) {
	t.Parallel()
	taxonomy := taxctlmodel.NewTaxonomy("Asset Classes")
	bonds := addClassification(taxonomy, taxonomy.Root(), "Bonds", "")
	bonds.AddAssignment(taxctlmodel.NewAssignment("retired", 5000))
	result := newTestImporter(newTestClient(), Options{Prune: true}).Import(taxonomy, readSnapshot(t, `{"categories": [{"name": "Bonds"}]}`))
	require.Equal(t, []string{"DELETE ASSIGNMENT"}, operations(result))
	require.Equal(t, `removed "retired" from "Bonds"`, result.Changes()[0].Comment)
}

func TestMatchByNameAdoptsKey(t *testing.T) {
	t.Parallel()
	taxonomy := taxctlmodel.NewTaxonomy("Asset Classes")
	equity := addClassification(taxonomy, taxonomy.Root(), "Equity", "")
	snapshot := readSnapshot(t, `{
		"categories": [{"name": "Equity", "key": "EQ"}],
		"instruments": [{"identifiers": {"name": "Apple"}, "categories": [{"key": "EQ"}]}]
	}`)

	result := newTestImporter(newTestClient(), Options{}).Import(taxonomy, snapshot)

	require.Equal(t, []string{"UPDATE CLASSIFICATION", "CREATE ASSIGNMENT"}, operations(result))
	require.Equal(t, "EQ", equity.Key)
	require.Len(t, equity.Assignments(), 1)
	require.Equal(t, taxctlmodel.OneHundredPercent, equity.Assignments()[0].Weight)
}

func TestCreatedKeyReferencedByInstrument(t *testing.T) {
	t.Parallel()
	taxonomy := taxctlmodel.NewTaxonomy("Regions")
	snapshot := readSnapshot(t, `{
		"categories": [{"name": "Europe", "children": [{"name": "Germany", "key": "DE"}]}, {"name": "Asia"}],
		"instruments": [
			{"identifiers": {"wkn": "514000"}, "categories": [{"key": "DE", "weight": 0.5}, {"path": ["Asia"], "weight": 0.5}]}
		]
	}`)

	result := newTestImporter(newTestClient(), Options{}).Import(taxonomy, snapshot)

	require.Equal(
		t,
		[]string{
			"CREATE CLASSIFICATION", "CREATE CLASSIFICATION", "CREATE CLASSIFICATION",
			"CREATE ASSIGNMENT", "CREATE ASSIGNMENT",
		},
		operations(result),
	)
	germany := taxonomy.ChildByPath([]string{"Europe", "Germany"})
	require.NotNil(t, germany)
	require.Len(t, germany.Assignments(), 1)
	require.Equal(t, "deutsche", germany.Assignments()[0].VehicleID)
	asia := taxonomy.ChildByPath([]string{"Asia"})
	require.Equal(t, 1, asia.Rank)
	require.Equal(t, 5000, asia.Assignments()[0].Weight)
}

func TestSkippedEntries(t *testing.T) {
	t.Parallel()
	taxonomy := taxctlmodel.NewTaxonomy("Asset Classes")
	equity := addClassification(taxonomy, taxonomy.Root(), "Equity", "EQ")
	existing := taxctlmodel.NewAssignment("apple", 5000)
	equity.AddAssignment(existing)
	snapshot := readSnapshot(t, `{
		"categories": [{"name": "  "}],
		"instruments": [
			{"identifiers": {"name": "Unknown"}, "categories": [{"key": "EQ"}]},
			{"identifiers": {"isin": "US0378331005"}, "categories": [
				{"key": "MISSING"},
				{"path": ["Equity", "Missing"]},
				{"path": []},
				{"key": "EQ", "weight": 0}
			]}
		]
	}`)

	result := newTestImporter(newTestClient(), Options{}).Import(taxonomy, snapshot)

	require.Equal(
		t,
		[]string{
			"SKIPPED CLASSIFICATION",
			"SKIPPED INSTRUMENT",
			"SKIPPED ASSIGNMENT", "SKIPPED ASSIGNMENT", "SKIPPED ASSIGNMENT", "SKIPPED ASSIGNMENT",
			"DELETE ASSIGNMENT",
		},
		operations(result),
	)
	// An explicit zero removes the existing assignment.
	require.Empty(t, equity.Assignments())
	require.Equal(t, 6, result.Count(OperationSkipped))
	require.Equal(t, 1, result.ModifiedCount())
}

func TestOnlyNonChangesDoNotCount(t *testing.T) {
	t.Parallel()
	taxonomy := taxctlmodel.NewTaxonomy("Asset Classes")
	snapshot := readSnapshot(t, `{
		"instruments": [{"identifiers": {"name": "Unknown"}, "categories": []}]
	}`)
	result := newTestImporter(newTestClient(), Options{}).Import(taxonomy, snapshot)
	require.Equal(t, []string{"SKIPPED INSTRUMENT"}, operations(result))
	require.False(t, result.HasChanges())
}

func TestMultipleMatchesAndFirstClaimWins(t *testing.T) {
	t.Parallel()
	taxonomy := taxctlmodel.NewTaxonomy("Asset Classes")
	equity := addClassification(taxonomy, taxonomy.Root(), "Equity", "EQ")
	bonds := addClassification(taxonomy, taxonomy.Root(), "Bonds", "BD")
	snapshot := readSnapshot(t, `{
		"instruments": [
			{"identifiers": {"isin": "US0378331005"}, "categories": [{"key": "EQ", "weight": 0.5}]},
			{"identifiers": {"name": "Apple"}, "categories": [{"key": "BD", "weight": 1}]}
		]
	}`)
	client := taxctlmodel.NewClient(
		[]*taxctlmodel.Security{
			taxctlmodel.NewSecurity("apple", "Apple", "US0378331005", "AAPL", "865985"),
			taxctlmodel.NewSecurity("apple-london", "Apple London", "US0378331005", "0R2V", ""),
		},
		nil,
	)

	result := newTestImporter(client, Options{}).Import(taxonomy, snapshot)

	require.Equal(
		t,
		[]string{"WARNING INSTRUMENT", "CREATE ASSIGNMENT", "CREATE ASSIGNMENT", "WARNING INSTRUMENT"},
		operations(result),
	)
	require.Len(t, equity.Assignments(), 2)
	require.Empty(t, bonds.Assignments())
	require.Equal(t, map[string]int{"apple": 5000, "apple-london": 5000}, taxonomy.VehicleWeights())
}

func TestDuplicateCategoryReference(t *testing.T) {
	t.Parallel()
	taxonomy := taxctlmodel.NewTaxonomy("Asset Classes")
	equity := addClassification(taxonomy, taxonomy.Root(), "Equity", "EQ")
	snapshot := readSnapshot(t, `{
		"instruments": [
			{"identifiers": {"ticker": "AAPL"}, "categories": [{"key": "EQ", "weight": 0.5}, {"path": ["Equity"], "weight": 0.25}]}
		]
	}`)

	result := newTestImporter(newTestClient(), Options{}).Import(taxonomy, snapshot)

	require.Equal(t, []string{"CREATE ASSIGNMENT", "WARNING ASSIGNMENT"}, operations(result))
	require.Len(t, equity.Assignments(), 1)
	require.Equal(t, 5000, equity.Assignments()[0].Weight)
}

func TestUpdateAssignmentWeightAndClamp(t *testing.T) {
	t.Parallel()
	taxonomy := taxctlmodel.NewTaxonomy("Asset Classes")
	equity := addClassification(taxonomy, taxonomy.Root(), "Equity", "EQ")
	existing := taxctlmodel.NewAssignment("apple", 5000)
	equity.AddAssignment(existing)
	snapshot := readSnapshot(t, `{
		"instruments": [{"identifiers": {"ticker": "AAPL"}, "categories": [{"key": "EQ", "weight": 1.7}]}]
	}`)

	result := newTestImporter(newTestClient(), Options{}).Import(taxonomy, snapshot)

	require.Equal(t, []string{"UPDATE ASSIGNMENT"}, operations(result))
	require.Equal(t, []*taxctlmodel.Assignment{existing}, equity.Assignments())
	require.Equal(t, taxctlmodel.OneHundredPercent, existing.Weight)
	require.True(t, result.IsModified(existing.ID))
}

func TestPrune(t *testing.T) {
	t.Parallel()
	taxonomy := taxctlmodel.NewTaxonomy("Asset Classes")
	equity := addClassification(taxonomy, taxonomy.Root(), "Equity", "EQ")
	developed := addClassification(taxonomy, equity, "Developed", "")
	bonds := addClassification(taxonomy, taxonomy.Root(), "Bonds", "")
	realEstate := addClassification(taxonomy, taxonomy.Root(), "Real Estate", "")
	reit := addClassification(taxonomy, realEstate, "REIT", "")
	equity.AddAssignment(taxctlmodel.NewAssignment("apple", taxctlmodel.OneHundredPercent))
	absent := taxctlmodel.NewAssignment("deutsche", 2500)
	bonds.AddAssignment(absent)
	snapshot := readSnapshot(t, `{
		"categories": [{"name": "Bonds"}, {"name": "Equity", "key": "EQ"}],
		"instruments": [{"identifiers": {"ticker": "AAPL"}, "categories": [{"key": "EQ", "weight": 1}]}]
	}`)

	withoutPrune := newTestImporter(newTestClient(), Options{}).Import(taxonomy, snapshot)
	require.False(t, withoutPrune.HasChanges())

	result := newTestImporter(newTestClient(), Options{Prune: true}).Import(taxonomy, snapshot)

	require.Equal(
		t,
		[]string{"DELETE CLASSIFICATION", "DELETE CLASSIFICATION", "DELETE CLASSIFICATION", "DELETE ASSIGNMENT"},
		operations(result),
	)
	var deleted []string
	for _, change := range result.Changes() {
		if change.Target == TargetClassification {
			deleted = append(deleted, change.ObjectID)
		}
	}
	require.Equal(t, []string{developed.ID, reit.ID, realEstate.ID}, deleted)
	require.Equal(t, `removed "Deutsche Bank" from "Bonds"`, result.Changes()[3].Comment)
	require.Equal(t, []*taxctlmodel.Classification{bonds, equity}, taxonomy.Root().Children())
	require.Equal(t, 0, bonds.Rank)
	require.Equal(t, 1, equity.Rank)
	require.Empty(t, equity.Children())
	require.Empty(t, bonds.Assignments())
	require.Len(t, equity.Assignments(), 1)
	require.Nil(t, taxonomy.ClassificationByID(reit.ID))
}

func TestRoundTripIsIdempotent(t *testing.T) {
	t.Parallel()
	client := newTestClient()
	taxonomy := taxctlmodel.NewTaxonomy("Asset Classes")
	taxonomy.Root().Color = "#101010"
	equity := addClassification(taxonomy, taxonomy.Root(), "Equity", "EQ")
	equity.Note = "Stocks and equity funds"
	equity.Color = "#1f77b4"
	equity.Weight = 6000
	developed := addClassification(taxonomy, equity, "Developed", "")
	emerging := addClassification(taxonomy, equity, "Emerging", "EM")
	bonds := addClassification(taxonomy, taxonomy.Root(), "Bonds", "")
	cash := addClassification(taxonomy, taxonomy.Root(), "Cash", "")
	developed.AddAssignment(taxctlmodel.NewAssignment("apple", 3333))
	emerging.AddAssignment(taxctlmodel.NewAssignment("apple", 2667))
	bonds.AddAssignment(taxctlmodel.NewAssignment("apple", 4000))
	bonds.AddAssignment(taxctlmodel.NewAssignment("deutsche", 2500))
	cash.AddAssignment(taxctlmodel.NewAssignment("checking", taxctlmodel.OneHundredPercent))

	var buffer bytes.Buffer
	require.NoError(t, taxctlsnapshot.Write(&buffer, taxctlsnapshot.Export(taxonomy, client)))
	exported := buffer.String()

	for _, options := range []Options{{}, {Prune: true}, {PreserveNameAndDescription: true}} {
		snapshot, err := taxctlsnapshot.Read(strings.NewReader(exported), taxctlsnapshot.FormatJSON)
		require.NoError(t, err)
		result := newTestImporter(client, options).Import(taxonomy, snapshot)
		require.False(t, result.HasChanges(), "options %+v: %v", options, result.Changes())
		require.Empty(t, result.Changes(), "options %+v", options)
	}

	// The taxonomy exports the same document after the re-imports.
	buffer.Reset()
	require.NoError(t, taxctlsnapshot.Write(&buffer, taxctlsnapshot.Export(taxonomy, client)))
	if diff := cmp.Diff(exported, buffer.String()); diff != "" {
		t.Errorf("export mismatch after re-import (-want +got):\n%s", diff)
	}
}

func TestImportThenExportRoundTrip(t *testing.T) {
	t.Parallel()
	client := newTestClient()
	taxonomy := taxctlmodel.NewTaxonomy("Regions")
	snapshot := readSnapshot(t, `{
		"name": "Regions",
		"categories": [
			{"name": "Europe", "key": "EU", "children": [{"name": "Germany", "key": "DE", "color": "#ff0000"}]},
			{"name": "Americas", "description": "North and South America"}
		],
		"instruments": [
			{"identifiers": {"ticker": "AAPL"}, "categories": [{"path": ["Americas"], "weight": 1}]},
			{"identifiers": {"name": "Checking"}, "categories": [{"key": "DE", "weight": 0.25}, {"key": "EU", "weight": 0.75}]}
		]
	}`)
	first := newTestImporter(client, Options{}).Import(taxonomy, snapshot)
	require.True(t, first.HasChanges())
	require.Equal(t, 6, first.Count(OperationCreate))
	require.Equal(t, 6, first.CreatedCount())

	second := newTestImporter(client, Options{Prune: true}).Import(taxonomy, readExport(t, taxonomy, client))
	require.False(t, second.HasChanges(), "%v", second.Changes())
	for vehicleID, weight := range taxonomy.VehicleWeights() {
		require.LessOrEqual(t, weight, taxctlmodel.OneHundredPercent, vehicleID)
	}
}

func newTestImporter(client *taxctlmodel.Client, options Options) Importer {
	return NewImporter(slog.New(slog.DiscardHandler), client, options)
}

func newTestClient() *taxctlmodel.Client {
	return taxctlmodel.NewClient(
		[]*taxctlmodel.Security{
			taxctlmodel.NewSecurity("apple", "Apple", "US0378331005", "AAPL", "865985"),
			taxctlmodel.NewSecurity("deutsche", "Deutsche Bank", "DE0005140008", "DBK", "514000"),
			taxctlmodel.NewSecurity("unassigned", "Unassigned Fund", "LU0000000000", "", ""),
		},
		[]*taxctlmodel.Account{
			taxctlmodel.NewAccount("checking", "Checking"),
		},
	)
}

func addClassification(
	taxonomy *taxctlmodel.Taxonomy,
	parent *taxctlmodel.Classification,
	name string,
	key string,
) *taxctlmodel.Classification {
	classification := taxctlmodel.NewClassification(name)
	classification.Key = key
	classification.Rank = parent.NextChildRank()
	taxonomy.AddClassification(parent, classification)
	return classification
}

func readSnapshot(t *testing.T, document string) *taxctlsnapshot.Snapshot {
	t.Helper()
	snapshot, err := taxctlsnapshot.Read(strings.NewReader(document), taxctlsnapshot.FormatJSON)
	require.NoError(t, err)
	return snapshot
}

func readExport(t *testing.T, taxonomy *taxctlmodel.Taxonomy, client *taxctlmodel.Client) *taxctlsnapshot.Snapshot {
	t.Helper()
	var buffer bytes.Buffer
	require.NoError(t, taxctlsnapshot.Write(&buffer, taxctlsnapshot.Export(taxonomy, client)))
	return readSnapshot(t, buffer.String())
}

// operations returns "OPERATION TARGET" for each change, in order.
func operations(result *Result) []string {
	var operations []string
	for _, change := range result.Changes() {
		operations = append(operations, change.Operation.String()+" "+change.Target.String())
	}
	return operations
}
