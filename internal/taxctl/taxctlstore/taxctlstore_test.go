// Copyright 2026 Peter Edge
//
// All rights reserved.

package taxctlstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/bufdev/taxctl/internal/taxctl/taxctlmodel"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlreconcile"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlsnapshot"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestCreateAndList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	regions, err := store.CreateTaxonomy(ctx, "Regions", nil)
	require.NoError(t, err)
	_, err = store.CreateTaxonomy(ctx, "Asset Classes", []string{"asset", "class"})
	require.NoError(t, err)
	_, err = store.CreateTaxonomy(ctx, "Regions", nil)
	require.ErrorContains(t, err, "already exists")

	taxonomyInfos, err := store.ListTaxonomies(ctx)
	require.NoError(t, err)
	require.Len(t, taxonomyInfos, 2)
	require.Equal(t, "Asset Classes", taxonomyInfos[0].Name)
	require.Equal(t, []string{"asset", "class"}, taxonomyInfos[0].Dimensions)
	require.Equal(t, regions.ID(), taxonomyInfos[1].ID)
	require.Equal(t, 0, taxonomyInfos[1].ClassificationCount)
}

func TestLoadTaxonomyNotFound(t *testing.T) {
	t.Parallel()
	_, err := newTestStore(t).LoadTaxonomy(context.Background(), "Missing")
	require.ErrorIs(t, err, ErrTaxonomyNotFound)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	taxonomy, err := store.CreateTaxonomy(ctx, "Asset Classes", []string{"class"})
	require.NoError(t, err)
	root := taxonomy.Root()
	root.Color = "#101010"
	// Children are added out of rank order to check that the slice order survives.
	bonds := newClassification("Bonds", "BD", 7)
	equity := newClassification("Equity", "EQ", 1)
	equity.Note = "Stocks"
	equity.Color = "#1f77b4"
	equity.Weight = 6000
	emerging := newClassification("Emerging", "", 0)
	developed := newClassification("Developed", "", 1)
	taxonomy.AddClassification(root, bonds)
	taxonomy.AddClassification(root, equity)
	taxonomy.AddClassification(equity, developed)
	taxonomy.AddClassification(equity, emerging)
	first := taxctlmodel.NewAssignment("apple", 6000)
	second := taxctlmodel.NewAssignment("msft", 2500)
	second.Rank = 3
	developed.AddAssignment(first)
	developed.AddAssignment(second)
	bonds.AddAssignment(taxctlmodel.NewAssignment("apple", 4000))
	require.NoError(t, store.SaveTaxonomy(ctx, taxonomy))

	loaded, err := store.LoadTaxonomy(ctx, "Asset Classes")
	require.NoError(t, err)
	require.Equal(t, taxonomy.ID(), loaded.ID())
	require.Equal(t, []string{"class"}, loaded.Dimensions())
	if diff := cmp.Diff(describe(taxonomy), describe(loaded)); diff != "" {
		t.Errorf("loaded taxonomy mismatch (-want +got):\n%s", diff)
	}
	loadedDeveloped := loaded.ClassificationByID(developed.ID)
	require.NotNil(t, loadedDeveloped)
	require.Equal(t, equity.ID, loadedDeveloped.ParentID())
	require.Equal(t, developed.ID, loadedDeveloped.Assignments()[0].ClassificationID())

	// Saving again replaces the previous state.
	taxonomy.RemoveClassification(bonds)
	taxonomy.SetName("Classes")
	require.NoError(t, store.SaveTaxonomy(ctx, taxonomy))
	_, err = store.LoadTaxonomy(ctx, "Asset Classes")
	require.ErrorIs(t, err, ErrTaxonomyNotFound)
	loaded, err = store.LoadTaxonomy(ctx, "Classes")
	require.NoError(t, err)
	require.Nil(t, loaded.ClassificationByID(bonds.ID))
	taxonomyInfos, err := store.ListTaxonomies(ctx)
	require.NoError(t, err)
	require.Len(t, taxonomyInfos, 1)
	require.Equal(t, 3, taxonomyInfos[0].ClassificationCount)
	require.Equal(t, 2, taxonomyInfos[0].AssignmentCount)
}

func TestRecordAndListImports(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	store.now = func() time.Time {
		return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	}
	taxonomy, err := store.CreateTaxonomy(ctx, "Regions", nil)
	require.NoError(t, err)
	importer := taxctlreconcile.NewImporter(
		slog.New(slog.DiscardHandler),
		taxctlmodel.NewClient(nil, nil),
		taxctlreconcile.Options{},
	)
	result := importer.Import(taxonomy, &taxctlsnapshot.Snapshot{
		Categories: []*taxctlsnapshot.Category{{Name: "Europe"}, {Name: "Asia"}},
		Instruments: []*taxctlsnapshot.Instrument{
			{Identifiers: taxctlsnapshot.Identifiers{Name: "Unknown"}},
		},
	})
	importRun, err := store.RecordImport(ctx, taxonomy.ID(), "regions.json", result)
	require.NoError(t, err)
	require.NotZero(t, importRun.ID)

	importRuns, err := store.ListImports(ctx, taxonomy.ID())
	require.NoError(t, err)
	require.Len(t, importRuns, 1)
	if diff := cmp.Diff(importRun, importRuns[0]); diff != "" {
		t.Errorf("import run mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 2, importRuns[0].Created)
	require.Len(t, importRuns[0].Changes, 3)
	require.Equal(t, taxctlreconcile.OperationSkipped, importRuns[0].Changes[2].Operation)
	require.Equal(t, taxctlreconcile.TargetInstrument, importRuns[0].Changes[2].Target)
}

func TestIsBusy(t *testing.T) {
	t.Parallel()
	require.False(t, isBusy(nil))
	require.False(t, isBusy(errors.New("database is locked")))
	require.False(t, isBusy(fmt.Errorf("saving: %w", ErrTaxonomyNotFound)))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(
		context.Background(),
		slog.New(slog.DiscardHandler),
		filepath.Join(t.TempDir(), "nested", "taxctl.db"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func newClassification(name string, key string, rank int) *taxctlmodel.Classification {
	classification := taxctlmodel.NewClassification(name)
	classification.Key = key
	classification.Rank = rank
	return classification
}

// describedClassification is a comparable view of a classification subtree.
type describedClassification struct {
	ID          string
	Key         string
	Name        string
	Note        string
	Color       string
	Weight      int
	Rank        int
	Assignments []describedAssignment
	Children    []describedClassification
}

type describedAssignment struct {
	ID        string
	VehicleID string
	Weight    int
	Rank      int
}

func describe(taxonomy *taxctlmodel.Taxonomy) describedClassification {
	return describeClassification(taxonomy.Root())
}

func describeClassification(classification *taxctlmodel.Classification) describedClassification {
	described := describedClassification{
		ID:     classification.ID,
		Key:    classification.Key,
		Name:   classification.Name,
		Note:   classification.Note,
		Color:  classification.Color,
		Weight: classification.Weight,
		Rank:   classification.Rank,
	}
	for _, assignment := range classification.Assignments() {
		described.Assignments = append(described.Assignments, describedAssignment{
			ID:        assignment.ID,
			VehicleID: assignment.VehicleID,
			Weight:    assignment.Weight,
			Rank:      assignment.Rank,
		})
	}
	for _, child := range classification.Children() {
		described.Children = append(described.Children, describeClassification(child))
	}
	return described
}
