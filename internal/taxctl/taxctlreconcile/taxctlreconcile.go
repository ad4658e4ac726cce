// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package taxctlreconcile synchronizes a taxonomy against a declarative snapshot.
//
// An import runs in four steps, all applied directly to the taxonomy:
//
//  1. The taxonomy name and root color are taken from the snapshot.
//  2. The snapshot categories are walked depth-first in pre-order, matching existing
//     classifications by key (then by name among the parent's children), moving,
//     updating, or creating them.
//  3. Each snapshot instrument is resolved to vehicles, and the vehicle's assignments are
//     matched, updated, created, or deleted under a 100% weight budget.
//  4. If pruning is requested, classifications and assignments the snapshot does not
//     mention are removed, and surviving siblings are re-ordered to match the snapshot.
//
// Nothing is staged: callers that need a dry run must import into a copy of the taxonomy.
// Per-item problems never abort the run; they are recorded in the Result.
package taxctlreconcile

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bufdev/taxctl/internal/pkg/fixedpoint"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlmodel"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlresolve"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlsnapshot"
)

// Options controls an import.
type Options struct {
	// PreserveNameAndDescription keeps the name, note, and color of matched
	// classifications (and the taxonomy name and root color) unchanged.
	PreserveNameAndDescription bool
	// Prune removes classifications and assignments absent from the snapshot.
	Prune bool
}

// Client provides the vehicles that instruments resolve to.
type Client interface {
	taxctlresolve.Client
	// VehicleByID returns the vehicle with the given id, or nil.
	VehicleByID(id string) taxctlmodel.Vehicle
}

// Importer imports snapshots into taxonomies.
type Importer interface {
	// Import reconciles the taxonomy against the snapshot in place and returns the change log.
	//
	// The taxonomy and the client's vehicles must not be modified concurrently.
	Import(taxonomy *taxctlmodel.Taxonomy, snapshot *taxctlsnapshot.Snapshot) *Result
}

// NewImporter creates a new Importer that resolves instruments against client.
func NewImporter(logger *slog.Logger, client Client, options Options) Importer {
	return &importer{
		logger:  logger,
		client:  client,
		options: options,
	}
}

type importer struct {
	logger  *slog.Logger
	client  Client
	options Options
}

func (i *importer) Import(taxonomy *taxctlmodel.Taxonomy, snapshot *taxctlsnapshot.Snapshot) *Result {
	r := newRun(i.logger, i.client, i.options, taxonomy)
	// Step 1: Taxonomy name and root color.
	r.importTaxonomy(snapshot)
	// Step 2: Categories, depth-first pre-order.
	r.buildKeyIndex()
	r.importCategories(taxonomy.Root(), snapshot.Categories)
	// Step 3: Instrument assignments.
	r.importInstruments(snapshot.Instruments)
	// Step 4: Optional pruning.
	if i.options.Prune {
		r.pruneClassifications(taxonomy.Root())
		r.pruneAssignments()
	}
	i.logger.Info(
		"taxonomy imported",
		"taxonomy", taxonomy.Name(),
		"created", r.result.CreatedCount(),
		"modified", r.result.ModifiedCount(),
		"skipped", r.result.Count(OperationSkipped),
		"warnings", r.result.Count(OperationWarning),
		"errors", r.result.Count(OperationError),
	)
	return r.result
}

// run holds the state of a single import.
type run struct {
	logger   *slog.Logger
	options  Options
	taxonomy *taxctlmodel.Taxonomy
	client   Client
	resolver *taxctlresolve.Resolver
	result   *Result
	// keyIndex maps keys to the classifications holding them before the import started.
	keyIndex map[string]*taxctlmodel.Classification
	// createdKeys maps keys introduced by this import to their classifications.
	createdKeys map[string]*taxctlmodel.Classification
	// visited holds the ids of classifications matched or created from the snapshot.
	visited map[string]struct{}
	// visitedOrder lists visited classifications in snapshot traversal order.
	visitedOrder []*taxctlmodel.Classification
	// processedVehicles holds the ids of vehicles claimed by an instrument entry.
	processedVehicles map[string]struct{}
}

func newRun(logger *slog.Logger, client Client, options Options, taxonomy *taxctlmodel.Taxonomy) *run {
	return &run{
		logger:            logger,
		options:           options,
		taxonomy:          taxonomy,
		client:            client,
		resolver:          taxctlresolve.NewResolver(client),
		result:            newResult(),
		keyIndex:          make(map[string]*taxctlmodel.Classification),
		createdKeys:       make(map[string]*taxctlmodel.Classification),
		visited:           make(map[string]struct{}),
		processedVehicles: make(map[string]struct{}),
	}
}

func (r *run) importTaxonomy(snapshot *taxctlsnapshot.Snapshot) {
	if r.options.PreserveNameAndDescription {
		return
	}
	root := r.taxonomy.Root()
	if name := strings.TrimSpace(snapshot.Name); name != "" && name != r.taxonomy.Name() {
		r.add(TargetTaxonomy, OperationUpdate, r.taxonomy.ID(), "renamed taxonomy %q to %q", r.taxonomy.Name(), name)
		r.taxonomy.SetName(name)
		root.Name = name
	}
	if snapshot.Color != nil && *snapshot.Color != root.Color {
		r.add(TargetTaxonomy, OperationUpdate, r.taxonomy.ID(), "changed color of taxonomy %q from %q to %q", r.taxonomy.Name(), root.Color, *snapshot.Color)
		root.Color = *snapshot.Color
	}
}

// add appends a change to the result and logs it.
func (r *run) add(target Target, operation Operation, objectID string, format string, args ...any) {
	change := Change{
		Target:    target,
		Operation: operation,
		ObjectID:  objectID,
		Comment:   fmt.Sprintf(format, args...),
	}
	r.result.add(change)
	r.logger.Debug(
		"taxonomy change",
		"target", change.Target.String(),
		"operation", change.Operation.String(),
		"comment", change.Comment,
	)
}

// label returns the name path of the classification for change comments.
func (r *run) label(classification *taxctlmodel.Classification) string {
	path := r.taxonomy.PathNames(classification)
	if len(path) == 0 {
		return classification.Name
	}
	return strings.Join(path, " > ")
}

func (r *run) vehicleName(vehicleID string) string {
	if vehicle := r.client.VehicleByID(vehicleID); vehicle != nil {
		return vehicle.Name()
	}
	return vehicleID
}

func formatWeight(weight int) string {
	return fixedpoint.ToPercentString(weight, taxctlmodel.OneHundredPercent)
}
