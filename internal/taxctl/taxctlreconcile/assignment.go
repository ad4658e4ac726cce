// Copyright 2026 Peter Edge
//
// All rights reserved.

package taxctlreconcile

import (
	"fmt"
	"strings"

	"github.com/bufdev/taxctl/internal/pkg/fixedpoint"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlmodel"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlresolve"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlsnapshot"
)

func (r *run) importInstruments(instruments []*taxctlsnapshot.Instrument) {
	for _, instrument := range instruments {
		r.importInstrument(instrument)
	}
}

func (r *run) importInstrument(instrument *taxctlsnapshot.Instrument) {
	identifiers := taxctlresolve.Identifiers{
		Name:   instrument.Identifiers.Name,
		ISIN:   instrument.Identifiers.ISIN,
		WKN:    instrument.Identifiers.WKN,
		Ticker: instrument.Identifiers.Ticker,
	}
	vehicles, kind := r.resolver.Resolve(identifiers)
	if len(vehicles) == 0 {
		r.add(TargetInstrument, OperationSkipped, "", "no security or account matches %s", identifiers)
		return
	}
	if len(vehicles) > 1 {
		r.add(TargetInstrument, OperationWarning, "", "%d securities or accounts match %s by %s, processing each", len(vehicles), identifiers, kind)
	}
	for _, vehicle := range vehicles {
		// First claim wins: a vehicle is only reconciled for the first entry that resolves to it.
		if _, ok := r.processedVehicles[vehicle.ID()]; ok {
			r.add(TargetInstrument, OperationWarning, "", "%q was already imported by an earlier instrument entry, ignoring %s", vehicle.Name(), identifiers)
			continue
		}
		r.processedVehicles[vehicle.ID()] = struct{}{}
		r.importVehicleAssignments(vehicle, instrument.Categories)
	}
}

func (r *run) importVehicleAssignments(vehicle taxctlmodel.Vehicle, categoryWeights []*taxctlsnapshot.CategoryWeight) {
	// Collect the existing assignments of the vehicle across the whole tree.
	existing := r.taxonomy.AssignmentsForVehicle(vehicle.ID())
	unclaimed := make(map[string][]*taxctlmodel.Assignment, len(existing))
	for _, assignment := range existing {
		unclaimed[assignment.ClassificationID()] = append(unclaimed[assignment.ClassificationID()], assignment)
	}
	claimed := make(map[string]struct{}, len(existing))
	referenced := make(map[string]struct{}, len(categoryWeights))
	var total int
	for _, categoryWeight := range categoryWeights {
		classification := r.resolveCategory(categoryWeight)
		if classification == nil {
			r.add(TargetAssignment, OperationSkipped, "", "no category matches %s for %q", describeCategoryWeight(categoryWeight), vehicle.Name())
			continue
		}
		if _, ok := referenced[classification.ID]; ok {
			r.add(TargetAssignment, OperationWarning, "", "%q is referenced more than once for %q, ignoring the repeat", r.label(classification), vehicle.Name())
			continue
		}
		weight := convertWeight(categoryWeight.Weight)
		if weight == 0 {
			r.add(TargetAssignment, OperationSkipped, "", "zero weight for %q in %q", vehicle.Name(), r.label(classification))
			continue
		}
		if total+weight > taxctlmodel.OneHundredPercent {
			r.add(
				TargetAssignment, OperationError, "",
				"assigning %s of %q to %q exceeds 100%% (%s already assigned)",
				formatWeight(weight), vehicle.Name(), r.label(classification), formatWeight(total),
			)
			continue
		}
		total += weight
		referenced[classification.ID] = struct{}{}
		if candidates := unclaimed[classification.ID]; len(candidates) > 0 {
			assignment := candidates[0]
			unclaimed[classification.ID] = candidates[1:]
			claimed[assignment.ID] = struct{}{}
			if assignment.Weight != weight {
				r.add(
					TargetAssignment, OperationUpdate, assignment.ID,
					"changed weight of %q in %q from %s to %s",
					vehicle.Name(), r.label(classification), formatWeight(assignment.Weight), formatWeight(weight),
				)
				assignment.Weight = weight
			}
			continue
		}
		assignment := taxctlmodel.NewAssignment(vehicle.ID(), weight)
		assignment.Rank = classification.NextAssignmentRank()
		classification.AddAssignment(assignment)
		r.add(TargetAssignment, OperationCreate, assignment.ID, "assigned %q to %q with %s", vehicle.Name(), r.label(classification), formatWeight(weight))
	}
	// Existing assignments the snapshot did not mention are deleted.
	for _, assignment := range existing {
		if _, ok := claimed[assignment.ID]; ok {
			continue
		}
		classification := r.taxonomy.ClassificationByID(assignment.ClassificationID())
		if classification == nil {
			continue
		}
		r.add(TargetAssignment, OperationDelete, assignment.ID, "removed %q from %q", vehicle.Name(), r.label(classification))
		classification.RemoveAssignment(assignment)
	}
}

// resolveCategory resolves a category reference by key, falling back to the name path.
func (r *run) resolveCategory(categoryWeight *taxctlsnapshot.CategoryWeight) *taxctlmodel.Classification {
	if classification := r.lookupKey(categoryWeight.Key); classification != nil {
		return classification
	}
	return r.taxonomy.ChildByPath(categoryWeight.Path)
}

// convertWeight converts a snapshot fraction to a fixed-point weight clamped into [0, 100%].
//
// A missing weight means 100%.
func convertWeight(weight *float64) int {
	if weight == nil {
		return taxctlmodel.OneHundredPercent
	}
	return fixedpoint.Clamp(
		fixedpoint.FromFloat(*weight, taxctlmodel.WeightScaleFactor),
		0,
		taxctlmodel.OneHundredPercent,
	)
}

func describeCategoryWeight(categoryWeight *taxctlsnapshot.CategoryWeight) string {
	path := strings.Join(categoryWeight.Path, " > ")
	switch {
	case categoryWeight.Key != "" && len(categoryWeight.Path) > 0:
		return fmt.Sprintf("key %q or path %q", categoryWeight.Key, path)
	case categoryWeight.Key != "":
		return fmt.Sprintf("key %q", categoryWeight.Key)
	case len(categoryWeight.Path) > 0:
		return fmt.Sprintf("path %q", path)
	default:
		return "an empty reference"
	}
}
