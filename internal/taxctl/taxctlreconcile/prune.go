// Copyright 2026 Peter Edge
//
// All rights reserved.

package taxctlreconcile

import (
	"slices"

	"github.com/bufdev/taxctl/internal/taxctl/taxctlmodel"
)

// pruneClassifications removes, in post-order, every classification below parent that the
// snapshot did not visit, then re-orders the survivors in snapshot traversal order with
// ranks starting at 0.
func (r *run) pruneClassifications(parent *taxctlmodel.Classification) {
	for _, child := range slices.Clone(parent.Children()) {
		r.pruneClassifications(child)
	}
	for _, child := range slices.Clone(parent.Children()) {
		if _, ok := r.visited[child.ID]; ok {
			continue
		}
		r.add(TargetClassification, OperationDelete, child.ID, "deleted %q", r.label(child))
		r.taxonomy.RemoveClassification(child)
	}
	if len(parent.Children()) == 0 {
		return
	}
	// A classification can appear more than once in the visit order if the snapshot
	// repeats its key, or after having been moved away from this parent.
	ordered := make([]*taxctlmodel.Classification, 0, len(parent.Children()))
	seen := make(map[string]struct{}, len(parent.Children()))
	for _, classification := range r.visitedOrder {
		if classification.ParentID() != parent.ID {
			continue
		}
		if _, ok := seen[classification.ID]; ok {
			continue
		}
		seen[classification.ID] = struct{}{}
		ordered = append(ordered, classification)
	}
	r.taxonomy.SetChildrenOrder(parent, ordered)
}

// pruneAssignments removes every assignment whose vehicle did not appear in the snapshot's
// instruments, regardless of the classification it is attached to.
func (r *run) pruneAssignments() {
	for classification := range r.taxonomy.All() {
		for _, assignment := range slices.Clone(classification.Assignments()) {
			if _, ok := r.processedVehicles[assignment.VehicleID]; ok {
				continue
			}
			r.add(
				TargetAssignment, OperationDelete, assignment.ID,
				"removed %q from %q", r.vehicleName(assignment.VehicleID), r.label(classification),
			)
			classification.RemoveAssignment(assignment)
		}
	}
}
