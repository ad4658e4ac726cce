// Copyright 2026 Peter Edge
//
// All rights reserved.

package taxctlreconcile

import (
	"strings"

	"github.com/bufdev/taxctl/internal/taxctl/taxctlmodel"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlsnapshot"
)

// buildKeyIndex indexes the keys of the live tree. The first classification in pre-order wins
// when a key is duplicated.
func (r *run) buildKeyIndex() {
	for classification := range r.taxonomy.All() {
		if classification.Key == "" {
			continue
		}
		if existing, ok := r.keyIndex[classification.Key]; ok {
			r.add(
				TargetClassification, OperationWarning, classification.ID,
				"key %q of %q is already used by %q, matching by key uses %q",
				classification.Key, r.label(classification), r.label(existing), r.label(existing),
			)
			continue
		}
		r.keyIndex[classification.Key] = classification
	}
}

// lookupKey returns the classification holding key, checking the pre-existing index first
// and then the keys created by this import.
func (r *run) lookupKey(key string) *taxctlmodel.Classification {
	if key == "" {
		return nil
	}
	if classification, ok := r.keyIndex[key]; ok {
		return classification
	}
	return r.createdKeys[key]
}

func (r *run) importCategories(parent *taxctlmodel.Classification, categories []*taxctlsnapshot.Category) {
	for _, category := range categories {
		r.importCategory(parent, category)
	}
}

func (r *run) importCategory(parent *taxctlmodel.Classification, category *taxctlsnapshot.Category) {
	if strings.TrimSpace(category.Name) == "" {
		r.add(TargetClassification, OperationSkipped, "", "skipped category without name below %q", r.label(parent))
		return
	}
	// Resolve by key first, then by name among the parent's current children.
	classification := r.lookupKey(category.Key)
	if classification == nil {
		classification = parent.ChildByName(category.Name)
	}
	if classification != nil {
		if classification.ParentID() != parent.ID {
			if !r.moveClassification(classification, parent) {
				// The subtree is left untouched.
				return
			}
		}
		r.updateClassification(classification, category)
	} else {
		classification = r.createClassification(parent, category)
	}
	r.visited[classification.ID] = struct{}{}
	r.visitedOrder = append(r.visitedOrder, classification)
	r.importCategories(classification, category.Children)
}

// moveClassification moves the classification below parent, returning false if the move
// would create a cycle.
func (r *run) moveClassification(classification *taxctlmodel.Classification, parent *taxctlmodel.Classification) bool {
	if r.taxonomy.IsDescendant(parent, classification) {
		r.add(
			TargetClassification, OperationError, classification.ID,
			"cannot move %q below %q, it would become its own ancestor",
			r.label(classification), r.label(parent),
		)
		return false
	}
	from := r.label(classification)
	rank := parent.NextChildRank()
	if err := r.taxonomy.MoveClassification(classification, parent); err != nil {
		r.add(TargetClassification, OperationError, classification.ID, "cannot move %q below %q: %v", from, r.label(parent), err)
		return false
	}
	// Move never touches the weight.
	classification.Rank = rank
	r.add(TargetClassification, OperationUpdate, classification.ID, "moved %q to %q", from, r.label(classification))
	return true
}

func (r *run) updateClassification(classification *taxctlmodel.Classification, category *taxctlsnapshot.Category) {
	// A classification without a key adopts an unused snapshot key so later imports match it by key.
	if classification.Key == "" && category.Key != "" && r.lookupKey(category.Key) == nil {
		classification.Key = category.Key
		r.createdKeys[category.Key] = classification
		r.add(TargetClassification, OperationUpdate, classification.ID, "set key of %q to %q", r.label(classification), category.Key)
	}
	if r.options.PreserveNameAndDescription {
		return
	}
	if category.Name != classification.Name {
		from := r.label(classification)
		classification.Name = category.Name
		r.add(TargetClassification, OperationUpdate, classification.ID, "renamed %q to %q", from, category.Name)
	}
	if category.Description != nil && *category.Description != classification.Note {
		classification.Note = *category.Description
		r.add(TargetClassification, OperationUpdate, classification.ID, "changed description of %q", r.label(classification))
	}
	if category.Color != nil && *category.Color != classification.Color {
		from := classification.Color
		classification.Color = *category.Color
		r.add(TargetClassification, OperationUpdate, classification.ID, "changed color of %q from %q to %q", r.label(classification), from, *category.Color)
	}
}

func (r *run) createClassification(parent *taxctlmodel.Classification, category *taxctlsnapshot.Category) *taxctlmodel.Classification {
	classification := taxctlmodel.NewClassification(category.Name)
	// New classifications start at weight 0 so they do not perturb the existing weight distribution.
	classification.Weight = 0
	classification.Rank = parent.NextChildRank()
	classification.Key = category.Key
	if category.Description != nil {
		classification.Note = *category.Description
	}
	if category.Color != nil {
		classification.Color = *category.Color
	}
	r.taxonomy.AddClassification(parent, classification)
	if classification.Key != "" {
		r.createdKeys[classification.Key] = classification
	}
	r.add(TargetClassification, OperationCreate, classification.ID, "created %q", r.label(classification))
	return classification
}
