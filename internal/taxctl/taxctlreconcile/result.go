// Copyright 2026 Peter Edge
//
// All rights reserved.

package taxctlreconcile

import (
	"fmt"
	"slices"
)

// Target is the kind of object a Change refers to.
type Target int

const (
	// TargetTaxonomy indicates a change to the taxonomy itself (name, root color).
	TargetTaxonomy Target = iota + 1
	// TargetClassification indicates a change to a classification.
	TargetClassification
	// TargetAssignment indicates a change to an assignment.
	TargetAssignment
	// TargetInstrument indicates a problem resolving a snapshot instrument.
	TargetInstrument
)

// String implements fmt.Stringer.
func (t Target) String() string {
	switch t {
	case TargetTaxonomy:
		return "TAXONOMY"
	case TargetClassification:
		return "CLASSIFICATION"
	case TargetAssignment:
		return "ASSIGNMENT"
	case TargetInstrument:
		return "INSTRUMENT"
	default:
		return fmt.Sprintf("TARGET(%d)", int(t))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Target) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Target) UnmarshalText(text []byte) error {
	for _, target := range []Target{TargetTaxonomy, TargetClassification, TargetAssignment, TargetInstrument} {
		if target.String() == string(text) {
			*t = target
			return nil
		}
	}
	return fmt.Errorf("unknown change target %q", string(text))
}

// Operation is what happened to the target of a Change.
type Operation int

const (
	// OperationCreate indicates the target was created.
	OperationCreate Operation = iota + 1
	// OperationUpdate indicates the target was modified in place.
	OperationUpdate
	// OperationDelete indicates the target was removed.
	OperationDelete
	// OperationSkipped indicates a snapshot entry was ignored.
	OperationSkipped
	// OperationWarning indicates a suspicious but processed snapshot entry.
	OperationWarning
	// OperationError indicates a snapshot entry was rejected.
	OperationError
)

// String implements fmt.Stringer.
func (o Operation) String() string {
	switch o {
	case OperationCreate:
		return "CREATE"
	case OperationUpdate:
		return "UPDATE"
	case OperationDelete:
		return "DELETE"
	case OperationSkipped:
		return "SKIPPED"
	case OperationWarning:
		return "WARNING"
	case OperationError:
		return "ERROR"
	default:
		return fmt.Sprintf("OPERATION(%d)", int(o))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Operation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Operation) UnmarshalText(text []byte) error {
	for _, operation := range []Operation{
		OperationCreate, OperationUpdate, OperationDelete,
		OperationSkipped, OperationWarning, OperationError,
	} {
		if operation.String() == string(text) {
			*o = operation
			return nil
		}
	}
	return fmt.Errorf("unknown change operation %q", string(text))
}

// IsChange returns true for CREATE, UPDATE, and DELETE.
func (o Operation) IsChange() bool {
	return o == OperationCreate || o == OperationUpdate || o == OperationDelete
}

// Change is a single entry of the change log.
type Change struct {
	// Target is the kind of object the change refers to.
	Target Target `json:"target"`
	// Operation is what happened.
	Operation Operation `json:"operation"`
	// ObjectID is the id of the affected object, empty if no object exists (e.g., SKIPPED entries).
	ObjectID string `json:"object_id,omitempty"`
	// Comment is a human-readable description.
	Comment string `json:"comment"`
}

// ChangeHeaders returns the column headers for table/CSV output.
func ChangeHeaders() []string {
	return []string{"TARGET", "OPERATION", "COMMENT"}
}

// ChangeToRow converts a Change to a string slice for table/CSV output.
func ChangeToRow(change Change) []string {
	return []string{
		change.Target.String(),
		change.Operation.String(),
		change.Comment,
	}
}

// Result is the outcome of a reconciliation run.
//
// The change log is append-only and strictly ordered. The created and modified sets hold
// the ids of objects touched by the run; deleted objects count as modified.
type Result struct {
	changes  []Change
	created  map[string]struct{}
	modified map[string]struct{}
}

func newResult() *Result {
	return &Result{
		created:  make(map[string]struct{}),
		modified: make(map[string]struct{}),
	}
}

// Changes returns the ordered change log.
func (r *Result) Changes() []Change {
	return slices.Clone(r.changes)
}

// HasChanges returns true if at least one CREATE, UPDATE, or DELETE entry exists.
//
// SKIPPED, WARNING, and ERROR entries alone do not count as changes.
func (r *Result) HasChanges() bool {
	return slices.ContainsFunc(r.changes, func(change Change) bool {
		return change.Operation.IsChange()
	})
}

// IsCreated returns true if the object with the given id was created by the run.
func (r *Result) IsCreated(id string) bool {
	_, ok := r.created[id]
	return ok
}

// IsModified returns true if the object with the given id was updated or deleted by the run.
func (r *Result) IsModified(id string) bool {
	_, ok := r.modified[id]
	return ok
}

// CreatedCount returns the number of distinct objects created by the run.
func (r *Result) CreatedCount() int {
	return len(r.created)
}

// ModifiedCount returns the number of distinct objects updated or deleted by the run.
func (r *Result) ModifiedCount() int {
	return len(r.modified)
}

// Count returns the number of change log entries with the given operation.
func (r *Result) Count(operation Operation) int {
	var count int
	for _, change := range r.changes {
		if change.Operation == operation {
			count++
		}
	}
	return count
}

func (r *Result) add(change Change) {
	r.changes = append(r.changes, change)
	if change.ObjectID == "" {
		return
	}
	switch change.Operation {
	case OperationCreate:
		r.created[change.ObjectID] = struct{}{}
	case OperationUpdate, OperationDelete:
		r.modified[change.ObjectID] = struct{}{}
	}
}
