// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package taxctlmodel provides the classification tree data model for taxctl.
//
// A Taxonomy owns exactly one root Classification. Every Classification owns its
// children and its Assignments. Parent links are stored as ids and resolved through
// the Taxonomy's id index, so the tree never holds cyclic pointers.
//
// Weights are integer fixed-point percentages where OneHundredPercent represents 100%.
package taxctlmodel

import (
	"errors"
	"iter"
	"slices"

	"github.com/google/uuid"
)

// OneHundredPercent is the fixed-point weight that represents 100%.
const OneHundredPercent = 10_000

// WeightScaleFactor converts between fixed-point weights and fractions of 1.0.
//
// A weight w corresponds to the fraction w / WeightScaleFactor.
const WeightScaleFactor = OneHundredPercent

// ErrCycle is returned when a structural change would make a Classification its own ancestor.
var ErrCycle = errors.New("classification cannot become its own ancestor")

// Taxonomy is a named classification scheme: one root Classification plus all its descendants.
type Taxonomy struct {
	id         string
	name       string
	dimensions []string
	root       *Classification
	// byID indexes every Classification currently attached to the tree.
	byID map[string]*Classification
}

// NewTaxonomy creates a new Taxonomy with a fresh id and an empty root Classification.
func NewTaxonomy(name string, dimensions ...string) *Taxonomy {
	root := NewClassification(name)
	return NewTaxonomyWithRoot(uuid.NewString(), name, dimensions, root)
}

// NewTaxonomyWithRoot creates a Taxonomy from an existing id and root Classification.
//
// The root's subtree is indexed as-is. This is used when loading persisted taxonomies.
func NewTaxonomyWithRoot(id string, name string, dimensions []string, root *Classification) *Taxonomy {
	taxonomy := &Taxonomy{
		id:         id,
		name:       name,
		dimensions: slices.Clone(dimensions),
		root:       root,
		byID:       make(map[string]*Classification),
	}
	root.parentID = ""
	taxonomy.index(root)
	return taxonomy
}

// ID returns the stable id of the Taxonomy.
func (t *Taxonomy) ID() string {
	return t.id
}

// Name returns the display name of the Taxonomy.
func (t *Taxonomy) Name() string {
	return t.name
}

// SetName sets the display name of the Taxonomy.
func (t *Taxonomy) SetName(name string) {
	t.name = name
}

// Dimensions returns the ordered dimension labels of the Taxonomy.
func (t *Taxonomy) Dimensions() []string {
	return slices.Clone(t.dimensions)
}

// Root returns the root Classification.
func (t *Taxonomy) Root() *Classification {
	return t.root
}

// ClassificationByID returns the attached Classification with the given id, or nil.
func (t *Taxonomy) ClassificationByID(id string) *Classification {
	return t.byID[id]
}

// Parent returns the parent of the Classification, or nil for the root or a detached node.
func (t *Taxonomy) Parent(c *Classification) *Classification {
	if c.parentID == "" {
		return nil
	}
	return t.byID[c.parentID]
}

// IsDescendant returns true if c is ancestor itself or lies anywhere below ancestor.
func (t *Taxonomy) IsDescendant(c *Classification, ancestor *Classification) bool {
	for current := c; current != nil; current = t.Parent(current) {
		if current.ID == ancestor.ID {
			return true
		}
	}
	return false
}

// PathNames returns the names of the ancestors of c from (excluding) the root down to and
// including c itself.
//
// The root has an empty path.
func (t *Taxonomy) PathNames(c *Classification) []string {
	var path []string
	for current := c; current != nil && current.ID != t.root.ID; current = t.Parent(current) {
		path = append(path, current.Name)
	}
	slices.Reverse(path)
	return path
}

// ChildByPath walks names from the root, matching child names exactly at every level.
//
// Returns nil if the path is empty or any level fails to match.
func (t *Taxonomy) ChildByPath(path []string) *Classification {
	if len(path) == 0 {
		return nil
	}
	current := t.root
	for _, name := range path {
		current = current.ChildByName(name)
		if current == nil {
			return nil
		}
	}
	return current
}

// All returns an iterator over all Classifications in pre-order, starting at the root.
//
// The tree must not be structurally modified while iterating.
func (t *Taxonomy) All() iter.Seq[*Classification] {
	return func(yield func(*Classification) bool) {
		walk(t.root, yield)
	}
}

// AddClassification attaches c as the last child of parent.
//
// The rank of c is left as set by the caller.
func (t *Taxonomy) AddClassification(parent *Classification, c *Classification) {
	c.parentID = parent.ID
	parent.children = append(parent.children, c)
	t.index(c)
}

// MoveClassification detaches c from its current parent and appends it to newParent.
//
// Returns ErrCycle if newParent is c or a descendant of c. The weight of c is never changed.
func (t *Taxonomy) MoveClassification(c *Classification, newParent *Classification) error {
	if c.ID == t.root.ID || t.IsDescendant(newParent, c) {
		return ErrCycle
	}
	if oldParent := t.Parent(c); oldParent != nil {
		oldParent.removeChild(c)
	}
	c.parentID = newParent.ID
	newParent.children = append(newParent.children, c)
	return nil
}

// RemoveClassification detaches c from its parent and drops its whole subtree from the Taxonomy.
//
// The root cannot be removed.
func (t *Taxonomy) RemoveClassification(c *Classification) {
	if c.ID == t.root.ID {
		return
	}
	if parent := t.Parent(c); parent != nil {
		parent.removeChild(c)
	}
	t.unindex(c)
	c.parentID = ""
}

// SetChildrenOrder replaces the children of parent with ordered and assigns ranks sequentially from 0.
//
// ordered must contain exactly the current children of parent.
func (t *Taxonomy) SetChildrenOrder(parent *Classification, ordered []*Classification) {
	parent.children = slices.Clone(ordered)
	for i, child := range parent.children {
		child.Rank = i
	}
}

// AssignmentsForVehicle returns all Assignments of the vehicle across the whole tree, in pre-order.
func (t *Taxonomy) AssignmentsForVehicle(vehicleID string) []*Assignment {
	var assignments []*Assignment
	for c := range t.All() {
		for _, assignment := range c.assignments {
			if assignment.VehicleID == vehicleID {
				assignments = append(assignments, assignment)
			}
		}
	}
	return assignments
}

// VehicleWeights returns the sum of assignment weights per vehicle id.
func (t *Taxonomy) VehicleWeights() map[string]int {
	weights := make(map[string]int)
	for c := range t.All() {
		for _, assignment := range c.assignments {
			weights[assignment.VehicleID] += assignment.Weight
		}
	}
	return weights
}

// WeightViolations returns the ids of vehicles whose assignment weights sum above OneHundredPercent,
// sorted by id.
func (t *Taxonomy) WeightViolations() []string {
	var vehicleIDs []string
	for vehicleID, weight := range t.VehicleWeights() {
		if weight > OneHundredPercent {
			vehicleIDs = append(vehicleIDs, vehicleID)
		}
	}
	slices.Sort(vehicleIDs)
	return vehicleIDs
}

func (t *Taxonomy) index(c *Classification) {
	t.byID[c.ID] = c
	for _, child := range c.children {
		child.parentID = c.ID
		t.index(child)
	}
}

func (t *Taxonomy) unindex(c *Classification) {
	delete(t.byID, c.ID)
	for _, child := range c.children {
		t.unindex(child)
	}
}

func walk(c *Classification, yield func(*Classification) bool) bool {
	if !yield(c) {
		return false
	}
	for _, child := range c.children {
		if !walk(child, yield) {
			return false
		}
	}
	return true
}

// Classification is a node in the taxonomy tree.
type Classification struct {
	// ID is the opaque identity, generated once.
	ID string
	// Key is the optional stable identifier used to re-match across imports.
	Key string
	// Name is the display label.
	Name string
	// Note is the free-text description.
	Note string
	// Color is a hex color string (e.g., "#1f77b4").
	Color string
	// Weight is the fixed-point percentage weight of this node among its siblings.
	Weight int
	// Rank defines the sibling order.
	Rank int

	parentID    string
	children    []*Classification
	assignments []*Assignment
}

// NewClassification creates a detached Classification with a fresh id and weight 0.
func NewClassification(name string) *Classification {
	return &Classification{
		ID:   uuid.NewString(),
		Name: name,
	}
}

// ParentID returns the id of the parent, or empty for the root or a detached node.
func (c *Classification) ParentID() string {
	return c.parentID
}

// Children returns the ordered children.
//
// The returned slice must not be modified.
func (c *Classification) Children() []*Classification {
	return c.children
}

// ChildByName returns the first child whose name equals name exactly, or nil.
func (c *Classification) ChildByName(name string) *Classification {
	for _, child := range c.children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// NextChildRank returns the maximum rank of the children plus one, or 0 without children.
func (c *Classification) NextChildRank() int {
	rank := -1
	for _, child := range c.children {
		rank = max(rank, child.Rank)
	}
	return rank + 1
}

// Assignments returns the ordered Assignments of this Classification.
//
// The returned slice must not be modified.
func (c *Classification) Assignments() []*Assignment {
	return c.assignments
}

// NextAssignmentRank returns the maximum rank of the Assignments plus one, or 0 without Assignments.
func (c *Classification) NextAssignmentRank() int {
	rank := -1
	for _, assignment := range c.assignments {
		rank = max(rank, assignment.Rank)
	}
	return rank + 1
}

// AddAssignment appends the Assignment to this Classification.
func (c *Classification) AddAssignment(assignment *Assignment) {
	assignment.classificationID = c.ID
	c.assignments = append(c.assignments, assignment)
}

// RemoveAssignment removes the Assignment from this Classification, if present.
func (c *Classification) RemoveAssignment(assignment *Assignment) {
	c.assignments = slices.DeleteFunc(c.assignments, func(a *Assignment) bool {
		return a.ID == assignment.ID
	})
	assignment.classificationID = ""
}

// AddChildForLoad appends a child without a Taxonomy, used to build a tree before indexing it
// with NewTaxonomyWithRoot.
func (c *Classification) AddChildForLoad(child *Classification) {
	child.parentID = c.ID
	c.children = append(c.children, child)
}

func (c *Classification) removeChild(child *Classification) {
	c.children = slices.DeleteFunc(c.children, func(other *Classification) bool {
		return other.ID == child.ID
	})
}

// Assignment is a weighted link between a Classification and an investment vehicle.
type Assignment struct {
	// ID is the opaque identity, generated once.
	ID string
	// VehicleID references the assigned Vehicle by id. The Assignment does not own the vehicle.
	VehicleID string
	// Weight is the fixed-point percentage weight, 0 < Weight <= OneHundredPercent.
	Weight int
	// Rank defines the order within the Classification's assignment list.
	Rank int

	classificationID string
}

// NewAssignment creates a detached Assignment with a fresh id.
func NewAssignment(vehicleID string, weight int) *Assignment {
	return &Assignment{
		ID:        uuid.NewString(),
		VehicleID: vehicleID,
		Weight:    weight,
	}
}

// ClassificationID returns the id of the owning Classification, or empty if detached.
func (a *Assignment) ClassificationID() string {
	return a.classificationID
}
