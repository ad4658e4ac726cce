// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package taxctlreport provides display rows for taxonomies, weight budgets, and import history.
package taxctlreport

import (
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bufdev/taxctl/internal/pkg/fixedpoint"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlmodel"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlstore"
)

// Weight statuses reported by GetVehicleWeights.
const (
	// StatusComplete means the assignment weights of the vehicle sum to exactly 100%.
	StatusComplete = "COMPLETE"
	// StatusPartial means the weights sum to less than 100%.
	StatusPartial = "PARTIAL"
	// StatusUnassigned means the vehicle has no assignments.
	StatusUnassigned = "UNASSIGNED"
	// StatusOver means the weights sum to more than 100%.
	StatusOver = "OVER"
	// StatusUnknown means assignments reference a vehicle id that is not configured.
	StatusUnknown = "UNKNOWN"
)

// ClassificationOverview represents a single classification for display.
type ClassificationOverview struct {
	// Path is the name path from (excluding) the root, joined with " > ".
	Path string `json:"path"`
	// Key is the stable key, if any.
	Key string `json:"key,omitempty"`
	// Weight is the classification weight as a percentage.
	Weight string `json:"weight"`
	// Rank is the sibling rank.
	Rank int `json:"rank"`
	// Color is the hex color, if any.
	Color string `json:"color,omitempty"`
	// Assignments is the number of assignments on the classification.
	Assignments int `json:"assignments"`
}

// ClassificationOverviewsHeaders returns the column headers for table/CSV output.
func ClassificationOverviewsHeaders() []string {
	return []string{"PATH", "KEY", "WEIGHT", "RANK", "COLOR", "ASSIGNMENTS"}
}

// ClassificationOverviewToRow converts a ClassificationOverview to a string slice for table/CSV output.
func ClassificationOverviewToRow(c *ClassificationOverview) []string {
	return []string{
		c.Path,
		c.Key,
		c.Weight,
		strconv.Itoa(c.Rank),
		c.Color,
		strconv.Itoa(c.Assignments),
	}
}

// GetClassificationOverviews returns every classification below the root in pre-order.
func GetClassificationOverviews(taxonomy *taxctlmodel.Taxonomy) []*ClassificationOverview {
	var classificationOverviews []*ClassificationOverview
	for classification := range taxonomy.All() {
		if classification == taxonomy.Root() {
			continue
		}
		classificationOverviews = append(classificationOverviews, &ClassificationOverview{
			Path:        strings.Join(taxonomy.PathNames(classification), " > "),
			Key:         classification.Key,
			Weight:      formatWeight(classification.Weight),
			Rank:        classification.Rank,
			Color:       classification.Color,
			Assignments: len(classification.Assignments()),
		})
	}
	return classificationOverviews
}

// VehicleWeight is the weight budget of a single vehicle.
type VehicleWeight struct {
	// Vehicle is the vehicle name, or its id if the vehicle is not configured.
	Vehicle string `json:"vehicle"`
	// ID is the vehicle id.
	ID string `json:"id"`
	// Total is the sum of the vehicle's assignment weights as a percentage.
	Total string `json:"total"`
	// Assignments is the number of assignments of the vehicle.
	Assignments int `json:"assignments"`
	// Status is one of the Status constants.
	Status string `json:"status"`
}

// VehicleWeightsHeaders returns the column headers for table/CSV output.
func VehicleWeightsHeaders() []string {
	return []string{"VEHICLE", "TOTAL", "ASSIGNMENTS", "STATUS"}
}

// VehicleWeightToRow converts a VehicleWeight to a string slice for table/CSV output.
func VehicleWeightToRow(v *VehicleWeight) []string {
	return []string{
		v.Vehicle,
		v.Total,
		strconv.Itoa(v.Assignments),
		v.Status,
	}
}

// VehicleSource lists the configured vehicles.
type VehicleSource interface {
	Vehicles() []taxctlmodel.Vehicle
}

// GetVehicleWeights returns the weight budget of every configured vehicle, followed by
// vehicle ids that are referenced by assignments but not configured, sorted by id.
func GetVehicleWeights(taxonomy *taxctlmodel.Taxonomy, vehicleSource VehicleSource) []*VehicleWeight {
	totals := taxonomy.VehicleWeights()
	counts := make(map[string]int, len(totals))
	for classification := range taxonomy.All() {
		for _, assignment := range classification.Assignments() {
			counts[assignment.VehicleID]++
		}
	}
	configured := make(map[string]struct{})
	var vehicleWeights []*VehicleWeight
	for _, vehicle := range vehicleSource.Vehicles() {
		configured[vehicle.ID()] = struct{}{}
		vehicleWeights = append(vehicleWeights, &VehicleWeight{
			Vehicle:     vehicle.Name(),
			ID:          vehicle.ID(),
			Total:       formatWeight(totals[vehicle.ID()]),
			Assignments: counts[vehicle.ID()],
			Status:      status(totals[vehicle.ID()], counts[vehicle.ID()]),
		})
	}
	for _, vehicleID := range slices.Sorted(maps.Keys(totals)) {
		if _, ok := configured[vehicleID]; ok {
			continue
		}
		vehicleWeights = append(vehicleWeights, &VehicleWeight{
			Vehicle:     vehicleID,
			ID:          vehicleID,
			Total:       formatWeight(totals[vehicleID]),
			Assignments: counts[vehicleID],
			Status:      StatusUnknown,
		})
	}
	return vehicleWeights
}

// CountStatus returns the number of vehicle weights with the given status.
func CountStatus(vehicleWeights []*VehicleWeight, status string) int {
	var count int
	for _, vehicleWeight := range vehicleWeights {
		if vehicleWeight.Status == status {
			count++
		}
	}
	return count
}

// TaxonomyInfosHeaders returns the column headers for table/CSV output.
func TaxonomyInfosHeaders() []string {
	return []string{"NAME", "DIMENSIONS", "CLASSIFICATIONS", "ASSIGNMENTS"}
}

// TaxonomyInfoToRow converts a TaxonomyInfo to a string slice for table/CSV output.
func TaxonomyInfoToRow(t *taxctlstore.TaxonomyInfo) []string {
	return []string{
		t.Name,
		strings.Join(t.Dimensions, ","),
		strconv.Itoa(t.ClassificationCount),
		strconv.Itoa(t.AssignmentCount),
	}
}

// ImportRunsHeaders returns the column headers for table/CSV output.
func ImportRunsHeaders() []string {
	return []string{"ID", "IMPORTED AT", "SOURCE", "CREATED", "MODIFIED", "ENTRIES"}
}

// ImportRunToRow converts an ImportRun to a string slice for table/CSV output.
func ImportRunToRow(i *taxctlstore.ImportRun) []string {
	return []string{
		strconv.FormatInt(i.ID, 10),
		i.ImportedAt.Format(time.RFC3339),
		i.Source,
		strconv.Itoa(i.Created),
		strconv.Itoa(i.Modified),
		strconv.Itoa(len(i.Changes)),
	}
}

func status(total int, count int) string {
	switch {
	case count == 0:
		return StatusUnassigned
	case total > taxctlmodel.OneHundredPercent:
		return StatusOver
	case total == taxctlmodel.OneHundredPercent:
		return StatusComplete
	default:
		return StatusPartial
	}
}

func formatWeight(weight int) string {
	return fixedpoint.ToPercentString(weight, taxctlmodel.OneHundredPercent)
}
