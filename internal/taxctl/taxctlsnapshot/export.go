// Copyright 2026 Peter Edge
//
// All rights reserved.

package taxctlsnapshot

import (
	"github.com/bufdev/taxctl/internal/pkg/fixedpoint"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlmodel"
)

// VehicleSource lists the vehicles whose assignments are exported.
type VehicleSource interface {
	// Vehicles returns all vehicles in a stable order.
	Vehicles() []taxctlmodel.Vehicle
}

// Export produces the snapshot that mirrors the current state of the taxonomy.
//
// Re-importing the exported snapshot into the same taxonomy produces no changes.
// Instruments are emitted for every vehicle of vehicleSource holding at least one
// assignment, in vehicleSource order. Category references carry the key (when set),
// the name path from (excluding) the root, and the weight as a fraction of 1.0.
func Export(taxonomy *taxctlmodel.Taxonomy, vehicleSource VehicleSource) *Snapshot {
	root := taxonomy.Root()
	snapshot := &Snapshot{
		Name:        taxonomy.Name(),
		Color:       optional(root.Color),
		Categories:  exportCategories(root.Children()),
		Instruments: []*Instrument{},
	}
	for _, vehicle := range vehicleSource.Vehicles() {
		assignments := taxonomy.AssignmentsForVehicle(vehicle.ID())
		if len(assignments) == 0 {
			continue
		}
		instrument := &Instrument{
			Identifiers: exportIdentifiers(vehicle),
			Categories:  make([]*CategoryWeight, 0, len(assignments)),
		}
		for _, assignment := range assignments {
			classification := taxonomy.ClassificationByID(assignment.ClassificationID())
			if classification == nil {
				continue
			}
			weight := fixedpoint.ToFloat(assignment.Weight, taxctlmodel.WeightScaleFactor)
			instrument.Categories = append(instrument.Categories, &CategoryWeight{
				Key:    classification.Key,
				Path:   taxonomy.PathNames(classification),
				Weight: &weight,
			})
		}
		snapshot.Instruments = append(snapshot.Instruments, instrument)
	}
	return snapshot
}

func exportCategories(classifications []*taxctlmodel.Classification) []*Category {
	categories := make([]*Category, 0, len(classifications))
	for _, classification := range classifications {
		category := &Category{
			Name:        classification.Name,
			Key:         classification.Key,
			Description: optional(classification.Note),
			Color:       optional(classification.Color),
		}
		if len(classification.Children()) > 0 {
			category.Children = exportCategories(classification.Children())
		}
		categories = append(categories, category)
	}
	return categories
}

func exportIdentifiers(vehicle taxctlmodel.Vehicle) Identifiers {
	switch typed := vehicle.(type) {
	case *taxctlmodel.Security:
		return Identifiers{
			Name:   typed.Name(),
			ISIN:   typed.ISIN(),
			WKN:    typed.WKN(),
			Ticker: typed.Ticker(),
		}
	default:
		return Identifiers{
			Name: vehicle.Name(),
		}
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
