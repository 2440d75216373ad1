package ecs

import (
	"slices"
	"strings"
)

// StorageStats summarises the contents of a world.
type StorageStats struct {
	TotalEntityCount   int
	MaxEntityCount     int
	ComponentTypeCount int
	ComponentBreakdown []ComponentStats
	RelationshipKinds  []string
	ResourceCount      int
	ResourceTypes      []string
	SystemSetCount     int
	SystemCount        int
	PendingCommands    int
}

// ComponentStats describes one component store.
type ComponentStats struct {
	Type     string
	Count    int
	Capacity int
}

// CollectStats gathers a snapshot of the world. It takes no component locks
// and is meant for debugging overlays and reports.
func (w *Ecs) CollectStats() StorageStats {
	stats := StorageStats{
		TotalEntityCount: w.entities.EntityCount(),
		MaxEntityCount:   w.entities.MaxEntityCount(),
		ResourceCount:    w.resources.Len(),
		ResourceTypes:    w.resources.Types(),
		SystemSetCount:   len(w.sets),
		PendingCommands:  w.pending.Len(),
	}

	for _, s := range w.entities.snapshot() {
		stats.ComponentBreakdown = append(stats.ComponentBreakdown, ComponentStats{
			Type:     s.componentType().String(),
			Count:    s.count(),
			Capacity: s.capacity(),
		})
	}
	stats.ComponentTypeCount = len(stats.ComponentBreakdown)
	slices.SortFunc(stats.ComponentBreakdown, func(a, b ComponentStats) int {
		return strings.Compare(a.Type, b.Type)
	})

	for _, k := range w.relationships.Kinds() {
		stats.RelationshipKinds = append(stats.RelationshipKinds, k.String())
	}
	for _, set := range w.sets {
		stats.SystemCount += set.Len()
	}
	return stats
}
