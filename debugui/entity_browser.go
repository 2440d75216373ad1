package debugui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"

	"github.com/tubereng/tuber/ecs"
)

type EntityInfo struct {
	ID             ecs.EntityId
	ComponentTypes []string
}

type entityColumn int

const (
	columnEntityId entityColumn = iota
	columnComponents
	columnComponentCount
)

// EntityBrowser lists live entities and selects one for the inspector.
type EntityBrowser struct {
	inspector          *ComponentInspector
	entities           []EntityInfo
	signature          [2]int
	sortColumn         entityColumn
	sortAscending      bool
	filterText         string
	maxEntitiesPerPage int
	currentPage        int
}

func NewEntityBrowser(maxEntitiesPerPage int, inspector *ComponentInspector) *EntityBrowser {
	return &EntityBrowser{
		inspector:          inspector,
		sortAscending:      true,
		maxEntitiesPerPage: max(maxEntitiesPerPage, 1),
	}
}

func (eb *EntityBrowser) Render(w *ecs.Ecs) {
	if !imgui.BeginV("Entity Browser", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	eb.refresh(w)

	imgui.InputTextWithHint("##search", "Search...", &eb.filterText, imgui.InputTextFlagsNone, nil)
	imgui.SameLine()
	if imgui.Button("Clear Filter") {
		eb.filterText = ""
	}

	filtered := filterEntities(eb.entities, eb.filterText)
	pages := max((len(filtered)+eb.maxEntitiesPerPage-1)/eb.maxEntitiesPerPage, 1)
	eb.currentPage = min(eb.currentPage, pages-1)

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("EntityTable", 3, tableFlags, imgui.NewVec2(0, 300), 0) {
		imgui.TableSetupColumn("Entity ID")
		imgui.TableSetupColumn("Components")
		imgui.TableSetupColumn("Count")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			eb.sortColumn = entityColumn(spec.ColumnIndex())
			eb.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			sortEntities(eb.entities, eb.sortColumn, eb.sortAscending)
			sortSpecs.SetSpecsDirty(false)
		}

		start := eb.currentPage * eb.maxEntitiesPerPage
		end := min(start+eb.maxEntitiesPerPage, len(filtered))
		for _, entity := range filtered[start:end] {
			imgui.TableNextRow()

			imgui.TableNextColumn()
			selected := eb.inspector.Selected() == entity.ID && eb.inspector.HasSelection()
			if imgui.SelectableBoolV(fmt.Sprintf("%d", entity.ID), selected, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				eb.inspector.Select(entity.ID)
			}

			imgui.TableNextColumn()
			imgui.Text(strings.Join(entity.ComponentTypes, ", "))

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", len(entity.ComponentTypes)))
		}

		imgui.EndTable()
	}

	if pages > 1 {
		imgui.Text(fmt.Sprintf("Page %d / %d (%d entities)", eb.currentPage+1, pages, len(filtered)))
		imgui.SameLine()
		if imgui.Button("Prev") && eb.currentPage > 0 {
			eb.currentPage--
		}
		imgui.SameLine()
		if imgui.Button("Next") && eb.currentPage < pages-1 {
			eb.currentPage++
		}
	} else {
		imgui.Text(fmt.Sprintf("Total: %d entities", len(filtered)))
	}

	imgui.End()
}

// refresh rebuilds the entity list when the entity or component counts moved.
func (eb *EntityBrowser) refresh(w *ecs.Ecs) {
	stats := w.CollectStats()
	signature := [2]int{stats.TotalEntityCount, 0}
	for _, c := range stats.ComponentBreakdown {
		signature[1] += c.Count
	}
	if eb.entities != nil && signature == eb.signature {
		return
	}
	eb.signature = signature
	eb.entities = collectEntities(w)
	sortEntities(eb.entities, eb.sortColumn, eb.sortAscending)
}

func collectEntities(w *ecs.Ecs) []EntityInfo {
	infos := make([]EntityInfo, 0, w.EntityCount())
	for i := range w.EntityCount() {
		e := ecs.EntityId(i)
		info := EntityInfo{ID: e}
		for _, view := range w.Entities().Inspect(e) {
			info.ComponentTypes = append(info.ComponentTypes, view.Type.String())
		}
		infos = append(infos, info)
	}
	return infos
}

func sortEntities(entities []EntityInfo, column entityColumn, ascending bool) {
	slices.SortStableFunc(entities, func(a, b EntityInfo) int {
		var c int
		switch column {
		case columnComponents:
			c = strings.Compare(strings.Join(a.ComponentTypes, ","), strings.Join(b.ComponentTypes, ","))
		case columnComponentCount:
			c = len(a.ComponentTypes) - len(b.ComponentTypes)
		}
		if c == 0 {
			c = int(a.ID) - int(b.ID)
		}
		if !ascending {
			return -c
		}
		return c
	})
}

// filterEntities matches text against the entity id and component names,
// ignoring case.
func filterEntities(entities []EntityInfo, text string) []EntityInfo {
	if text == "" {
		return entities
	}
	needle := strings.ToLower(text)
	filtered := make([]EntityInfo, 0, len(entities))
	for _, entity := range entities {
		id := fmt.Sprintf("%d", entity.ID)
		components := strings.ToLower(strings.Join(entity.ComponentTypes, " "))
		if strings.Contains(id, needle) || strings.Contains(components, needle) {
			filtered = append(filtered, entity)
		}
	}
	return filtered
}
