package debugui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"

	"github.com/tubereng/tuber/ecs"
)

type storeColumn int

const (
	columnStoreType storeColumn = iota
	columnStoreCount
	columnStoreCapacity
)

// StoreViewer tabulates component stores, resources and relationship kinds.
type StoreViewer struct {
	sortColumn    storeColumn
	sortAscending bool
}

func NewStoreViewer() *StoreViewer {
	return &StoreViewer{sortColumn: columnStoreCount}
}

func (sv *StoreViewer) Render(w *ecs.Ecs) {
	if !imgui.BeginV("Store Viewer", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	stats := w.CollectStats()
	stores := stats.ComponentBreakdown
	maxCount := 0
	for _, s := range stores {
		maxCount = max(maxCount, s.Count)
	}

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("StoreTable", 3, tableFlags, imgui.NewVec2(0, 240), 0) {
		imgui.TableSetupColumn("Component")
		imgui.TableSetupColumn("Count")
		imgui.TableSetupColumn("Capacity")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			sv.sortColumn = storeColumn(spec.ColumnIndex())
			sv.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			sortSpecs.SetSpecsDirty(false)
		}
		sortStores(stores, sv.sortColumn, sv.sortAscending)

		for _, s := range stores {
			imgui.TableNextRow()

			imgui.TableNextColumn()
			imgui.Text(s.Type)

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", s.Count))
			if maxCount > 0 {
				barWidth := float32(s.Count) / float32(maxCount) * 80.0
				imgui.SameLine()
				drawList := imgui.WindowDrawList()
				pos := imgui.CursorScreenPos()
				color := imgui.ColorU32Vec4(imgui.NewVec4(0.2, 0.6, 0.8, 0.6))
				drawList.AddRectFilled(pos, imgui.NewVec2(pos.X+barWidth, pos.Y+10), color)
			}

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", s.Capacity))
		}

		imgui.EndTable()
	}

	if imgui.TreeNodeStr(fmt.Sprintf("Resources (%d)", stats.ResourceCount)) {
		for _, name := range stats.ResourceTypes {
			imgui.BulletText(name)
		}
		imgui.TreePop()
	}

	if imgui.TreeNodeStr(fmt.Sprintf("Relationships (%d)", len(stats.RelationshipKinds))) {
		for _, kind := range stats.RelationshipKinds {
			imgui.BulletText(kind)
		}
		imgui.TreePop()
	}

	imgui.End()
}

func sortStores(stores []ecs.ComponentStats, column storeColumn, ascending bool) {
	slices.SortStableFunc(stores, func(a, b ecs.ComponentStats) int {
		var c int
		switch column {
		case columnStoreCount:
			c = a.Count - b.Count
		case columnStoreCapacity:
			c = a.Capacity - b.Capacity
		}
		if c == 0 {
			c = strings.Compare(a.Type, b.Type)
		}
		if !ascending {
			return -c
		}
		return c
	})
}
