package debugui

import (
	"fmt"
	"slices"
	"time"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/AllenDang/cimgui-go/implot"

	"github.com/tubereng/tuber/ecs"
	"github.com/tubereng/tuber/engine"
)

// History is a fixed-size ring of samples.
type History struct {
	samples []float32
	offset  int
	filled  bool
}

func NewHistory(size int) *History {
	return &History{samples: make([]float32, max(size, 1))}
}

func (h *History) Push(v float32) {
	h.samples[h.offset] = v
	h.offset = (h.offset + 1) % len(h.samples)
	if h.offset == 0 {
		h.filled = true
	}
}

// Ordered returns the samples oldest first.
func (h *History) Ordered() []float32 {
	if !h.filled {
		return slices.Clone(h.samples[:h.offset])
	}
	return append(slices.Clone(h.samples[h.offset:]), h.samples[:h.offset]...)
}

func (h *History) Average() float32 {
	ordered := h.Ordered()
	if len(ordered) == 0 {
		return 0
	}
	var sum float32
	for _, v := range ordered {
		sum += v
	}
	return sum / float32(len(ordered))
}

// PerformanceStats shows frame timing, world counters and per-system timings.
type PerformanceStats struct {
	historyFrames int
	frameTimes    *History
	systems       map[string]*History
}

func NewPerformanceStats(historyFrames int) *PerformanceStats {
	return &PerformanceStats{
		historyFrames: historyFrames,
		frameTimes:    NewHistory(historyFrames),
		systems:       make(map[string]*History),
	}
}

// Sample records one frame. It is split from Render so the window only draws.
func (ps *PerformanceStats) Sample(w *ecs.Ecs) {
	if dt, ok := ecs.Resource[engine.DeltaTime](w); ok {
		ps.frameTimes.Push(float32(*dt.Get()) * 1000)
		dt.Release()
	}
	for _, s := range w.SystemStats().Systems {
		h, ok := ps.systems[s.Name]
		if !ok {
			h = NewHistory(ps.historyFrames)
			ps.systems[s.Name] = h
		}
		h.Push(float32(s.LastDuration) / float32(time.Millisecond))
	}
}

func (ps *PerformanceStats) Render(w *ecs.Ecs) {
	ps.Sample(w)

	if !imgui.BeginV("Performance Stats", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	stats := w.CollectStats()
	imgui.Text(fmt.Sprintf("Entities: %d / %d", stats.TotalEntityCount, stats.MaxEntityCount))
	imgui.Text(fmt.Sprintf("Component Types: %d", stats.ComponentTypeCount))
	imgui.Text(fmt.Sprintf("Resources: %d", stats.ResourceCount))
	imgui.Text(fmt.Sprintf("Systems: %d in %d sets", stats.SystemCount, stats.SystemSetCount))
	imgui.Text(fmt.Sprintf("Pending Commands: %d", stats.PendingCommands))

	if es, ok := ecs.Resource[engine.EngineStatistics](w); ok {
		s := es.Get()
		imgui.Text(fmt.Sprintf("Updates: %d  Frames: %d", s.Updates, s.FramesRendered))
		imgui.Text(fmt.Sprintf("Last Update: %s", s.LastUpdateDuration))
		es.Release()
	}

	avg := ps.frameTimes.Average()
	if avg > 0 {
		imgui.Text(fmt.Sprintf("Avg Frame Time: %.2f ms (%.0f FPS)", avg, 1000.0/avg))
	}

	imgui.Separator()
	if imgui.BeginTabBar("PerfTabs") {
		if imgui.BeginTabItem("Frame Time") {
			if samples := ps.frameTimes.Ordered(); len(samples) > 0 {
				imgui.PlotLinesFloatPtr("##frametime", &samples[0], int32(len(samples)))
			}
			imgui.EndTabItem()
		}
		if imgui.BeginTabItem("Systems") {
			ps.renderSystems(w.SystemStats())
			imgui.EndTabItem()
		}
		imgui.EndTabBar()
	}

	imgui.End()
}

func (ps *PerformanceStats) renderSystems(stats *ecs.SchedulerStats) {
	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg
	if imgui.BeginTableV("SystemStatsTable", 5, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("System")
		imgui.TableSetupColumn("Set")
		imgui.TableSetupColumn("Runs")
		imgui.TableSetupColumn("Avg")
		imgui.TableSetupColumn("Max")
		imgui.TableHeadersRow()

		for _, s := range stats.Systems {
			imgui.TableNextRow()
			imgui.TableNextColumn()
			imgui.Text(s.Name)
			imgui.TableNextColumn()
			imgui.Text(s.Set)
			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", s.ExecutionCount))
			imgui.TableNextColumn()
			imgui.Text(s.AvgDuration.String())
			imgui.TableNextColumn()
			imgui.Text(s.MaxDuration.String())
		}
		imgui.EndTable()
	}

	names := make([]string, 0, len(ps.systems))
	for name := range ps.systems {
		names = append(names, name)
	}
	slices.Sort(names)

	if implot.BeginPlotV("System Latency", imgui.NewVec2(-1, 200), 0) {
		implot.SetupAxesV("Frame", "Time (ms)", 0, implot.AxisFlagsAutoFit)
		for _, name := range names {
			samples := ps.systems[name].Ordered()
			if len(samples) == 0 {
				continue
			}
			implot.PlotLineFloatPtrInt(name, &samples[0], int32(len(samples)))
		}
		implot.EndPlot()
	}
}
