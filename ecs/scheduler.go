package ecs

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"
)

// SchedulerStats provides statistics about system execution.
type SchedulerStats struct {
	SystemCount     int
	TotalExecutions int64
	Systems         []SystemStats
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string
	Set            string
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type systemStatsInternal struct {
	name           string
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

func newSystemStats(name string) *systemStatsInternal {
	return &systemStatsInternal{
		name:        name,
		minDuration: time.Duration(1<<63 - 1),
	}
}

func (s *systemStatsInternal) record(d time.Duration) {
	s.executionCount++
	s.lastDuration = d
	s.totalDuration += d
	s.minDuration = min(s.minDuration, d)
	s.maxDuration = max(s.maxDuration, d)
}

func (s *systemStatsInternal) export(set string) SystemStats {
	out := SystemStats{
		Name:           s.name,
		Set:            set,
		ExecutionCount: s.executionCount,
		MinDuration:    s.minDuration,
		MaxDuration:    s.maxDuration,
		LastDuration:   s.lastDuration,
		TotalDuration:  s.totalDuration,
	}
	if s.executionCount > 0 {
		out.AvgDuration = s.totalDuration / time.Duration(s.executionCount)
	} else {
		out.MinDuration = 0
	}
	return out
}

// SystemSet is a group of systems that run concurrently within a tick. Sets
// themselves run one after another in registration order; no order is
// guaranteed between the systems of one set.
type SystemSet struct {
	name    string
	systems []System
	stats   []*systemStatsInternal
}

// NewSystemSet creates a set holding systems. Each element is converted with
// NewSystem.
func NewSystemSet(name string, systems ...any) *SystemSet {
	s := &SystemSet{name: name}
	for _, system := range systems {
		s.Add(system)
	}
	return s
}

// Add appends a system to the set.
func (s *SystemSet) Add(system any) *SystemSet {
	sys := NewSystem(system)
	s.systems = append(s.systems, sys)
	s.stats = append(s.stats, newSystemStats(systemName(sys)))
	return s
}

// Name returns the set name.
func (s *SystemSet) Name() string { return s.name }

// Len returns the number of systems in the set.
func (s *SystemSet) Len() int { return len(s.systems) }

func (s *SystemSet) execute(i int, ctx *ExecutionContext) {
	start := time.Now()
	s.systems[i].Execute(ctx)
	s.stats[i].record(time.Since(start))
}

// run executes every system of the set on the worker pool and waits for all
// of them.
func (s *SystemSet) run(ctx *ExecutionContext) {
	runScoped(ctx.workers, len(s.systems), func(i int) {
		s.execute(i, ctx)
	})
}

func (s *SystemSet) exportStats() []SystemStats {
	out := make([]SystemStats, len(s.stats))
	for i, st := range s.stats {
		out[i] = st.export(s.name)
	}
	return out
}

type workerPanic struct {
	value any
	stack []byte
}

func (p *workerPanic) Error() string {
	return fmt.Sprintf("panic in worker: %v\n%s", p.value, p.stack)
}

// runScoped runs task(0..n-1) on an errgroup limited to limit goroutines (no
// limit when limit <= 0) and joins before returning. A panic in any task is
// re-raised here with its original value once every task has finished.
func runScoped(limit, n int, task func(i int)) {
	switch n {
	case 0:
		return
	case 1:
		task(0)
		return
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := range n {
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = &workerPanic{value: p, stack: debug.Stack()}
				}
			}()
			task(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var wp *workerPanic
		if errors.As(err, &wp) {
			panic(wp.value)
		}
		panic(err)
	}
}
