package main

import (
	"bytes"
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tubereng/tuber/ecs"
)

func TestStatsFinalize(t *testing.T) {
	s := Stats{Samples: []time.Duration{4, 1, 3, 2}}
	s.Finalize()
	assert.Equal(t, time.Duration(1), s.Min)
	assert.Equal(t, time.Duration(4), s.Max)
	assert.Equal(t, time.Duration(2), s.Avg)
	assert.Equal(t, time.Duration(3), s.P99)
	assert.Equal(t, []time.Duration{4, 1, 3, 2}, s.Samples, "samples keep their order")

	var empty Stats
	empty.Finalize()
	assert.Zero(t, empty.Max)
}

func newStressWorld(t *testing.T, entities int) *ecs.Ecs {
	t.Helper()
	registry := ecs.NewComponentRegistry()
	registerComponents(registry)
	w := ecs.New(ecs.WithRegistry(registry), ecs.WithMaxEntityCount(256), ecs.WithWorkers(4))
	w.InsertResource(Clock{Delta: 1})
	registerSystems(w, 16)
	rng := rand.New(rand.NewPCG(7, 7))
	for range entities {
		spawnRandomEntity(w, rng, componentCount)
	}
	require.NoError(t, attachChildren(w, 4))
	return w
}

func TestStressWorld(t *testing.T) {
	w := newStressWorld(t, 8)
	assert.Equal(t, 8, w.EntityCount())
	assert.Equal(t, 3, w.SystemSets())

	parents := w.Relationships().TargetsOf(ecs.RelationshipOf[ecs.ChildOf](), 5)
	assert.True(t, parents.Has(4))

	hp := ecs.StoreOf[Health](w.Entities())
	ref, ok := hp.GetMut(0)
	require.True(t, ok)
	ref.Get().Current = 1
	ref.Release()

	w.RunSystems()
	require.NoError(t, w.ExecutePendingCommands())
	w.RunSystems()
	require.NoError(t, w.ExecutePendingCommands())

	health, ok := hp.Get(0)
	require.True(t, ok)
	assert.Equal(t, int32(100), health.Get().Current, "dead entities are revived one tick later")
	health.Release()
}

func TestRunAndReport(t *testing.T) {
	w := newStressWorld(t, 32)
	report := &Report{Entities: 32, Components: componentCount, Systems: systemCount}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, run(ctx, w, report))
	report.SystemStats = w.SystemStats().Systems
	report.Storage = w.CollectStats()

	assert.Positive(t, report.TotalUpdates)
	assert.Len(t, report.UpdateTime.Samples, int(report.TotalUpdates))

	var buf bytes.Buffer
	require.NoError(t, report.Generate(&buf))
	out := buf.String()
	assert.Contains(t, out, "# ECS Stress Test Report")
	assert.Contains(t, out, "| simulation |")
	assert.Contains(t, out, "- **Entities:** 32 / 256")
	assert.NotContains(t, out, "GC Pause Durations")
}
