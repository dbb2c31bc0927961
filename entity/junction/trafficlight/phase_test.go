package trafficlight_test

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/junction/trafficlight"
)

func TestGenerateSignalPhase(t *testing.T) {
	const a, b, c, d = 1, 2, 3, 4
	paths := []trafficlight.Path{
		{ID: a, LaneCount: 1, Incoming: []trafficlight.IncomingLane{{Road: 1, Lane: -1}}},
		{ID: b, LaneCount: 1, Incoming: []trafficlight.IncomingLane{{Road: 1, Lane: -1}}},
		{ID: c, LaneCount: 1, Incoming: []trafficlight.IncomingLane{{Road: 2, Lane: -1}}},
		{ID: d, LaneCount: 1, Incoming: []trafficlight.IncomingLane{{Road: 3, Lane: -1}}},
	}
	conflict := func(x, y int32) bool {
		return (x == a && y == c) || (x == c && y == a)
	}
	phases, initial := trafficlight.GenerateSignalPhase(paths, conflict)

	assert.Equal(t, [][]int32{{d, c, b}, {a}}, initial)
	assert.Equal(t, [][]int32{{d, c, b}, {a, d, b}}, phases)

	for _, group := range initial {
		for i := range group {
			for j := i + 1; j < len(group); j++ {
				assert.False(t, conflict(group[i], group[j]))
			}
		}
	}
	assigned := trafficlight.PhasesOf(phases)
	for _, p := range paths {
		assert.NotEmpty(t, assigned[p.ID])
	}
	assert.Equal(t, []int{0, 1}, assigned[d])
}

func TestSharedIncomingLaneGroupsTogether(t *testing.T) {
	paths := []trafficlight.Path{
		{ID: 1, LaneCount: 1, Incoming: []trafficlight.IncomingLane{{Road: 1, Lane: -1}}},
		{ID: 2, LaneCount: 2, Incoming: []trafficlight.IncomingLane{{Road: 1, Lane: -1}, {Road: 1, Lane: -2}}},
	}
	_, initial := trafficlight.GenerateSignalPhase(paths, func(int32, int32) bool { return true })
	assert.Equal(t, [][]int32{{2, 1}}, initial)
}

func TestConflictCache(t *testing.T) {
	calls := 0
	cache := trafficlight.NewConflictCache(func(a, b int32) bool {
		calls++
		return a+b == 3
	})
	assert.True(t, cache.Conflict(1, 2))
	assert.True(t, cache.Conflict(2, 1))
	assert.False(t, cache.Conflict(1, 3))
	assert.Equal(t, 2, calls)
}

func TestPolylineConflict(t *testing.T) {
	ab := orb.LineString{{0, 0}, {10, 10}}
	cd := orb.LineString{{0, 10}, {10, 0}}
	assert.True(t, trafficlight.PolylineConflict(ab, cd))

	merge := orb.LineString{{5, -5}, {10, 10}}
	assert.True(t, trafficlight.PolylineConflict(ab, merge))

	split := orb.LineString{{0, 0}, {10, -10}}
	assert.False(t, trafficlight.PolylineConflict(ab, split))

	parallel := orb.LineString{{0, 3}, {10, 13}}
	assert.False(t, trafficlight.PolylineConflict(ab, parallel))
}
