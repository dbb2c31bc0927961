package road_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/profile"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/road"
)

func TestManager(t *testing.T) {
	m := road.NewManager()
	roads := m.Init([]road.Params{
		{ID: 5, Name: "five", RefLine: straight(40), Profile: profile.New(0, 0, 1, 0)},
		{Name: "auto", RefLine: straight(30), Profile: profile.New(1, 0, 1, 0)},
	})
	require.Len(t, roads, 2)
	assert.Equal(t, int32(5), roads[0].ID())
	assert.Equal(t, 2, m.Len())

	c := m.Create("created", straight(20), profile.New(0, 0, 2, 0))
	assert.Greater(t, c.ID(), int32(5))
	assert.Same(t, c, m.Get(c.ID()))

	_, err := m.GetOrError(1000)
	assert.Error(t, err)
	assert.Panics(t, func() { m.Get(1000) })

	require.NoError(t, c.Profile().OverwriteSection(-1, 1000, 2000, 1, 0))
	m.Regenerate([]int32{c.ID()})
	assert.Len(t, c.SortedDrivingLanes(18, -1), 1)

	m.Remove(5)
	assert.False(t, m.Has(5))
	ids := []int32{}
	for _, r := range m.All() {
		ids = append(ids, r.ID())
	}
	assert.IsIncreasing(t, ids)
}

func TestManagerInitDuplicateIDs(t *testing.T) {
	m := road.NewManager()
	assert.Panics(t, func() {
		m.Init([]road.Params{
			{ID: 3, RefLine: straight(10), Profile: profile.New(0, 0, 1, 0)},
			{ID: 3, RefLine: straight(20), Profile: profile.New(0, 0, 1, 0)},
		})
	})
	assert.Equal(t, 0, m.Len())

	// 自动分配的ID不与同批次之后的显式ID冲突
	roads := m.Init([]road.Params{
		{RefLine: straight(10), Profile: profile.New(0, 0, 1, 0)},
		{ID: 1, RefLine: straight(20), Profile: profile.New(0, 0, 1, 0)},
	})
	assert.Equal(t, int32(2), roads[0].ID())
	assert.Equal(t, int32(1), roads[1].ID())
	assert.Equal(t, 2, m.Len())
}
