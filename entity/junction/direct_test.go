package junction_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/junction"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/profile"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/road"
)

func TestDirectRampSplit(t *testing.T) {
	roads := road.NewManager()
	m := junction.NewManager(roads, 0)
	provider := roads.Create("provider", line(0, 0, 0, 100), profile.New(1, 0, 1, 0))
	ramp := roads.Create("ramp", line(100, 0, 0, 50), profile.New(0, 0, 1, 0))

	providerInfo := junction.ConnectionInfo{Road: provider.ID(), Contact: entity.ContactEnd}
	j, err := m.CreateDirect(providerInfo, []junction.ConnectionInfo{
		providerInfo,
		{Road: ramp.ID(), Contact: entity.ContactStart},
	})
	require.NoError(t, err)
	assert.Equal(t, junction.TypeDirect, j.Type())
	assert.Empty(t, j.ConnectingRoads())

	require.Len(t, j.Connections(), 1)
	conn := j.Connections()[0]
	assert.Equal(t, provider.ID(), conn.IncomingRoad)
	assert.Equal(t, ramp.ID(), conn.ConnectingRoad)
	assert.Equal(t, []junction.LaneLink{{From: -1, To: -1}}, conn.LaneLinks)

	assert.Equal(t, j.ID(), provider.Successor().ID)
	assert.Equal(t, j.ID(), ramp.Predecessor().ID)

	assert.Zero(t, j.GetTurningSemanticsForIncoming(provider.ID(), -1))
	assert.Zero(t, j.GetTurningSemanticsForIncoming(ramp.ID(), -1))
	assert.Equal(t, junction.DeadEnd, j.GetTurningSemanticsForIncoming(provider.ID(), 2))

	log := j.Log()
	assert.True(t, strings.HasPrefix(log, "Direct Junction"))
	assert.Contains(t, log, "Interface")
	assert.Contains(t, log, "Linked")
}

func TestDirectProviderErrors(t *testing.T) {
	roads := road.NewManager()
	m := junction.NewManager(roads, 0)
	provider := roads.Create("provider", line(0, 0, 0, 100), profile.New(1, 0, 1, 0))
	twin := roads.Create("twin", line(0, 5, 0, 100), profile.New(0, 0, 1, 0))
	ramp := roads.Create("ramp", line(100, 0, 0, 50), profile.New(0, 0, 1, 0))
	providerInfo := junction.ConnectionInfo{Road: provider.ID(), Contact: entity.ContactEnd}

	_, err := m.CreateDirect(providerInfo, []junction.ConnectionInfo{
		providerInfo,
		{Road: twin.ID(), Contact: entity.ContactEnd},
		{Road: ramp.ID(), Contact: entity.ContactStart},
	})
	assert.ErrorIs(t, err, junction.ErrDirectNoProvider)

	_, err = m.CreateDirect(providerInfo, []junction.ConnectionInfo{
		{Road: ramp.ID(), Contact: entity.ContactStart},
	})
	assert.ErrorIs(t, err, junction.ErrDirectNoProvider)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, entity.LinkNone, ramp.Predecessor().Type)
}

func TestDirectSkipOutOfRange(t *testing.T) {
	roads := road.NewManager()
	m := junction.NewManager(roads, 0)
	provider := roads.Create("provider", line(0, 0, 0, 100), profile.New(0, 0, 2, 0))
	ramp := roads.Create("ramp", line(100, -3.25, 0, 50), profile.New(0, 0, 1, 0))
	providerInfo := junction.ConnectionInfo{Road: provider.ID(), Contact: entity.ContactEnd}

	_, err := m.CreateDirect(providerInfo, []junction.ConnectionInfo{
		providerInfo,
		{Road: ramp.ID(), Contact: entity.ContactStart, SkipProviderLanes: 2},
	})
	assert.ErrorIs(t, err, junction.ErrConnectionInvalidShape)
	assert.Equal(t, entity.LinkNone, provider.Successor().Type)

	j, err := m.CreateDirect(providerInfo, []junction.ConnectionInfo{
		providerInfo,
		{Road: ramp.ID(), Contact: entity.ContactStart, SkipProviderLanes: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []junction.LaneLink{{From: -2, To: -1}}, j.Connections()[0].LaneLinks)
}

func TestDirectDissolvesWithoutProvider(t *testing.T) {
	roads := road.NewManager()
	m := junction.NewManager(roads, 0)
	provider := roads.Create("provider", line(0, 0, 0, 100), profile.New(0, 0, 2, 0))
	left := roads.Create("left", line(100, 0, 0, 50), profile.New(0, 0, 1, 0))
	right := roads.Create("right", line(100, -3.25, 0, 50), profile.New(0, 0, 1, 0))
	providerInfo := junction.ConnectionInfo{Road: provider.ID(), Contact: entity.ContactEnd}
	j, err := m.CreateDirect(providerInfo, []junction.ConnectionInfo{
		providerInfo,
		{Road: left.ID(), Contact: entity.ContactStart},
		{Road: right.ID(), Contact: entity.ContactStart, SkipProviderLanes: 1},
	})
	require.NoError(t, err)
	require.Len(t, j.Connections(), 2)

	require.NoError(t, m.RemoveRoad(provider.ID()))
	assert.True(t, j.Dissolved())
	assert.Equal(t, entity.LinkNone, left.Predecessor().Type)
	assert.Equal(t, entity.LinkNone, right.Predecessor().Type)
}

func TestDirectFailedRegenDropsRemovedRoad(t *testing.T) {
	roads := road.NewManager()
	m := junction.NewManager(roads, 0)
	provider := roads.Create("provider", line(0, 0, 0, 100), profile.New(0, 0, 2, 0))
	left := roads.Create("left", line(100, 0, 0, 50), profile.New(0, 0, 1, 0))
	right := roads.Create("right", line(100, -3.25, 0, 50), profile.New(0, 0, 1, 0))
	providerInfo := junction.ConnectionInfo{Road: provider.ID(), Contact: entity.ContactEnd}
	j, err := m.CreateDirect(providerInfo, []junction.ConnectionInfo{
		providerInfo,
		{Road: left.ID(), Contact: entity.ContactStart},
		{Road: right.ID(), Contact: entity.ContactStart, SkipProviderLanes: 1},
	})
	require.NoError(t, err)

	// 右侧匝道加宽到2条车道后跳过1条车道已放不下
	require.NoError(t, right.Profile().OverwriteSection(entity.RIGHT, 0, 5000, 2, 0))
	roads.Regenerate([]int32{right.ID()})

	err = m.RemoveRoad(left.ID())
	assert.ErrorIs(t, err, junction.ErrConnectionInvalidShape)
	assert.False(t, j.Dissolved())
	assert.ElementsMatch(t, []junction.ConnectionInfo{
		providerInfo,
		{Road: right.ID(), Contact: entity.ContactStart, SkipProviderLanes: 1},
	}, j.FormedFrom())
}

func TestDirectCanDegenerate(t *testing.T) {
	roads := road.NewManager()
	m := junction.NewManager(roads, 0)
	a := roads.Create("a", line(0, 0, 0, 100), profile.New(1, 0, 1, 0))
	b := roads.Create("b", line(100, 0, 0, 100), profile.New(1, 0, 1, 0))
	info := junction.ConnectionInfo{Road: a.ID(), Contact: entity.ContactEnd}
	j, err := m.CreateDirect(info, []junction.ConnectionInfo{info, {Road: b.ID(), Contact: entity.ContactStart}})
	require.NoError(t, err)
	// 分流 -1 -> -1，合流 b的2 -> a的2
	assert.ElementsMatch(t, []junction.LaneLink{{From: -1, To: -1}, {From: 2, To: 2}}, j.Connections()[0].LaneLinks)
	require.True(t, j.CanDegenerate())
	kept, err := m.Degenerate(j.ID())
	require.NoError(t, err)
	assert.Equal(t, a.ID(), kept)
	assert.InDelta(t, 200, a.Length(), 1e-9)
	assert.Equal(t, 1, roads.Len())
}
