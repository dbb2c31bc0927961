package export_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	geojson "github.com/paulmach/go.geojson"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/export"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/task"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/utils/config"
	"google.golang.org/protobuf/proto"
)

func twoWay(id int32, x, y, heading float64) config.Road {
	return config.Road{
		ID:    id,
		Line:  &config.Line{X: x, Y: y, Heading: heading, Length: 90},
		Left:  config.Side{Lanes: 1},
		Right: config.Side{Lanes: 1},
	}
}

func newContext(t *testing.T, roads []config.Road, connections []config.Connection) *task.Context {
	c := config.Config{Roads: roads}
	if len(connections) > 0 {
		c.Junctions = []config.Junction{{Type: "common", Connections: connections}}
	}
	ctx, err := task.NewContext(c)
	require.NoError(t, err)
	return ctx
}

func straightThrough(t *testing.T) *task.Context {
	return newContext(t,
		[]config.Road{twoWay(1, -100, 0, 0), twoWay(2, 10, 0, 0)},
		[]config.Connection{{Road: 1, Contact: "end"}, {Road: 2, Contact: "start"}},
	)
}

func lanesOf(m *mapv2.Map, parent int32) []*mapv2.Lane {
	return lo.Filter(m.Lanes, func(l *mapv2.Lane, _ int) bool { return l.ParentId == parent })
}

func first(l *mapv2.Lane) (float64, float64) {
	return l.CenterLine.Nodes[0].X, l.CenterLine.Nodes[0].Y
}

func last(l *mapv2.Lane) (float64, float64) {
	n := l.CenterLine.Nodes[len(l.CenterLine.Nodes)-1]
	return n.X, n.Y
}

func TestToMapPbStraightThrough(t *testing.T) {
	ctx := straightThrough(t)
	m := export.ToMapPb(ctx.Roads(), ctx.Junctions(), export.Options{Name: "test"})

	assert.Equal(t, "test", m.Header.Name)
	assert.InDelta(t, -100, m.Header.West, 1e-6)
	assert.InDelta(t, 100, m.Header.East, 1e-3)
	assert.Len(t, m.Lanes, 6)
	require.Len(t, m.Roads, 2)
	assert.Equal(t, int32(export.RoadIDOffset+1), m.Roads[0].Id)
	assert.Len(t, m.Roads[0].LaneIds, 2)
	for i, l := range m.Lanes {
		assert.Equal(t, int32(i), l.Id)
		assert.Equal(t, mapv2.LaneType_LANE_TYPE_DRIVING, l.Type)
		assert.Equal(t, mapv2.LaneTurn_LANE_TURN_STRAIGHT, l.Turn)
		assert.Positive(t, l.Length)
		assert.Empty(t, l.LeftLaneIds)
		assert.Empty(t, l.RightLaneIds)
	}

	j := ctx.Junctions().All()[0]
	require.Len(t, m.Junctions, 1)
	jpb := m.Junctions[0]
	assert.Equal(t, export.JunctionIDOffset+j.ID(), jpb.Id)
	assert.Len(t, jpb.LaneIds, 2)
	assert.Len(t, jpb.DrivingLaneGroups, 2)
	// 两个方向互不冲突，只有一个相位，不需要信控
	require.Len(t, jpb.Phases, 1)
	assert.Equal(t, []mapv2.LightState{mapv2.LightState_LIGHT_STATE_GREEN, mapv2.LightState_LIGHT_STATE_GREEN}, jpb.Phases[0].States)
	assert.Nil(t, jpb.FixedProgram)

	// 东行：道路1右侧车道 -> 连接道路 -> 道路2右侧车道
	west := lanesOf(m, export.RoadIDOffset+1)
	eastbound, ok := lo.Find(west, func(l *mapv2.Lane) bool { _, y := first(l); return y < 0 })
	require.True(t, ok)
	x0, _ := first(eastbound)
	x1, _ := last(eastbound)
	assert.Less(t, x0, x1)
	require.Len(t, eastbound.Successors, 1)
	assert.Equal(t, mapv2.LaneConnectionType_LANE_CONNECTION_TYPE_HEAD, eastbound.Successors[0].Type)
	inner := m.Lanes[eastbound.Successors[0].Id]
	assert.Equal(t, jpb.Id, inner.ParentId)
	assert.Contains(t, jpb.LaneIds, inner.Id)
	require.Len(t, inner.Predecessors, 1)
	assert.Equal(t, eastbound.Id, inner.Predecessors[0].Id)
	assert.Equal(t, mapv2.LaneConnectionType_LANE_CONNECTION_TYPE_TAIL, inner.Predecessors[0].Type)
	require.Len(t, inner.Successors, 1)
	out := m.Lanes[inner.Successors[0].Id]
	assert.Equal(t, int32(export.RoadIDOffset+2), out.ParentId)
	_, y := first(out)
	assert.Negative(t, y)
	assert.Empty(t, out.Successors)

	// 西行：左侧车道中心线沿通行方向
	westbound, ok := lo.Find(west, func(l *mapv2.Lane) bool { _, y := first(l); return y > 0 })
	require.True(t, ok)
	x0, _ = first(westbound)
	x1, _ = last(westbound)
	assert.Greater(t, x0, x1)
	require.Len(t, westbound.Predecessors, 1)
	assert.Equal(t, jpb.Id, m.Lanes[westbound.Predecessors[0].Id].ParentId)
	assert.Empty(t, westbound.Successors)
}

func TestToMapPbCrossingProgram(t *testing.T) {
	ctx := newContext(t,
		[]config.Road{
			twoWay(1, -100, 0, 0), twoWay(2, 10, 0, 0),
			twoWay(3, 0, -100, math.Pi/2), twoWay(4, 0, 10, math.Pi/2),
		},
		[]config.Connection{
			{Road: 1, Contact: "end"}, {Road: 2, Contact: "start"},
			{Road: 3, Contact: "end"}, {Road: 4, Contact: "start"},
		},
	)
	m := export.ToMapPb(ctx.Roads(), ctx.Junctions(), export.Options{SecondsPerPhase: 20})
	require.Len(t, m.Junctions, 1)
	jpb := m.Junctions[0]
	assert.Len(t, jpb.LaneIds, 12)
	assert.GreaterOrEqual(t, len(jpb.Phases), 2)
	for _, p := range jpb.Phases {
		assert.Len(t, p.States, 12)
	}
	require.NotNil(t, jpb.FixedProgram)
	assert.Equal(t, jpb.Id, jpb.FixedProgram.JunctionId)
	for _, p := range jpb.FixedProgram.Phases {
		assert.Len(t, p.States, 12)
	}

	turns := lo.CountValuesBy(lanesOf(m, jpb.Id), func(l *mapv2.Lane) mapv2.LaneTurn { return l.Turn })
	assert.Equal(t, 4, turns[mapv2.LaneTurn_LANE_TURN_STRAIGHT])
	assert.Equal(t, 4, turns[mapv2.LaneTurn_LANE_TURN_LEFT])
	assert.Equal(t, 4, turns[mapv2.LaneTurn_LANE_TURN_RIGHT])
}

func TestToMapPbSectionsAndNeighbours(t *testing.T) {
	ctx := newContext(t, []config.Road{{
		ID:         1,
		Line:       &config.Line{Length: 200},
		Right:      config.Side{Lanes: 3},
		Overwrites: []config.Overwrite{{Side: "right", Start: 100, End: 200, Lanes: 2}},
	}}, nil)
	m := export.ToMapPb(ctx.Roads(), ctx.Junctions(), export.Options{})
	assert.Empty(t, m.Junctions)

	// 起点处的3条车道，由内向外互为左右相邻
	starts := lo.Filter(m.Lanes, func(l *mapv2.Lane, _ int) bool { x, _ := first(l); return math.Abs(x) < 1e-6 })
	require.Len(t, starts, 3)
	outer := lo.MinBy(starts, func(a, b *mapv2.Lane) bool { _, ya := first(a); _, yb := first(b); return ya < yb })
	assert.Len(t, outer.LeftLaneIds, 2)
	assert.Empty(t, outer.RightLaneIds)

	// 至少一条车道能沿后继走到道路终点
	reachesEnd := lo.SomeBy(starts, func(l *mapv2.Lane) bool {
		for len(l.Successors) > 0 {
			l = m.Lanes[l.Successors[0].Id]
		}
		x, _ := last(l)
		return math.Abs(x-200) < 1e-3
	})
	assert.True(t, reachesEnd)
}

func TestLanePolygons(t *testing.T) {
	ctx := straightThrough(t)
	fc := export.LanePolygons(ctx.Roads(), 0)
	// 零宽度的中央分隔带不导出
	require.Len(t, fc.Features, 6)
	for _, f := range fc.Features {
		require.True(t, f.Geometry.IsPolygon())
		ring := f.Geometry.Polygon[0]
		assert.Equal(t, ring[0], ring[len(ring)-1])
		assert.NotEqual(t, "median", f.PropertyMustString("type"))
	}

	path := filepath.Join(t.TempDir(), "out", "lanes.geojson")
	require.NoError(t, export.WriteGeoJSON(path, fc))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	back, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, back.Features, 6)
	roads := lo.Uniq(lo.Map(back.Features, func(f *geojson.Feature, _ int) int { return f.PropertyMustInt("road") }))
	assert.Len(t, roads, 4)
}

func TestWriteMap(t *testing.T) {
	ctx := straightThrough(t)
	m := export.ToMapPb(ctx.Roads(), ctx.Junctions(), export.Options{})
	path := filepath.Join(t.TempDir(), "map.pb")
	require.NoError(t, export.WriteMap(path, m))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var back mapv2.Map
	require.NoError(t, proto.Unmarshal(data, &back))
	assert.True(t, proto.Equal(m, &back))
}
