package road_test

import (
	"math"
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/profile"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/road"
)

func straight(length float64) road.Line {
	return road.Line{Start: geometry.Point{}, Heading: 0, Len: length}
}

func TestLaneBordersRightOnly(t *testing.T) {
	r := road.New(1, "r", straight(100), profile.New(0, 0, 2, 0))
	assert.False(t, r.BiDirectional())

	inner, outer, ok := r.LaneBorders(-1, 10)
	require.True(t, ok)
	assert.InDelta(t, 0, inner, 1e-9)
	assert.InDelta(t, -profile.LaneWidth, outer, 1e-9)

	inner, outer, ok = r.LaneBorders(-2, 10)
	require.True(t, ok)
	assert.InDelta(t, -profile.LaneWidth, inner, 1e-9)
	assert.InDelta(t, -2*profile.LaneWidth, outer, 1e-9)

	_, _, ok = r.LaneBorders(-3, 10)
	assert.False(t, ok)

	in, out := r.BorderPoints(-1, 10)
	assert.InDelta(t, 10, in.X, 1e-9)
	assert.InDelta(t, 0, in.Y, 1e-9)
	assert.InDelta(t, -profile.LaneWidth, out.Y, 1e-9)
}

func TestBidirectionalMedian(t *testing.T) {
	r := road.New(1, "r", straight(80), profile.New(1, 0, 1, 0))
	require.True(t, r.BiDirectional())
	assert.True(t, r.IsMedian(1, 40))
	assert.False(t, r.IsMedian(2, 40))

	inner, outer, ok := r.LaneBorders(2, 40)
	require.True(t, ok)
	assert.InDelta(t, 0, inner, 1e-9)
	assert.InDelta(t, profile.LaneWidth, outer, 1e-9)

	assert.Len(t, r.EnteringLanes(entity.ContactEnd), 1)
	assert.Equal(t, int32(-1), r.EnteringLanes(entity.ContactEnd)[0].ID)
	assert.Equal(t, int32(2), r.ExitingLanes(entity.ContactEnd)[0].ID)
}

func TestReverse(t *testing.T) {
	r := road.New(1, "r", straight(60), profile.New(0, 0, 2, 0))
	r.SetLink(entity.ContactEnd, entity.RoadLink{Type: entity.LinkJunction, ID: 7})
	r.SetElevationAt(entity.ContactEnd, 3)
	endDir := r.RefLine().Grad(60)

	r.Reverse()
	assert.Equal(t, int32(7), r.Predecessor().ID)
	assert.Equal(t, entity.LinkNone, r.Successor().Type)
	assert.InDelta(t, 3, r.ElevationAt(entity.ContactStart), 1e-9)
	assert.Len(t, r.SortedDrivingLanes(30, entity.LEFT), 2)
	assert.Empty(t, r.SortedDrivingLanes(30, entity.RIGHT))
	assert.InDelta(t, -endDir.X, r.RefLine().Grad(0).X, 1e-9)

	r.Reverse()
	assert.IsType(t, road.Line{}, r.RefLine())
	assert.Len(t, r.SortedDrivingLanes(30, entity.RIGHT), 2)
}

func TestJoin(t *testing.T) {
	a := road.New(1, "a", straight(50), profile.New(0, 0, 1, 0))
	b := road.New(2, "b", road.Line{Start: geometry.Point{X: 50}, Len: 50}, profile.New(0, 0, 1, 0))
	b.SetLink(entity.ContactEnd, entity.RoadLink{Type: entity.LinkJunction, ID: 9})

	require.NoError(t, road.Join(a, entity.ContactEnd, b, entity.ContactStart))
	assert.InDelta(t, 100, a.Length(), 1e-9)
	assert.Equal(t, int32(9), a.Successor().ID)
	p := a.RefLine().Get(75)
	assert.InDelta(t, 75, p.X, 1e-9)
	assert.Len(t, a.SortedDrivingLanes(90, entity.RIGHT), 1)

	assert.ErrorIs(t, road.Join(a, entity.ContactEnd, a, entity.ContactStart), road.ErrSelfJoin)
}

func TestHermiteCurve(t *testing.T) {
	c := road.NewHermiteCurve(geometry.Point{}, 0, geometry.Point{X: 10, Y: 10}, math.Pi/2)
	assert.Greater(t, c.Length(), math.Hypot(10, 10))
	end := c.Get(c.Length())
	assert.InDelta(t, 10, end.X, 1e-6)
	assert.InDelta(t, 10, end.Y, 1e-6)
	g := c.Grad(0)
	assert.InDelta(t, 1, g.X, 1e-6)
	g = c.Grad(c.Length())
	assert.InDelta(t, 1, g.Y, 1e-6)

	before := c.Get(-2)
	assert.InDelta(t, -2, before.X, 1e-6)
}

func TestPolyline(t *testing.T) {
	p := road.NewPolyline([]geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}})
	assert.InDelta(t, 20, p.Length(), 1e-9)
	q := p.Get(15)
	assert.InDelta(t, 10, q.X, 1e-9)
	assert.InDelta(t, 5, q.Y, 1e-9)
	assert.InDelta(t, 1, p.Grad(15).Y, 1e-9)
	q = p.Get(-5)
	assert.InDelta(t, -5, q.X, 1e-9)

	rev := road.Reverse(p)
	q = rev.Get(5)
	assert.InDelta(t, 10, q.X, 1e-9)
	assert.InDelta(t, 5, q.Y, 1e-9)
	assert.InDelta(t, -1, rev.Grad(5).Y, 1e-9)
}

func TestTurnAngle(t *testing.T) {
	r := road.New(1, "c", road.NewHermiteCurve(geometry.Point{}, 0, geometry.Point{X: 10, Y: 10}, math.Pi/2), profile.New(0, 0, 1, 0))
	assert.InDelta(t, math.Pi/2, r.TurnAngle(), 1e-6)
}
