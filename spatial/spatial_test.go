package spatial_test

import (
	"math"
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/profile"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/road"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/spatial"
)

func straight(id int32, x, y, heading, length float64, p *profile.RoadProfile) *road.Road {
	return road.New(id, "", road.Line{Start: geometry.Point{X: x, Y: y}, Heading: heading, Len: length}, p)
}

func down(x, y float64) spatial.RayQuery {
	return spatial.RayQuery{
		Origin:    geometry.Point{X: x, Y: y, Z: 10},
		Direction: geometry.Point{Z: -1},
	}
}

func TestIndexUnIndexRestoresMesh(t *testing.T) {
	r := straight(1, 0, 0, 0, 100, profile.New(0, 0, 2, 0))
	x := spatial.New()

	first := x.Index(r, -1, 0, 10)
	assert.Equal(t, 4, x.VertexCount())
	assert.Equal(t, 2, x.FaceCount())

	key := x.Index(r, -2, 40, 50)
	assert.Equal(t, 8, x.VertexCount())
	assert.Equal(t, 4, x.FaceCount())
	f1, f2 := key.Faces()
	assert.NotEqual(t, spatial.InvalidFace, f1)
	assert.NotEqual(t, spatial.InvalidFace, f2)

	x.UnIndex(key)
	assert.Equal(t, 4, x.VertexCount())
	assert.Equal(t, 2, x.FaceCount())
	x.UnIndex(first)
	assert.Equal(t, 0, x.VertexCount())
	assert.Equal(t, 0, x.FaceCount())

	assert.Panics(t, func() { x.UnIndex(key) })
}

func TestIndexSkipsDegenerateTriangles(t *testing.T) {
	r := straight(1, 0, 0, 0, 100, profile.New(0, 0, 1, 0))
	x := spatial.New()
	key := x.Index(r, -1, 20, 20)
	assert.Equal(t, spatial.NewFaceKey(spatial.InvalidFace, spatial.InvalidFace), key)
	assert.Equal(t, 0, x.VertexCount())
	x.UnIndex(key)
}

func TestRayCastMidpoint(t *testing.T) {
	r := straight(7, 0, 0, 0, 100, profile.New(0, 0, 2, 0))
	x := spatial.New()
	key := x.Index(r, -1, 40, 50)

	_, ok := x.RayCast(down(45, -1.625))
	assert.False(t, ok, "queries read the tree built before Index")

	x.RebuildTree()
	hit, ok := x.RayCast(down(45, -1.625))
	require.True(t, ok)
	assert.Equal(t, int32(7), hit.RoadID)
	assert.Equal(t, int32(-1), hit.LaneID)
	assert.InDelta(t, 45, hit.S, 1e-9)
	assert.InDelta(t, 0, hit.Point.Z, 1e-9)

	_, ok = x.RayCast(down(45, -5))
	assert.False(t, ok)

	q := down(45, -1.625)
	q.Skip = []spatial.FaceKey{key}
	_, ok = x.RayCast(q)
	assert.False(t, ok)

	q = down(45, -1.625)
	q.Direction = geometry.Point{X: 1, Z: -0.05}
	_, ok = x.RayCast(q)
	assert.False(t, ok)

	q = down(45, -1.625)
	q.Origin.Z = 0.05
	_, ok = x.RayCast(q)
	assert.False(t, ok)

	x.Clear()
	_, ok = x.RayCast(down(45, -1.625))
	assert.False(t, ok)
}

func TestAllOverlaps(t *testing.T) {
	ground := straight(1, 0, 0, 0, 100, profile.New(0, 0, 1, 0))
	bridge := straight(2, 45, -20, math.Pi/2, 40, profile.New(0, 0, 1, 0))
	bridge.SetElevation(5)

	x := spatial.New()
	x.Index(ground, -1, 40, 50)
	x.Index(ground, -1, 95, 105)
	x.Index(bridge, -1, 15, 25)
	x.RebuildTree()

	hits := x.AllOverlaps(geometry.Point{X: 46, Y: -1}, 10)
	require.Len(t, hits, 2)
	assert.Equal(t, int32(2), hits[0].RoadID)
	assert.InDelta(t, 5, hits[0].Point.Z, 1e-9)
	assert.InDelta(t, 19, hits[0].S, 1e-9)
	assert.Equal(t, int32(1), hits[1].RoadID)
	assert.InDelta(t, 46, hits[1].S, 1e-9)

	assert.Len(t, x.AllOverlaps(geometry.Point{X: 46, Y: -1}, 2), 1)

	// 磁吸延伸段只参与拾取
	assert.Empty(t, x.AllOverlaps(geometry.Point{X: 100, Y: -1}, 10))
	hit, ok := x.RayCast(down(100, -1))
	require.True(t, ok)
	assert.InDelta(t, 100, hit.S, 1e-9)
}

func TestReversedLaneID(t *testing.T) {
	x := spatial.New()
	oneWay := straight(1, 0, 0, 0, 100, profile.New(0, 0, 2, 0))
	f, _ := x.Index(oneWay, -2, 0, 10).Faces()
	q, ok := x.Quad(f)
	require.True(t, ok)
	assert.Equal(t, int32(2), q.LaneIDWhenReversed)
	assert.Equal(t, int32(2), q.Lane(true))
	assert.Equal(t, int32(-2), q.Lane(false))
	assert.False(t, q.Magnetic)

	twoWay := straight(2, 0, 50, 0, 100, profile.New(1, 0, 1, 0))
	f, _ = x.Index(twoWay, -1, 0, 10).Faces()
	q, _ = x.Quad(f)
	assert.Equal(t, int32(2), q.LaneIDWhenReversed)
	f, _ = x.Index(twoWay, 2, -5, 0).Faces()
	q, _ = x.Quad(f)
	assert.Equal(t, int32(-1), q.LaneIDWhenReversed)
	assert.True(t, q.Magnetic)
}
