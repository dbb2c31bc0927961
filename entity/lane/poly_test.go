package lane_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/lane"
)

func TestPoly3Rebase(t *testing.T) {
	p := lane.Poly3{S0: 10, A: 1, B: 0.5, C: -0.02, D: 0.001}
	q := p.Rebase(17)
	for _, s := range []float64{10, 12.5, 17, 30} {
		assert.InDelta(t, p.Get(s), q.Get(s), 1e-9)
		assert.InDelta(t, p.Grad(s), q.Grad(s), 1e-9)
	}
	assert.InDelta(t, 0, p.CoeffDiff(q), 1e-9)
}

func TestPoly3Mirror(t *testing.T) {
	p := lane.Poly3{S0: 0, A: 0, B: 0, C: 0.0117, D: -0.000156}
	const length = 100.
	m := p.Mirror(length, 30)
	for _, s := range []float64{30, 45, 60, 70} {
		assert.InDelta(t, p.Get(length-s), m.Get(s), 1e-9)
	}
}

func TestCubicSplineSlice(t *testing.T) {
	c := lane.NewCubicSpline()
	assert.Equal(t, 0., c.Get(3))

	c.Add(lane.NewConst(0, 1))
	c.Add(lane.Poly3{S0: 10, A: 1, B: 0.1})
	c.Add(lane.NewConst(20, 2))

	assert.Equal(t, 1., c.Get(-5))
	assert.InDelta(t, 1.5, c.Get(15), 1e-9)

	s := c.Slice(5, 20)
	assert.Equal(t, []float64{5, 10}, s.Keys())
	assert.InDelta(t, 1.5, s.Get(15), 1e-9)
	assert.InDelta(t, 1, s.Get(7), 1e-9)
}
