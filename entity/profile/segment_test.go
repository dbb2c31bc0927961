package profile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/profile"
)

func TestMakeTransitionLengthInvariant(t *testing.T) {
	for _, span := range []profile.Pos{1000, 5000, 12000} {
		p := profile.MakeTransition(0, span, 0, 2, true, 20000)
		assert.Equal(t, 0., p.S0)
		assert.InDelta(t, 0, p.Get(0), 1e-9)
		assert.InDelta(t, profile.LaneWidth, p.Get(span.Meters()), 1e-9)
		assert.InDelta(t, profile.LaneWidth/2, p.Get(span.Meters()/2), 1e-9)
		assert.InDelta(t, 0, p.Grad(span.Meters()), 1e-9)
	}
}

func TestMakeTransitionLeftFlip(t *testing.T) {
	p := profile.MakeTransition(2000, 6000, 0, 2, false, 10000)
	assert.Equal(t, 40., p.S0)
	assert.InDelta(t, profile.LaneWidth, p.Get(40), 1e-9)
	assert.InDelta(t, 0, p.Get(80), 1e-9)

	s := profile.MakeStraight(2000, 6000, -1, false, 10000)
	assert.Equal(t, 40., s.S0)
	assert.InDelta(t, -profile.LaneWidth/2, s.Get(55), 1e-9)
}

func TestMakeTransitionRejectsEmptyRange(t *testing.T) {
	assert.Panics(t, func() { profile.MakeTransition(100, 100, 0, 2, true, 1000) })
}
