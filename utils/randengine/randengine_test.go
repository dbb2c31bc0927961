package randengine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/utils/randengine"
)

func TestEngineReproducible(t *testing.T) {
	a, b := randengine.New(7), randengine.New(7)
	for i := 0; i < 20; i++ {
		x := a.IntRange(-3, 3)
		assert.Equal(t, x, b.IntRangeSafe(-3, 3))
		assert.GreaterOrEqual(t, x, -3)
		assert.LessOrEqual(t, x, 3)
	}
}

func TestDiscreteDistribution(t *testing.T) {
	e := randengine.New(1)
	for i := 0; i < 50; i++ {
		assert.Equal(t, int32(1), e.DiscreteDistribution([]float64{0, 1, 0}))
	}
	assert.False(t, e.PTrue(0))
	assert.True(t, e.PTrue(1))
}
