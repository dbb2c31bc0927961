package clock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/clock"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/utils/config"
)

func TestClock(t *testing.T) {
	c := clock.New(config.ControlStep{Start: 3599, Total: 2, Interval: 1})
	assert.Equal(t, "00:59:59", c.String())
	assert.False(t, c.Done())
	c.Tick()
	assert.Equal(t, "01:00:00", c.String())
	c.Tick()
	assert.True(t, c.Done())
	h, m, s := c.GetHourMinuteSecond()
	assert.Equal(t, 1, h)
	assert.Equal(t, 0, m)
	assert.InDelta(t, 1, s, 1e-9)

	c.Init()
	assert.Equal(t, int32(3599), c.InternalStep)
}
