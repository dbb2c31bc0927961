package trafficlight_test

import (
	"testing"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/junction/trafficlight"
)

type fakeLane struct {
	state     mapv2.LightState
	remaining float64
}

func (l *fakeLane) SetLight(state mapv2.LightState, _ float64, remaining float64) {
	l.state = state
	l.remaining = remaining
}

func TestBuildProgram(t *testing.T) {
	assert.Nil(t, trafficlight.BuildProgram(1, [][]bool{{true}}, 15))

	tl := trafficlight.BuildProgram(1, [][]bool{{true, false}, {false, true}}, 15)
	require.Len(t, tl.Phases, 4)
	assert.InDelta(t, 12, tl.Phases[0].Duration, 1e-9)
	assert.InDelta(t, 3, tl.Phases[1].Duration, 1e-9)
	assert.Equal(t, []mapv2.LightState{mapv2.LightState_LIGHT_STATE_YELLOW, mapv2.LightState_LIGHT_STATE_RED}, tl.Phases[1].States)
	assert.Equal(t, []mapv2.LightState{mapv2.LightState_LIGHT_STATE_RED, mapv2.LightState_LIGHT_STATE_GREEN}, tl.Phases[2].States)
}

func TestLocalTrafficLightCycle(t *testing.T) {
	lanes := []*fakeLane{{}, {}}
	setters := []trafficlight.LaneLightSetter{lanes[0], lanes[1]}
	light := trafficlight.NewLocalTrafficLight(7, setters)

	light.Prepare()
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_GREEN, lanes[0].state)
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_GREEN, lanes[1].state)

	tl := trafficlight.BuildProgram(7, [][]bool{{true, false}, {false, true}}, 15)
	assert.Error(t, light.Set(trafficlight.BuildProgram(8, [][]bool{{true, false}, {false, true}}, 15)))
	require.NoError(t, light.Set(tl))

	light.Update(0)
	light.Prepare()
	assert.Equal(t, int32(0), light.Step())
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_GREEN, lanes[0].state)
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, lanes[1].state)
	// lane 0 stays green for the rest of phase 0 only
	assert.InDelta(t, 12, lanes[0].remaining, 1e-9)

	light.Update(12)
	light.Prepare()
	assert.Equal(t, int32(1), light.Step())
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_YELLOW, lanes[0].state)

	light.Update(3)
	light.Prepare()
	assert.Equal(t, int32(2), light.Step())
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, lanes[0].state)
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_GREEN, lanes[1].state)

	light.SetOk(false)
	light.Prepare()
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_GREEN, lanes[0].state)
	assert.False(t, light.Ok())
}
