package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/utils/config"
	"gopkg.in/yaml.v2"
)

const sample = `
roads:
  - id: 1
    line: {x: 0, y: 0, heading: 0, length: 100}
    right: {lanes: 2}
    overwrites:
      - {side: right, start: 50, end: 100, lanes: 1}
  - id: 2
    points: [[100, 0], [150, 10]]
    left: {lanes: 1}
    right: {lanes: 1}
junctions:
  - type: common
    connections:
      - {road: 1, contact: end}
      - {road: 2, contact: start}
index:
  magnetic: -1
control:
  step: {start: 0, total: 60}
output:
  geojson: out.geojson
`

func TestUnmarshalAndDefaults(t *testing.T) {
	var c config.Config
	require.NoError(t, yaml.UnmarshalStrict([]byte(sample), &c))
	require.Len(t, c.Roads, 2)
	assert.Equal(t, 100., c.Roads[0].Line.Length)
	assert.Equal(t, uint8(1), c.Roads[0].Overwrites[0].Lanes)
	assert.Equal(t, [][]float64{{100, 0}, {150, 10}}, c.Roads[1].Points)
	assert.Equal(t, "end", c.Junctions[0].Connections[0].Contact)

	rc := config.NewRuntimeConfig(c)
	assert.Equal(t, 5., rc.I.Step)
	assert.Equal(t, 0., rc.I.Magnetic)
	assert.Equal(t, 2., rc.I.ZRange)
	assert.Equal(t, 1., rc.C.Step.Interval)
	assert.Equal(t, 15., rc.C.SecondsPerPhase)
	assert.Equal(t, "out.geojson", rc.All.Output.GeoJSON)
}

func TestUnmarshalStrictRejectsUnknownField(t *testing.T) {
	var c config.Config
	assert.Error(t, yaml.UnmarshalStrict([]byte("roads: []\nunknown: 1\n"), &c))
}
