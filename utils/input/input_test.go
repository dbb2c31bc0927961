package input_test

import (
	"os"
	"path/filepath"
	"testing"

	geov2 "git.fiblab.net/sim/protos/v2/go/city/geo/v2"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/utils/input"
	"google.golang.org/protobuf/proto"
)

func sampleMap() *mapv2.Map {
	return &mapv2.Map{
		Lanes: []*mapv2.Lane{
			{
				Id: 3,
				CenterLine: &mapv2.Polyline{Nodes: []*geov2.XYPosition{
					{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 20, Y: 5},
				}},
			},
			{Id: 4, CenterLine: &mapv2.Polyline{Nodes: []*geov2.XYPosition{{X: 1, Y: 1}}}},
		},
	}
}

func TestLoadCenterLine(t *testing.T) {
	data, err := proto.Marshal(sampleMap())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "map.pb")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	in, err := input.Load(path)
	require.NoError(t, err)
	line, err := in.CenterLine(3)
	require.NoError(t, err)
	require.Len(t, line, 3)
	assert.Equal(t, 20., line[2].X)
	assert.Equal(t, 5., line[2].Y)

	_, err = in.CenterLine(4)
	assert.Error(t, err)
	_, err = in.CenterLines([]int32{3, 9})
	assert.ErrorContains(t, err, "[9]")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := input.Load(filepath.Join(t.TempDir(), "none.pb"))
	assert.Error(t, err)
}
