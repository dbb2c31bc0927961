package input

import (
	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/protoutil"
	geov2 "git.fiblab.net/sim/protos/v2/go/city/geo/v2"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/utils"
)

// Input 输入数据
// 功能：城市地图中的车道中心线，作为道路参考线的来源
type Input struct {
	Map   *mapv2.Map
	lanes map[int32]*mapv2.Lane
}

// Load 从pb文件加载城市地图
func Load(path string) (*Input, error) {
	var m mapv2.Map
	if err := protoutil.UnmarshalFromFile(&m, path); err != nil {
		return nil, errors.Wrapf(err, "load map from %s", path)
	}
	in := New(&m)
	log.Infof("loaded map %s: %d lanes, %d roads, %d junctions", path, len(m.Lanes), len(m.Roads), len(m.Junctions))
	return in, nil
}

// New 以已有的地图数据创建输入
func New(m *mapv2.Map) *Input {
	return &Input{
		Map:   m,
		lanes: lo.SliceToMap(m.Lanes, func(l *mapv2.Lane) (int32, *mapv2.Lane) { return l.Id, l }),
	}
}

// CenterLine 车道中心线
// 说明：少于两个点的中心线无法作为参考线
func (in *Input) CenterLine(laneID int32) ([]geometry.Point, error) {
	lines, err := in.CenterLines([]int32{laneID})
	if err != nil {
		return nil, err
	}
	return lines[0], nil
}

// CenterLines 按ID顺序取出多条车道的中心线
func (in *Input) CenterLines(laneIDs []int32) ([][]geometry.Point, error) {
	lanes, missing := utils.Find(in.lanes, in.Map.Lanes, laneIDs)
	if len(missing) > 0 {
		return nil, errors.Errorf("lanes %v not found in map", missing)
	}
	lines := make([][]geometry.Point, 0, len(lanes))
	for _, l := range lanes {
		if l.CenterLine == nil || len(l.CenterLine.Nodes) < 2 {
			return nil, errors.Errorf("lane %d has no usable center line", l.Id)
		}
		lines = append(lines, lo.Map(l.CenterLine.Nodes, func(node *geov2.XYPosition, _ int) geometry.Point {
			return geometry.NewPointFromPb(node)
		}))
	}
	return lines, nil
}
