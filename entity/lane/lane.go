package lane

import (
	"fmt"
	"sort"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
)

// Type 车道类型
type Type int

const (
	TypeNone    Type = iota // 中心线（id=0）
	TypeDriving             // 行车道
	TypeMedian              // 中央分隔带（id=1，仅双向道路）
)

func (t Type) String() string {
	switch t {
	case TypeDriving:
		return "driving"
	case TypeMedian:
		return "median"
	default:
		return "none"
	}
}

// Lane 车道
// 功能：描述某个车道段内的一条车道：带符号ID、类型、宽度多项式、前驱后继
// 说明：ID为0表示中心线，右侧车道为负、左侧为正；Predecessor/Successor为0表示无连接
type Lane struct {
	ID          int32
	Type        Type
	Width       *CubicSpline
	Predecessor int32
	Successor   int32

	lightState              mapv2.LightState // 信号灯状态，仅路口连接道路的车道使用
	lightStateTotalTime     float64
	lightStateRemainingTime float64
}

// New 创建车道
func New(id int32, typ Type) *Lane {
	return &Lane{ID: id, Type: typ, Width: NewCubicSpline()}
}

func (l *Lane) String() string {
	return fmt.Sprintf("Lane %d(%v)", l.ID, l.Type)
}

// Clone 深拷贝（宽度多项式独立）
func (l *Lane) Clone() *Lane {
	c := *l
	c.Width = l.Width.Clone()
	return &c
}

// Light 信号灯状态
func (l *Lane) Light() (mapv2.LightState, float64, float64) {
	return l.lightState, l.lightStateTotalTime, l.lightStateRemainingTime
}

// SetLight 设置信号灯状态
func (l *Lane) SetLight(state mapv2.LightState, totalTime float64, remainingTime float64) {
	l.lightState = state
	l.lightStateTotalTime = totalTime
	l.lightStateRemainingTime = remainingTime
}

// LaneSection 车道段
// 功能：某一纵向断点处的横断面，包含按ID索引的全部车道
// 说明：有效区间为[S0, 下一个车道段的S0或道路长度)
type LaneSection struct {
	S0    float64
	Lanes map[int32]*Lane
}

// NewSection 创建只含中心线的车道段
func NewSection(s0 float64) *LaneSection {
	return &LaneSection{
		S0:    s0,
		Lanes: map[int32]*Lane{0: New(0, TypeNone)},
	}
}

// Lane 按ID获取车道
func (s *LaneSection) Lane(id int32) (*Lane, bool) {
	l, ok := s.Lanes[id]
	return l, ok
}

// IDs 升序车道ID
func (s *LaneSection) IDs() []int32 {
	ids := lo.Keys(s.Lanes)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Side 某一侧的车道，按离中心线由近到远排序
// 参数：side- -1右侧，1左侧
func (s *LaneSection) Side(side int) []*Lane {
	out := lo.Filter(lo.Values(s.Lanes), func(l *Lane, _ int) bool {
		return (side < 0 && l.ID < 0) || (side > 0 && l.ID > 0)
	})
	sort.Slice(out, func(i, j int) bool {
		if side < 0 {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// DrivingLanes 某一侧的行车道，按离中心线由近到远排序
func (s *LaneSection) DrivingLanes(side int) []*Lane {
	return lo.Filter(s.Side(side), func(l *Lane, _ int) bool { return l.Type == TypeDriving })
}

// Clone 深拷贝
func (s *LaneSection) Clone() *LaneSection {
	c := &LaneSection{S0: s.S0, Lanes: make(map[int32]*Lane, len(s.Lanes))}
	for id, l := range s.Lanes {
		c.Lanes[id] = l.Clone()
	}
	return c
}
