package export

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/parallel"
	geov2 "git.fiblab.net/sim/protos/v2/go/city/geo/v2"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/junction"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/junction/trafficlight"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/lane"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/road"
	"google.golang.org/protobuf/proto"
)

const (
	// 导出地图中道路与路口的ID偏移，车道ID从0开始
	RoadIDOffset     = 200_000_000
	JunctionIDOffset = 300_000_000

	defaultStep     = 2.
	defaultMaxSpeed = 60 / 3.6
	// 车道段末端的采样点向内收缩，避免落到下一个车道段
	sectionEps = 1e-6
	// 连接道路转向分类阈值
	straightAngle = math.Pi / 6
	aroundAngle   = 5 * math.Pi / 6
)

// Options 导出选项
type Options struct {
	Name            string  // 地图名
	Step            float64 // 车道中心线采样间隔(m)，<=0时为2m
	SecondsPerPhase float64 // 信控未运行时生成固定程序的相位时长
}

// laneKey 车道在路网中的位置：道路、车道段起点、段内车道ID
type laneKey struct {
	road int32
	s0   float64
	id   int32
}

type sampledLane struct {
	key   laneKey
	lane  *lane.Lane
	line  []geometry.Point // 沿通行方向
	width float64
}

// sampleRoad 采样道路全部行车道的中心线
// 说明：左侧车道的通行方向与参考线相反，中心线逆序
func sampleRoad(r *road.Road, step float64) []sampledLane {
	var out []sampledLane
	r.Sections().Range(func(s0 float64, sec *lane.LaneSection) bool {
		s1 := r.SectionEnd(s0)
		n := max(int(math.Ceil((s1-s0)/step)), 1)
		for _, side := range []int{entity.RIGHT, entity.LEFT} {
			for _, l := range sec.DrivingLanes(side) {
				line := make([]geometry.Point, 0, n+1)
				for i := 0; i <= n; i++ {
					s := math.Min(s0+(s1-s0)*float64(i)/float64(n), s1-sectionEps)
					line = append(line, r.LaneCenter(l.ID, s))
				}
				if l.ID > 0 {
					lo.Reverse(line)
				}
				out = append(out, sampledLane{
					key:   laneKey{road: r.ID(), s0: s0, id: l.ID},
					lane:  l,
					line:  line,
					width: l.Width.Get((s0 + s1) / 2),
				})
			}
		}
		return true
	})
	return out
}

// laneTurn 连接道路的转向
func laneTurn(r *road.Road) mapv2.LaneTurn {
	if r.Junction() == 0 {
		return mapv2.LaneTurn_LANE_TURN_STRAIGHT
	}
	a := r.TurnAngle()
	switch {
	case math.Abs(a) > aroundAngle:
		return mapv2.LaneTurn_LANE_TURN_AROUND
	case a > straightAngle:
		return mapv2.LaneTurn_LANE_TURN_LEFT
	case a < -straightAngle:
		return mapv2.LaneTurn_LANE_TURN_RIGHT
	default:
		return mapv2.LaneTurn_LANE_TURN_STRAIGHT
	}
}

// builder 导出过程中的车道编号与连接关系
type builder struct {
	roads     *road.RoadManager
	junctions *junction.JunctionManager
	opts      Options

	ids   map[laneKey]int32
	lanes []*mapv2.Lane
	// 通行方向上的连接，用于去重
	edges map[[2]int32]struct{}
}

func (b *builder) contactKey(r *road.Road, contact entity.ContactPoint, id int32) (laneKey, bool) {
	s0, _, ok := r.Sections().Floor(lo.Clamp(r.ContactS(contact), 0, r.Length()))
	if !ok {
		return laneKey{}, false
	}
	return laneKey{road: r.ID(), s0: s0, id: id}, true
}

// entering 车道在道路端点处是否驶向该端点
func entering(contact entity.ContactPoint, id int32) bool {
	return (contact == entity.ContactEnd) == (id < 0)
}

// link 以通行方向记录from->to，车道不存在时忽略
func (b *builder) link(from, to laneKey) {
	f, ok1 := b.ids[from]
	t, ok2 := b.ids[to]
	if !ok1 || !ok2 || f == t {
		return
	}
	if _, ok := b.edges[[2]int32{f, t}]; ok {
		return
	}
	b.edges[[2]int32{f, t}] = struct{}{}
	b.lanes[f].Successors = append(b.lanes[f].Successors, &mapv2.LaneConnection{
		Id: t, Type: mapv2.LaneConnectionType_LANE_CONNECTION_TYPE_HEAD,
	})
	b.lanes[t].Predecessors = append(b.lanes[t].Predecessors, &mapv2.LaneConnection{
		Id: f, Type: mapv2.LaneConnectionType_LANE_CONNECTION_TYPE_TAIL,
	})
}

// linkRoad 道路内部相邻车道段之间，以及道路端点直接连到另一条道路时的车道连接
func (b *builder) linkRoad(r *road.Road) {
	keys := r.Sections().Keys()
	for i := 1; i < len(keys); i++ {
		_, prev := r.Sections().At(i - 1)
		_, next := r.Sections().At(i)
		for _, l := range next.Lanes {
			if l.Predecessor == 0 {
				continue
			}
			if _, ok := prev.Lane(l.Predecessor); !ok {
				continue
			}
			a := laneKey{road: r.ID(), s0: keys[i-1], id: l.Predecessor}
			c := laneKey{road: r.ID(), s0: keys[i], id: l.ID}
			if l.ID < 0 {
				b.link(a, c)
			} else {
				b.link(c, a)
			}
		}
	}
	for _, contact := range []entity.ContactPoint{entity.ContactStart, entity.ContactEnd} {
		rl := r.Link(contact)
		if rl.Type != entity.LinkRoad {
			continue
		}
		other, err := b.roads.GetOrError(rl.ID)
		if err != nil {
			continue
		}
		for _, l := range r.ContactSection(contact).Lanes {
			target := l.Successor
			if contact == entity.ContactStart {
				target = l.Predecessor
			}
			if target == 0 {
				continue
			}
			self, ok1 := b.contactKey(r, contact, l.ID)
			peer, ok2 := b.contactKey(other, rl.Contact, target)
			if !ok1 || !ok2 {
				continue
			}
			if entering(contact, l.ID) {
				b.link(self, peer)
			} else {
				b.link(peer, self)
			}
		}
	}
}

// linkJunction 路口连接记录中的车道连接
func (b *builder) linkJunction(j junction.Junction) {
	infos := j.FormedFrom()
	for _, c := range j.Connections() {
		info, ok := lo.Find(infos, func(info junction.ConnectionInfo) bool { return info.Road == c.IncomingRoad })
		if !ok {
			continue
		}
		in, err1 := b.roads.GetOrError(c.IncomingRoad)
		out, err2 := b.roads.GetOrError(c.ConnectingRoad)
		if err1 != nil || err2 != nil {
			continue
		}
		for _, ll := range c.LaneLinks {
			from, ok1 := b.contactKey(in, info.Contact, ll.From)
			to, ok2 := b.contactKey(out, c.Contact, ll.To)
			if !ok1 || !ok2 {
				continue
			}
			if entering(info.Contact, ll.From) {
				b.link(from, to)
			} else {
				b.link(to, from)
			}
		}
	}
}

// junctionPb 路口及其可用相位与信控程序
// 说明：路口车道为各连接道路起点处的车道，顺序与信号灯一致
func (b *builder) junctionPb(j junction.Junction) *mapv2.Junction {
	pb := &mapv2.Junction{Id: JunctionIDOffset + j.ID()}
	var owners []int32
	for _, id := range j.ConnectingRoads() {
		r := b.roads.Get(id)
		for _, l := range r.ExitingLanes(entity.ContactStart) {
			if key, ok := b.contactKey(r, entity.ContactStart, l.ID); ok {
				pb.LaneIds = append(pb.LaneIds, b.ids[key])
				owners = append(owners, id)
			}
		}
	}
	for _, c := range j.Connections() {
		r, err := b.roads.GetOrError(c.ConnectingRoad)
		if err != nil || r.Junction() != j.ID() {
			continue
		}
		g0, g1 := r.RefLine().Grad(0), r.RefLine().Grad(r.Length())
		group := &mapv2.JunctionLaneGroup{
			InRoadId:  RoadIDOffset + c.IncomingRoad,
			InAngle:   math.Atan2(g0.Y, g0.X),
			OutRoadId: RoadIDOffset + r.Successor().ID,
			OutAngle:  math.Atan2(g1.Y, g1.X),
		}
		for i, owner := range owners {
			if owner == c.ConnectingRoad {
				group.LaneIds = append(group.LaneIds, pb.LaneIds[i])
			}
		}
		pb.DrivingLaneGroups = append(pb.DrivingLaneGroups, group)
	}

	phaseOf := lo.SliceToMap(j.Connections(), func(c *junction.Connection) (int32, []int) {
		return c.ConnectingRoad, c.SignalPhases
	})
	nPhases := 0
	for _, phases := range phaseOf {
		for _, p := range phases {
			nPhases = max(nPhases, p+1)
		}
	}
	green := make([][]bool, nPhases)
	for p := range green {
		green[p] = lo.Map(owners, func(owner int32, _ int) bool { return lo.Contains(phaseOf[owner], p) })
		pb.Phases = append(pb.Phases, &mapv2.AvailablePhase{
			States: lo.Map(green[p], func(g bool, _ int) mapv2.LightState {
				if g {
					return mapv2.LightState_LIGHT_STATE_GREEN
				}
				return mapv2.LightState_LIGHT_STATE_RED
			}),
		})
	}
	if l, err := b.junctions.TrafficLight(j.ID()); err == nil && l.Get() != nil {
		pb.FixedProgram = proto.Clone(l.Get()).(*mapv2.TrafficLight)
	} else {
		pb.FixedProgram = trafficlight.BuildProgram(j.ID(), green, b.opts.SecondsPerPhase)
	}
	if pb.FixedProgram != nil {
		pb.FixedProgram.JunctionId = pb.Id
	}
	return pb
}

// ToMapPb 把道路与路口导出为城市地图
// 功能：每个车道段内的每条行车道导出为一条车道（中心线、宽度、转向、前驱后继、左右相邻车道），
// 普通道路导出为道路，连接道路的车道归属其所在路口，路口附带可用相位与固定信控程序
func ToMapPb(roads *road.RoadManager, junctions *junction.JunctionManager, opts Options) *mapv2.Map {
	if opts.Step <= 0 {
		opts.Step = defaultStep
	}
	b := &builder{
		roads:     roads,
		junctions: junctions,
		opts:      opts,
		ids:       make(map[laneKey]int32),
		edges:     make(map[[2]int32]struct{}),
	}
	all := roads.All()
	sampled := parallel.GoMap(all, func(r *road.Road) []sampledLane { return sampleRoad(r, opts.Step) })

	m := &mapv2.Map{Header: &mapv2.Header{Name: opts.Name}}
	west, south, east, north := math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)
	for i, r := range all {
		parent := RoadIDOffset + r.ID()
		if r.Junction() != 0 {
			parent = JunctionIDOffset + r.Junction()
		}
		var roadLanes []int32
		for _, sl := range sampled[i] {
			id := int32(len(b.lanes))
			b.ids[sl.key] = id
			nodes := lo.Map(sl.line, func(p geometry.Point, _ int) *geov2.XYPosition {
				west, east = math.Min(west, p.X), math.Max(east, p.X)
				south, north = math.Min(south, p.Y), math.Max(north, p.Y)
				return &geov2.XYPosition{X: p.X, Y: p.Y, Z: proto.Float64(p.Z)}
			})
			lengths := geometry.GetPolylineLengths2D(sl.line)
			b.lanes = append(b.lanes, &mapv2.Lane{
				Id:         id,
				Type:       mapv2.LaneType_LANE_TYPE_DRIVING,
				Turn:       laneTurn(r),
				MaxSpeed:   defaultMaxSpeed,
				Length:     lengths[len(lengths)-1],
				Width:      sl.width,
				CenterLine: &mapv2.Polyline{Nodes: nodes},
				ParentId:   parent,
			})
			roadLanes = append(roadLanes, id)
		}
		if r.Junction() == 0 {
			m.Roads = append(m.Roads, &mapv2.Road{Id: parent, Name: r.Name(), LaneIds: roadLanes})
		}
	}
	if len(b.lanes) > 0 {
		m.Header.West, m.Header.South, m.Header.East, m.Header.North = west, south, east, north
	}

	// 同一车道段内同向车道互为左右相邻，由内向外排序
	for i := range all {
		bySection := lo.GroupBy(sampled[i], func(sl sampledLane) [2]float64 {
			side := 1.
			if sl.key.id < 0 {
				side = -1
			}
			return [2]float64{sl.key.s0, side}
		})
		for _, group := range bySection {
			ids := lo.Map(group, func(sl sampledLane, _ int) int32 { return b.ids[sl.key] })
			for k, id := range ids {
				b.lanes[id].LeftLaneIds = lo.Reverse(append([]int32(nil), ids[:k]...))
				b.lanes[id].RightLaneIds = append([]int32(nil), ids[k+1:]...)
			}
		}
	}

	for _, r := range all {
		b.linkRoad(r)
	}
	for _, j := range junctions.All() {
		b.linkJunction(j)
		if j.Type() == junction.TypeCommon {
			m.Junctions = append(m.Junctions, b.junctionPb(j))
		}
	}
	m.Lanes = b.lanes
	log.Infof("exported %d lanes, %d roads, %d junctions", len(m.Lanes), len(m.Roads), len(m.Junctions))
	return m
}
