package junction

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/paulmach/orb"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/junction/trafficlight"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/lane"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/profile"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/road"
)

const (
	// 连接道路长度的合理范围(m)
	minConnectingLength = 0.1
	maxConnectingLength = 300
	// 转向语义的角度阈值
	uTurnThreshold = math.Pi - 0.1
	turnThreshold  = math.Pi / 4
)

// Common 普通路口
// 功能：为每个(驶入车道组, 驶出道路)生成一条连接道路，并把连接道路划分为信号相位
type Common struct {
	base

	connecting      []int32 // 连接道路ID，与connections一一对应
	light           *trafficlight.LocalTrafficLight
	secondsPerPhase float64
}

// NewCommon 创建空的普通路口
func NewCommon(id int32, roads *road.RoadManager, secondsPerPhase float64) *Common {
	j := &Common{base: newBase(id, TypeCommon, roads), secondsPerPhase: secondsPerPhase}
	j.self = j
	return j
}

// endpoint 接入端
type endpoint struct {
	info     ConnectionInfo
	road     *road.Road
	entering []*lane.Lane
	exiting  []*lane.Lane
	inDir    geometry.Point // 驶入路口的行驶方向
	outDir   geometry.Point // 驶出路口的行驶方向
}

func newEndpoint(info ConnectionInfo, r *road.Road) endpoint {
	out := r.ContactDir(info.Contact)
	return endpoint{
		info:     info,
		road:     r,
		entering: r.EnteringLanes(info.Contact),
		exiting:  r.ExitingLanes(info.Contact),
		inDir:    geometry.Point{X: -out.X, Y: -out.Y},
		outDir:   out,
	}
}

// innerBorder 车道内侧边界（行驶方向左侧）在接入端的坐标
func (e endpoint) innerBorder(laneID int32) geometry.Point {
	s := e.road.ContactS(e.info.Contact)
	inner, _, _ := e.road.LaneBorders(laneID, s)
	return e.road.GetXYZ(s, inner)
}

// turnAngle 从from方向转到to方向的角度，左转为正
func turnAngle(from, to geometry.Point) float64 {
	return math.Atan2(from.X*to.Y-from.Y*to.X, from.X*to.X+from.Y*to.Y)
}

// laneGroup 驶入车道的一段连续区间及其目标
type laneGroup struct {
	first, count int
	target       int
}

// allocateLanes 把n条驶入车道（由内向外）分配给按左转到右转排序的m个目标
// 说明：车道数不少于目标数时按连续区间划分，余数分给转角最小的目标；
// 否则每个目标分到一条车道，多个目标可共用同一车道
func allocateLanes(n int, angles []float64) []laneGroup {
	m := len(angles)
	if n == 0 || m == 0 {
		return nil
	}
	groups := make([]laneGroup, 0, m)
	if n < m {
		for j := 0; j < m; j++ {
			groups = append(groups, laneGroup{first: j * n / m, count: 1, target: j})
		}
		return groups
	}
	counts := lo.Times(m, func(int) int { return n / m })
	order := lo.Range(m)
	sort.SliceStable(order, func(a, b int) bool { return math.Abs(angles[order[a]]) < math.Abs(angles[order[b]]) })
	for i := 0; i < n%m; i++ {
		counts[order[i]]++
	}
	first := 0
	for j := 0; j < m; j++ {
		groups = append(groups, laneGroup{first: first, count: counts[j], target: j})
		first += counts[j]
	}
	return groups
}

// stagedConnection 尚未写入管理器的连接道路
type stagedConnection struct {
	road *road.Road
	conn *Connection
}

// generateConnections 生成全部连接道路与车道连接，不修改任何共享状态
func (j *Common) generateConnections(eps []endpoint, elevation float64) ([]stagedConnection, error) {
	var (
		staged []stagedConnection
		errs   []error
	)
	for _, in := range eps {
		if len(in.entering) == 0 {
			continue
		}
		targets := lo.Filter(eps, func(t endpoint, _ int) bool {
			return t.info.key() != in.info.key() && len(t.exiting) > 0
		})
		sort.SliceStable(targets, func(a, b int) bool {
			return turnAngle(in.inDir, targets[a].outDir) > turnAngle(in.inDir, targets[b].outDir)
		})
		angles := lo.Map(targets, func(t endpoint, _ int) float64 { return turnAngle(in.inDir, t.outDir) })
		for _, g := range allocateLanes(len(in.entering), angles) {
			sc, err := j.buildConnectingRoad(in, in.entering[g.first:g.first+g.count], targets[g.target], elevation)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			staged = append(staged, sc)
		}
	}
	return staged, errors.Join(errs...)
}

// buildConnectingRoad 生成一条连接道路
// 功能：参考线为从驶入车道组内侧边界到目标车道内侧边界的Hermite曲线，车道全部在右侧；
// 目标车道数较少时在后半段减少车道；高程统一为路口高程
func (j *Common) buildConnectingRoad(in endpoint, lanes []*lane.Lane, out endpoint, elevation float64) (stagedConnection, error) {
	endCount := min(len(lanes), len(out.exiting))
	p0 := in.innerBorder(lanes[0].ID)
	p1 := out.innerBorder(out.exiting[0].ID)
	curve := road.NewHermiteCurve(
		p0, math.Atan2(in.inDir.Y, in.inDir.X),
		p1, math.Atan2(out.outDir.Y, out.outDir.X),
	)
	length := curve.Length()
	if length < minConnectingLength || length > maxConnectingLength {
		return stagedConnection{}, fmt.Errorf("junction %d: %w: %v -> %v length %.2f",
			j.id, ErrConnectionInvalidShape, in.info, out.info, length)
	}
	prof := profile.New(0, 0, uint8(len(lanes)), 0)
	if endCount < len(lanes) {
		total := profile.FromMeters(length)
		if err := prof.OverwriteSection(entity.RIGHT, total/2, total, uint8(endCount), 0); err != nil {
			return stagedConnection{}, fmt.Errorf("junction %d: %w: %v", j.id, ErrConnectionInvalidShape, err)
		}
	}
	name := fmt.Sprintf("junction %d: %d->%d", j.id, in.info.Road, out.info.Road)
	r := road.New(0, name, curve, prof)
	r.SetElevation(elevation)
	r.SetLink(entity.ContactStart, entity.RoadLink{Type: entity.LinkRoad, ID: in.info.Road, Contact: in.info.Contact})
	r.SetLink(entity.ContactEnd, entity.RoadLink{Type: entity.LinkRoad, ID: out.info.Road, Contact: out.info.Contact})

	conn := &Connection{IncomingRoad: in.info.Road, Contact: entity.ContactStart}
	startLanes := r.ExitingLanes(entity.ContactStart)
	for k, l := range startLanes {
		l.Predecessor = lanes[k].ID
		conn.LaneLinks = append(conn.LaneLinks, LaneLink{From: lanes[k].ID, To: l.ID})
	}
	for k, l := range r.EnteringLanes(entity.ContactEnd) {
		if k < len(out.exiting) {
			l.Successor = out.exiting[k].ID
		}
	}
	return stagedConnection{road: r, conn: conn}, nil
}

// CreateFrom 由接入道路整体重建路口
// 说明：先完整生成并校验，全部成功后才替换旧的连接道路与连接记录
func (j *Common) CreateFrom(infos []ConnectionInfo) error {
	sorted, roads, err := j.validate(infos)
	if err != nil {
		return err
	}
	eps := make([]endpoint, len(sorted))
	for i := range sorted {
		eps[i] = newEndpoint(sorted[i], roads[i])
	}
	elevation := 0.
	if len(roads) > 0 {
		elevation = roads[0].ElevationAt(sorted[0].Contact)
	}
	staged, err := j.generateConnections(eps, elevation)
	if err != nil {
		return err
	}

	j.clearGenerated()
	connections := make([]*Connection, 0, len(staged))
	for i, sc := range staged {
		r := j.roads.Add(sc.road)
		r.SetJunction(j.id)
		sc.conn.ID = int32(i)
		sc.conn.ConnectingRoad = r.ID()
		j.connecting = append(j.connecting, r.ID())
		connections = append(connections, sc.conn)
	}
	j.commit(sorted, roads, connections)
	j.generateSignalPhase()
	log.Debugf("junction %d created from %d roads with %d connecting roads", j.id, len(sorted), len(j.connecting))
	return nil
}

// clearGenerated 移除生成的连接道路
func (j *Common) clearGenerated() {
	for _, id := range j.connecting {
		j.roads.Remove(id)
	}
	j.connecting = nil
	j.light = nil
}

// ConnectingRoads 连接道路ID
func (j *Common) ConnectingRoads() []int32 {
	return j.connecting
}

// centerline 连接道路参考线的采样折线
func centerline(r *road.Road) orb.LineString {
	n := max(int(math.Ceil(r.Length())), 1)
	ls := make(orb.LineString, 0, n+1)
	for i := 0; i <= n; i++ {
		p := r.RefLine().Get(r.Length() * float64(i) / float64(n))
		ls = append(ls, orb.Point{p.X, p.Y})
	}
	return ls
}

// generateSignalPhase 划分信号相位，写入连接记录并生成信控程序
func (j *Common) generateSignalPhase() {
	if len(j.connections) == 0 {
		return
	}
	lines := make(map[int32]orb.LineString, len(j.connecting))
	paths := lo.Map(j.connections, func(c *Connection, _ int) trafficlight.Path {
		r := j.roads.Get(c.ConnectingRoad)
		lines[c.ConnectingRoad] = centerline(r)
		return trafficlight.Path{
			ID:        c.ConnectingRoad,
			LaneCount: len(r.ExitingLanes(entity.ContactStart)),
			Incoming: lo.Map(c.LaneLinks, func(ll LaneLink, _ int) trafficlight.IncomingLane {
				return trafficlight.IncomingLane{Road: c.IncomingRoad, Lane: ll.From}
			}),
		}
	})
	phases, _ := trafficlight.GenerateSignalPhase(paths, func(a, b int32) bool {
		return trafficlight.PolylineConflict(lines[a], lines[b])
	})
	assigned := trafficlight.PhasesOf(phases)
	for _, c := range j.connections {
		c.SignalPhases = assigned[c.ConnectingRoad]
	}

	// 信控车道为每条连接道路起点处的车道
	var (
		setters []trafficlight.LaneLightSetter
		owners  []int32
	)
	for _, id := range j.connecting {
		for _, l := range j.roads.Get(id).ExitingLanes(entity.ContactStart) {
			setters = append(setters, l)
			owners = append(owners, id)
		}
	}
	green := lo.Map(phases, func(phase []int32, _ int) []bool {
		return lo.Map(owners, func(owner int32, _ int) bool { return lo.Contains(phase, owner) })
	})
	j.light = trafficlight.NewLocalTrafficLight(j.id, setters)
	if tl := trafficlight.BuildProgram(j.id, green, j.secondsPerPhase); tl != nil {
		if err := j.light.Set(tl); err != nil {
			log.Panicf("junction %d: set generated program: %v", j.id, err)
		}
	}
	log.Infof("junction %d: %d connecting roads in %d phases", j.id, len(j.connecting), len(phases))
}

func (j *Common) trafficLight() ITrafficLight {
	if j.light == nil {
		return nil
	}
	return j.light
}

// GetTurningSemanticsForIncoming 驶入车道在本路口可用的转向
func (j *Common) GetTurningSemanticsForIncoming(roadID, laneID int32) Turning {
	var rtn Turning
	for _, c := range j.connections {
		if c.IncomingRoad != roadID {
			continue
		}
		if !lo.ContainsBy(c.LaneLinks, func(ll LaneLink) bool { return ll.From == laneID }) {
			continue
		}
		angle := j.roads.Get(c.ConnectingRoad).TurnAngle()
		switch {
		case math.Abs(angle) > uTurnThreshold:
			rtn |= TurnU
		case angle > turnThreshold:
			rtn |= TurnLeft
		case angle < -turnThreshold:
			rtn |= TurnRight
		default:
			rtn |= TurnNo
		}
	}
	return rtn
}

// Log 路口的文字描述
func (j *Common) Log() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Junction %d\n", j.id)
	for _, info := range j.formedFrom {
		fmt.Fprintf(&sb, "    %d connected at %v\n", info.Road, info.Contact)
	}
	j.logConnections(&sb)
	return sb.String()
}
