package road

import (
	"errors"
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/lane"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/profile"
)

var ErrSelfJoin = errors.New("cannot join a road with itself")

// Road 道路实体
// 功能：保存参考线、剖面与高程，并持有由剖面生成的车道段、车道偏移等几何结果
// 说明：生成结果在每次Generate时整体替换，不做增量更新
type Road struct {
	id      int32
	name    string
	refLine RefLine
	profile *profile.RoadProfile

	generated *profile.Result
	length    float64

	// 起终点高程，中间用两端导数为0的三次曲线过渡
	elevationStart, elevationEnd float64

	predecessor entity.RoadLink
	successor   entity.RoadLink
	junction    int32 // 所属路口（仅路口内连接道路），0表示无
}

// New 创建道路并立即生成几何
func New(id int32, name string, refLine RefLine, p *profile.RoadProfile) *Road {
	r := &Road{id: id, name: name, refLine: refLine, profile: p}
	r.Generate()
	return r
}

func (r *Road) String() string {
	return fmt.Sprintf("Road %d(%s)", r.id, r.name)
}

// Generate 按当前参考线与剖面重新生成车道段
func (r *Road) Generate() {
	r.length = r.refLine.Length()
	r.generated = r.profile.Apply(r.length)
	log.Debugf("%v generated: length=%.2f sections=%d", r, r.length, r.generated.Sections.Len())
}

func (r *Road) ID() int32 { return r.id }

// RoadID 同ID
func (r *Road) RoadID() int32 { return r.id }

func (r *Road) Name() string { return r.name }

func (r *Road) Length() float64 { return r.length }

func (r *Road) RefLine() RefLine { return r.refLine }

// Profile 道路剖面，修改后需调用Generate
func (r *Road) Profile() *profile.RoadProfile { return r.profile }

// Sections 当前生成的车道段
func (r *Road) Sections() *profile.Sections { return r.generated.Sections }

// LaneOffset 车道偏移多项式
func (r *Road) LaneOffset() *lane.CubicSpline { return r.generated.LaneOffset }

// BiDirectional 是否为双向道路
func (r *Road) BiDirectional() bool { return r.generated.BiDirectional }

func (r *Road) Junction() int32 { return r.junction }

func (r *Road) SetJunction(id int32) { r.junction = id }

func (r *Road) Predecessor() entity.RoadLink { return r.predecessor }

func (r *Road) Successor() entity.RoadLink { return r.successor }

// Link 某个端点的连接，Start对应前驱，End对应后继
func (r *Road) Link(contact entity.ContactPoint) entity.RoadLink {
	if contact == entity.ContactStart {
		return r.predecessor
	}
	return r.successor
}

// SetLink 设置某个端点的连接
func (r *Road) SetLink(contact entity.ContactPoint, link entity.RoadLink) {
	if contact == entity.ContactStart {
		r.predecessor = link
	} else {
		r.successor = link
	}
}

// ClearJunctionLink 若端点连接到指定路口则清除
func (r *Road) ClearJunctionLink(junctionID int32) {
	for _, c := range []entity.ContactPoint{entity.ContactStart, entity.ContactEnd} {
		if l := r.Link(c); l.Type == entity.LinkJunction && l.ID == junctionID {
			r.SetLink(c, entity.RoadLink{})
		}
	}
}

// ContactS 端点对应的s
func (r *Road) ContactS(contact entity.ContactPoint) float64 {
	if contact == entity.ContactStart {
		return 0
	}
	return r.length
}

// ContactDir 端点处离开路口方向的单位向量（起点取切向，终点取切向的反方向）
func (r *Road) ContactDir(contact entity.ContactPoint) geometry.Point {
	g := r.refLine.Grad(r.ContactS(contact))
	if contact == entity.ContactEnd {
		g = geometry.Point{X: -g.X, Y: -g.Y}
	}
	return g
}

// ContactPoint 端点处参考线上的点（含高程）
func (r *Road) ContactPoint(contact entity.ContactPoint) geometry.Point {
	return r.GetXYZ(r.ContactS(contact), 0)
}

// Elevation s处的高程
func (r *Road) Elevation(s float64) float64 {
	if r.length == 0 {
		return r.elevationStart
	}
	k := lo.Clamp(s/r.length, 0, 1)
	return r.elevationStart + (r.elevationEnd-r.elevationStart)*k*k*(3-2*k)
}

// ElevationAt 端点高程
func (r *Road) ElevationAt(contact entity.ContactPoint) float64 {
	if contact == entity.ContactStart {
		return r.elevationStart
	}
	return r.elevationEnd
}

// SetElevationAt 设置端点高程
func (r *Road) SetElevationAt(contact entity.ContactPoint, z float64) {
	if contact == entity.ContactStart {
		r.elevationStart = z
	} else {
		r.elevationEnd = z
	}
}

// SetElevation 设置整条道路为同一高程
func (r *Road) SetElevation(z float64) {
	r.elevationStart, r.elevationEnd = z, z
}

// SectionAt s处生效的车道段
func (r *Road) SectionAt(s float64) *lane.LaneSection {
	sections := r.generated.Sections
	if _, sec, ok := sections.Floor(lo.Clamp(s, 0, r.length)); ok {
		return sec
	}
	_, sec, _ := sections.First()
	return sec
}

// SectionEnd 起点为s0的车道段的终点
func (r *Road) SectionEnd(s0 float64) float64 {
	if k, _, ok := r.generated.Sections.Higher(s0); ok {
		return k
	}
	return r.length
}

// ContactSection 端点处的车道段
func (r *Road) ContactSection(contact entity.ContactPoint) *lane.LaneSection {
	return r.SectionAt(r.ContactS(contact))
}

// SortedDrivingLanes s处某一侧的行车道，由内向外排序
func (r *Road) SortedDrivingLanes(s float64, side int) []*lane.Lane {
	return r.SectionAt(s).DrivingLanes(side)
}

// EnteringLanes 驶入端点所在路口的车道，由内向外排序
// 说明：终点处为右侧车道，起点处为左侧车道
func (r *Road) EnteringLanes(contact entity.ContactPoint) []*lane.Lane {
	side := entity.LEFT
	if contact == entity.ContactEnd {
		side = entity.RIGHT
	}
	return r.ContactSection(contact).DrivingLanes(side)
}

// ExitingLanes 从端点所在路口驶出的车道，由内向外排序
func (r *Road) ExitingLanes(contact entity.ContactPoint) []*lane.Lane {
	side := entity.RIGHT
	if contact == entity.ContactEnd {
		side = entity.LEFT
	}
	return r.ContactSection(contact).DrivingLanes(side)
}

// IsMedian 车道是否为中央分隔带
func (r *Road) IsMedian(laneID int32, s float64) bool {
	l, ok := r.SectionAt(s).Lane(laneID)
	return ok && l.Type == lane.TypeMedian
}

// LaneBorders s处车道的内外边界t坐标
// 返回：内侧（靠近中心线）与外侧边界的t，车道不存在时ok为false
// 算法说明：从车道偏移处开始，按ID由内向外逐条累加车道宽度
func (r *Road) LaneBorders(laneID int32, s float64) (inner, outer float64, ok bool) {
	sec := r.SectionAt(s)
	if _, ok = sec.Lane(laneID); !ok {
		return
	}
	t := r.generated.LaneOffset.Get(s)
	if laneID == 0 {
		return t, t, true
	}
	step, sign := int32(1), 1.
	if laneID < 0 {
		step, sign = -1, -1
	}
	for id := step; ; id += step {
		l, exists := sec.Lane(id)
		if !exists {
			log.Panicf("%v: lane %d missing while locating lane %d at s=%v", r, id, laneID, s)
		}
		inner = t
		t += sign * l.Width.Get(s)
		if id == laneID {
			return inner, t, true
		}
	}
}

// GetXYZ (s, t)处的三维坐标
func (r *Road) GetXYZ(s, t float64) geometry.Point {
	p := r.refLine.Get(s)
	n := leftNormal(r.refLine.Grad(s))
	return geometry.Point{X: p.X + t*n.X, Y: p.Y + t*n.Y, Z: r.Elevation(s)}
}

// BorderPoints s处车道内外边界的三维坐标，车道不存在时两点都落在参考线上
func (r *Road) BorderPoints(laneID int32, s float64) (inner, outer geometry.Point) {
	ti, to, ok := r.LaneBorders(laneID, s)
	if !ok {
		p := r.GetXYZ(s, 0)
		return p, p
	}
	return r.GetXYZ(s, ti), r.GetXYZ(s, to)
}

// LaneCenter s处车道中心点
func (r *Road) LaneCenter(laneID int32, s float64) geometry.Point {
	ti, to, _ := r.LaneBorders(laneID, s)
	return r.GetXYZ(s, (ti+to)/2)
}

// Reverse 道路反向
// 功能：参考线反向，剖面左右互换，前驱后继互换，高程翻转，然后重新生成
// 说明：路口需由调用方通过ChangeReverse通知
func (r *Road) Reverse() {
	r.profile = r.profile.Reverse(profile.FromMeters(r.length))
	r.refLine = Reverse(r.refLine)
	r.predecessor, r.successor = r.successor, r.predecessor
	r.elevationStart, r.elevationEnd = r.elevationEnd, r.elevationStart
	r.Generate()
}

// Join 合并两条在同一点相接的道路，结果保存在a中，b由调用方移除
// 参数：a,b-道路，contactA,contactB-两者相接的端点
// 说明：先把a调整为终点相接、b调整为起点相接，再拼接参考线与剖面
func Join(a *Road, contactA entity.ContactPoint, b *Road, contactB entity.ContactPoint) error {
	if a == b {
		return ErrSelfJoin
	}
	if contactA == entity.ContactStart {
		a.Reverse()
	}
	if contactB == entity.ContactEnd {
		b.Reverse()
	}
	a.profile = profile.Concat(a.profile, profile.FromMeters(a.length), b.profile, profile.FromMeters(b.length))
	a.refLine = Concat(a.refLine, b.refLine)
	a.successor = b.successor
	a.elevationEnd = b.elevationEnd
	a.Generate()
	return nil
}

// TurnAngle 连接道路首尾切向的夹角，左转为正，范围(-π, π]
func (r *Road) TurnAngle() float64 {
	g0, g1 := r.refLine.Grad(0), r.refLine.Grad(r.length)
	a := math.Atan2(g1.Y, g1.X) - math.Atan2(g0.Y, g0.X)
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
