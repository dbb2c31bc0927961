package junction

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/lane"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/road"
)

// 接入端几何变化的判定阈值
const contactTolerance = 1e-6

// contactState 接入端的几何与车道快照，用于判断是否需要重新生成
type contactState struct {
	pos, dir          geometry.Point
	entering, exiting []int32
}

func stateOf(r *road.Road, contact entity.ContactPoint) contactState {
	return contactState{
		pos:      r.ContactPoint(contact),
		dir:      r.ContactDir(contact),
		entering: laneIDs(r.EnteringLanes(contact)),
		exiting:  laneIDs(r.ExitingLanes(contact)),
	}
}

func (s contactState) equal(o contactState) bool {
	near := func(a, b geometry.Point) bool {
		return math.Abs(a.X-b.X) < contactTolerance && math.Abs(a.Y-b.Y) < contactTolerance && math.Abs(a.Z-b.Z) < contactTolerance
	}
	return near(s.pos, o.pos) && near(s.dir, o.dir) &&
		slices.Equal(s.entering, o.entering) && slices.Equal(s.exiting, o.exiting)
}

func laneIDs(lanes []*lane.Lane) []int32 {
	return lo.Map(lanes, func(l *lane.Lane, _ int) int32 { return l.ID })
}

// base 两类路口共用的接入集合维护逻辑
type base struct {
	id    int32
	typ   Type
	roads *road.RoadManager
	self  Junction

	formedFrom  []ConnectionInfo // 按(道路, 端点)排序
	states      map[connKey]contactState
	connections []*Connection
	elevation   float64
	dissolved   bool
}

func newBase(id int32, typ Type, roads *road.RoadManager) base {
	return base{id: id, typ: typ, roads: roads, states: make(map[connKey]contactState)}
}

func (j *base) ID() int32 { return j.id }

func (j *base) Type() Type { return j.typ }

// FormedFrom 接入道路（副本）
func (j *base) FormedFrom() []ConnectionInfo {
	return append([]ConnectionInfo(nil), j.formedFrom...)
}

// Connections 连接记录
func (j *base) Connections() []*Connection { return j.connections }

// Elevation 路口高程
func (j *base) Elevation() float64 { return j.elevation }

// Dissolved 路口是否已解散（不再连接任何道路）
func (j *base) Dissolved() bool { return j.dissolved }

func sortInfos(infos []ConnectionInfo) []ConnectionInfo {
	out := append([]ConnectionInfo(nil), infos...)
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Road != out[b].Road {
			return out[a].Road < out[b].Road
		}
		return out[a].Contact < out[b].Contact
	})
	return out
}

// validate 检查接入集合：不能重复，道路必须存在
// 返回：排序后的接入信息与对应道路
func (j *base) validate(infos []ConnectionInfo) ([]ConnectionInfo, []*road.Road, error) {
	sorted := sortInfos(infos)
	seen := make(map[connKey]struct{}, len(sorted))
	roads := make([]*road.Road, 0, len(sorted))
	for _, info := range sorted {
		if _, ok := seen[info.key()]; ok {
			return nil, nil, fmt.Errorf("junction %d: %w: %v", j.id, ErrDuplicateConn, info)
		}
		seen[info.key()] = struct{}{}
		r, err := j.roads.GetOrError(info.Road)
		if err != nil {
			return nil, nil, fmt.Errorf("junction %d: %w", j.id, err)
		}
		roads = append(roads, r)
	}
	return sorted, roads, nil
}

// commit 写入新的接入集合：建立道路到路口的连接，统一接入端高程，记录几何快照
func (j *base) commit(infos []ConnectionInfo, roads []*road.Road, connections []*Connection) {
	kept := lo.SliceToMap(infos, func(info ConnectionInfo) (connKey, struct{}) { return info.key(), struct{}{} })
	for _, old := range j.formedFrom {
		if _, ok := kept[old.key()]; !ok {
			j.unlink(old)
		}
	}
	if len(roads) > 0 {
		j.elevation = roads[0].ElevationAt(infos[0].Contact)
	}
	j.formedFrom = infos
	j.states = make(map[connKey]contactState, len(infos))
	for i, info := range infos {
		r := roads[i]
		r.SetLink(info.Contact, entity.RoadLink{Type: entity.LinkJunction, ID: j.id})
		r.SetElevationAt(info.Contact, j.elevation)
		j.states[info.key()] = stateOf(r, info.Contact)
	}
	j.connections = connections
}

// unlink 清除道路端点到本路口的连接
func (j *base) unlink(info ConnectionInfo) {
	r, err := j.roads.GetOrError(info.Road)
	if err != nil {
		return
	}
	if l := r.Link(info.Contact); l.Type == entity.LinkJunction && l.ID == j.id {
		r.SetLink(info.Contact, entity.RoadLink{})
	}
}

// dissolve 解散路口：清除全部连接并移除生成的道路
func (j *base) dissolve() {
	for _, info := range j.formedFrom {
		j.unlink(info)
	}
	j.self.clearGenerated()
	j.formedFrom = nil
	j.states = make(map[connKey]contactState)
	j.connections = nil
	j.dissolved = true
	log.Debugf("junction %d dissolved", j.id)
}

// Attach 再接入一条道路并整体重建
func (j *base) Attach(info ConnectionInfo) error {
	if lo.ContainsBy(j.formedFrom, func(c ConnectionInfo) bool { return c.key() == info.key() }) {
		return fmt.Errorf("junction %d: %w: %v", j.id, ErrDuplicateConn, info)
	}
	return j.self.CreateFrom(append(j.FormedFrom(), info))
}

// NotifyPotentialChange 接入道路可能发生了变化
// 功能：重新计算每个接入端的几何，有变化或道路已被移除时整体重建；只剩一条道路时解散
// 说明：ChangeDetachAtEndTemp只清除该道路终点的连接，不重建
func (j *base) NotifyPotentialChange(detail entity.ChangeDetail) error {
	if j.dissolved {
		return nil
	}
	updated := make([]ConnectionInfo, 0, len(j.formedFrom))
	needRegen, removed := false, false
	for _, rec := range j.formedFrom {
		r, err := j.roads.GetOrError(rec.Road)
		switch {
		case err != nil:
			needRegen, removed = true, true
		case detail.Type == entity.ChangeReverse && detail.Subject == rec.Road:
			needRegen = true
			rec.Contact = rec.Contact.Flip()
			updated = append(updated, rec)
		case detail.Type == entity.ChangeDetachAtEndTemp && detail.Subject == rec.Road && rec.Contact == entity.ContactEnd:
			r.SetLink(entity.ContactEnd, entity.RoadLink{})
		default:
			updated = append(updated, rec)
			if state, ok := j.states[rec.key()]; !ok || !state.equal(stateOf(r, rec.Contact)) {
				needRegen = true
			}
		}
	}

	switch {
	case detail.Type == entity.ChangeDetachAtEndTemp:
		j.formedFrom = updated
		return nil
	case len(updated) <= 1:
		j.formedFrom = updated
		j.dissolve()
		return nil
	case needRegen:
		log.Debugf("junction %d regen from %d roads", j.id, len(updated))
		if err := j.self.CreateFrom(updated); err != nil {
			// 接口道路被移除后直接路口不再成立
			if removed && errors.Is(err, ErrDirectNoProvider) {
				j.formedFrom = updated
				j.dissolve()
				return nil
			}
			// 生成内容保持不变，接入记录与道路现状一致
			j.formedFrom = updated
			log.Warnf("junction %d regeneration failed: %v", j.id, err)
			return err
		}
	}
	return nil
}

// laneCounts 接入端驶入、驶出路口的车道数（取剖面上紧邻路口的一段）
func (j *base) laneCounts(info ConnectionInfo) (in, out int) {
	p := j.roads.Get(info.Road).Profile()
	if info.Contact == entity.ContactStart {
		return int(p.LeftExit().LaneCount), int(p.RightEntrance().LaneCount)
	}
	return int(p.RightExit().LaneCount), int(p.LeftEntrance().LaneCount)
}

// CanDegenerate 恰好两条不同道路，且一条的驶入车道数等于另一条的驶出车道数（两个方向）
func (j *base) CanDegenerate() bool {
	if j.dissolved || len(j.formedFrom) != 2 {
		return false
	}
	a, b := j.formedFrom[0], j.formedFrom[1]
	if a.Road == b.Road {
		return false
	}
	aIn, aOut := j.laneCounts(a)
	bIn, bOut := j.laneCounts(b)
	return aIn == bOut && aOut == bIn
}

// Degenerate 把两条道路合并为一条，路口随之解散
// 返回：保留/移除的道路，调用方据此修正其他路口的接入记录
func (j *base) Degenerate() (DegenerateResult, error) {
	if !j.self.CanDegenerate() {
		return DegenerateResult{}, fmt.Errorf("junction %d: %w", j.id, ErrCannotDegenerate)
	}
	a, b := j.formedFrom[0], j.formedFrom[1]
	roadA, roadB := j.roads.Get(a.Road), j.roads.Get(b.Road)
	j.dissolve()
	if err := road.Join(roadA, a.Contact, roadB, b.Contact); err != nil {
		log.Panicf("junction %d: join %v and %v: %v", j.id, a, b, err)
	}
	j.roads.Remove(b.Road)
	return DegenerateResult{
		Kept:          a.Road,
		Removed:       b.Road,
		RemovedFar:    b.Contact.Flip(),
		KeptFarBefore: a.Contact.Flip(),
	}, nil
}

// replaceRoad 把接入记录中的一个端点替换为另一个端点并重建
func (j *base) replaceRoad(from, to connKey) error {
	infos := j.FormedFrom()
	for i := range infos {
		if infos[i].key() == from {
			infos[i].Road, infos[i].Contact = to.road, to.contact
		}
	}
	// 旧记录可能已不存在对应道路，直接替换后重建
	j.formedFrom = infos
	return j.self.CreateFrom(infos)
}

// logConnections 连接与车道连接的文字描述
func (j *base) logConnections(sb *strings.Builder) {
	for _, c := range j.connections {
		fmt.Fprintf(sb, "    connection %d: %d -> %d(%v) phases=%v\n", c.ID, c.IncomingRoad, c.ConnectingRoad, c.Contact, c.SignalPhases)
		for _, ll := range c.LaneLinks {
			fmt.Fprintf(sb, "        lane %d -> %d\n", ll.From, ll.To)
		}
	}
}
