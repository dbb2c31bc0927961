package trafficlight

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/samber/lo"
)

// IncomingLane 驶入路口的车道
type IncomingLane struct {
	Road int32
	Lane int32
}

// Path 路口内的一条连接道路
type Path struct {
	ID        int32          // 连接道路ID
	LaneCount int            // 行车道数
	Incoming  []IncomingLane // 驶入该连接道路的车道
}

// ConflictFunc 两条连接道路是否冲突
type ConflictFunc func(a, b int32) bool

// ConflictCache 冲突判定结果缓存
// 功能：对同一对连接道路只调用一次底层判定（与顺序无关）
type ConflictCache struct {
	test ConflictFunc
	memo map[[2]int32]bool
}

// NewConflictCache 创建冲突判定缓存
func NewConflictCache(test ConflictFunc) *ConflictCache {
	return &ConflictCache{test: test, memo: make(map[[2]int32]bool)}
}

// Conflict 查询冲突，结果被缓存
func (c *ConflictCache) Conflict(a, b int32) bool {
	key := [2]int32{min(a, b), max(a, b)}
	if v, ok := c.memo[key]; ok {
		return v
	}
	v := c.test(a, b)
	c.memo[key] = v
	return v
}

// GenerateSignalPhase 将连接道路划分为信号相位
// 功能：贪心地把互不冲突的连接道路放入同一相位，再把其他相位中不冲突的成员补入每个相位
// 参数：paths-连接道路（其顺序决定平局时的处理顺序），conflict-冲突判定
// 返回：phases-扩展后的相位（每个相位为连接道路ID列表），initial-扩展前的划分
// 算法说明：
// 1. 按车道数升序稳定排序，每次从队尾取出一条作为新相位的发起者
// 2. 与相位中成员共享驶入车道的连接道路直接并入，直到不再有新成员
// 3. 从队尾向前扫描，与相位中所有成员都不冲突的连接道路并入
// 4. 对每个相位，依次尝试加入其他相位的成员，不与当前成员冲突即加入
func GenerateSignalPhase(paths []Path, conflict ConflictFunc) (phases [][]int32, initial [][]int32) {
	cache := NewConflictCache(conflict)
	pending := append([]Path(nil), paths...)
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].LaneCount < pending[j].LaneCount })

	conflictsWithGroup := func(candidate int32, group []int32) bool {
		return lo.SomeBy(group, func(member int32) bool { return cache.Conflict(candidate, member) })
	}

	for len(pending) > 0 {
		initiator := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		group := []int32{initiator.ID}

		incomings := lo.SliceToMap(initiator.Incoming, func(l IncomingLane) (IncomingLane, struct{}) {
			return l, struct{}{}
		})
		for {
			enrolled := false
			for i := len(pending) - 1; i >= 0; i-- {
				candidate := pending[i]
				shared := lo.SomeBy(candidate.Incoming, func(l IncomingLane) bool {
					_, ok := incomings[l]
					return ok
				})
				if !shared {
					continue
				}
				for _, l := range candidate.Incoming {
					incomings[l] = struct{}{}
				}
				group = append(group, candidate.ID)
				pending = append(pending[:i], pending[i+1:]...)
				enrolled = true
			}
			if !enrolled {
				break
			}
		}

		for i := len(pending) - 1; i >= 0; i-- {
			candidate := pending[i]
			if !conflictsWithGroup(candidate.ID, group) {
				group = append(group, candidate.ID)
				pending = append(pending[:i], pending[i+1:]...)
			}
		}
		initial = append(initial, group)
	}

	phases = make([][]int32, len(initial))
	for i := range initial {
		phases[i] = append([]int32(nil), initial[i]...)
		for j := range initial {
			if i == j {
				continue
			}
			for _, candidate := range initial[j] {
				if !conflictsWithGroup(candidate, phases[i]) {
					phases[i] = append(phases[i], candidate)
				}
			}
		}
	}
	return phases, initial
}

// PhasesOf 每条连接道路所属的相位序号（升序）
func PhasesOf(phases [][]int32) map[int32][]int {
	out := make(map[int32][]int)
	for i, phase := range phases {
		for _, id := range phase {
			if !lo.Contains(out[id], i) {
				out[id] = append(out[id], i)
			}
		}
	}
	return out
}

const conflictEpsilon = 1e-3

// PolylineConflict 两条连接道路中心线是否冲突
// 说明：终点相同（汇入同一车道）视为冲突；起点相同视为不冲突；否则判断折线是否相交
func PolylineConflict(a, b orb.LineString) bool {
	if len(a) < 2 || len(b) < 2 {
		return false
	}
	if planar.Distance(a[len(a)-1], b[len(b)-1]) < conflictEpsilon {
		return true
	}
	if planar.Distance(a[0], b[0]) < conflictEpsilon {
		return false
	}
	if !a.Bound().Pad(conflictEpsilon).Intersects(b.Bound()) {
		return false
	}
	for i := 0; i+1 < len(a); i++ {
		for j := 0; j+1 < len(b); j++ {
			if segmentsCross(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}
	return false
}

func cross(o, p, q orb.Point) float64 {
	return (p[0]-o[0])*(q[1]-o[1]) - (p[1]-o[1])*(q[0]-o[0])
}

// segmentsCross 线段严格相交（端点接触不算）
func segmentsCross(p1, p2, q1, q2 orb.Point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)
	return ((d1 > conflictEpsilon && d2 < -conflictEpsilon) || (d1 < -conflictEpsilon && d2 > conflictEpsilon)) &&
		((d3 > conflictEpsilon && d4 < -conflictEpsilon) || (d3 < -conflictEpsilon && d4 > conflictEpsilon))
}
