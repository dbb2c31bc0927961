package task

import (
	"math"
	"sort"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/lane"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/spatial"
)

// unindexRoad 移除道路的全部面片
func (ctx *Context) unindexRoad(roadID int32) {
	for _, key := range ctx.surfaces[roadID] {
		ctx.index.UnIndex(key)
	}
	delete(ctx.surfaces, roadID)
}

// GenerateSurface 重新生成道路的车道表面
// 功能：移除旧面片，按采样间隔把每个车道段内的每条车道切成面片加入索引；
// 道路端点未连接时在该端追加磁吸延伸段
// 说明：调用方需在一批修改后调用RebuildTree
func (ctx *Context) GenerateSurface(roadID int32) {
	ctx.unindexRoad(roadID)
	r := ctx.roads.Get(roadID)
	step := ctx.runtimeConfig.I.Step
	var keys []spatial.FaceKey
	r.Sections().Range(func(s0 float64, sec *lane.LaneSection) bool {
		s1 := r.SectionEnd(s0)
		for _, id := range sec.IDs() {
			if id == 0 {
				continue
			}
			for s := s0; s < s1; s += step {
				keys = append(keys, ctx.index.Index(r, id, s, math.Min(s+step, s1)))
			}
		}
		return true
	})
	if magnetic := ctx.runtimeConfig.I.Magnetic; magnetic > 0 {
		if r.Predecessor().Type == entity.LinkNone {
			for _, id := range r.SectionAt(0).IDs() {
				if id != 0 {
					keys = append(keys, ctx.index.Index(r, id, -magnetic, 0))
				}
			}
		}
		if r.Successor().Type == entity.LinkNone {
			for _, id := range r.SectionAt(r.Length()).IDs() {
				if id != 0 {
					keys = append(keys, ctx.index.Index(r, id, r.Length(), r.Length()+magnetic))
				}
			}
		}
	}
	ctx.surfaces[roadID] = keys
}

// refresh 同步索引与道路：移除已删除道路的面片，重新生成指定道路和尚未索引的道路，然后重建rtree
func (ctx *Context) refresh(changed ...int32) {
	for id := range ctx.surfaces {
		if !ctx.roads.Has(id) {
			ctx.unindexRoad(id)
		}
	}
	for _, r := range ctx.roads.All() {
		if _, ok := ctx.surfaces[r.ID()]; !ok || lo.Contains(changed, r.ID()) {
			ctx.GenerateSurface(r.ID())
		}
	}
	ctx.index.RebuildTree()
}

// Pick 拾取射线命中的车道
func (ctx *Context) Pick(q spatial.RayQuery) (spatial.Hit, bool) {
	return ctx.index.RayCast(q)
}

// Overlap 两条道路在平面上的重叠范围
type Overlap struct {
	Road1, Road2   int32
	SBegin1, SEnd1 float64
	SBegin2, SEnd2 float64
}

// overlapHits s处道路各车道中心点上下范围内其他普通道路（非连接道路）的表面
func (ctx *Context) overlapHits(roadID int32, s float64) []spatial.Hit {
	r := ctx.roads.Get(roadID)
	zRange := ctx.runtimeConfig.I.ZRange
	var hits []spatial.Hit
	for _, id := range r.SectionAt(s).IDs() {
		if id == 0 || r.IsMedian(id, s) {
			continue
		}
		for _, h := range ctx.index.AllOverlaps(r.LaneCenter(id, s), zRange) {
			if h.RoadID == roadID {
				continue
			}
			if other, err := ctx.roads.GetOrError(h.RoadID); err != nil || other.Junction() != 0 {
				continue
			}
			hits = append(hits, h)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].RoadID < hits[j].RoadID })
	return hits
}

// FirstOverlap 道路在[sBegin, sEnd]内与其他道路的第一段重叠
// 功能：按采样间隔沿道路检查车道中心点，找到第一条重叠的道路后继续向前延伸，直到不再与该道路重叠
// 返回：重叠范围，没有重叠时ok为false
func (ctx *Context) FirstOverlap(roadID int32, sBegin, sEnd float64) (overlap Overlap, ok bool) {
	step := ctx.runtimeConfig.I.Step
	for s := sBegin; ; s = math.Min(s+step, sEnd) {
		hits := ctx.overlapHits(roadID, s)
		if !ok && len(hits) > 0 {
			ok = true
			overlap = Overlap{
				Road1: roadID, Road2: hits[0].RoadID,
				SBegin1: s, SEnd1: s,
				SBegin2: hits[0].S, SEnd2: hits[0].S,
			}
		}
		if ok {
			same := lo.Filter(hits, func(h spatial.Hit, _ int) bool { return h.RoadID == overlap.Road2 })
			if len(same) == 0 {
				break
			}
			overlap.SEnd1 = s
			for _, h := range same {
				overlap.SBegin2 = math.Min(overlap.SBegin2, h.S)
				overlap.SEnd2 = math.Max(overlap.SEnd2, h.S)
			}
		}
		if s >= sEnd {
			break
		}
	}
	return
}
