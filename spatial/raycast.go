package spatial

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/dhconnelly/rtreego"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/utils/container"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// 拾取射线的前置条件：方向足够向下，起点不低于最小高度
	maxRayDirZ      = -0.1
	minOriginHeight = 0.1
	// 射线与三角形求交的容差
	intersectEps = 1e-9
)

// RayQuery 拾取射线
type RayQuery struct {
	Origin    geometry.Point
	Direction geometry.Point
	Skip      []FaceKey // 不参与求交的面
}

// Hit 射线与车道表面的交点
type Hit struct {
	Point  geometry.Point
	RoadID int32
	LaneID int32
	S      float64
	Face   uint32
}

// intersect 射线与三角形求交（Möller–Trumbore）
// 返回：交点处的射线参数t（t>=0）
func intersect(o, d r3.Vec, tri [3]r3.Vec) (float64, bool) {
	e1 := r3.Sub(tri[1], tri[0])
	e2 := r3.Sub(tri[2], tri[0])
	p := r3.Cross(d, e2)
	det := r3.Dot(e1, p)
	if math.Abs(det) < intersectEps {
		return 0, false
	}
	inv := 1 / det
	tv := r3.Sub(o, tri[0])
	u := r3.Dot(tv, p) * inv
	if u < -intersectEps || u > 1+intersectEps {
		return 0, false
	}
	q := r3.Cross(tv, e1)
	v := r3.Dot(d, q) * inv
	if v < -intersectEps || u+v > 1+intersectEps {
		return 0, false
	}
	t := r3.Dot(e2, q) * inv
	return t, t >= 0
}

// candidates 与射线段[o+t0*d, o+t1*d]包围盒相交、且仍在网格中的面
func (x *Indexer) candidates(o, d r3.Vec, t0, t1 float64) []*faceEntry {
	rect := boundsOf(r3.Add(o, r3.Scale(t0, d)), r3.Add(o, r3.Scale(t1, d)))
	return lo.FilterMap(x.tree.SearchIntersect(rect), func(s rtreego.Spatial, _ int) (*faceEntry, bool) {
		e := s.(*faceEntry)
		_, ok := x.quads[e.id]
		return e, ok
	})
}

// RayCast 射线与车道表面的最近交点
// 说明：方向的z分量大于-0.1或起点低于0.1时视为无效拾取，直接返回未命中
func (x *Indexer) RayCast(q RayQuery) (Hit, bool) {
	if q.Direction.Z > maxRayDirZ || q.Origin.Z < minOriginHeight || x.FaceCount() == 0 {
		return Hit{}, false
	}
	o, d := toVec(q.Origin), toVec(q.Direction)
	// 只需考察射线落在网格高程范围内的一段
	t0 := math.Max(0, (x.zMax-o.Z)/d.Z)
	t1 := (x.zMin - o.Z) / d.Z
	if t1 < 0 || math.IsInf(t1, 0) {
		return Hit{}, false
	}
	skip := make(map[uint32]struct{}, 2*len(q.Skip))
	for _, key := range q.Skip {
		f1, f2 := key.Faces()
		skip[f1], skip[f2] = struct{}{}, struct{}{}
	}

	best, bestT := uint32(InvalidFace), mathutil.INF
	for _, e := range x.candidates(o, d, t0, t1) {
		if _, ok := skip[e.id]; ok {
			continue
		}
		if t, ok := intersect(o, d, e.tri); ok && t < bestT {
			best, bestT = e.id, t
		}
	}
	if best == InvalidFace {
		return Hit{}, false
	}
	p := toPoint(r3.Add(o, r3.Scale(bestT, d)))
	info := x.quads[best]
	return Hit{Point: p, RoadID: info.RoadID, LaneID: info.LaneID, S: info.S(p), Face: best}, true
}

// AllOverlaps origin上下zRange范围内的全部车道表面
// 功能：从origin+zRange竖直向下求交，收集与origin距离不超过zRange的交点，跳过磁吸延伸段
// 返回：按从上到下排序的交点，s限制在面片的[sBegin, sEnd]内
func (x *Indexer) AllOverlaps(origin geometry.Point, zRange float64) []Hit {
	if x.FaceCount() == 0 {
		return nil
	}
	top := toVec(origin)
	top.Z += zRange
	down := r3.Vec{Z: -1}

	pq := container.NewPriorityQueue[Hit]()
	for _, e := range x.candidates(top, down, 0, 2*zRange) {
		t, ok := intersect(top, down, e.tri)
		if !ok {
			continue
		}
		p := toPoint(r3.Add(top, r3.Scale(t, down)))
		if r3.Norm(r3.Sub(toVec(p), toVec(origin))) > zRange {
			continue
		}
		info := x.quads[e.id]
		if info.Magnetic {
			continue
		}
		s := lo.Clamp(info.S(p), math.Min(info.SBegin, info.SEnd), math.Max(info.SBegin, info.SEnd))
		pq.Push(Hit{Point: p, RoadID: info.RoadID, LaneID: info.LaneID, S: s, Face: e.id}, t)
	}
	pq.Heapify()
	hits := make([]Hit, 0, pq.Len())
	for pq.Len() > 0 {
		h, _ := pq.HeapPop()
		hits = append(hits, h)
	}
	return hits
}
