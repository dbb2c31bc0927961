package spatial

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/dhconnelly/rtreego"
	"gonum.org/v1/gonum/spatial/r3"
)

// InvalidFace 未生成的面
const InvalidFace uint32 = math.MaxUint32

const (
	// rtree节点容量
	treeMinChildren = 25
	treeMaxChildren = 50
	// 包围盒外扩，避免退化为零体积
	boundsPadding = 1e-6
	// 三角形顶点重合判定
	samePointEps = 1e-9
)

// FaceKey 一次Index生成的两个三角面，高32位为第一个面，未生成的面为InvalidFace
type FaceKey uint64

// NewFaceKey 由两个面ID组成FaceKey
func NewFaceKey(f1, f2 uint32) FaceKey {
	return FaceKey(uint64(f1)<<32 | uint64(f2))
}

// Faces 拆分为两个面ID
func (k FaceKey) Faces() (uint32, uint32) {
	return uint32(k >> 32), uint32(k)
}

func (k FaceKey) String() string {
	f1, f2 := k.Faces()
	return fmt.Sprintf("FaceKey(%d,%d)", int64(f1), int64(f2))
}

// Span 被索引的道路需要提供的几何
type Span interface {
	RoadID() int32
	Length() float64
	BiDirectional() bool
	IsMedian(laneID int32, s float64) bool
	BorderPoints(laneID int32, s float64) (inner, outer geometry.Point)
}

// Quad 一段车道面片的描述
type Quad struct {
	RoadID             int32
	LaneID             int32
	LaneIDWhenReversed int32 // 道路反向后该车道的ID
	SBegin, SEnd       float64
	PointOnSBegin      geometry.Point // sBegin处内侧边界（XY）
	PointOnSEnd        geometry.Point // sEnd处内侧边界（XY）
	Magnetic           bool           // 超出道路名义长度的延伸段
}

// Lane 道路是否已反向时对应的车道ID
func (q Quad) Lane(reversed bool) int32 {
	if reversed {
		return q.LaneIDWhenReversed
	}
	return q.LaneID
}

// S 命中点投影到sBegin与sEnd两个采样点的连线上，按比例插值得到s
func (q Quad) S(p geometry.Point) float64 {
	dx, dy := q.PointOnSEnd.X-q.PointOnSBegin.X, q.PointOnSEnd.Y-q.PointOnSBegin.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return q.SBegin
	}
	proj := (dx*(p.X-q.PointOnSBegin.X) + dy*(p.Y-q.PointOnSBegin.Y)) / length
	return (proj*q.SEnd + (length-proj)*q.SBegin) / length
}

// reversedLaneID 道路反向后的车道ID
// 说明：双向道路的中央分隔带始终为1，其余车道为1-id；单向道路为-id
func reversedLaneID(span Span, laneID int32, s float64) int32 {
	if !span.BiDirectional() {
		return -laneID
	}
	if span.IsMedian(laneID, s) {
		if laneID != 1 {
			log.Panicf("road %d: median lane has id %d", span.RoadID(), laneID)
		}
		return 1
	}
	return 1 - laneID
}

// faceEntry rtree中的一个面
type faceEntry struct {
	id   uint32
	tri  [3]r3.Vec
	rect rtreego.Rect
}

func (e *faceEntry) Bounds() rtreego.Rect {
	return e.rect
}

// Indexer 车道表面的空间索引
// 功能：维护与车道面片对应的三角网格，用rtree加速射线求交，支持拾取与重叠检测
// 说明：Index/UnIndex之后需调用RebuildTree，查询使用的是最近一次重建的树
type Indexer struct {
	mesh  *mesh
	quads map[uint32]Quad
	tree  *rtreego.Rtree
	// 最近一次重建时网格的高程范围
	zMin, zMax float64
}

// New 创建空索引
func New() *Indexer {
	x := &Indexer{}
	x.Clear()
	return x
}

func toVec(p geometry.Point) r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

func toPoint(v r3.Vec) geometry.Point {
	return geometry.Point{X: v.X, Y: v.Y, Z: v.Z}
}

func samePoint2D(a, b geometry.Point) bool {
	return math.Abs(a.X-b.X) < samePointEps && math.Abs(a.Y-b.Y) < samePointEps
}

// distinct 三点两两不重合（XY平面）
func distinct(a, b, c geometry.Point) bool {
	return !samePoint2D(a, b) && !samePoint2D(a, c) && !samePoint2D(b, c)
}

// Index 把车道在[sBegin, sEnd]内的面片加入网格
// 功能：取两端内外边界共4个角点，生成至多两个三角面，角点重合的三角形跳过
// 参数：span-道路，laneID-车道，sBegin/sEnd-纵向范围，超出[0, Length]的部分记为磁吸延伸段
// 返回：两个面组成的FaceKey
func (x *Indexer) Index(span Span, laneID int32, sBegin, sEnd float64) FaceKey {
	magnetic := sBegin < 0 || sEnd > span.Length()
	p1, p2 := span.BorderPoints(laneID, sBegin)
	p3, p4 := span.BorderPoints(laneID, sEnd)
	corners := [4]geometry.Point{p1, p2, p3, p4}

	// 只为实际生成的面创建顶点
	var vertices [4]uint32
	var created [4]bool
	vertex := func(i int) uint32 {
		if !created[i] {
			vertices[i] = x.mesh.addVertex(toVec(corners[i]))
			created[i] = true
		}
		return vertices[i]
	}
	f1, f2 := InvalidFace, InvalidFace
	if distinct(p1, p2, p3) {
		f1 = x.mesh.addFace(vertex(0), vertex(1), vertex(2))
	}
	if distinct(p2, p3, p4) {
		f2 = x.mesh.addFace(vertex(2), vertex(1), vertex(3))
	}

	q := Quad{
		RoadID:             span.RoadID(),
		LaneID:             laneID,
		LaneIDWhenReversed: reversedLaneID(span, laneID, (sBegin+sEnd)/2),
		SBegin:             sBegin,
		SEnd:               sEnd,
		PointOnSBegin:      geometry.Point{X: p1.X, Y: p1.Y},
		PointOnSEnd:        geometry.Point{X: p3.X, Y: p3.Y},
		Magnetic:           magnetic,
	}
	for _, f := range []uint32{f1, f2} {
		if f == InvalidFace {
			continue
		}
		if _, ok := x.quads[f]; ok {
			log.Panicf("face %d of road %d lane %d indexed twice", f, q.RoadID, laneID)
		}
		x.quads[f] = q
	}
	return NewFaceKey(f1, f2)
}

// UnIndex 移除Index生成的面，以及不再关联任何面的顶点
func (x *Indexer) UnIndex(key FaceKey) {
	f1, f2 := key.Faces()
	for _, f := range []uint32{f1, f2} {
		if f == InvalidFace {
			continue
		}
		if _, ok := x.quads[f]; !ok {
			log.Panicf("unindex %v: face %d not indexed", key, f)
		}
		delete(x.quads, f)
		x.mesh.removeFace(f)
	}
}

// Quad 面对应的车道面片
func (x *Indexer) Quad(face uint32) (Quad, bool) {
	q, ok := x.quads[face]
	return q, ok
}

// VertexCount 网格顶点数
func (x *Indexer) VertexCount() int {
	return len(x.mesh.vertices)
}

// FaceCount 网格面数
func (x *Indexer) FaceCount() int {
	return len(x.mesh.faces)
}

// boundsOf 点集的包围盒
func boundsOf(points ...r3.Vec) rtreego.Rect {
	minV, maxV := points[0], points[0]
	for _, p := range points[1:] {
		minV = r3.Vec{X: math.Min(minV.X, p.X), Y: math.Min(minV.Y, p.Y), Z: math.Min(minV.Z, p.Z)}
		maxV = r3.Vec{X: math.Max(maxV.X, p.X), Y: math.Max(maxV.Y, p.Y), Z: math.Max(maxV.Z, p.Z)}
	}
	rect, err := rtreego.NewRect(
		rtreego.Point{minV.X - boundsPadding, minV.Y - boundsPadding, minV.Z - boundsPadding},
		[]float64{maxV.X - minV.X + 2*boundsPadding, maxV.Y - minV.Y + 2*boundsPadding, maxV.Z - minV.Z + 2*boundsPadding},
	)
	if err != nil {
		log.Panicf("bounds of %v: %v", points, err)
	}
	return rect
}

// RebuildTree 由当前网格重建rtree
func (x *Indexer) RebuildTree() {
	entries := make([]rtreego.Spatial, 0, len(x.mesh.faces))
	x.zMin, x.zMax = math.Inf(1), math.Inf(-1)
	for id := range x.mesh.faces {
		tri := x.mesh.triangle(id)
		for _, v := range tri {
			x.zMin = math.Min(x.zMin, v.Z)
			x.zMax = math.Max(x.zMax, v.Z)
		}
		entries = append(entries, &faceEntry{id: id, tri: tri, rect: boundsOf(tri[:]...)})
	}
	x.tree = rtreego.NewTree(3, treeMinChildren, treeMaxChildren, entries...)
	log.Debugf("spatial tree rebuilt with %d faces", len(entries))
}

// Clear 清空网格、rtree与面片信息
func (x *Indexer) Clear() {
	x.mesh = newMesh()
	x.quads = make(map[uint32]Quad)
	x.tree = rtreego.NewTree(3, treeMinChildren, treeMaxChildren)
	x.zMin, x.zMax = math.Inf(1), math.Inf(-1)
}
