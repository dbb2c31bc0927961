package road

import (
	"math"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
)

// RefLine 道路参考线，以弧长s参数化
// 说明：超出[0, Length]的s沿端点切线线性外延（用于磁吸区域）
type RefLine interface {
	Length() float64
	Get(s float64) geometry.Point  // 平面坐标，Z恒为0
	Grad(s float64) geometry.Point // 单位切向量
}

func unit(x, y float64) geometry.Point {
	n := math.Hypot(x, y)
	if n == 0 {
		return geometry.Point{X: 1}
	}
	return geometry.Point{X: x / n, Y: y / n}
}

// leftNormal 切向量左侧的单位法向量（t正方向）
func leftNormal(g geometry.Point) geometry.Point {
	return geometry.Point{X: -g.Y, Y: g.X}
}

// Line 直线参考线
type Line struct {
	Start   geometry.Point
	Heading float64
	Len     float64
}

func (l Line) Length() float64 { return l.Len }

func (l Line) Get(s float64) geometry.Point {
	return geometry.Point{X: l.Start.X + s*math.Cos(l.Heading), Y: l.Start.Y + s*math.Sin(l.Heading)}
}

func (l Line) Grad(float64) geometry.Point {
	return geometry.Point{X: math.Cos(l.Heading), Y: math.Sin(l.Heading)}
}

const hermiteSamples = 64

// HermiteCurve 三次Hermite参数曲线，连接两个带朝向的端点，用于路口连接道路
type HermiteCurve struct {
	p0, p1, m0, m1 geometry.Point
	us, ss         []float64 // 参数u与弧长s的采样表
}

// NewHermiteCurve 创建从(p0, h0)到(p1, h1)的曲线，端点切向长度取弦长
func NewHermiteCurve(p0 geometry.Point, h0 float64, p1 geometry.Point, h1 float64) *HermiteCurve {
	d := math.Hypot(p1.X-p0.X, p1.Y-p0.Y)
	c := &HermiteCurve{
		p0: p0,
		p1: p1,
		m0: geometry.Point{X: d * math.Cos(h0), Y: d * math.Sin(h0)},
		m1: geometry.Point{X: d * math.Cos(h1), Y: d * math.Sin(h1)},
	}
	c.us = make([]float64, hermiteSamples+1)
	c.ss = make([]float64, hermiteSamples+1)
	prev := c.at(0)
	for i := 1; i <= hermiteSamples; i++ {
		u := float64(i) / hermiteSamples
		p := c.at(u)
		c.us[i] = u
		c.ss[i] = c.ss[i-1] + math.Hypot(p.X-prev.X, p.Y-prev.Y)
		prev = p
	}
	return c
}

func (c *HermiteCurve) at(u float64) geometry.Point {
	u2, u3 := u*u, u*u*u
	h00 := 2*u3 - 3*u2 + 1
	h10 := u3 - 2*u2 + u
	h01 := -2*u3 + 3*u2
	h11 := u3 - u2
	return geometry.Point{
		X: h00*c.p0.X + h10*c.m0.X + h01*c.p1.X + h11*c.m1.X,
		Y: h00*c.p0.Y + h10*c.m0.Y + h01*c.p1.Y + h11*c.m1.Y,
	}
}

func (c *HermiteCurve) derivative(u float64) geometry.Point {
	u2 := u * u
	d00 := 6*u2 - 6*u
	d10 := 3*u2 - 4*u + 1
	d01 := -6*u2 + 6*u
	d11 := 3*u2 - 2*u
	return unit(
		d00*c.p0.X+d10*c.m0.X+d01*c.p1.X+d11*c.m1.X,
		d00*c.p0.Y+d10*c.m0.Y+d01*c.p1.Y+d11*c.m1.Y,
	)
}

// param 弧长s对应的参数u（采样表线性插值）
func (c *HermiteCurve) param(s float64) float64 {
	i := sort.SearchFloat64s(c.ss, s)
	if i == 0 {
		return 0
	}
	if i >= len(c.ss) {
		return 1
	}
	k := (s - c.ss[i-1]) / (c.ss[i] - c.ss[i-1])
	return c.us[i-1] + k*(c.us[i]-c.us[i-1])
}

func (c *HermiteCurve) Length() float64 { return c.ss[len(c.ss)-1] }

func (c *HermiteCurve) Get(s float64) geometry.Point {
	if s < 0 {
		g := c.derivative(0)
		return geometry.Point{X: c.p0.X + s*g.X, Y: c.p0.Y + s*g.Y}
	}
	if l := c.Length(); s > l {
		g := c.derivative(1)
		return geometry.Point{X: c.p1.X + (s-l)*g.X, Y: c.p1.Y + (s-l)*g.Y}
	}
	return c.at(c.param(s))
}

func (c *HermiteCurve) Grad(s float64) geometry.Point {
	return c.derivative(c.param(s))
}

// Polyline 折线参考线，用于从城市地图导入的道路
type Polyline struct {
	points  []geometry.Point
	lengths []float64
}

// NewPolyline 创建折线参考线，至少需要两个点
func NewPolyline(points []geometry.Point) *Polyline {
	if len(points) < 2 {
		log.Panicf("polyline needs at least 2 points, got %d", len(points))
	}
	flat := make([]geometry.Point, len(points))
	for i, p := range points {
		flat[i] = geometry.Point{X: p.X, Y: p.Y}
	}
	return &Polyline{points: flat, lengths: geometry.GetPolylineLengths2D(flat)}
}

func (p *Polyline) Length() float64 { return p.lengths[len(p.lengths)-1] }

// segment s所在折线段的序号（第i段连接点i与点i+1）
func (p *Polyline) segment(s float64) int {
	i := sort.SearchFloat64s(p.lengths, s) - 1
	return min(max(i, 0), len(p.points)-2)
}

func (p *Polyline) Get(s float64) geometry.Point {
	i := p.segment(s)
	segLength := p.lengths[i+1] - p.lengths[i]
	if segLength == 0 {
		return p.points[i]
	}
	// 首末段的k可能超出[0,1]，即线性外延
	k := (s - p.lengths[i]) / segLength
	a, b := p.points[i], p.points[i+1]
	return geometry.Point{X: a.X + k*(b.X-a.X), Y: a.Y + k*(b.Y-a.Y)}
}

func (p *Polyline) Grad(s float64) geometry.Point {
	i := p.segment(s)
	a, b := p.points[i], p.points[i+1]
	return unit(b.X-a.X, b.Y-a.Y)
}

// Reversed 反向参考线
type Reversed struct {
	Inner RefLine
}

// Reverse 反向参考线，反向两次得到原参考线
func Reverse(r RefLine) RefLine {
	if rev, ok := r.(Reversed); ok {
		return rev.Inner
	}
	return Reversed{Inner: r}
}

func (r Reversed) Length() float64 { return r.Inner.Length() }

func (r Reversed) Get(s float64) geometry.Point { return r.Inner.Get(r.Inner.Length() - s) }

func (r Reversed) Grad(s float64) geometry.Point {
	g := r.Inner.Grad(r.Inner.Length() - s)
	return geometry.Point{X: -g.X, Y: -g.Y}
}

// Composite 首尾相接的多段参考线
type Composite struct {
	parts   []RefLine
	offsets []float64 // 每段起点的累计弧长
}

// Concat 拼接两条参考线
func Concat(a, b RefLine) *Composite {
	c := &Composite{}
	for _, r := range []RefLine{a, b} {
		if comp, ok := r.(*Composite); ok {
			c.parts = append(c.parts, comp.parts...)
		} else {
			c.parts = append(c.parts, r)
		}
	}
	acc := 0.
	for _, part := range c.parts {
		c.offsets = append(c.offsets, acc)
		acc += part.Length()
	}
	return c
}

func (c *Composite) Length() float64 {
	last := len(c.parts) - 1
	return c.offsets[last] + c.parts[last].Length()
}

func (c *Composite) locate(s float64) (RefLine, float64) {
	i := sort.SearchFloat64s(c.offsets, s) - 1
	i = min(max(i, 0), len(c.parts)-1)
	return c.parts[i], s - c.offsets[i]
}

func (c *Composite) Get(s float64) geometry.Point {
	part, local := c.locate(s)
	return part.Get(local)
}

func (c *Composite) Grad(s float64) geometry.Point {
	part, local := c.locate(s)
	return part.Grad(local)
}
