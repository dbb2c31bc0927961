package lane

import (
	"math"

	"github.com/tsinghua-fib-lab/agentsociety-roadgen/utils/container"
)

// Poly3 三次多项式 f(s) = A + B*ds + C*ds^2 + D*ds^3，ds = s - S0
type Poly3 struct {
	S0         float64
	A, B, C, D float64
}

// NewConst 常数多项式
func NewConst(s0, a float64) Poly3 {
	return Poly3{S0: s0, A: a}
}

// Get 求值
func (p Poly3) Get(s float64) float64 {
	ds := s - p.S0
	return p.A + ds*(p.B+ds*(p.C+ds*p.D))
}

// Grad 一阶导数
func (p Poly3) Grad(s float64) float64 {
	ds := s - p.S0
	return p.B + ds*(2*p.C+3*p.D*ds)
}

// Rebase 以新的起点s1重新表达同一条曲线
// 算法说明：泰勒展开 f(s1+x) = f(s1) + f1(s1)x + f2(s1)/2 x^2 + f3/6 x^3，fk为k阶导数
func (p Poly3) Rebase(s1 float64) Poly3 {
	h := s1 - p.S0
	return Poly3{
		S0: s1,
		A:  p.Get(s1),
		B:  p.Grad(s1),
		C:  p.C + 3*p.D*h,
		D:  p.D,
	}
}

// Sub 系数相减，两者需先对齐到同一起点
func (p Poly3) Sub(o Poly3) Poly3 {
	o = o.Rebase(p.S0)
	return Poly3{S0: p.S0, A: p.A - o.A, B: p.B - o.B, C: p.C - o.C, D: p.D - o.D}
}

// Negate 取反
func (p Poly3) Negate() Poly3 {
	return Poly3{S0: p.S0, A: -p.A, B: -p.B, C: -p.C, D: -p.D}
}

// Scale 整体缩放
func (p Poly3) Scale(k float64) Poly3 {
	return Poly3{S0: p.S0, A: p.A * k, B: p.B * k, C: p.C * k, D: p.D * k}
}

// CoeffDiff 两个多项式在p.S0处对齐后的系数差绝对值之和
func (p Poly3) CoeffDiff(o Poly3) float64 {
	d := p.Sub(o)
	return math.Abs(d.A) + math.Abs(d.B) + math.Abs(d.C) + math.Abs(d.D)
}

// Magnitude 系数绝对值之和
func (p Poly3) Magnitude() float64 {
	return math.Abs(p.A) + math.Abs(p.B) + math.Abs(p.C) + math.Abs(p.D)
}

// Mirror 关于s=length翻转自变量：g(s) = f(length-s)，结果以newS0为起点
func (p Poly3) Mirror(length, newS0 float64) Poly3 {
	// g(newS0+x) = f(length-newS0-x)，在u0 = length-newS0处展开后对x取反
	q := p.Rebase(length - newS0)
	return Poly3{S0: newS0, A: q.A, B: -q.B, C: q.C, D: -q.D}
}

// CubicSpline 分段三次多项式，键为每段的起点s
// 说明：某段的有效区间为[键, 下一个键)，最后一段向后延伸；s小于第一个键时使用第一段
type CubicSpline struct {
	container.SortedMap[float64, Poly3]
}

// NewCubicSpline 创建空的分段多项式
func NewCubicSpline() *CubicSpline {
	return &CubicSpline{}
}

// Get 求值，空样条返回0
func (c *CubicSpline) Get(s float64) float64 {
	p, ok := c.Poly(s)
	if !ok {
		return 0
	}
	return p.Get(s)
}

// Grad 一阶导数，空样条返回0
func (c *CubicSpline) Grad(s float64) float64 {
	p, ok := c.Poly(s)
	if !ok {
		return 0
	}
	return p.Grad(s)
}

// Poly 获取s处生效的分段
func (c *CubicSpline) Poly(s float64) (Poly3, bool) {
	if _, p, ok := c.Floor(s); ok {
		return p, true
	}
	_, p, ok := c.First()
	return p, ok
}

// Add 以多项式自身的S0为键加入一段
func (c *CubicSpline) Add(p Poly3) {
	c.Set(p.S0, p)
}

// Slice 截取[s0, s1)内的分段并以s0为起点重新表达首段
func (c *CubicSpline) Slice(s0, s1 float64) *CubicSpline {
	out := NewCubicSpline()
	if c.Len() == 0 {
		return out
	}
	if p, ok := c.Poly(s0); ok {
		out.Add(p.Rebase(s0))
	}
	c.Range(func(k float64, p Poly3) bool {
		if k >= s1 {
			return false
		}
		if k > s0 {
			out.Add(p)
		}
		return true
	})
	return out
}

// Clone 拷贝
func (c *CubicSpline) Clone() *CubicSpline {
	return &CubicSpline{SortedMap: *c.SortedMap.Clone()}
}

// Polys 按起点升序的全部分段
func (c *CubicSpline) Polys() []Poly3 {
	out := make([]Poly3, 0, c.Len())
	c.Range(func(_ float64, p Poly3) bool {
		out = append(out, p)
		return true
	})
	return out
}
