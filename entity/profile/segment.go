package profile

import (
	"math"

	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/lane"
)

// S形过渡曲线的参考形状：跨度50m内从0平滑过渡到一个车道宽，两端斜率为0
const (
	refTransitionSpan = 50.
	refTransitionC    = 3.9e-3
	refTransitionD    = -5.2e-5
)

// toReference 将行驶方向坐标下的区间[start, end]翻转到参考线方向
func toReference(start, end Pos, rightSide bool, length Pos) (Pos, Pos) {
	if rightSide {
		return start, end
	}
	return length - end, length - start
}

// MakeTransition 生成过渡段多项式
// 功能：在[start, end]上生成从t0平滑变化到t1的三次多项式（两端一阶导数为0）
// 参数：start,end-行驶方向坐标下的区间，t0,t1-起止值（半车道宽单位），rightSide-是否为右侧，length-道路长度
// 返回：以参考线方向区间起点为S0的多项式
// 说明：左侧区间按行驶方向给出，需要翻转到参考线方向，同时交换起止值；要求start < end
func MakeTransition(start, end Pos, t0, t1 HalfWidth, rightSide bool, length Pos) lane.Poly3 {
	if start >= end {
		log.Panicf("MakeTransition: invalid range [%d, %d]", start, end)
	}
	s0, s1 := toReference(start, end, rightSide, length)
	if !rightSide {
		t0, t1 = t1, t0
	}
	k := refTransitionSpan / (s1 - s0).Meters()
	yScale := (t1.Meters() - t0.Meters()) / LaneWidth
	return lane.Poly3{
		S0: s0.Meters(),
		A:  t0.Meters(),
		B:  0,
		C:  refTransitionC * math.Pow(k, 2) * yScale,
		D:  refTransitionD * math.Pow(k, 3) * yScale,
	}
}

// MakeStraight 生成[start, end]上的常数多项式
func MakeStraight(start, end Pos, t HalfWidth, rightSide bool, length Pos) lane.Poly3 {
	s0, _ := toReference(start, end, rightSide, length)
	return lane.NewConst(s0.Meters(), t.Meters())
}
