package profile

import (
	"sort"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/lane"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/utils/container"
)

// breakpoints 多条时间线断点的并集（升序，小于length）
func breakpoints(length float64, keys ...[]float64) []float64 {
	all := []float64{0}
	for _, k := range keys {
		all = append(all, k...)
	}
	all = lo.Uniq(lo.Filter(all, func(s float64, _ int) bool { return s >= 0 && s < length }))
	sort.Float64s(all)
	return all
}

// ComputeMedian 计算中央分隔带宽度
// 功能：在两侧偏移断点的并集上逐段计算 左偏移-右偏移，与上一段几乎相同（系数差<1e-3）时不新增分段
// 参数：left,right-两侧车道偏移，length-道路长度(m)
// 返回：中央分隔带宽度分段多项式
func ComputeMedian(left, right *lane.CubicSpline, length float64) *lane.CubicSpline {
	median := lane.NewCubicSpline()
	var (
		last    lane.Poly3
		hasLast bool
	)
	at := func(c *lane.CubicSpline, s float64) lane.Poly3 {
		if p, ok := c.Poly(s); ok {
			return p.Rebase(s)
		}
		return lane.NewConst(s, 0)
	}
	for _, s := range breakpoints(length, left.Keys(), right.Keys()) {
		m := at(left, s).Sub(at(right, s))
		if hasLast && m.CoeffDiff(last) <= medianTolerance {
			continue
		}
		median.Add(m)
		last, hasLast = m, true
	}
	return median
}

// sideKeys 断点s所在的车道段起点，以及下一个车道段起点（没有则为length）
func sideKeys(sections *Sections, s, length float64) (key, next float64, sec *lane.LaneSection) {
	key, sec, ok := sections.Floor(s)
	if !ok {
		key, sec, _ = sections.First()
	}
	next = length
	if k, _, ok := sections.Higher(s); ok {
		next = k
	}
	return
}

// MergeSides 合并两侧车道段
// 功能：在左、中、右三条时间线断点的并集上生成统一的车道段
// 参数：left,right-两侧ConvertSide的结果，center-中央分隔带宽度，length-道路长度(m)
// 返回：合并后的车道段
// 说明：
//   - 右侧车道ID不变；左侧车道ID加LeftIDStart；ID 1为中央分隔带
//   - 仅当分段边界与原始一侧的断点重合时沿用原前驱/后继，否则连接到同ID车道
//   - 左侧车道逆参考线行驶，其前驱位于分段终点、后继位于分段起点
func MergeSides(left *Sections, center *lane.CubicSpline, right *Sections, length float64) *Sections {
	merged := container.NewSortedMap[float64, *lane.LaneSection]()
	for _, s := range breakpoints(length, left.Keys(), center.Keys(), right.Keys()) {
		end := length
		if k, _, ok := left.Higher(s); ok {
			end = min(end, k)
		}
		if k, _, ok := right.Higher(s); ok {
			end = min(end, k)
		}
		if k, _, ok := center.Higher(s); ok {
			end = min(end, k)
		}
		sec := lane.NewSection(s)

		keyRight, nextRight, rightSec := sideKeys(right, s, length)
		for _, src := range rightSec.Lanes {
			if src.ID == 0 {
				continue
			}
			l := lane.New(src.ID, src.Type)
			l.Width = src.Width.Slice(s, end)
			if s != 0 {
				if s == keyRight {
					l.Predecessor = src.Predecessor
				} else {
					l.Predecessor = src.ID
				}
			}
			if end != length {
				if end == nextRight {
					l.Successor = src.Successor
				} else {
					l.Successor = src.ID
				}
			}
			sec.Lanes[l.ID] = l
		}

		median := lane.New(LeftIDStart, lane.TypeMedian)
		if p, ok := center.Poly(s); ok && p.Rebase(s).Magnitude() > medianTolerance {
			median.Width = center.Slice(s, end)
		}
		if s != 0 {
			median.Predecessor = LeftIDStart
		}
		if end != length {
			median.Successor = LeftIDStart
		}
		sec.Lanes[median.ID] = median

		keyLeft, nextLeft, leftSec := sideKeys(left, s, length)
		for _, src := range leftSec.Lanes {
			if src.ID == 0 {
				continue
			}
			id := src.ID + LeftIDStart
			l := lane.New(id, src.Type)
			l.Width = src.Width.Slice(s, end)
			if end != length {
				if end == nextLeft {
					if src.Predecessor != 0 {
						l.Predecessor = src.Predecessor + LeftIDStart
					}
				} else {
					l.Predecessor = id
				}
			}
			if s != 0 {
				if s == keyLeft {
					if src.Successor != 0 {
						l.Successor = src.Successor + LeftIDStart
					}
				} else {
					l.Successor = id
				}
			}
			sec.Lanes[l.ID] = l
		}
		merged.Set(s, sec)
	}
	return merged
}
