package profile

import (
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/lane"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/utils/container"
)

// Sections 按S0索引的车道段
type Sections = container.SortedMap[float64, *lane.LaneSection]

// TransitionInfo 一个断点处的过渡信息（行驶方向坐标）
type TransitionInfo struct {
	CumulativeS     Pos
	OldCenter2      HalfWidth
	NewCenter2      HalfWidth
	StartLanes      int
	NewLanesOnLeft  int // 左边缘新增(>0)或消失(<0)的车道数
	NewLanesOnRight int // 右边缘新增(>0)或消失(<0)的车道数
	HalfLength      Pos
}

// splitLaneDelta 将车道数变化分配到左右两个边缘
// 说明：消失的车道逐条分给“收缩量”更大的一边，新增的车道逐条分给“扩张量”更大的一边，相等时归右侧
func splitLaneDelta(pre, cur SectionProfile, rightSide bool) (onLeft, onRight int) {
	sign := 1
	if !rightSide {
		sign = -1
	}
	preOff, curOff := sign*int(pre.OffsetX2), sign*int(cur.OffsetX2)
	preN, curN := int(pre.LaneCount), int(cur.LaneCount)
	switch {
	case curN < preN:
		leftRed := preOff - curOff
		rightRed := (curOff - curN*2) - (preOff - preN*2)
		for i := 0; i < preN-curN; i++ {
			if leftRed > rightRed {
				onLeft--
				leftRed -= 2
			} else {
				onRight--
				rightRed -= 2
			}
		}
	case curN > preN:
		leftExp := curOff - preOff
		rightExp := (preOff - preN*2) - (curOff - curN*2)
		for i := 0; i < curN-preN; i++ {
			if leftExp > rightExp {
				onLeft++
				leftExp -= 2
			} else {
				onRight++
				rightExp -= 2
			}
		}
	}
	return
}

// uniformTimeline 将一侧时间线换算到行驶方向坐标并吸附端点附近的断点
func uniformTimeline(side int, length Pos, timeline *Timeline) *Timeline {
	out := container.NewSortedMap[Pos, SectionProfile]()
	keep := func(s Pos, p SectionProfile) {
		if s < ProfileMinLengthCM {
			s = 0
		}
		if s == 0 || int64(s) < int64(length)-int64(ProfileMinLengthCM) {
			out.Set(s, p)
		}
	}
	// 按行驶方向遍历，吸附到同一位置时后出现的剖面覆盖前者
	if side == entity.LEFT {
		timeline.RangeReverse(func(k Pos, p SectionProfile) bool {
			keep(length-min(k, length), p)
			return true
		})
	} else {
		timeline.Range(func(k Pos, p SectionProfile) bool {
			keep(k, p)
			return true
		})
	}
	return out
}

// Transitions 计算一侧时间线的过渡信息，首尾为位于0与length的哑元
func Transitions(side int, length Pos, timeline *Timeline) []TransitionInfo {
	rightSide := side != entity.LEFT
	profiles := uniformTimeline(side, length, timeline)
	if profiles.Len() == 0 {
		log.Panicf("convert side %d: empty profile", side)
	}
	_, first, _ := profiles.First()
	if first.LaneCount == 0 {
		log.Panicf("convert side %d: zero lane count at entry", side)
	}
	transitions := []TransitionInfo{{
		CumulativeS: 0,
		OldCenter2:  first.OffsetX2,
		NewCenter2:  first.OffsetX2,
		StartLanes:  int(first.LaneCount),
	}}
	last := first
	for i := 1; i < profiles.Len(); i++ {
		_, pre := profiles.At(i - 1)
		s, cur := profiles.At(i)
		if cur.LaneCount == 0 || pre.LaneCount == 0 {
			log.Panicf("convert side %d: zero lane count at %d", side, s)
		}
		onLeft, onRight := splitLaneDelta(pre, cur, rightSide)
		transitions = append(transitions, TransitionInfo{
			CumulativeS:     s,
			OldCenter2:      pre.OffsetX2,
			NewCenter2:      cur.OffsetX2,
			StartLanes:      int(pre.LaneCount),
			NewLanesOnLeft:  onLeft,
			NewLanesOnRight: onRight,
		})
		last = cur
	}
	transitions = append(transitions, TransitionInfo{
		CumulativeS: length,
		OldCenter2:  last.OffsetX2,
		NewCenter2:  last.OffsetX2,
		StartLanes:  int(last.LaneCount),
	})
	for i := 1; i+1 < len(transitions); i++ {
		preLength := transitions[i].CumulativeS - transitions[i-1].CumulativeS
		nextLength := transitions[i+1].CumulativeS - transitions[i].CumulativeS
		transitions[i].HalfLength = min(preLength/2, nextLength/2, MaxTransitionS)
	}
	return transitions
}

// ConvertSide 单侧剖面转换
// 功能：把一侧稀疏的车道数/偏移断点转换为车道段序列与车道偏移多项式
// 参数：side-entity.LEFT/RIGHT，length-道路长度，timeline-该侧剖面时间线
// 返回：按参考线S0索引的车道段，车道偏移分段多项式
// 算法说明：
// 1. 将断点换算为行驶方向坐标，吸附过于靠近端点的断点
// 2. 计算每个断点的车道增减分配与过渡段半长
// 3. 按行驶方向依次生成过渡段（左边缘变宽度车道、中间等宽车道、右边缘变宽度车道）与直行段
// 4. 按车道对齐关系连接前驱后继；长度为0的直行段暂存，待下一个过渡段生成后再连接
func ConvertSide(side int, length Pos, timeline *Timeline) (*Sections, *lane.CubicSpline) {
	rightSide := side != entity.LEFT
	mult := int32(1)
	if rightSide {
		mult = -1
	}
	transitions := Transitions(side, length, timeline)

	sections := container.NewSortedMap[float64, *lane.LaneSection]()
	offsets := lane.NewCubicSpline()

	var (
		lastStored *lane.LaneSection // 最近一个已保存的车道段
		pending    *lane.LaneSection // 长度为0、未保存的直行段
	)
	store := func(start, end Pos, sec *lane.LaneSection) {
		s0, _ := toReference(start, end, rightSide, length)
		sec.S0 = s0.Meters()
		sections.Set(sec.S0, sec)
		lastStored = sec
	}
	addLane := func(sec *lane.LaneSection, absID int, width lane.Poly3) {
		l := lane.New(mult*int32(absID), lane.TypeDriving)
		l.Width.Add(width)
		sec.Lanes[l.ID] = l
	}

	for i, tr := range transitions {
		tranS := tr.CumulativeS - tr.HalfLength
		straightS := tr.CumulativeS + tr.HalfLength
		nextTranS := length
		if i+1 < len(transitions) {
			next := transitions[i+1]
			nextTranS = next.CumulativeS - next.HalfLength
		}
		onLeft, onRight := tr.NewLanesOnLeft, tr.NewLanesOnRight

		var transition *lane.LaneSection
		if tr.CumulativeS != 0 && tr.CumulativeS != length {
			offsets.Add(MakeTransition(tranS, straightS, tr.OldCenter2, tr.NewCenter2, rightSide, length))

			varyWidth := func(grow bool) lane.Poly3 {
				if grow {
					return MakeTransition(tranS, straightS, 0, 2, rightSide, length)
				}
				return MakeTransition(tranS, straightS, 2, 0, rightSide, length)
			}
			constWidth := MakeStraight(tranS, straightS, 2, rightSide, length)

			transition = lane.NewSection(0)
			id := 1
			for k := 0; k < abs(onLeft); k++ {
				addLane(transition, id, varyWidth(onLeft > 0))
				id++
			}
			for k := 0; k < min(tr.StartLanes, tr.StartLanes+onLeft+onRight); k++ {
				addLane(transition, id, constWidth)
				id++
			}
			for k := 0; k < abs(onRight); k++ {
				addLane(transition, id, varyWidth(onRight > 0))
				id++
			}

			// 连接上一段：旧车道k对应过渡段车道k+max(0, onLeft)
			shift := int32(max(0, onLeft))
			if pending != nil {
				for _, straightLane := range pending.Lanes {
					if straightLane.ID == 0 {
						continue
					}
					toID := mult * (abs32(straightLane.ID) + shift)
					to, ok := transition.Lanes[toID]
					if !ok {
						continue
					}
					to.Predecessor = straightLane.Predecessor
					if straightLane.Predecessor != 0 && lastStored != nil {
						if from, ok := lastStored.Lanes[straightLane.Predecessor]; ok {
							from.Successor = toID
						}
					}
				}
			} else if lastStored != nil {
				for _, prevLane := range lastStored.Lanes {
					if prevLane.ID == 0 {
						continue
					}
					toID := mult * (abs32(prevLane.ID) + shift)
					if to, ok := transition.Lanes[toID]; ok {
						prevLane.Successor = toID
						to.Predecessor = prevLane.ID
					}
				}
			}
			store(tranS, straightS, transition)
			pending = nil
		}

		straight := lane.NewSection(0)
		count := tr.StartLanes + onLeft + onRight
		constWidth := MakeStraight(straightS, nextTranS, 2, rightSide, length)
		// 过渡段车道k+max(0, -onLeft)对应直行段车道k
		shift := int32(max(0, -onLeft))
		for k := 1; k <= count; k++ {
			addLane(straight, k, constWidth)
			if transition != nil {
				straight.Lanes[mult*int32(k)].Predecessor = mult * (int32(k) + shift)
			}
		}
		if straightS != nextTranS {
			if transition != nil {
				for k := 1; k <= count; k++ {
					if from, ok := transition.Lanes[mult*(int32(k)+shift)]; ok {
						from.Successor = mult * int32(k)
					}
				}
			}
			offsets.Add(MakeStraight(straightS, nextTranS, tr.NewCenter2, rightSide, length))
			store(straightS, nextTranS, straight)
			pending = nil
		} else if transition != nil {
			pending = straight
		}
	}
	return sections, offsets
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func abs32(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}
