package profile

import (
	"errors"
	"fmt"

	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/utils/container"
)

var (
	ErrInvalidRange = errors.New("invalid overwrite range")
	ErrZeroLanes    = errors.New("a present side must have at least one lane")
	ErrEmptySide    = errors.New("cannot overwrite a side without lanes")
)

// SectionProfile 横断面剖面
// 说明：OffsetX2为车道组内侧边缘相对参考线的偏移（半车道宽单位，向左为正）
type SectionProfile struct {
	OffsetX2  HalfWidth
	LaneCount uint8
}

func (p SectionProfile) String() string {
	return fmt.Sprintf("{lanes=%d offsetX2=%d}", p.LaneCount, p.OffsetX2)
}

// Timeline 单侧剖面时间线，键为纵向位置
type Timeline = container.SortedMap[Pos, SectionProfile]

// Section 时间线上的一个区间，Start/End为行驶方向（左侧Start > End）
type Section struct {
	Start, End Pos
	Profile    SectionProfile
}

// RoadProfile 道路剖面
// 功能：保存道路两侧稀疏的车道数/偏移断点，是道路几何生成的唯一输入
// 说明：
// 右侧键沿参考线方向递增，剖面在[键, 下一个键)内有效。
// 左侧键同样是参考线坐标，但按行驶方向（s递减）理解：剖面在(上一个更小的键, 键]内有效，入口处的键为LeftEntryKey。
// 只能通过OverwriteSection修改，每次修改后合并相邻的相同剖面。
type RoadProfile struct {
	left  *Timeline
	right *Timeline
}

// New 创建道路剖面，车道数为0的一侧视为不存在
func New(nLeft uint8, offsetLeft HalfWidth, nRight uint8, offsetRight HalfWidth) *RoadProfile {
	p := &RoadProfile{
		left:  container.NewSortedMap[Pos, SectionProfile](),
		right: container.NewSortedMap[Pos, SectionProfile](),
	}
	if nLeft != 0 {
		p.left.Set(LeftEntryKey, SectionProfile{OffsetX2: offsetLeft, LaneCount: nLeft})
	}
	if nRight != 0 {
		p.right.Set(0, SectionProfile{OffsetX2: offsetRight, LaneCount: nRight})
	}
	return p
}

func (p *RoadProfile) timeline(side int) *Timeline {
	if side == entity.LEFT {
		return p.left
	}
	return p.right
}

// HasSide 该侧是否存在
func (p *RoadProfile) HasSide(side int) bool {
	return p.timeline(side).Len() > 0
}

// Keys 某一侧的断点与剖面（升序，副本）
func (p *RoadProfile) Keys(side int) ([]Pos, []SectionProfile) {
	t := p.timeline(side)
	keys := t.Keys()
	profiles := make([]SectionProfile, len(keys))
	for i, k := range keys {
		profiles[i], _ = t.Get(k)
	}
	return keys, profiles
}

// OverwriteSection 覆盖一段区间的剖面
// 功能：将行驶方向上[start, end)设为给定剖面，end之后保持原有剖面
// 参数：side-entity.LEFT/RIGHT，start,end-参考线坐标（右侧start<end，左侧start>end）
// 返回：区间非法、车道数为0或该侧不存在时返回错误，不修改剖面
func (p *RoadProfile) OverwriteSection(side int, start, end Pos, laneCount uint8, offsetX2 HalfWidth) error {
	if laneCount == 0 {
		return ErrZeroLanes
	}
	t := p.timeline(side)
	if t.Len() == 0 {
		return ErrEmptySide
	}
	var (
		existing  SectionProfile
		found     bool
		low, high Pos
	)
	if side == entity.LEFT {
		if start <= end {
			return fmt.Errorf("%w: left side needs start > end, got [%d, %d]", ErrInvalidRange, start, end)
		}
		_, existing, found = t.Ceil(end)
		low, high = end, start
	} else {
		if start >= end {
			return fmt.Errorf("%w: right side needs start < end, got [%d, %d]", ErrInvalidRange, start, end)
		}
		_, existing, found = t.Floor(end)
		low, high = start, end
	}
	t.Set(start, SectionProfile{OffsetX2: offsetX2, LaneCount: laneCount})
	t.DeleteIf(func(k Pos, _ SectionProfile) bool { return k > low && k < high })
	if found {
		t.Set(end, existing)
	}
	p.removeRedundantKeys(side)
	return nil
}

// removeRedundantKeys 按行驶方向合并相邻的相同剖面
func (p *RoadProfile) removeRedundantKeys(side int) {
	t := p.timeline(side)
	var (
		prev    SectionProfile
		hasPrev bool
		dup     []Pos
	)
	visit := func(k Pos, v SectionProfile) bool {
		if hasPrev && v == prev {
			dup = append(dup, k)
		}
		prev, hasPrev = v, true
		return true
	}
	if side == entity.LEFT {
		t.RangeReverse(visit)
	} else {
		t.Range(visit)
	}
	for _, k := range dup {
		t.Delete(k)
	}
}

// LeftEntrance 左侧入口（道路终点处）的剖面，不存在时为零值
func (p *RoadProfile) LeftEntrance() SectionProfile {
	_, v, _ := p.left.Last()
	return v
}

// LeftExit 左侧出口（道路起点处）的剖面
func (p *RoadProfile) LeftExit() SectionProfile {
	_, v, _ := p.left.First()
	return v
}

// RightEntrance 右侧入口（道路起点处）的剖面
func (p *RoadProfile) RightEntrance() SectionProfile {
	_, v, _ := p.right.First()
	return v
}

// RightExit 右侧出口（道路终点处）的剖面
func (p *RoadProfile) RightExit() SectionProfile {
	_, v, _ := p.right.Last()
	return v
}

// GetAllSections 按行驶方向列出某一侧的全部区间
func (p *RoadProfile) GetAllSections(length Pos, side int) []Section {
	keys, profiles := p.Keys(side)
	out := make([]Section, 0, len(keys))
	if side == entity.LEFT {
		for i := len(keys) - 1; i >= 0; i-- {
			start := min(keys[i], length)
			end := Pos(0)
			if i > 0 {
				end = keys[i-1]
			}
			if start > end {
				out = append(out, Section{Start: start, End: end, Profile: profiles[i]})
			}
		}
		return out
	}
	for i, k := range keys {
		end := length
		if i+1 < len(keys) {
			end = min(keys[i+1], length)
		}
		if k < end {
			out = append(out, Section{Start: k, End: end, Profile: profiles[i]})
		}
	}
	return out
}

// normalize 将剖面裁剪到道路长度
// 说明：右侧删除超出长度的键；左侧把离终点2cm以内（含）首个键的剖面移到入口键，
// 并删除起点键与其余超出长度的键
func (p *RoadProfile) normalize(length Pos) {
	p.right.DeleteIf(func(k Pos, _ SectionProfile) bool { return k >= length })
	if p.left.Len() == 0 {
		return
	}
	threshold := Pos(0)
	if length > 2 {
		threshold = length - 2
	}
	_, entry, ok := p.left.Ceil(threshold)
	if !ok {
		log.Panicf("left profile has no entry key beyond %d", threshold)
	}
	p.left.DeleteIf(func(k Pos, _ SectionProfile) bool { return k == 0 || k >= threshold })
	p.left.Set(LeftEntryKey, entry)
	p.removeRedundantKeys(entity.LEFT)
}

// Clone 深拷贝
func (p *RoadProfile) Clone() *RoadProfile {
	return &RoadProfile{left: p.left.Clone(), right: p.right.Clone()}
}

// Reverse 道路反向后的剖面
// 功能：左右两侧互换，键镜像到新的参考线坐标，偏移取反
// 参数：length-道路长度
func (p *RoadProfile) Reverse(length Pos) *RoadProfile {
	c := p.Clone()
	c.normalize(length)
	r := New(0, 0, 0, 0)
	c.left.Range(func(k Pos, v SectionProfile) bool {
		r.right.Set(length-min(k, length), SectionProfile{OffsetX2: -v.OffsetX2, LaneCount: v.LaneCount})
		return true
	})
	c.right.Range(func(k Pos, v SectionProfile) bool {
		key := LeftEntryKey
		if k != 0 {
			key = length - k
		}
		r.left.Set(key, SectionProfile{OffsetX2: -v.OffsetX2, LaneCount: v.LaneCount})
		return true
	})
	r.removeRedundantKeys(entity.LEFT)
	r.removeRedundantKeys(entity.RIGHT)
	return r
}

// Concat 首尾拼接两条道路的剖面，a的终点接b的起点
func Concat(a *RoadProfile, lengthA Pos, b *RoadProfile, lengthB Pos) *RoadProfile {
	ac, bc := a.Clone(), b.Clone()
	ac.normalize(lengthA)
	bc.normalize(lengthB)
	r := New(0, 0, 0, 0)
	ac.right.Range(func(k Pos, v SectionProfile) bool {
		r.right.Set(k, v)
		return true
	})
	bc.right.Range(func(k Pos, v SectionProfile) bool {
		r.right.Set(k+lengthA, v)
		return true
	})
	ac.left.Range(func(k Pos, v SectionProfile) bool {
		r.left.Set(min(k, lengthA), v)
		return true
	})
	bc.left.Range(func(k Pos, v SectionProfile) bool {
		if k != LeftEntryKey {
			k += lengthA
		}
		r.left.Set(k, v)
		return true
	})
	r.removeRedundantKeys(entity.LEFT)
	r.removeRedundantKeys(entity.RIGHT)
	return r
}
