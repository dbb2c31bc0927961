package profile

import (
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/lane"
)

// Result 剖面生成结果
type Result struct {
	Sections      *Sections         // 合并后的车道段
	LaneOffset    *lane.CubicSpline // 车道偏移
	CenterWidth   *lane.CubicSpline // 中央分隔带宽度，单侧道路为nil
	BiDirectional bool
}

// Apply 由剖面生成道路横断面
// 功能：裁剪剖面到道路长度，分别转换两侧，再合并为统一的车道段序列
// 参数：lengthM-道路长度(m)
// 返回：生成结果，每次调用都产生全新的对象
// 说明：长度为0或两侧都不存在属于调用错误，直接panic
func (p *RoadProfile) Apply(lengthM float64) *Result {
	length := FromMeters(lengthM)
	if length == 0 {
		log.Panicf("apply profile: non-positive length %v", lengthM)
	}
	hasLeft, hasRight := p.HasSide(entity.LEFT), p.HasSide(entity.RIGHT)
	if !hasLeft && !hasRight {
		log.Panicf("apply profile: both sides are empty")
	}
	p.normalize(length)
	// 裁剪后可能有一侧消失
	hasLeft, hasRight = p.HasSide(entity.LEFT), p.HasSide(entity.RIGHT)

	lengthF := length.Meters()
	switch {
	case hasLeft && hasRight:
		leftSections, leftOffsets := ConvertSide(entity.LEFT, length, p.left)
		rightSections, rightOffsets := ConvertSide(entity.RIGHT, length, p.right)
		center := ComputeMedian(leftOffsets, rightOffsets, lengthF)
		return &Result{
			Sections:      MergeSides(leftSections, center, rightSections, lengthF),
			LaneOffset:    rightOffsets,
			CenterWidth:   center,
			BiDirectional: true,
		}
	case hasRight:
		sections, offsets := ConvertSide(entity.RIGHT, length, p.right)
		return &Result{Sections: sections, LaneOffset: offsets}
	default:
		sections, offsets := ConvertSide(entity.LEFT, length, p.left)
		return &Result{Sections: sections, LaneOffset: offsets}
	}
}
