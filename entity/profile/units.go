package profile

import "math"

// Pos 纵向位置，定点数，单位厘米
type Pos uint32

// HalfWidth 横向偏移/宽度，单位为半个车道宽
type HalfWidth int8

const (
	// LaneWidth 标准车道宽度(m)
	LaneWidth = 3.25
	// MaxTransitionS 过渡段半长的上限
	MaxTransitionS Pos = 2000
	// ProfileMinLengthCM 剖面断点的吸附容差，离道路端点更近的断点被并入端点
	ProfileMinLengthCM Pos = 100
	// LeftEntryKey 左侧时间线的入口键（道路终点，长度未知时的占位）
	LeftEntryKey Pos = math.MaxUint32
	// LeftIDStart 合并两侧时左侧车道ID的偏移量，ID 1 留给中央分隔带
	LeftIDStart int32 = 1

	// 中央分隔带宽度多项式的去重/存在阈值
	medianTolerance = 1e-3
)

// Meters 转换为米
func (p Pos) Meters() float64 {
	return float64(p) / 100
}

// FromMeters 米转换为定点位置（向下取整，负数截断为0）
func FromMeters(l float64) Pos {
	if l <= 0 {
		return 0
	}
	return Pos(math.Floor(l * 100))
}

// Meters 转换为米
func (h HalfWidth) Meters() float64 {
	return float64(h) / 2 * LaneWidth
}
