package entity

import "fmt"

// 方位常量，与车道ID符号一致
const (
	RIGHT = -1 // 右侧（车道ID为负）
	LEFT  = 1  // 左侧（车道ID为正）
)

// ContactPoint 道路与路口的接触端
type ContactPoint int

const (
	ContactStart ContactPoint = iota // 道路起点(s=0)
	ContactEnd                       // 道路终点(s=length)
)

// Flip 道路反向后的接触端
func (c ContactPoint) Flip() ContactPoint {
	if c == ContactStart {
		return ContactEnd
	}
	return ContactStart
}

func (c ContactPoint) String() string {
	if c == ContactStart {
		return "start"
	}
	return "end"
}

// LinkType 道路前驱/后继的连接对象类型
type LinkType int

const (
	LinkNone LinkType = iota
	LinkRoad
	LinkJunction
)

// RoadLink 道路端点的连接关系
type RoadLink struct {
	Type    LinkType
	ID      int32        // 道路或路口ID
	Contact ContactPoint // 连接到道路时，对方道路的接触端
}

func (l RoadLink) String() string {
	switch l.Type {
	case LinkRoad:
		return fmt.Sprintf("road %d(%v)", l.ID, l.Contact)
	case LinkJunction:
		return fmt.Sprintf("junction %d", l.ID)
	default:
		return "none"
	}
}

// ChangeType 道路变化的类型，路口据此决定重新生成的方式
type ChangeType int

const (
	ChangeOthers          ChangeType = iota // 几何或剖面变化
	ChangeReverse                           // 道路被反向
	ChangeDetachAtEndTemp                   // 临时断开终点（编辑拖动中）
)

// ChangeDetail 一次道路变化
type ChangeDetail struct {
	Type    ChangeType
	Subject int32 // 发生变化的道路ID
}
