package junction

import (
	"errors"
	"fmt"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity"
)

var (
	ErrDuplicateConn          = errors.New("road attached to the junction twice")
	ErrDirectNoProvider       = errors.New("direct junction has no unique interface provider")
	ErrConnectionInvalidShape = errors.New("junction connection has invalid shape")
	ErrCannotDegenerate       = errors.New("junction cannot degenerate")
	ErrDisabledTrafficLight   = errors.New("traffic light is disabled for the junction")
)

// Type 路口类型
type Type int

const (
	TypeCommon Type = iota // 生成连接道路的普通路口
	TypeDirect             // 直接连接车道的路口（匝道分合流）
)

func (t Type) String() string {
	if t == TypeDirect {
		return "direct"
	}
	return "common"
}

// Turning 驶入车道的转向语义（位标志）
type Turning uint8

const (
	TurnU Turning = 1 << iota
	TurnLeft
	TurnRight
	TurnNo
	DeadEnd
)

// ConnectionInfo 道路接入路口的方式
// 说明：相等性只看(Road, Contact)
type ConnectionInfo struct {
	Road              int32
	Contact           entity.ContactPoint
	SkipProviderLanes int // 仅直接路口使用：跳过接口道路的内侧车道数
}

type connKey struct {
	road    int32
	contact entity.ContactPoint
}

func (c ConnectionInfo) key() connKey {
	return connKey{road: c.Road, contact: c.Contact}
}

func (c ConnectionInfo) String() string {
	return fmt.Sprintf("%d@%v", c.Road, c.Contact)
}

// LaneLink 车道连接
// 说明：From为IncomingRoad上的车道，To为ConnectingRoad上的车道
type LaneLink struct {
	From, To    int32
	OverlapZone float64
}

// Connection 路口连接记录
type Connection struct {
	ID             int32
	IncomingRoad   int32
	ConnectingRoad int32               // 普通路口为连接道路，直接路口为被连接的道路
	Contact        entity.ContactPoint // ConnectingRoad接入路口的端点
	LaneLinks      []LaneLink
	SignalPhases   []int
}

// ITrafficLight 信号灯接口
type ITrafficLight interface {
	Get() *mapv2.TrafficLight // 当前程序
	Step() int32              // 当前相位
	RemainingTime() float64   // 当前相位剩余时长
	Ok() bool                 // 当前信控开关情况

	Prepare()          // 将信控结果写入到lane中
	Update(dt float64) // 更新信控结果

	Set(tl *mapv2.TrafficLight) error             // 修改信控程序
	Unset()                                       // 删除信控程序（全绿）
	SetPhase(offset int32, remainingTime float64) // 修改信控相位到指定值
	SetOk(ok bool)                                // 设置信控开关情况
}

// Junction 路口
type Junction interface {
	ID() int32
	Type() Type
	// CreateFrom 由接入道路集合整体重建路口
	CreateFrom(infos []ConnectionInfo) error
	// Attach 再接入一条道路
	Attach(info ConnectionInfo) error
	// NotifyPotentialChange 接入道路可能发生变化
	NotifyPotentialChange(detail entity.ChangeDetail) error
	CanDegenerate() bool
	// Degenerate 两条道路的路口退化为一条道路
	Degenerate() (DegenerateResult, error)
	GetTurningSemanticsForIncoming(roadID, laneID int32) Turning
	FormedFrom() []ConnectionInfo
	Connections() []*Connection
	ConnectingRoads() []int32
	Elevation() float64
	Dissolved() bool
	Log() string

	trafficLight() ITrafficLight
	clearGenerated()
	dissolve()
	replaceRoad(from, to connKey) error
}

// DegenerateResult 路口退化的结果
type DegenerateResult struct {
	Kept    int32 // 合并后保留的道路
	Removed int32 // 被合并并移除的道路
	// 被移除道路的另一端、保留道路的另一端在合并前后的接触端
	RemovedFar, KeptFarBefore entity.ContactPoint
}
