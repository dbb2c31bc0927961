package junction

import (
	"errors"
	"fmt"
	"strings"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/lane"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/road"
)

// 接口道路方向匹配的余弦阈值
const providerCosThreshold = 0.9

// Direct 直接路口
// 功能：不生成连接道路，以一条接口道路为准，把其他道路的车道直接连接到接口道路的车道上（匝道分合流）
type Direct struct {
	base

	interfaceDir geometry.Point // 创建时记录的接口方向
}

// NewDirect 以接口道路的接入端创建直接路口
func NewDirect(id int32, roads *road.RoadManager, provider ConnectionInfo) (*Direct, error) {
	r, err := roads.GetOrError(provider.Road)
	if err != nil {
		return nil, err
	}
	j := &Direct{base: newBase(id, TypeDirect, roads), interfaceDir: r.ContactDir(provider.Contact)}
	j.self = j
	return j, nil
}

func dot(a, b geometry.Point) float64 {
	return a.X*b.X + a.Y*b.Y
}

// interfaceProvider 在接入集合中找方向与接口方向一致的唯一道路
func (j *Direct) interfaceProvider(infos []ConnectionInfo, roads []*road.Road) (int, error) {
	found := -1
	for i, info := range infos {
		if dot(j.interfaceDir, roads[i].ContactDir(info.Contact)) <= providerCosThreshold {
			continue
		}
		if found >= 0 {
			return -1, fmt.Errorf("junction %d: %w: both %v and %v match", j.id, ErrDirectNoProvider, infos[found], info)
		}
		found = i
	}
	if found < 0 {
		return -1, fmt.Errorf("junction %d: %w", j.id, ErrDirectNoProvider)
	}
	return found, nil
}

// linkLanes 按跳过数对齐两组车道
func linkLanes(provider, linked []*lane.Lane, skip int) ([]LaneLink, error) {
	if skip < 0 || skip+len(linked) > len(provider) {
		return nil, fmt.Errorf("%w: %d lanes skipping %d do not fit into %d provider lanes",
			ErrConnectionInvalidShape, len(linked), skip, len(provider))
	}
	return lo.Map(linked, func(l *lane.Lane, i int) LaneLink {
		return LaneLink{From: provider[i+skip].ID, To: l.ID}
	}), nil
}

// CreateFrom 由接入道路整体重建路口
// 功能：选出唯一的接口道路，其余道路的车道按SkipProviderLanes偏移后与接口道路车道一一连接：
// 被连接道路有驶出车道时生成分流连接，有驶入车道时生成合流连接（双向道路两者都有）
// 说明：全部校验通过后才写入
func (j *Direct) CreateFrom(infos []ConnectionInfo) error {
	sorted, roads, err := j.validate(infos)
	if err != nil {
		return err
	}
	pi, err := j.interfaceProvider(sorted, roads)
	if err != nil {
		return err
	}
	provider, providerRoad := sorted[pi], roads[pi]

	var (
		connections []*Connection
		errs        []error
	)
	for i, info := range sorted {
		if i == pi {
			continue
		}
		linked := roads[i]
		conn := &Connection{
			ID:             int32(len(connections)),
			IncomingRoad:   provider.Road,
			ConnectingRoad: info.Road,
			Contact:        info.Contact,
		}
		// 分流：接口道路驶入 -> 被连接道路驶出
		if out := linked.ExitingLanes(info.Contact); len(out) > 0 {
			links, err := linkLanes(providerRoad.EnteringLanes(provider.Contact), out, info.SkipProviderLanes)
			if err != nil {
				errs = append(errs, fmt.Errorf("junction %d split %v: %w", j.id, info, err))
			}
			conn.LaneLinks = append(conn.LaneLinks, links...)
		}
		// 合流：被连接道路驶入 -> 接口道路驶出
		if in := linked.EnteringLanes(info.Contact); len(in) > 0 {
			links, err := linkLanes(providerRoad.ExitingLanes(provider.Contact), in, info.SkipProviderLanes)
			if err != nil {
				errs = append(errs, fmt.Errorf("junction %d merge %v: %w", j.id, info, err))
			}
			conn.LaneLinks = append(conn.LaneLinks, links...)
		}
		connections = append(connections, conn)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	j.commit(sorted, roads, connections)
	log.Debugf("direct junction %d created from %d roads, provider %v", j.id, len(sorted), provider)
	return nil
}

func (j *Direct) clearGenerated() {}

// ConnectingRoads 直接路口没有连接道路
func (j *Direct) ConnectingRoads() []int32 { return nil }

func (j *Direct) trafficLight() ITrafficLight { return nil }

// Provider 当前的接口道路
func (j *Direct) Provider() (ConnectionInfo, bool) {
	if len(j.formedFrom) == 0 {
		return ConnectionInfo{}, false
	}
	roads := lo.Map(j.formedFrom, func(info ConnectionInfo, _ int) *road.Road { return j.roads.Get(info.Road) })
	i, err := j.interfaceProvider(j.formedFrom, roads)
	if err != nil {
		return ConnectionInfo{}, false
	}
	return j.formedFrom[i], true
}

// GetTurningSemanticsForIncoming 车道在本路口有连接时返回0，否则为DeadEnd
func (j *Direct) GetTurningSemanticsForIncoming(roadID, laneID int32) Turning {
	for _, c := range j.connections {
		for _, ll := range c.LaneLinks {
			if (c.IncomingRoad == roadID && ll.From == laneID) || (c.ConnectingRoad == roadID && ll.To == laneID) {
				return 0
			}
		}
	}
	return DeadEnd
}

// Log 路口的文字描述
func (j *Direct) Log() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Direct Junction %d\n", j.id)
	provider, ok := j.Provider()
	if !ok {
		sb.WriteString("     Error: Invalid Interface provider!\n")
		return sb.String()
	}
	for _, info := range j.formedFrom {
		typ := "Linked"
		if info.key() == provider.key() {
			typ = "Interface"
		}
		fmt.Fprintf(&sb, "    %s %d connected at %v\n", typ, info.Road, info.Contact)
	}
	j.logConnections(&sb)
	return sb.String()
}
