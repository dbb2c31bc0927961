package junction

import (
	"errors"
	"fmt"
	"sort"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/road"
)

// JunctionManager Junction管理器
// 功能：管理所有路口，把道路的变化分发给相关路口，移除已解散的路口
type JunctionManager struct {
	roads *road.RoadManager

	data   map[int32]Junction
	nextID int32

	secondsPerPhase float64
}

// NewManager 创建Junction管理器实例
// 参数：roads-道路管理器，secondsPerPhase-生成信控的相位时长，<=0时使用默认值
func NewManager(roads *road.RoadManager, secondsPerPhase float64) *JunctionManager {
	return &JunctionManager{
		roads:           roads,
		data:            make(map[int32]Junction),
		nextID:          1,
		secondsPerPhase: secondsPerPhase,
	}
}

// register 路口生成成功后才占用ID
func (m *JunctionManager) register(j Junction, err error) (Junction, error) {
	if err != nil {
		return nil, err
	}
	m.data[j.ID()] = j
	m.nextID++
	return j, nil
}

// CreateCommon 由接入道路创建普通路口，失败时不产生任何修改
func (m *JunctionManager) CreateCommon(infos []ConnectionInfo) (Junction, error) {
	j := NewCommon(m.nextID, m.roads, m.secondsPerPhase)
	return m.register(j, j.CreateFrom(infos))
}

// CreateDirect 以provider为接口道路创建直接路口，infos需包含provider
func (m *JunctionManager) CreateDirect(provider ConnectionInfo, infos []ConnectionInfo) (Junction, error) {
	j, err := NewDirect(m.nextID, m.roads, provider)
	if err != nil {
		return nil, err
	}
	return m.register(j, j.CreateFrom(infos))
}

// Get 根据ID获取Junction实例，不存在则panic
func (m *JunctionManager) Get(id int32) Junction {
	if junction, ok := m.data[id]; !ok {
		log.Panicf("no id %d in junction data", id)
		return nil
	} else {
		return junction
	}
}

// GetOrError 根据ID获取Junction实例（带错误处理）
func (m *JunctionManager) GetOrError(id int32) (Junction, error) {
	if junction, ok := m.data[id]; !ok {
		return nil, fmt.Errorf("no id %d in junction data", id)
	} else {
		return junction, nil
	}
}

// All 按ID升序的全部路口
func (m *JunctionManager) All() []Junction {
	junctions := lo.Values(m.data)
	sort.Slice(junctions, func(i, j int) bool { return junctions[i].ID() < junctions[j].ID() })
	return junctions
}

// Len 路口数量
func (m *JunctionManager) Len() int {
	return len(m.data)
}

// Remove 解散并移除路口
func (m *JunctionManager) Remove(id int32) {
	if j, ok := m.data[id]; ok {
		j.dissolve()
		delete(m.data, id)
	}
}

// attachedTo 接入了某条道路的路口
func (m *JunctionManager) attachedTo(roadID int32) []Junction {
	return lo.Filter(m.All(), func(j Junction, _ int) bool {
		return lo.ContainsBy(j.FormedFrom(), func(info ConnectionInfo) bool { return info.Road == roadID })
	})
}

func (m *JunctionManager) sweep() {
	for id, j := range m.data {
		if j.Dissolved() {
			delete(m.data, id)
		}
	}
}

// NotifyRoadChange 把道路变化通知给接入该道路的路口，并移除解散的路口
func (m *JunctionManager) NotifyRoadChange(detail entity.ChangeDetail) error {
	var errs []error
	for _, j := range m.attachedTo(detail.Subject) {
		if err := j.NotifyPotentialChange(detail); err != nil {
			errs = append(errs, err)
		}
	}
	m.sweep()
	return errors.Join(errs...)
}

// ReverseRoad 反向道路并通知路口
func (m *JunctionManager) ReverseRoad(roadID int32) error {
	r, err := m.roads.GetOrError(roadID)
	if err != nil {
		return err
	}
	r.Reverse()
	return m.NotifyRoadChange(entity.ChangeDetail{Type: entity.ChangeReverse, Subject: roadID})
}

// RemoveRoad 移除道路并通知路口
func (m *JunctionManager) RemoveRoad(roadID int32) error {
	if !m.roads.Has(roadID) {
		return fmt.Errorf("no id %d in road data", roadID)
	}
	affected := m.attachedTo(roadID)
	m.roads.Remove(roadID)
	var errs []error
	for _, j := range affected {
		if err := j.NotifyPotentialChange(entity.ChangeDetail{Type: entity.ChangeOthers, Subject: roadID}); err != nil {
			errs = append(errs, err)
		}
	}
	m.sweep()
	return errors.Join(errs...)
}

// Degenerate 路口退化为一条道路，并修正道路另一端路口的接入记录
func (m *JunctionManager) Degenerate(id int32) (int32, error) {
	j, err := m.GetOrError(id)
	if err != nil {
		return 0, err
	}
	// 合并前记录两条道路另一端的路口
	far := func(roadID int32, contact entity.ContactPoint) Junction {
		key := connKey{road: roadID, contact: contact}
		for _, other := range m.attachedTo(roadID) {
			matches := lo.ContainsBy(other.FormedFrom(), func(info ConnectionInfo) bool { return info.key() == key })
			if other.ID() != id && matches {
				return other
			}
		}
		return nil
	}
	infos := j.FormedFrom()
	if len(infos) != 2 {
		return 0, fmt.Errorf("junction %d: %w", id, ErrCannotDegenerate)
	}
	keptFar := far(infos[0].Road, infos[0].Contact.Flip())
	removedFar := far(infos[1].Road, infos[1].Contact.Flip())

	res, err := j.Degenerate()
	if err != nil {
		return 0, err
	}
	delete(m.data, id)

	var errs []error
	if removedFar != nil {
		from := connKey{road: res.Removed, contact: res.RemovedFar}
		if err := removedFar.replaceRoad(from, connKey{road: res.Kept, contact: entity.ContactEnd}); err != nil {
			errs = append(errs, err)
		}
	}
	if keptFar != nil && res.KeptFarBefore != entity.ContactStart {
		from := connKey{road: res.Kept, contact: res.KeptFarBefore}
		if err := keptFar.replaceRoad(from, connKey{road: res.Kept, contact: entity.ContactStart}); err != nil {
			errs = append(errs, err)
		}
	} else if keptFar != nil {
		if err := keptFar.NotifyPotentialChange(entity.ChangeDetail{Type: entity.ChangeOthers, Subject: res.Kept}); err != nil {
			errs = append(errs, err)
		}
	}
	m.sweep()
	return res.Kept, errors.Join(errs...)
}

// Prepare 把信控结果写入车道
func (m *JunctionManager) Prepare() {
	lights := m.lights()
	parallel.GoFor(lights, func(l ITrafficLight) { l.Prepare() })
}

// Update 推进所有信控
func (m *JunctionManager) Update(dt float64) {
	lights := m.lights()
	parallel.GoFor(lights, func(l ITrafficLight) { l.Update(dt) })
}

func (m *JunctionManager) lights() []ITrafficLight {
	return lo.FilterMap(m.All(), func(j Junction, _ int) (ITrafficLight, bool) {
		l := j.trafficLight()
		return l, l != nil
	})
}

// TrafficLight 路口的信号灯，没有信控时返回错误
func (m *JunctionManager) TrafficLight(id int32) (ITrafficLight, error) {
	j, err := m.GetOrError(id)
	if err != nil {
		return nil, err
	}
	if l := j.trafficLight(); l != nil {
		return l, nil
	}
	return nil, ErrDisabledTrafficLight
}
