package road

import (
	"fmt"
	"sort"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-roadgen/entity/profile"
)

// Params 道路创建参数
type Params struct {
	ID      int32 // 0表示自动分配
	Name    string
	RefLine RefLine
	Profile *profile.RoadProfile
}

// RoadManager Road管理器
// 功能：以稳定ID为键保存全部道路，路口等其他实体只保存道路ID
type RoadManager struct {
	data   map[int32]*Road
	nextID int32
}

// NewManager 创建Road管理器实例
func NewManager() *RoadManager {
	return &RoadManager{
		data:   make(map[int32]*Road),
		nextID: 1,
	}
}

// Init 批量创建道路
// 功能：并行生成各条道路的几何，然后建立ID映射
// 参数：params-道路创建参数
// 说明：道路之间相互独立，可以并行生成；显式ID与已有道路或同批次重复时panic
func (m *RoadManager) Init(params []Params) []*Road {
	seen := make(map[int32]struct{}, len(params))
	for _, p := range params {
		if p.ID == 0 {
			continue
		}
		if _, ok := m.data[p.ID]; ok {
			log.Panicf("duplicate road id %d", p.ID)
		}
		if _, ok := seen[p.ID]; ok {
			log.Panicf("duplicate road id %d in batch", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	for id := range seen {
		m.nextID = max(m.nextID, id+1)
	}
	for i := range params {
		if params[i].ID == 0 {
			params[i].ID = m.allocID()
		}
	}
	roads := parallel.GoMap(params, func(s Params) *Road {
		return New(s.ID, s.Name, s.RefLine, s.Profile)
	})
	for _, r := range roads {
		m.data[r.id] = r
	}
	return roads
}

func (m *RoadManager) allocID() int32 {
	id := m.nextID
	m.nextID++
	return id
}

// Create 创建一条新道路并分配ID
func (m *RoadManager) Create(name string, refLine RefLine, p *profile.RoadProfile) *Road {
	r := New(m.allocID(), name, refLine, p)
	m.data[r.id] = r
	return r
}

// Add 将已生成的道路加入管理器，ID为0时分配新ID
func (m *RoadManager) Add(r *Road) *Road {
	if r.id == 0 {
		r.id = m.allocID()
	} else if _, ok := m.data[r.id]; ok {
		log.Panicf("duplicate road id %d", r.id)
	} else {
		m.nextID = max(m.nextID, r.id+1)
	}
	m.data[r.id] = r
	return r
}

// Get 根据ID获取Road实例，不存在则panic
func (m *RoadManager) Get(id int32) *Road {
	if road, ok := m.data[id]; !ok {
		log.Panicf("no id %d in road data", id)
		return nil
	} else {
		return road
	}
}

// GetOrError 根据ID获取Road实例（带错误处理）
func (m *RoadManager) GetOrError(id int32) (*Road, error) {
	if road, ok := m.data[id]; !ok {
		return nil, fmt.Errorf("no id %d in road data", id)
	} else {
		return road, nil
	}
}

// Has 道路是否存在
func (m *RoadManager) Has(id int32) bool {
	_, ok := m.data[id]
	return ok
}

// Remove 移除道路
func (m *RoadManager) Remove(id int32) {
	delete(m.data, id)
}

// All 按ID升序的全部道路
func (m *RoadManager) All() []*Road {
	roads := lo.Values(m.data)
	sort.Slice(roads, func(i, j int) bool { return roads[i].id < roads[j].id })
	return roads
}

// Len 道路数量
func (m *RoadManager) Len() int {
	return len(m.data)
}

// Regenerate 并行重新生成指定道路
func (m *RoadManager) Regenerate(ids []int32) {
	roads := lo.Map(ids, func(id int32, _ int) *Road { return m.Get(id) })
	parallel.GoFor(roads, func(r *Road) { r.Generate() })
}
