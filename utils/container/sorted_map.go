package container

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// SortedMap 有序映射
// 功能：按键升序维护键值对，支持前驱/后继查找，用于s坐标索引的时间线（车道段、多项式、剖面）
// 说明：键集合用有序切片维护，插入删除O(n)，查找O(log n)
type SortedMap[K constraints.Ordered, V any] struct {
	keys []K
	data map[K]V
}

// NewSortedMap 创建空的有序映射
func NewSortedMap[K constraints.Ordered, V any]() *SortedMap[K, V] {
	return &SortedMap[K, V]{data: make(map[K]V)}
}

// Len 元素个数
func (m *SortedMap[K, V]) Len() int {
	return len(m.keys)
}

// Get 获取键对应的值
func (m *SortedMap[K, V]) Get(k K) (V, bool) {
	v, ok := m.data[k]
	return v, ok
}

// Has 判断键是否存在
func (m *SortedMap[K, V]) Has(k K) bool {
	_, ok := m.data[k]
	return ok
}

// Set 写入键值对，已存在则覆盖
func (m *SortedMap[K, V]) Set(k K, v V) {
	if m.data == nil {
		m.data = make(map[K]V)
	}
	if _, ok := m.data[k]; !ok {
		i := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] >= k })
		m.keys = append(m.keys, k)
		copy(m.keys[i+1:], m.keys[i:])
		m.keys[i] = k
	}
	m.data[k] = v
}

// SetIfAbsent 仅当键不存在时写入
// 返回：是否写入
func (m *SortedMap[K, V]) SetIfAbsent(k K, v V) bool {
	if m.Has(k) {
		return false
	}
	m.Set(k, v)
	return true
}

// Delete 删除键，不存在时无操作
func (m *SortedMap[K, V]) Delete(k K) {
	if _, ok := m.data[k]; !ok {
		return
	}
	delete(m.data, k)
	i := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] >= k })
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
}

// DeleteIf 删除所有满足条件的键
func (m *SortedMap[K, V]) DeleteIf(pred func(k K, v V) bool) {
	kept := m.keys[:0]
	for _, k := range m.keys {
		if pred(k, m.data[k]) {
			delete(m.data, k)
		} else {
			kept = append(kept, k)
		}
	}
	m.keys = kept
}

// Keys 升序键列表（副本）
func (m *SortedMap[K, V]) Keys() []K {
	return append([]K(nil), m.keys...)
}

// KeyAt 第i个键
func (m *SortedMap[K, V]) KeyAt(i int) K {
	return m.keys[i]
}

// At 第i个键值对
func (m *SortedMap[K, V]) At(i int) (K, V) {
	k := m.keys[i]
	return k, m.data[k]
}

// First 最小键值对
func (m *SortedMap[K, V]) First() (k K, v V, ok bool) {
	if len(m.keys) == 0 {
		return
	}
	k = m.keys[0]
	return k, m.data[k], true
}

// Last 最大键值对
func (m *SortedMap[K, V]) Last() (k K, v V, ok bool) {
	if len(m.keys) == 0 {
		return
	}
	k = m.keys[len(m.keys)-1]
	return k, m.data[k], true
}

// Floor 小于等于k的最大键
func (m *SortedMap[K, V]) Floor(k K) (key K, v V, ok bool) {
	i := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] > k })
	if i == 0 {
		return
	}
	key = m.keys[i-1]
	return key, m.data[key], true
}

// Ceil 大于等于k的最小键
func (m *SortedMap[K, V]) Ceil(k K) (key K, v V, ok bool) {
	i := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] >= k })
	if i == len(m.keys) {
		return
	}
	key = m.keys[i]
	return key, m.data[key], true
}

// Higher 严格大于k的最小键
func (m *SortedMap[K, V]) Higher(k K) (key K, v V, ok bool) {
	i := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] > k })
	if i == len(m.keys) {
		return
	}
	key = m.keys[i]
	return key, m.data[key], true
}

// Range 按升序遍历，f返回false时停止
func (m *SortedMap[K, V]) Range(f func(k K, v V) bool) {
	for _, k := range m.keys {
		if !f(k, m.data[k]) {
			return
		}
	}
}

// RangeReverse 按降序遍历，f返回false时停止
func (m *SortedMap[K, V]) RangeReverse(f func(k K, v V) bool) {
	for i := len(m.keys) - 1; i >= 0; i-- {
		k := m.keys[i]
		if !f(k, m.data[k]) {
			return
		}
	}
}

// Clone 浅拷贝
func (m *SortedMap[K, V]) Clone() *SortedMap[K, V] {
	c := &SortedMap[K, V]{
		keys: append([]K(nil), m.keys...),
		data: make(map[K]V, len(m.data)),
	}
	for k, v := range m.data {
		c.data[k] = v
	}
	return c
}

// Clear 清空
func (m *SortedMap[K, V]) Clear() {
	m.keys = nil
	m.data = make(map[K]V)
}
