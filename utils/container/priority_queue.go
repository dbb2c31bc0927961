package container

import "container/heap"

type pqItem[T any] struct {
	value    T
	priority float64
}

// pqHeap 最小堆，实现heap.Interface
type pqHeap[T any] []pqItem[T]

func (h pqHeap[T]) Len() int           { return len(h) }
func (h pqHeap[T]) Less(i, j int) bool { return h[i].priority < h[j].priority }
func (h pqHeap[T]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *pqHeap[T]) Push(x any) {
	*h = append(*h, x.(pqItem[T]))
}

func (h *pqHeap[T]) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// PriorityQueue 优先队列（优先级数值越小越靠前）
// 功能：按距离等代价排序输出元素，例如射线命中点按离起点的距离排序
type PriorityQueue[T any] struct {
	queue pqHeap[T]
}

// NewPriorityQueue 创建优先队列
func NewPriorityQueue[T any]() *PriorityQueue[T] {
	return &PriorityQueue[T]{queue: make(pqHeap[T], 0)}
}

// Len 当前队列长度
func (q *PriorityQueue[T]) Len() int {
	return len(q.queue)
}

// First 优先级数值最小的元素，不出队
func (q *PriorityQueue[T]) First() T {
	return q.queue[0].value
}

// Push 批量加入元素，不维护堆结构，之后需要调用Heapify
func (q *PriorityQueue[T]) Push(value T, priority float64) {
	q.queue = append(q.queue, pqItem[T]{value: value, priority: priority})
}

// Heapify 批量加入后重建堆
func (q *PriorityQueue[T]) Heapify() {
	heap.Init(&q.queue)
}

// HeapPush 加入元素并维护堆结构
func (q *PriorityQueue[T]) HeapPush(value T, priority float64) {
	heap.Push(&q.queue, pqItem[T]{value: value, priority: priority})
}

// HeapPop 弹出优先级数值最小的元素
func (q *PriorityQueue[T]) HeapPop() (value T, priority float64) {
	it := heap.Pop(&q.queue).(pqItem[T])
	return it.value, it.priority
}
